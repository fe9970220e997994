package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	service "github.com/okian/vmatch/internal/app"
	"github.com/okian/vmatch/internal/domain/matching"
	"github.com/okian/vmatch/internal/domain/model"
	"github.com/okian/vmatch/internal/seed"
	"github.com/okian/vmatch/pkg/logger"
)

const seedPreviewRows = 5

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a synthetic catalog into the configured store",
	Long: `Generate volunteers and projects and write them to the configured store.
The same --seed always produces the same ids, so reruns update instead of duplicating.
No notifications are sent while seeding.

Examples:
  vmatch seed                                  # 200 volunteers, 50 projects
  vmatch seed --volunteers 5000 --projects 800
  vmatch seed --seed 7 --workers 16`,
	RunE: runSeed,
}

var (
	seedVolunteers int
	seedProjects   int
	seedValue      uint64
	seedWorkers    int
)

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().IntVar(&seedVolunteers, "volunteers", 200, "number of volunteers to generate")
	seedCmd.Flags().IntVar(&seedProjects, "projects", 50, "number of projects to generate")
	seedCmd.Flags().Uint64Var(&seedValue, "seed", 42, "random seed")
	seedCmd.Flags().IntVar(&seedWorkers, "workers", runtime.NumCPU(), "concurrent writers")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := logger.Get()
	if seedVolunteers < 0 || seedProjects < 0 {
		return errors.New("--volunteers and --projects must not be negative")
	}
	if cfg.Storage.Driver == "" || cfg.Storage.Driver == "memory" {
		log.Warn(ctx, "storage driver is memory; the seeded catalog is discarded on exit")
	}

	rt, err := build(ctx, cfg, service.WithNotifyTopK(0), service.WithWorkerCount(1))
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	defer func() {
		if err := rt.close(); err != nil {
			log.Error(ctx, "failed to release resources", logger.Error(err))
		}
	}()
	if err := rt.svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer func() { _ = rt.svc.Stop(ctx) }()

	gen := seed.NewGenerator(seed.WithSeed(seedValue))
	volunteers := gen.Volunteers(seedVolunteers)
	projects := gen.Projects(seedProjects)

	stats, err := seed.Load(ctx, upsertSink{rt.svc}, volunteers, projects, seedWorkers)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d volunteers and %d projects in %s.\n",
		stats.Volunteers, stats.Projects, stats.Duration.Round(time.Millisecond))
	return renderSeedPreview(cmd.OutOrStdout(), volunteers, projects)
}

// upsertSink skips projects that already exist so seeding is repeatable.
type upsertSink struct {
	svc *service.Service
}

func (s upsertSink) SaveVolunteer(ctx context.Context, v model.VolunteerProfile) (model.VolunteerProfile, error) { //nolint:gocritic // hugeParam: mirrors seed.Sink
	return s.svc.SaveVolunteer(ctx, v)
}

func (s upsertSink) CreateProject(ctx context.Context, p model.Project) (model.Project, error) { //nolint:gocritic // hugeParam: mirrors seed.Sink
	if existing, err := s.svc.GetProject(ctx, p.ID); err == nil {
		return existing, nil
	} else if !errors.Is(err, matching.ErrNotFound) {
		return model.Project{}, err
	}
	return s.svc.CreateProject(ctx, p)
}

// renderSeedPreview prints a few ids to feed into recommend.
func renderSeedPreview(w io.Writer, volunteers []model.VolunteerProfile, projects []model.Project) error {
	table := tablewriter.NewWriter(w)
	table.Header("Kind", "ID", "Name")
	for _, v := range volunteers[:min(seedPreviewRows, len(volunteers))] {
		if err := table.Append("volunteer", v.ID, v.Name); err != nil {
			return fmt.Errorf("render table: %w", err)
		}
	}
	for _, p := range projects[:min(seedPreviewRows, len(projects))] {
		if err := table.Append("project", p.ID, p.Title); err != nil {
			return fmt.Errorf("render table: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	return nil
}
