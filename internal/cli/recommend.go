package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	service "github.com/okian/vmatch/internal/app"
	"github.com/okian/vmatch/internal/domain/model"
	"github.com/okian/vmatch/pkg/logger"
)

// ErrTarget is returned unless exactly one of --volunteer and --project is set.
var ErrTarget = errors.New("exactly one of --volunteer or --project is required")

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Print ranked matches from the configured store",
	Long: `Rank projects for a volunteer, or volunteers for a project, and print a table.

Examples:
  vmatch recommend --volunteer 3f0c...      # best projects for a volunteer
  vmatch recommend --project 9a1e... -n 5   # top 5 volunteers for a project`,
	RunE: runRecommend,
}

var (
	recommendVolunteer string
	recommendProject   string
	recommendLimit     int
)

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().StringVar(&recommendVolunteer, "volunteer", "", "volunteer id to find projects for")
	recommendCmd.Flags().StringVar(&recommendProject, "project", "", "project id to recommend volunteers for")
	recommendCmd.Flags().IntVarP(&recommendLimit, "limit", "n", 0, "maximum number of results (default: matching.default_limit)")
}

func runRecommend(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if (recommendVolunteer == "") == (recommendProject == "") {
		return ErrTarget
	}
	limit := recommendLimit
	if !cmd.Flags().Changed("limit") {
		limit = cfg.Matching.DefaultLimit
	}

	rt, err := build(ctx, cfg, service.WithNotifyTopK(0), service.WithWorkerCount(1))
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	defer func() {
		if err := rt.close(); err != nil {
			logger.Get().Error(ctx, "failed to release resources", logger.Error(err))
		}
	}()
	if err := rt.svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer func() { _ = rt.svc.Stop(ctx) }()

	out := cmd.OutOrStdout()
	if recommendVolunteer != "" {
		matches, err := rt.svc.FindMatches(ctx, recommendVolunteer, limit)
		if err != nil {
			return err
		}
		return renderProjectMatches(out, matches)
	}
	recs, err := rt.svc.RecommendVolunteers(ctx, recommendProject, limit)
	if err != nil {
		return err
	}
	return renderVolunteerMatches(out, recs)
}

func renderProjectMatches(w io.Writer, matches []model.ProjectMatch) error {
	if len(matches) == 0 {
		_, err := fmt.Fprintln(w, "No matching projects.")
		return err
	}
	rows := make([][]string, 0, len(matches))
	for i, m := range matches {
		rows = append(rows, append([]string{strconv.Itoa(i + 1), m.Entity.ID, m.Entity.Title}, scoreCells(m.Score, m.Factors, m.Reason)...))
	}
	return renderTable(w, []string{"#", "Project", "Title"}, rows)
}

func renderVolunteerMatches(w io.Writer, recs []model.VolunteerMatch) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, "No matching volunteers.")
		return err
	}
	rows := make([][]string, 0, len(recs))
	for i, m := range recs {
		rows = append(rows, append([]string{strconv.Itoa(i + 1), m.Entity.ID, m.Entity.Name}, scoreCells(m.Score, m.Factors, m.Reason)...))
	}
	return renderTable(w, []string{"#", "Volunteer", "Name"}, rows)
}

func scoreCells(score float64, f model.MatchFactors, reason string) []string {
	return []string{
		strconv.FormatFloat(score, 'f', 1, 64),
		strconv.FormatFloat(f.Skills, 'f', 2, 64),
		strconv.FormatFloat(f.Location, 'f', 2, 64),
		strconv.FormatFloat(f.Interests, 'f', 2, 64),
		strconv.FormatFloat(f.Availability, 'f', 2, 64),
		strconv.FormatFloat(f.Experience, 'f', 2, 64),
		reason,
	}
}

func renderTable(w io.Writer, lead []string, rows [][]string) error {
	header := make([]any, 0, len(lead)+7)
	for _, h := range lead {
		header = append(header, h)
	}
	header = append(header, "Score", "Skills", "Location", "Interests", "Avail", "Exp", "Reason")

	table := tablewriter.NewWriter(w)
	table.Header(header...)
	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	return nil
}
