package seed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/vmatch/internal/domain/model"
	"github.com/okian/vmatch/pkg/logger"
)

// ErrNoWorkers is returned when Load is asked to run with no workers.
var ErrNoWorkers = errors.New("seed: worker count must be positive")

// Sink receives generated records.
type Sink interface {
	SaveVolunteer(ctx context.Context, v model.VolunteerProfile) (model.VolunteerProfile, error)
	CreateProject(ctx context.Context, p model.Project) (model.Project, error)
}

// Stats summarizes a Load run.
type Stats struct {
	Volunteers int
	Projects   int
	Failed     int
	Duration   time.Duration
}

// Load writes volunteers then projects into sink using workers goroutines.
// It stops at the first failure and returns it.
func Load(ctx context.Context, sink Sink, volunteers []model.VolunteerProfile, projects []model.Project, workers int) (Stats, error) {
	if workers <= 0 {
		return Stats{}, ErrNoWorkers
	}
	start := time.Now()
	log := logger.Get().Named("seed")
	var stats Stats

	n, err := fanOut(ctx, volunteers, workers, func(ctx context.Context, v model.VolunteerProfile) error {
		_, err := sink.SaveVolunteer(ctx, v)
		return err
	})
	stats.Volunteers = n
	if err != nil {
		stats.Failed = len(volunteers) - n
		stats.Duration = time.Since(start)
		return stats, fmt.Errorf("seed volunteers: %w", err)
	}
	log.Info(ctx, "volunteers loaded", logger.Int("count", n))

	n, err = fanOut(ctx, projects, workers, func(ctx context.Context, p model.Project) error {
		_, err := sink.CreateProject(ctx, p)
		return err
	})
	stats.Projects = n
	stats.Duration = time.Since(start)
	if err != nil {
		stats.Failed = len(projects) - n
		return stats, fmt.Errorf("seed projects: %w", err)
	}
	log.Info(ctx, "projects loaded", logger.Int("count", n), logger.Duration("elapsed", stats.Duration))
	return stats, nil
}

// fanOut splits items into contiguous ranges, one per worker, and returns how
// many were written successfully.
func fanOut[T any](ctx context.Context, items []T, workers int, write func(context.Context, T) error) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers = min(workers, len(items))
	per := len(items) / workers

	var (
		mu       sync.Mutex
		written  int
		firstErr error
		wg       sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		from := w * per
		to := from + per
		if w == workers-1 {
			to = len(items)
		}
		wg.Add(1)
		go func(from, to int) {
			defer wg.Done()
			for i := from; i < to; i++ {
				if ctx.Err() != nil {
					return
				}
				if err := write(ctx, items[i]); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("item %d: %w", i, err)
					}
					mu.Unlock()
					cancel()
					return
				}
				mu.Lock()
				written++
				mu.Unlock()
			}
		}(from, to)
	}
	wg.Wait()

	if firstErr != nil {
		return written, firstErr
	}
	if err := ctx.Err(); err != nil && written < len(items) {
		return written, fmt.Errorf("context cancelled during seeding: %w", err)
	}
	return written, nil
}
