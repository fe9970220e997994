package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/vmatch/internal/domain/model"
	"github.com/okian/vmatch/pkg/metrics"
)

// MemoryStore is an in-memory Store. Entities are stored and returned by value
// with their slices copied, so callers never share state with the store.
type MemoryStore struct {
	mu           sync.RWMutex
	volunteers   map[string]model.VolunteerProfile
	projects     map[string]model.Project
	applications map[string]model.Application
	applied      map[string]string // projectID|volunteerID -> application id

	metricsUpdateInterval time.Duration
	wg                    sync.WaitGroup
	stopChan              chan struct{}
	stopOnce              sync.Once
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty store and starts its metrics updater.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		volunteers:            make(map[string]model.VolunteerProfile),
		projects:              make(map[string]model.Project),
		applications:          make(map[string]model.Application),
		applied:               make(map[string]string),
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

func pairKey(projectID, volunteerID string) string {
	return projectID + "|" + volunteerID
}

// GetVolunteer implements Store.
func (s *MemoryStore) GetVolunteer(_ context.Context, id string) (model.VolunteerProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.volunteers[id]
	if !ok {
		return model.VolunteerProfile{}, fmt.Errorf("volunteer %s: %w", id, ErrNotFound)
	}
	return cloneVolunteer(v), nil
}

// SaveVolunteer implements Store.
func (s *MemoryStore) SaveVolunteer(_ context.Context, v model.VolunteerProfile) error { //nolint:gocritic // hugeParam: stored by value
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.volunteers[v.ID]; ok {
		v.CreatedAt = old.CreatedAt
	}
	s.volunteers[v.ID] = cloneVolunteer(v)
	return nil
}

// ListAvailableVolunteers implements Store.
func (s *MemoryStore) ListAvailableVolunteers(_ context.Context) ([]model.VolunteerProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.VolunteerProfile, 0, len(s.volunteers))
	for _, v := range s.volunteers {
		if v.Availability.Status == model.Available {
			out = append(out, cloneVolunteer(v))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetProject implements Store.
func (s *MemoryStore) GetProject(_ context.Context, id string) (model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return model.Project{}, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return cloneProject(p), nil
}

// CreateProject implements Store.
func (s *MemoryStore) CreateProject(_ context.Context, p model.Project) error { //nolint:gocritic // hugeParam: stored by value
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; ok {
		return fmt.Errorf("project %s: %w", p.ID, ErrDuplicate)
	}
	s.projects[p.ID] = cloneProject(p)
	return nil
}

// UpdateProjectStatus implements Store.
func (s *MemoryStore) UpdateProjectStatus(_ context.Context, id string, status model.ProjectStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	p.Status = status
	p.UpdatedAt = at
	s.projects[id] = p
	return nil
}

// ListActiveProjects implements Store.
func (s *MemoryStore) ListActiveProjects(_ context.Context) ([]model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Project, 0, len(s.projects))
	for _, p := range s.projects {
		if p.Status == model.ProjectActive {
			out = append(out, cloneProject(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateApplication implements Store.
func (s *MemoryStore) CreateApplication(_ context.Context, a model.Application) error { //nolint:gocritic // hugeParam: stored by value
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[a.ProjectID]
	if !ok {
		return fmt.Errorf("project %s: %w", a.ProjectID, ErrNotFound)
	}
	key := pairKey(a.ProjectID, a.VolunteerID)
	if _, dup := s.applied[key]; dup {
		return fmt.Errorf("application for %s: %w", key, ErrDuplicate)
	}
	if _, dup := s.applications[a.ID]; dup {
		return fmt.Errorf("application %s: %w", a.ID, ErrDuplicate)
	}
	if p.IsFull() {
		return fmt.Errorf("project %s: %w", p.ID, ErrProjectFull)
	}
	p.AppliedCount++
	s.projects[p.ID] = p
	s.applications[a.ID] = a
	s.applied[key] = a.ID
	return nil
}

// GetApplication implements Store.
func (s *MemoryStore) GetApplication(_ context.Context, id string) (model.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.applications[id]
	if !ok {
		return model.Application{}, fmt.Errorf("application %s: %w", id, ErrNotFound)
	}
	return a, nil
}

// TransitionApplication implements Store.
func (s *MemoryStore) TransitionApplication(_ context.Context, id string, from, to model.ApplicationStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.applications[id]
	if !ok {
		return fmt.Errorf("application %s: %w", id, ErrNotFound)
	}
	if a.Status != from {
		return fmt.Errorf("application %s is %s: %w", id, a.Status, ErrStaleStatus)
	}
	a.Status = to
	a.UpdatedAt = at
	s.applications[id] = a
	return nil
}

// ListApplicationsByVolunteer implements Store.
func (s *MemoryStore) ListApplicationsByVolunteer(_ context.Context, volunteerID string) ([]model.Application, error) {
	return s.filterApplications(func(a model.Application) bool { return a.VolunteerID == volunteerID }), nil
}

// ListApplicationsByProject implements Store.
func (s *MemoryStore) ListApplicationsByProject(_ context.Context, projectID string) ([]model.Application, error) {
	return s.filterApplications(func(a model.Application) bool { return a.ProjectID == projectID }), nil
}

func (s *MemoryStore) filterApplications(keep func(model.Application) bool) []model.Application {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Application, 0)
	for _, a := range s.applications {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Counts implements Store.
func (s *MemoryStore) Counts(_ context.Context) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counts{
		Volunteers:   len(s.volunteers),
		Projects:     len(s.projects),
		Applications: len(s.applications),
	}, nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close stops the metrics updater.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// startMetricsUpdater periodically publishes catalog sizes.
func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *MemoryStore) updateMetrics() {
	s.mu.RLock()
	volunteers, projects := len(s.volunteers), len(s.projects)
	s.mu.RUnlock()
	metrics.UpdateCatalogSize(volunteers, projects)
}

func cloneVolunteer(v model.VolunteerProfile) model.VolunteerProfile { //nolint:gocritic // hugeParam: copy is the point
	v.Skills = append([]model.VolunteerSkill(nil), v.Skills...)
	v.Interests = append([]string(nil), v.Interests...)
	if v.Location != nil {
		loc := *v.Location
		v.Location = &loc
	}
	return v
}

func cloneProject(p model.Project) model.Project { //nolint:gocritic // hugeParam: copy is the point
	p.Skills = append([]model.ProjectSkill(nil), p.Skills...)
	p.Tags = append([]string(nil), p.Tags...)
	if p.Location != nil {
		loc := *p.Location
		p.Location = &loc
	}
	return p
}
