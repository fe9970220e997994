// Package service wires the catalog store, the matcher, the notification
// dispatcher and the chatbot into the operations the HTTP API and CLI expose.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/vmatch/internal/adapters/chat"
	eventqueue "github.com/okian/vmatch/internal/adapters/mq/queue"
	workerpool "github.com/okian/vmatch/internal/adapters/mq/worker"
	"github.com/okian/vmatch/internal/adapters/notify"
	"github.com/okian/vmatch/internal/adapters/repository"
	"github.com/okian/vmatch/internal/domain/dedupe"
	"github.com/okian/vmatch/internal/domain/matching"
	"github.com/okian/vmatch/internal/domain/model"
	"github.com/okian/vmatch/pkg/logger"
	"github.com/okian/vmatch/pkg/metrics"
)

const (
	opCreateProject     = "service.create_project"
	opGetProject        = "service.get_project"
	opUpdateProject     = "service.update_project_status"
	opSaveVolunteer     = "service.save_volunteer"
	opGetVolunteer      = "service.get_volunteer"
	opApply             = "service.apply"
	opDecideApplication = "service.update_application"
	opStats             = "service.stats"
)

// Service implements the API dependencies of the matching system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	matcher    *matching.Matcher
	notifier   notify.Notifier
	responder  chat.Responder
	deduper    dedupe.Deduper
	queue      eventqueue.NotificationQueue
	workerPool *workerpool.Pool

	// Configuration
	matcherOpts       []matching.Option
	workerCount       int
	queueSize         int
	dedupeSize        int
	notifyTopK        int
	candidatePoolSize int
	deliveryTimeout   time.Duration
	now               func() time.Time

	// State
	started  bool
	bgCtx    context.Context
	bgCancel context.CancelFunc
	bg       sync.WaitGroup

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:       runtime.NumCPU(),
		queueSize:         1024,
		dedupeSize:        50000,
		notifyTopK:        5,
		candidatePoolSize: 20,
		deliveryTimeout:   10 * time.Second,
		now:               func() time.Time { return time.Now().UTC() },
		bgCancel:          func() {},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifyTopK > s.candidatePoolSize {
		s.notifyTopK = s.candidatePoolSize
	}
	return s
}

// Start initializes the components and starts the notification workers.
// Workers and background matching outlive ctx until Stop is called.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting matching service...")

	runCtx := context.WithoutCancel(ctx)
	if s.store == nil {
		s.store = repository.NewMemoryStore(runCtx)
		s.logger.Info(ctx, "using in-memory store")
	}
	if s.notifier == nil {
		s.notifier = notify.NewLogNotifier(s.logger.Named("notify"))
	}

	s.matcher = matching.New(s.store, append([]matching.Option{
		matching.WithLogger(s.logger.Named("matcher")),
	}, s.matcherOpts...)...)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue[model.Notification](eventqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.queue, s.notifier,
		workerpool.WithLogger(s.logger.Named("dispatcher")),
		workerpool.WithDeliveryTimeout(s.deliveryTimeout),
		workerpool.WithForgetter(s.deduper),
	)
	s.bgCtx, s.bgCancel = context.WithCancel(runCtx)
	s.workerPool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "matching service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("notifyTopK", s.notifyTopK),
		logger.Int("candidatePoolSize", s.candidatePoolSize),
		logger.String("channel", s.notifier.Channel()),
	)
	return nil
}

// Stop cancels background matching, drains queued notifications until ctx
// expires and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping matching service...")
	s.bgCancel()
	s.bg.Wait()

	var errs []error
	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.workerPool.Stop()
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	s.logger.Info(ctx, "matching service stopped")
	return errors.Join(errs...)
}

// Running reports whether Start has been called and Stop has not.
func (s *Service) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// CreateProject stores a new ACTIVE project and starts proactive matching for it.
func (s *Service) CreateProject(ctx context.Context, p model.Project) (model.Project, error) { //nolint:gocritic // hugeParam: input by value
	if err := s.ready(); err != nil {
		return model.Project{}, err
	}
	now := s.now()
	if strings.TrimSpace(p.ID) == "" {
		p.ID = uuid.NewString()
	}
	p.Status = model.ProjectActive
	p.AppliedCount = 0
	p.CreatedAt = now
	p.UpdatedAt = now
	normalizeProjectSkills(p.Skills)
	if err := p.Validate(); err != nil {
		return model.Project{}, matching.Invalid(opCreateProject, err.Error())
	}

	if err := s.store.CreateProject(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.Project{}, matching.Invalid(opCreateProject, fmt.Sprintf("project %q already exists", p.ID))
		}
		return model.Project{}, matching.Upstream(opCreateProject, err)
	}
	s.logger.Info(ctx, "project created",
		logger.String("project_id", p.ID),
		logger.String("organization_id", p.OrganizationID),
	)
	s.goMatch(p)
	return p, nil
}

// GetProject returns a project by id.
func (s *Service) GetProject(ctx context.Context, id string) (model.Project, error) {
	if err := s.ready(); err != nil {
		return model.Project{}, err
	}
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return model.Project{}, classify(opGetProject, "project", id, err)
	}
	return p, nil
}

// UpdateProjectStatus closes or cancels an active project.
func (s *Service) UpdateProjectStatus(ctx context.Context, id string, status model.ProjectStatus) (model.Project, error) {
	if err := s.ready(); err != nil {
		return model.Project{}, err
	}
	if status != model.ProjectClosed && status != model.ProjectCancelled {
		return model.Project{}, matching.Invalid(opUpdateProject, fmt.Sprintf("status must be CLOSED or CANCELLED, got %q", status))
	}
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return model.Project{}, classify(opUpdateProject, "project", id, err)
	}
	if p.Status != model.ProjectActive {
		return model.Project{}, matching.Invalid(opUpdateProject, fmt.Sprintf("project is already %s", p.Status))
	}
	now := s.now()
	if err := s.store.UpdateProjectStatus(ctx, id, status, now); err != nil {
		return model.Project{}, classify(opUpdateProject, "project", id, err)
	}
	p.Status = status
	p.UpdatedAt = now
	return p, nil
}

// SaveVolunteer creates or replaces a volunteer profile.
func (s *Service) SaveVolunteer(ctx context.Context, v model.VolunteerProfile) (model.VolunteerProfile, error) { //nolint:gocritic // hugeParam: input by value
	if err := s.ready(); err != nil {
		return model.VolunteerProfile{}, err
	}
	now := s.now()
	if v.Availability.Status == "" {
		v.Availability.Status = model.Available
	}
	for i := range v.Skills {
		if v.Skills[i].Level == "" {
			v.Skills[i].Level = model.Beginner
		}
	}
	v.CreatedAt = now
	v.UpdatedAt = now
	if err := v.Validate(); err != nil {
		return model.VolunteerProfile{}, matching.Invalid(opSaveVolunteer, err.Error())
	}
	if err := s.store.SaveVolunteer(ctx, v); err != nil {
		return model.VolunteerProfile{}, matching.Upstream(opSaveVolunteer, err)
	}
	saved, err := s.store.GetVolunteer(ctx, v.ID)
	if err != nil {
		return model.VolunteerProfile{}, classify(opSaveVolunteer, "volunteer", v.ID, err)
	}
	return saved, nil
}

// GetVolunteer returns a volunteer profile by id.
func (s *Service) GetVolunteer(ctx context.Context, id string) (model.VolunteerProfile, error) {
	if err := s.ready(); err != nil {
		return model.VolunteerProfile{}, err
	}
	v, err := s.store.GetVolunteer(ctx, id)
	if err != nil {
		return model.VolunteerProfile{}, classify(opGetVolunteer, "volunteer", id, err)
	}
	return v, nil
}

// FindMatches ranks projects for a volunteer. It never notifies anyone.
func (s *Service) FindMatches(ctx context.Context, volunteerID string, limit int) ([]model.ProjectMatch, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.matcher.FindMatchesForVolunteer(ctx, volunteerID, limit)
}

// RecommendVolunteers ranks volunteers for a project. It never notifies anyone.
func (s *Service) RecommendVolunteers(ctx context.Context, projectID string, limit int) ([]model.VolunteerMatch, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.matcher.RecommendVolunteersForProject(ctx, projectID, limit)
}

// Apply records a volunteer's application to an active project and notifies
// the organization.
func (s *Service) Apply(ctx context.Context, projectID, volunteerID, message string) (model.Application, error) {
	if err := s.ready(); err != nil {
		return model.Application{}, err
	}
	v, err := s.store.GetVolunteer(ctx, volunteerID)
	if err != nil {
		return model.Application{}, classify(opApply, "volunteer", volunteerID, err)
	}
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return model.Application{}, classify(opApply, "project", projectID, err)
	}
	if p.Status != model.ProjectActive {
		return model.Application{}, matching.Invalid(opApply, fmt.Sprintf("project is %s", p.Status))
	}

	now := s.now()
	a := model.Application{
		ID:          uuid.NewString(),
		ProjectID:   p.ID,
		VolunteerID: v.ID,
		Status:      model.ApplicationPending,
		Message:     strings.TrimSpace(message),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateApplication(ctx, a); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return model.Application{}, matching.Invalid(opApply, "volunteer already applied to this project")
		case errors.Is(err, repository.ErrProjectFull):
			return model.Application{}, matching.Invalid(opApply, "project has no open seats")
		}
		return model.Application{}, classify(opApply, "project", projectID, err)
	}

	s.logger.Info(ctx, "application submitted",
		logger.String("application_id", a.ID),
		logger.String("project_id", p.ID),
		logger.String("volunteer_id", v.ID),
	)
	metrics.RecordApplication(string(a.Status))
	s.dispatch(ctx, newApplicationNotice(a, p, v, now))
	return a, nil
}

// UpdateApplication moves a pending application to ACCEPTED, REJECTED or
// WITHDRAWN and notifies the volunteer.
func (s *Service) UpdateApplication(ctx context.Context, id string, status model.ApplicationStatus) (model.Application, error) {
	if err := s.ready(); err != nil {
		return model.Application{}, err
	}
	if !status.Valid() {
		return model.Application{}, matching.Invalid(opDecideApplication, fmt.Sprintf("unknown application status %q", status))
	}
	a, err := s.store.GetApplication(ctx, id)
	if err != nil {
		return model.Application{}, classify(opDecideApplication, "application", id, err)
	}
	from := a.Status
	now := s.now()
	if err := a.Transition(status, now); err != nil {
		return model.Application{}, matching.Invalid(opDecideApplication, err.Error())
	}
	if err := s.store.TransitionApplication(ctx, id, from, status, now); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return model.Application{}, matching.Invalid(opDecideApplication, "application was updated concurrently")
		}
		return model.Application{}, classify(opDecideApplication, "application", id, err)
	}

	s.logger.Info(ctx, "application updated",
		logger.String("application_id", a.ID),
		logger.String("from", string(from)),
		logger.String("to", string(status)),
	)
	metrics.RecordApplication(string(status))
	if status != model.ApplicationWithdrawn {
		s.notifyVolunteer(ctx, a, now)
	}
	return a, nil
}

func (s *Service) notifyVolunteer(ctx context.Context, a model.Application, now time.Time) { //nolint:gocritic // hugeParam: value semantics
	var email, title string
	if v, err := s.store.GetVolunteer(ctx, a.VolunteerID); err == nil {
		email = v.Email
	}
	if p, err := s.store.GetProject(ctx, a.ProjectID); err == nil {
		title = p.Title
	}
	s.dispatch(ctx, applicationStatusNotice(a, title, email, now))
}

// Chat forwards a message to the configured responder.
func (s *Service) Chat(ctx context.Context, message string) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	if s.responder == nil {
		return "", chat.ErrDisabled
	}
	return s.responder.Reply(ctx, message)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":           s.started,
		"workerCount":       s.workerCount,
		"queueSize":         s.queueSize,
		"dedupeSize":        s.dedupeSize,
		"notifyTopK":        s.notifyTopK,
		"candidatePoolSize": s.candidatePoolSize,
		"chatEnabled":       s.responder != nil,
	}
	if !s.started {
		return stats, nil
	}

	counts, err := s.store.Counts(ctx)
	if err != nil {
		return nil, matching.Upstream(opStats, err)
	}
	delivered, failed := s.workerPool.Stats()
	stats["volunteers"] = counts.Volunteers
	stats["projects"] = counts.Projects
	stats["applications"] = counts.Applications
	stats["queueLength"] = s.queue.Len()
	stats["dedupeEntries"] = s.deduper.Size()
	stats["workersRunning"] = s.workerPool.Running()
	stats["delivered"] = delivered
	stats["failed"] = failed
	stats["channel"] = s.notifier.Channel()
	return stats, nil
}

// classify turns store errors into matching error kinds.
func classify(op, what, id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return matching.NotFound(op, what, id)
	}
	return matching.Upstream(op, err)
}

func normalizeProjectSkills(skills []model.ProjectSkill) {
	for i := range skills {
		if skills[i].Level == "" {
			skills[i].Level = model.Beginner
		}
	}
}
