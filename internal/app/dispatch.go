package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/vmatch/internal/domain/model"
	"github.com/okian/vmatch/pkg/logger"
	"github.com/okian/vmatch/pkg/metrics"
)

// goMatch runs proactive matching for a new project in the background.
// The caller's response never waits on it.
func (s *Service) goMatch(p model.Project) { //nolint:gocritic // hugeParam: snapshot for the goroutine
	if s.notifyTopK == 0 {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return
	}
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		s.notifyMatches(s.bgCtx, p)
	}()
}

// notifyMatches ranks the candidate pool for p and notifies the top volunteers.
func (s *Service) notifyMatches(ctx context.Context, p model.Project) { //nolint:gocritic // hugeParam: snapshot
	recs, err := s.matcher.RecommendVolunteersForProject(ctx, p.ID, s.candidatePoolSize)
	if err != nil {
		s.logger.Warn(ctx, "proactive matching failed",
			logger.String("project_id", p.ID),
			logger.Error(err),
		)
		metrics.RecordErrorByComponent("service", "proactive_matching")
		return
	}
	if len(recs) > s.notifyTopK {
		recs = recs[:s.notifyTopK]
	}
	now := s.now()
	for i := range recs {
		if ctx.Err() != nil {
			return
		}
		s.dispatch(ctx, projectMatchNotice(p, &recs[i], now))
	}
	s.logger.Debug(ctx, "proactive matching done",
		logger.String("project_id", p.ID),
		logger.Int("notified", len(recs)),
	)
}

// dispatch hands n to the worker pool unless an equivalent notification was
// already sent. It never blocks and never fails the caller.
func (s *Service) dispatch(ctx context.Context, n model.Notification) { //nolint:gocritic // hugeParam: value semantics
	key := n.DedupeKey()
	if s.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordNotificationDuplicate()
		s.logger.Debug(ctx, "duplicate notification skipped", logger.String("key", key))
		return
	}
	if !s.queue.Enqueue(ctx, n) {
		s.deduper.Unrecord(ctx, key)
		metrics.RecordNotificationDropped("queue_full")
		s.logger.Warn(ctx, "notification dropped",
			logger.String("key", key),
			logger.Int("queueLength", s.queue.Len()),
		)
		return
	}
	metrics.RecordNotificationEnqueued()
}

func projectMatchNotice(p model.Project, m *model.VolunteerMatch, now time.Time) model.Notification { //nolint:gocritic // hugeParam: snapshot
	return model.Notification{
		ID:             uuid.NewString(),
		RecipientID:    m.Entity.ID,
		RecipientEmail: m.Entity.Email,
		Type:           model.NotifyProjectMatch,
		Title:          "New project match: " + p.Title,
		Message:        fmt.Sprintf("%q looks like a good fit for you (score %.1f). %s.", p.Title, m.Score, m.Reason),
		Data: map[string]any{
			"subject_id": p.ID,
			"project_id": p.ID,
			"score":      m.Score,
			"reason":     m.Reason,
		},
		CreatedAt: now,
	}
}

func newApplicationNotice(a model.Application, p model.Project, v model.VolunteerProfile, now time.Time) model.Notification { //nolint:gocritic // hugeParam: snapshots
	name := v.Name
	if name == "" {
		name = "A volunteer"
	}
	return model.Notification{
		ID:             uuid.NewString(),
		RecipientID:    p.OrganizationID,
		RecipientEmail: p.ContactEmail,
		Type:           model.NotifyNewApplication,
		Title:          "New application for " + p.Title,
		Message:        fmt.Sprintf("%s applied to %q.", name, p.Title),
		Data: map[string]any{
			"subject_id":     a.ID,
			"application_id": a.ID,
			"project_id":     p.ID,
			"volunteer_id":   v.ID,
		},
		CreatedAt: now,
	}
}

func applicationStatusNotice(a model.Application, projectTitle, email string, now time.Time) model.Notification { //nolint:gocritic // hugeParam: snapshot
	if projectTitle == "" {
		projectTitle = "the project"
	}
	return model.Notification{
		ID:             uuid.NewString(),
		RecipientID:    a.VolunteerID,
		RecipientEmail: email,
		Type:           model.NotifyApplicationStatus,
		Title:          "Application " + string(a.Status),
		Message:        fmt.Sprintf("Your application to %s was %s.", projectTitle, statusVerb(a.Status)),
		Data: map[string]any{
			"subject_id":     a.ID,
			"application_id": a.ID,
			"project_id":     a.ProjectID,
			"status":         string(a.Status),
		},
		CreatedAt: now,
	}
}

func statusVerb(s model.ApplicationStatus) string {
	switch s {
	case model.ApplicationAccepted:
		return "accepted"
	case model.ApplicationRejected:
		return "declined"
	default:
		return "updated"
	}
}
