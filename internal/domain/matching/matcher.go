// Package matching ranks candidate projects for a volunteer and candidate
// volunteers for a project.
//
// The Matcher is read-only. It loads the anchor entity and its candidate set
// from an injected store, scores each pair, then sorts and truncates.
package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/okian/vmatch/internal/domain/explain"
	"github.com/okian/vmatch/internal/domain/model"
	"github.com/okian/vmatch/internal/domain/scoring"
	"github.com/okian/vmatch/pkg/logger"
	"github.com/okian/vmatch/pkg/metrics"
)

const (
	defaultMaxLimit = 100

	opFindMatches = "matching.find_matches_for_volunteer"
	opRecommend   = "matching.recommend_volunteers_for_project"
)

// CandidateStore is the read side the Matcher needs.
type CandidateStore interface {
	GetVolunteer(ctx context.Context, id string) (model.VolunteerProfile, error)
	GetProject(ctx context.Context, id string) (model.Project, error)
	ListActiveProjects(ctx context.Context) ([]model.Project, error)
	ListAvailableVolunteers(ctx context.Context) ([]model.VolunteerProfile, error)
	ListApplicationsByVolunteer(ctx context.Context, volunteerID string) ([]model.Application, error)
	ListApplicationsByProject(ctx context.Context, projectID string) ([]model.Application, error)
}

// Option applies a configuration option to the Matcher.
type Option func(*Matcher)

// WithScorer replaces the default scoring engine.
func WithScorer(s scoring.Scorer) Option {
	return func(m *Matcher) {
		if s != nil {
			m.scorer = s
		}
	}
}

// WithLogger sets a custom logger for the matcher.
func WithLogger(l logger.Logger) Option {
	return func(m *Matcher) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMaxLimit caps the limit callers may request.
func WithMaxLimit(n int) Option {
	return func(m *Matcher) {
		if n > 0 {
			m.maxLimit = n
		}
	}
}

// Matcher holds only its store, scorer and logger; it is safe for concurrent use.
type Matcher struct {
	store    CandidateStore
	scorer   scoring.Scorer
	logger   logger.Logger
	maxLimit int
}

// New creates a Matcher over store.
func New(store CandidateStore, opts ...Option) *Matcher {
	m := &Matcher{
		store:    store,
		scorer:   scoring.NewEngine(),
		logger:   logger.NewNop(),
		maxLimit: defaultMaxLimit,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FindMatchesForVolunteer ranks active, non-full projects the volunteer has not applied to.
func (m *Matcher) FindMatchesForVolunteer(ctx context.Context, volunteerID string, limit int) (out []model.ProjectMatch, err error) {
	start := time.Now()
	defer func() { observe(opFindMatches, start, err) }()

	if err := m.checkLimit(opFindMatches, limit); err != nil {
		return nil, err
	}
	v, err := m.store.GetVolunteer(ctx, volunteerID)
	if err != nil {
		return nil, translate(opFindMatches, "volunteer", volunteerID, err)
	}
	projects, err := m.store.ListActiveProjects(ctx)
	if err != nil {
		return nil, Upstream(opFindMatches, err)
	}
	applied, err := m.store.ListApplicationsByVolunteer(ctx, volunteerID)
	if err != nil {
		return nil, Upstream(opFindMatches, err)
	}
	skip := make(map[string]struct{}, len(applied))
	for _, a := range applied {
		skip[a.ProjectID] = struct{}{}
	}

	results := make([]model.ProjectMatch, 0, len(projects))
	for _, p := range projects {
		if _, ok := skip[p.ID]; ok || p.Status != model.ProjectActive || p.IsFull() {
			continue
		}
		results = append(results, newResult(p, m.scorer.Score(v, p)))
	}
	metrics.RecordCandidatesEvaluated(opFindMatches, len(results))

	rank(results, func(p model.Project) (time.Time, string) { return p.CreatedAt, p.ID })
	out = truncate(results, limit)
	m.logger.Debug(ctx, "matched projects for volunteer",
		logger.String("volunteer_id", volunteerID),
		logger.Int("candidates", len(results)),
		logger.Int("returned", len(out)),
	)
	return out, nil
}

// RecommendVolunteersForProject ranks available volunteers who have not applied to the project.
func (m *Matcher) RecommendVolunteersForProject(ctx context.Context, projectID string, limit int) (out []model.VolunteerMatch, err error) {
	start := time.Now()
	defer func() { observe(opRecommend, start, err) }()

	if err := m.checkLimit(opRecommend, limit); err != nil {
		return nil, err
	}
	p, err := m.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, translate(opRecommend, "project", projectID, err)
	}
	volunteers, err := m.store.ListAvailableVolunteers(ctx)
	if err != nil {
		return nil, Upstream(opRecommend, err)
	}
	applied, err := m.store.ListApplicationsByProject(ctx, projectID)
	if err != nil {
		return nil, Upstream(opRecommend, err)
	}
	skip := make(map[string]struct{}, len(applied))
	for _, a := range applied {
		skip[a.VolunteerID] = struct{}{}
	}

	results := make([]model.VolunteerMatch, 0, len(volunteers))
	for _, v := range volunteers {
		if _, ok := skip[v.ID]; ok || v.Availability.Status != model.Available {
			continue
		}
		results = append(results, newResult(v, m.scorer.Score(v, p)))
	}
	metrics.RecordCandidatesEvaluated(opRecommend, len(results))

	rank(results, func(v model.VolunteerProfile) (time.Time, string) { return v.CreatedAt, v.ID })
	out = truncate(results, limit)
	m.logger.Debug(ctx, "recommended volunteers for project",
		logger.String("project_id", projectID),
		logger.Int("candidates", len(results)),
		logger.Int("returned", len(out)),
	)
	return out, nil
}

func (m *Matcher) checkLimit(op string, limit int) error {
	if limit <= 0 {
		return Invalid(op, fmt.Sprintf("limit must be positive, got %d", limit))
	}
	if limit > m.maxLimit {
		return Invalid(op, fmt.Sprintf("limit must not exceed %d, got %d", m.maxLimit, limit))
	}
	return nil
}

func newResult[T any](entity T, f model.MatchFactors) model.MatchResult[T] {
	score := model.Round(f.Total(), 1)
	rounded := f.Rounded()
	metrics.RecordMatchScore(score)
	return model.MatchResult[T]{
		Entity:  entity,
		Score:   score,
		Factors: rounded,
		Reason:  explain.Explain(rounded),
	}
}

// rank sorts by score descending, then newest first, then id for a total order.
func rank[T any](rs []model.MatchResult[T], key func(T) (time.Time, string)) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].Score != rs[j].Score {
			return rs[i].Score > rs[j].Score
		}
		ti, idi := key(rs[i].Entity)
		tj, idj := key(rs[j].Entity)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return idi < idj
	})
}

func truncate[T any](rs []T, limit int) []T {
	if len(rs) > limit {
		return rs[:limit]
	}
	return rs
}

func translate(op, what, id string, err error) error {
	if errors.Is(err, model.ErrNotFound) {
		return NotFound(op, what, id)
	}
	return Upstream(op, err)
}

func observe(op string, start time.Time, err error) {
	outcome := "ok"
	switch Kind(err) {
	case ErrNotFound:
		outcome = "not_found"
	case ErrValidation:
		outcome = "invalid"
	case ErrUpstream:
		outcome = "upstream_error"
	}
	metrics.RecordMatchRequest(op, outcome)
	metrics.RecordMatchLatency(op, float64(time.Since(start).Milliseconds()))
}
