// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/vmatch/internal/domain/model"
	"github.com/okian/vmatch/pkg/logger"
)

const (
	defaultLimit        = 10
	defaultMaxBodyBytes = 1 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CreateProject(ctx context.Context, p model.Project) (model.Project, error)
	GetProject(ctx context.Context, id string) (model.Project, error)
	UpdateProjectStatus(ctx context.Context, id string, status model.ProjectStatus) (model.Project, error)

	SaveVolunteer(ctx context.Context, v model.VolunteerProfile) (model.VolunteerProfile, error)
	GetVolunteer(ctx context.Context, id string) (model.VolunteerProfile, error)

	FindMatches(ctx context.Context, volunteerID string, limit int) ([]model.ProjectMatch, error)
	RecommendVolunteers(ctx context.Context, projectID string, limit int) ([]model.VolunteerMatch, error)

	Apply(ctx context.Context, projectID, volunteerID, message string) (model.Application, error)
	UpdateApplication(ctx context.Context, id string, status model.ApplicationStatus) (model.Application, error)

	Chat(ctx context.Context, message string) (string, error)
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithDefaultLimit sets the limit used when a request omits ?limit=.
func WithDefaultLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.defaultLimit = n
		}
	}
}

// WithMaxBodyBytes bounds request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithLogger sets a custom logger for the handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps         Dependencies
	health       *HealthHandler
	stats        *StatsHandler
	defaultLimit int
	maxBodyBytes int64
	logger       logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:         deps,
		health:       NewHealthHandler(),
		stats:        NewStatsHandler(statsProvider),
		defaultLimit: defaultLimit,
		maxBodyBytes: defaultMaxBodyBytes,
		logger:       logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.health.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.stats.HandleStats, "stats"))

	mux.HandleFunc("POST /projects", MetricsMiddleware(s.handleCreateProject, "projects"))
	mux.HandleFunc("GET /projects/{id}", MetricsMiddleware(s.handleGetProject, "project"))
	mux.HandleFunc("PATCH /projects/{id}/status", MetricsMiddleware(s.handleProjectStatus, "project_status"))
	mux.HandleFunc("GET /projects/{id}/recommendations", MetricsMiddleware(s.handleRecommendations, "recommendations"))
	mux.HandleFunc("POST /projects/{id}/applications", MetricsMiddleware(s.handleApply, "applications"))
	mux.HandleFunc("PATCH /applications/{id}", MetricsMiddleware(s.handleApplicationStatus, "application"))

	mux.HandleFunc("PUT /volunteers/{id}", MetricsMiddleware(s.handleSaveVolunteer, "volunteer"))
	mux.HandleFunc("GET /volunteers/{id}", MetricsMiddleware(s.handleGetVolunteer, "volunteer"))
	mux.HandleFunc("GET /volunteers/{id}/matches", MetricsMiddleware(s.handleMatches, "matches"))

	mux.HandleFunc("POST /chat", MetricsMiddleware(s.handleChat, "chat"))
}

// limit reads ?limit=, falling back to the default. Range checks belong to the matcher.
func (s *Server) limit(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return s.defaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: limit must be an integer, got %q", ErrBadRequest, raw)
	}
	return n, nil
}

// fail logs server-side failures and writes the mapped error.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.Error(err),
		)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: err.Error()})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
