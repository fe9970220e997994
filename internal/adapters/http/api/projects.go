package api

import (
	"net/http"
	"strings"

	"github.com/okian/vmatch/internal/domain/model"
)

type coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c *coordinates) toModel() *model.Coordinates {
	if c == nil {
		return nil
	}
	return &model.Coordinates{Lat: c.Lat, Lng: c.Lng}
}

type projectSkill struct {
	Name     string `json:"name"`
	Level    string `json:"level"`
	Required bool   `json:"required"`
}

// projectRequest mirrors the OpenAPI schema for POST /projects.
type projectRequest struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organization_id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Category       string         `json:"category"`
	Tags           []string       `json:"tags"`
	Skills         []projectSkill `json:"skills"`
	Location       *coordinates   `json:"location"`
	HoursPerWeek   float64        `json:"hours_per_week"`
	DurationWeeks  int            `json:"duration_weeks"`
	Capacity       int            `json:"capacity"`
	ContactEmail   string         `json:"contact_email"`
}

func (req *projectRequest) toModel() (model.Project, error) {
	skills := make([]model.ProjectSkill, 0, len(req.Skills))
	for _, s := range req.Skills {
		level, err := model.ParseProficiency(s.Level)
		if err != nil {
			return model.Project{}, badRequest(err)
		}
		skills = append(skills, model.ProjectSkill{Name: strings.TrimSpace(s.Name), Level: level, Required: s.Required})
	}
	return model.Project{
		ID:             strings.TrimSpace(req.ID),
		OrganizationID: strings.TrimSpace(req.OrganizationID),
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		Category:       strings.TrimSpace(req.Category),
		Tags:           req.Tags,
		Skills:         skills,
		Location:       req.Location.toModel(),
		HoursPerWeek:   req.HoursPerWeek,
		DurationWeeks:  req.DurationWeeks,
		Capacity:       req.Capacity,
		ContactEmail:   strings.TrimSpace(req.ContactEmail),
	}, nil
}

type projectStatusRequest struct {
	Status model.ProjectStatus `json:"status"`
}

type recommendationsResponse struct {
	ProjectID       string                 `json:"project_id"`
	Recommendations []model.VolunteerMatch `json:"recommendations"`
}

// handleCreateProject handles POST /projects.
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := decodeValid(r, s.maxBodyBytes, schemaProject, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := req.toModel()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	created, err := s.deps.CreateProject(r.Context(), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/projects/"+created.ID)
	writeJSON(w, http.StatusCreated, created)
}

// handleGetProject handles GET /projects/{id}.
func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleProjectStatus handles PATCH /projects/{id}/status.
func (s *Server) handleProjectStatus(w http.ResponseWriter, r *http.Request) {
	var req projectStatusRequest
	if err := decodeValid(r, s.maxBodyBytes, schemaProjectStatus, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.deps.UpdateProjectStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleRecommendations handles GET /projects/{id}/recommendations.
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	limit, err := s.limit(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	id := r.PathValue("id")
	recs, err := s.deps.RecommendVolunteers(r.Context(), id, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recommendationsResponse{ProjectID: id, Recommendations: recs})
}
