package api

import (
	"net/http"
	"strings"

	"github.com/okian/vmatch/internal/domain/model"
)

type volunteerSkill struct {
	Name  string `json:"name"`
	Level string `json:"level"`
	Years int    `json:"years"`
}

type availability struct {
	Status       model.AvailabilityStatus `json:"status"`
	HoursPerWeek float64                  `json:"hours_per_week"`
}

// volunteerRequest mirrors the OpenAPI schema for PUT /volunteers/{id}.
type volunteerRequest struct {
	UserID       string           `json:"user_id"`
	Name         string           `json:"name"`
	Email        string           `json:"email"`
	Skills       []volunteerSkill `json:"skills"`
	Interests    []string         `json:"interests"`
	Location     *coordinates     `json:"location"`
	Availability availability     `json:"availability"`
	TotalHours   float64          `json:"total_hours"`
	ImpactScore  float64          `json:"impact_score"`
}

func (req *volunteerRequest) toModel(id string) (model.VolunteerProfile, error) {
	skills := make([]model.VolunteerSkill, 0, len(req.Skills))
	for _, s := range req.Skills {
		level, err := model.ParseProficiency(s.Level)
		if err != nil {
			return model.VolunteerProfile{}, badRequest(err)
		}
		skills = append(skills, model.VolunteerSkill{Name: strings.TrimSpace(s.Name), Level: level, Years: s.Years})
	}
	return model.VolunteerProfile{
		ID:        id,
		UserID:    strings.TrimSpace(req.UserID),
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.TrimSpace(req.Email),
		Skills:    skills,
		Interests: req.Interests,
		Location:  req.Location.toModel(),
		Availability: model.Availability{
			Status:       req.Availability.Status,
			HoursPerWeek: req.Availability.HoursPerWeek,
		},
		TotalHours:  req.TotalHours,
		ImpactScore: req.ImpactScore,
	}, nil
}

type matchesResponse struct {
	VolunteerID string               `json:"volunteer_id"`
	Matches     []model.ProjectMatch `json:"matches"`
}

// handleSaveVolunteer handles PUT /volunteers/{id}.
func (s *Server) handleSaveVolunteer(w http.ResponseWriter, r *http.Request) {
	var req volunteerRequest
	if err := decodeValid(r, s.maxBodyBytes, schemaVolunteer, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	v, err := req.toModel(r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	saved, err := s.deps.SaveVolunteer(r.Context(), v)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// handleGetVolunteer handles GET /volunteers/{id}.
func (s *Server) handleGetVolunteer(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.GetVolunteer(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleMatches handles GET /volunteers/{id}/matches.
func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	limit, err := s.limit(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	id := r.PathValue("id")
	matches, err := s.deps.FindMatches(r.Context(), id, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matchesResponse{VolunteerID: id, Matches: matches})
}
