package api

import (
	"net/http"

	"github.com/okian/vmatch/internal/domain/model"
)

type applicationRequest struct {
	VolunteerID string `json:"volunteer_id"`
	Message     string `json:"message"`
}

type applicationStatusRequest struct {
	Status model.ApplicationStatus `json:"status"`
}

// handleApply handles POST /projects/{id}/applications.
func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var req applicationRequest
	if err := decodeValid(r, s.maxBodyBytes, schemaApplication, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.deps.Apply(r.Context(), r.PathValue("id"), req.VolunteerID, req.Message)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// handleApplicationStatus handles PATCH /applications/{id}.
func (s *Server) handleApplicationStatus(w http.ResponseWriter, r *http.Request) {
	var req applicationStatusRequest
	if err := decodeValid(r, s.maxBodyBytes, schemaApplicationStatus, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.deps.UpdateApplication(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
