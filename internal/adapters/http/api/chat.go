package api

import "net/http"

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

// handleChat handles POST /chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeValid(r, s.maxBodyBytes, schemaChat, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	reply, err := s.deps.Chat(r.Context(), req.Message)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}
