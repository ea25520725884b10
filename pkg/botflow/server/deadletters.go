package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/randalmurphal/botflow/pkg/botflow/emit"
)

type deadLettersResponse struct {
	Count  int                `json:"count"`
	Events []emit.FailedEvent `json:"events"`
}

type replayResponse struct {
	Delivered int    `json:"delivered"`
	Remaining int    `json:"remaining"`
	Error     string `json:"error,omitempty"`
}

// handleListDeadLetters handles GET /deadletters?limit=N.
func (s *Server) handleListDeadLetters(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, deadLettersResponse{
		Count:  s.deadLetter.Len(),
		Events: s.deadLetter.List(limit),
	})
}

// handleReplayDeadLetters handles POST /deadletters/replay.
func (s *Server) handleReplayDeadLetters(w http.ResponseWriter, r *http.Request) {
	if s.replayTo == nil {
		writeError(w, http.StatusServiceUnavailable, "no replay sink configured")
		return
	}
	delivered, err := s.deadLetter.Replay(r.Context(), s.replayTo)
	resp := replayResponse{Delivered: delivered, Remaining: s.deadLetter.Len()}
	if err != nil {
		s.logger.Warn("dead letter replay incomplete", "delivered", delivered, "error", err)
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleAckDeadLetter handles DELETE /deadletters/{eventID}.
func (s *Server) handleAckDeadLetter(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "eventID")
	if !s.deadLetter.Acknowledge(id) {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
