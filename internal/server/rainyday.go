package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lazypower/reserve/internal/engine"
	"github.com/lazypower/reserve/internal/identity"
	"github.com/lazypower/reserve/internal/store"
)

func (s *Server) handleCreateRainyLog(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Emotion   string  `json:"emotion"`
		DepositID *string `json:"depositId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	l, err := s.db.CreateRainyLog(r.Context(), identity.UserID(r.Context()), req.Emotion, req.DepositID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newRainyLogView(l))
}

func (s *Server) handleListRainyLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	logs, err := s.db.ListRainyLogs(r.Context(), identity.UserID(r.Context()), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]rainyLogView, len(logs))
	for i := range logs {
		out[i] = newRainyLogView(&logs[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePatchRainyLog(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rating       *int    `json:"rating"`
		FeedbackNote *string `json:"feedbackNote"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	l, err := s.db.PatchRainyLog(r.Context(), identity.UserID(r.Context()), chi.URLParam(r, "id"), req.Rating, req.FeedbackNote)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRainyLogView(l))
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Emotion string `json:"emotion"`
		Target  int    `json:"target"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	round, err := s.engine.StartSession(r.Context(), identity.UserID(r.Context()), req.Emotion, req.Target)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRoundView(round))
}

// handleRateRound advances a session. The client echoes back the state from
// the previous round.
func (s *Server) handleRateRound(w http.ResponseWriter, r *http.Request) {
	var req struct {
		State        engine.SessionState `json:"state"`
		Rating       *int                `json:"rating"`
		FeedbackNote *string             `json:"feedbackNote"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Rating == nil {
		s.writeError(w, r, &store.ValidationError{Field: "rating", Message: "required"})
		return
	}

	round, err := s.engine.RateRound(r.Context(), identity.UserID(r.Context()), req.State, *req.Rating, req.FeedbackNote)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRoundView(round))
}
