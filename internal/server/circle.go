package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lazypower/reserve/internal/identity"
	"github.com/lazypower/reserve/internal/store"
)

func (s *Server) handleCreateInvite(w http.ResponseWriter, r *http.Request) {
	inv, err := s.engine.CreateInvite(r.Context(), identity.UserID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inviteView{Code: inv.Code, ExpiresAt: inv.ExpiresAt})
}

func (s *Server) handleAcceptInvite(w http.ResponseWriter, r *http.Request) {
	c, err := s.engine.AcceptInvite(r.Context(), identity.UserID(r.Context()), chi.URLParam(r, "code"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newConnectionView(c))
}

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := s.db.ListConnections(r.Context(), identity.UserID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]connectionView, len(conns))
	for i := range conns {
		out[i] = newConnectionView(&conns[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRemoveConnection(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.RemoveConnection(r.Context(), identity.UserID(r.Context()), chi.URLParam(r, "userID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReceiverID string `json:"receiverId"`
		depositRequest
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.ReceiverID == "" {
		s.writeError(w, r, &store.ValidationError{Field: "receiverId", Message: "required"})
		return
	}

	sd, err := s.engine.Share(r.Context(), identity.UserID(r.Context()), req.ReceiverID, req.input())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSentView(sd))
}

func (s *Server) handleListReceived(w http.ResponseWriter, r *http.Request) {
	shared, err := s.db.ListReceived(r.Context(), identity.UserID(r.Context()), queryBool(r, "includeInactive"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receivedViews(shared))
}

func (s *Server) handleListSent(w http.ResponseWriter, r *http.Request) {
	shared, err := s.db.ListSent(r.Context(), identity.UserID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]sentView, len(shared))
	for i := range shared {
		out[i] = newSentView(&shared[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSurfaceShared(w http.ResponseWriter, r *http.Request) {
	sd, err := s.engine.SurfaceForReceiver(r.Context(), identity.UserID(r.Context()), queryList(r, "exclude"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if sd == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, newReceivedView(sd))
}

// handleUseShared accepts an empty body; helpful stays unanswered.
func (s *Server) handleUseShared(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Helpful *bool `json:"helpful"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	sd, err := s.engine.UseShared(r.Context(), identity.UserID(r.Context()), chi.URLParam(r, "id"), req.Helpful)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newReceivedView(sd))
}

func (s *Server) handleSetSharedStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	n, err := req.value()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sd, err := s.db.SetSharedStatus(r.Context(), identity.UserID(r.Context()), chi.URLParam(r, "id"), n)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newReceivedView(sd))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	weeks, err := queryInt(r, "weeksBack", s.engine.Config().SummaryWeeks)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sum, err := s.engine.SenderSummary(r.Context(), identity.UserID(r.Context()), weeks)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleListSummaries(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	digests, err := s.engine.ListDigests(r.Context(), identity.UserID(r.Context()), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]digestView, len(digests))
	for i, d := range digests {
		out[i] = digestView{TotalUses: d.TotalUses, HelpfulUses: d.HelpfulUses, Weeks: d.Weeks, CreatedAt: d.CreatedAt}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.db.GetSettings(r.Context(), identity.UserID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsView{SummaryFrequencyWeeks: st.SummaryFrequencyWeeks, LastSummaryAt: st.LastSummaryAt})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SummaryFrequencyWeeks int `json:"summaryFrequencyWeeks"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	st, err := s.engine.UpdateSettings(r.Context(), identity.UserID(r.Context()), req.SummaryFrequencyWeeks)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsView{SummaryFrequencyWeeks: st.SummaryFrequencyWeeks, LastSummaryAt: st.LastSummaryAt})
}
