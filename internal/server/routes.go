package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lazypower/reserve/internal/identity"
	"github.com/lazypower/reserve/internal/store"
)

type depositRequest struct {
	Content   string   `json:"content"`
	Emotion   string   `json:"emotion"`
	Tags      []string `json:"tags"`
	MediaURI  string   `json:"mediaUri"`
	MediaType string   `json:"mediaType"`
}

func (d depositRequest) input() store.DepositInput {
	return store.DepositInput{
		Content:   d.Content,
		Emotion:   d.Emotion,
		Tags:      d.Tags,
		MediaURI:  d.MediaURI,
		MediaType: d.MediaType,
	}
}

func (s *Server) handleListDeposits(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserID(r.Context())
	deposits, err := s.db.ListDeposits(r.Context(), userID, queryBool(r, "includeInactive"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, depositViews(deposits))
}

func (s *Server) handleCreateDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	d, err := s.engine.CreateDeposit(r.Context(), identity.UserID(r.Context()), req.input())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newDepositView(d))
}

// handleSurface serves both GET ?exclude=a,b and POST {"excludeIds": [...]}.
// An empty reserve answers 200 with a null body.
func (s *Server) handleSurface(w http.ResponseWriter, r *http.Request) {
	exclude := queryList(r, "exclude")
	if r.Method == http.MethodPost && r.ContentLength != 0 {
		var req struct {
			ExcludeIDs []string `json:"excludeIds"`
		}
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		exclude = append(exclude, req.ExcludeIDs...)
	}

	d, err := s.engine.Surface(r.Context(), identity.UserID(r.Context()), exclude)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if d == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, newDepositView(d))
}

func (s *Server) handleGetDeposit(w http.ResponseWriter, r *http.Request) {
	d, err := s.db.GetDeposit(r.Context(), identity.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDepositView(d))
}

func (s *Server) handleUpdateDeposit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content *string   `json:"content"`
		Emotion *string   `json:"emotion"`
		Tags    *[]string `json:"tags"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	d, err := s.db.UpdateDeposit(r.Context(), identity.UserID(r.Context()), chi.URLParam(r, "id"), store.DepositPatch{
		Content: req.Content,
		Emotion: req.Emotion,
		Tags:    req.Tags,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDepositView(d))
}

// statusRequest keeps the raw value so a non-numeric status is reported
// against the status field rather than as malformed json.
type statusRequest struct {
	Status json.RawMessage `json:"status"`
}

func (req statusRequest) value() (int, error) {
	var n int
	if len(req.Status) == 0 || json.Unmarshal(req.Status, &n) != nil {
		return 0, &store.ValidationError{Field: "status", Message: "must be an integer"}
	}
	return n, nil
}

func (s *Server) handleSetDepositStatus(w http.ResponseWriter, r *http.Request) {
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

	d, err := s.db.SetDepositStatus(r.Context(), identity.UserID(r.Context()), chi.URLParam(r, "id"), n)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDepositView(d))
}

func (s *Server) handleDeleteDeposit(w http.ResponseWriter, r *http.Request) {
	if err := s.db.SoftDeleteDeposit(r.Context(), identity.UserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleMarkSurfaced(w http.ResponseWriter, r *http.Request) {
	d, err := s.engine.UseDeposit(r.Context(), identity.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDepositView(d))
}
