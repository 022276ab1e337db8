package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rendis/flowcanvas/internal/steps"
	"github.com/rendis/flowcanvas/internal/store"
	"github.com/rendis/flowcanvas/pkg/schema"
)

func (s *Server) handleListDrafts(w http.ResponseWriter, r *http.Request) {
	if s.deps.Drafts == nil {
		writeNotImplemented(w, "draft store")
		return
	}
	q := r.URL.Query()
	list, err := s.deps.Drafts.ListDrafts(r.Context(), store.DraftFilter{
		Name:      q.Get("name"),
		DSL:       q.Get("dsl"),
		Namespace: q.Get("namespace"),
		Limit:     queryInt(r, "limit", 0),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []*store.Draft{}
	}
	writeJSON(w, http.StatusOK, list)
}

// handleSaveDraft saves the current integration under the posted name. On
// PUT /drafts/{id} the draft is overwritten.
func (s *Server) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	if s.deps.Drafts == nil {
		writeNotImplemented(w, "draft store")
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	d := &store.Draft{
		ID:          chi.URLParam(r, "id"),
		Name:        body.Name,
		Integration: steps.CloneIntegration(s.store().Integration()),
	}
	status := http.StatusCreated
	if d.ID != "" {
		status = http.StatusOK
		prev, err := s.deps.Drafts.GetDraft(r.Context(), d.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		d.CreatedAt = prev.CreatedAt
	}

	if err := s.deps.Drafts.SaveDraft(r.Context(), d); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, status, d)
}

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	if s.deps.Drafts == nil {
		writeNotImplemented(w, "draft store")
		return
	}
	d, err := s.deps.Drafts.GetDraft(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	if s.deps.Drafts == nil {
		writeNotImplemented(w, "draft store")
		return
	}
	if err := s.deps.Drafts.DeleteDraft(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleLoadDraft replaces the current integration with a saved draft.
func (s *Server) handleLoadDraft(w http.ResponseWriter, r *http.Request) {
	if s.deps.Drafts == nil {
		writeNotImplemented(w, "draft store")
		return
	}
	d, err := s.deps.Drafts.GetDraft(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	in := d.Integration
	if in == nil {
		in = schema.NewIntegration()
	}
	if err := s.replaceIntegration(in); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.store().Integration())
}
