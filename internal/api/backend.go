package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rendis/flowcanvas/internal/state"
	"github.com/rendis/flowcanvas/pkg/schema"
)

func (s *Server) handleGetViews(w http.ResponseWriter, r *http.Request) {
	views := s.store().Views()
	if views == nil {
		views = []schema.View{}
	}
	writeJSON(w, http.StatusOK, views)
}

// handleGetSource renders the current integration to its source text.
func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	if s.deps.Source == nil {
		writeNotImplemented(w, "source service")
		return
	}
	src, err := s.deps.Source.FetchIntegrationSourceCode(r.Context(), s.store().Integration())
	if err != nil {
		writeError(w, err)
		return
	}
	writeText(w, http.StatusOK, src)
}

// handlePutSource parses the posted source text and replaces the
// integration with it.
func (s *Server) handlePutSource(w http.ResponseWriter, r *http.Request) {
	if s.deps.Source == nil {
		writeNotImplemented(w, "source service")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	cur := s.store().Integration().Metadata
	dsl := r.URL.Query().Get("dsl")
	if dsl == "" {
		dsl = cur.DSL
	}
	namespace := r.URL.Query().Get("namespace")
	if namespace == "" {
		namespace = cur.Namespace
	}

	in, err := s.deps.Source.FetchIntegrationJSON(r.Context(), string(body), dsl, namespace)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.replaceIntegration(in); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.store().Integration())
}

func (s *Server) replaceIntegration(in *schema.Integration) error {
	params := in.Params
	if params == nil {
		params = []schema.Parameter{}
	}
	list := in.Steps
	if list == nil {
		list = []schema.Step{}
	}
	return s.store().UpdateIntegration(state.IntegrationPatch{
		Metadata: &in.Metadata,
		Steps:    list,
		Params:   params,
	})
}

// handleCatalogSteps lists the cached catalog, narrowed by ?kind.
func (s *Server) handleCatalogSteps(w http.ResponseWriter, r *http.Request) {
	if s.deps.Catalog == nil {
		writeNotImplemented(w, "step catalog")
		return
	}
	if kind := r.URL.Query().Get("kind"); kind != "" {
		writeJSON(w, http.StatusOK, s.deps.Catalog.ByKind(kind))
		return
	}
	list, err := s.deps.Catalog.FetchCatalogSteps(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	if s.deps.Catalog == nil {
		writeNotImplemented(w, "step catalog")
		return
	}
	caps, err := s.deps.Catalog.FetchCapabilities(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, caps)
}

func (s *Server) namespace(r *http.Request) string {
	if ns := r.URL.Query().Get("namespace"); ns != "" {
		return ns
	}
	return s.store().Integration().Metadata.Namespace
}

func (s *Server) handleListDeployments(w http.ResponseWriter, r *http.Request) {
	if s.deps.Deployments == nil {
		writeNotImplemented(w, "deployment service")
		return
	}
	list, err := s.deps.Deployments.FetchDeployments(r.Context(), s.namespace(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetDeployment(w http.ResponseWriter, r *http.Request) {
	if s.deps.Deployments == nil {
		writeNotImplemented(w, "deployment service")
		return
	}
	src, err := s.deps.Deployments.FetchDeployment(r.Context(), chi.URLParam(r, "name"), s.namespace(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeText(w, http.StatusOK, src)
}

func (s *Server) handleDeploymentLogs(w http.ResponseWriter, r *http.Request) {
	if s.deps.Deployments == nil {
		writeNotImplemented(w, "deployment service")
		return
	}
	logs, err := s.deps.Deployments.FetchDeploymentLogs(r.Context(), chi.URLParam(r, "name"), s.namespace(r), queryInt(r, "lines", 100))
	if err != nil {
		writeError(w, err)
		return
	}
	writeText(w, http.StatusOK, logs)
}

// handleStartDeployment deploys the current integration under name.
func (s *Server) handleStartDeployment(w http.ResponseWriter, r *http.Request) {
	if s.deps.Deployments == nil {
		writeNotImplemented(w, "deployment service")
		return
	}
	out, err := s.deps.Deployments.StartDeployment(r.Context(), s.store().Integration(), chi.URLParam(r, "name"), s.namespace(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeText(w, http.StatusAccepted, out)
}

func (s *Server) handleStopDeployment(w http.ResponseWriter, r *http.Request) {
	if s.deps.Deployments == nil {
		writeNotImplemented(w, "deployment service")
		return
	}
	if err := s.deps.Deployments.StopDeployment(r.Context(), chi.URLParam(r, "name"), s.namespace(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
