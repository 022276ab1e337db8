// Package api exposes the editor over HTTP: integration and step mutations,
// the laid-out graph, canvas interactions, drafts, backend pass-through and
// an SSE stream of editor events.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rendis/flowcanvas/internal/backend"
	"github.com/rendis/flowcanvas/internal/catalog"
	"github.com/rendis/flowcanvas/internal/editor"
	"github.com/rendis/flowcanvas/internal/expressions"
	"github.com/rendis/flowcanvas/internal/logging"
	"github.com/rendis/flowcanvas/internal/metrics"
	"github.com/rendis/flowcanvas/internal/state"
	"github.com/rendis/flowcanvas/internal/store"
	"github.com/rendis/flowcanvas/internal/streaming"
)

// Deps holds the dependencies for the API server. Editor is required; a
// nil collaborator disables its routes with 501.
type Deps struct {
	Editor      *editor.Editor
	Validator   state.Validator
	Source      backend.SourceService
	Catalog     *catalog.Cache
	Deployments backend.DeploymentService
	Drafts      store.Store
	Hub         streaming.EventHub
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// Server serves the editor API.
type Server struct {
	deps Deps
	jq   *expressions.GoJQEngine
}

func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	return &Server{
		deps: deps,
		jq:   expressions.NewGoJQEngine(),
	}
}

// Handler returns the HTTP handler for every route.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestID)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.deps.Metrics.Handler())
	r.Get("/events", s.handleSSE)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/integration", func(r chi.Router) {
			r.Get("/", s.handleGetIntegration)
			r.Put("/", s.handleUpdateIntegration)
			r.Delete("/", s.handleDeleteIntegration)
			r.Post("/validate", s.handleValidateIntegration)
		})

		r.Route("/steps", func(r chi.Router) {
			r.Get("/", s.handleListSteps)
			r.Post("/", s.handleAddStep)
			r.Post("/prepend", s.handlePrependStep)
			r.Put("/{index}", s.handleReplaceStep)
			r.Delete("/{index}", s.handleDeleteStepIndex)

			r.Get("/at", s.handleGetStepAt)
			r.Post("/at", s.handleInsertStepAt)
			r.Put("/at", s.handleReplaceStepAt)
			r.Delete("/at", s.handleDeleteStepAt)

			r.Route("/uuid/{uuid}", func(r chi.Router) {
				r.Get("/", s.handleGetStep)
				r.Delete("/", s.handleDeleteStep)
				r.Post("/after", s.handleInsertAfter)
				r.Post("/before", s.handleInsertBefore)
				r.Post("/branches", s.handleAddBranch)
				r.Put("/config", s.handleSaveConfig)
			})
		})
		r.Get("/search", s.handleSearch)

		r.Route("/graph", func(r chi.Router) {
			r.Get("/", s.handleGetGraph)
			r.Put("/direction", s.handleSetDirection)
			r.Post("/nodes/changes", s.handleNodeChanges)
			r.Post("/edges/changes", s.handleEdgeChanges)
			r.Post("/nodes/{id}/click", s.handleClickNode)
			r.Post("/placeholders/{id}", s.handleFillPlaceholder)
		})

		r.Get("/views", s.handleGetViews)
		r.Get("/source", s.handleGetSource)
		r.Put("/source", s.handlePutSource)

		r.Route("/drafts", func(r chi.Router) {
			r.Get("/", s.handleListDrafts)
			r.Post("/", s.handleSaveDraft)
			r.Get("/{id}", s.handleGetDraft)
			r.Put("/{id}", s.handleSaveDraft)
			r.Delete("/{id}", s.handleDeleteDraft)
			r.Post("/{id}/load", s.handleLoadDraft)
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/steps", s.handleCatalogSteps)
			r.Get("/capabilities", s.handleCapabilities)
		})

		r.Route("/deployments", func(r chi.Router) {
			r.Get("/", s.handleListDeployments)
			r.Get("/{name}", s.handleGetDeployment)
			r.Get("/{name}/logs", s.handleDeploymentLogs)
			r.Post("/{name}", s.handleStartDeployment)
			r.Delete("/{name}", s.handleStopDeployment)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"layout": s.deps.Editor.EngineName(),
	})
}
