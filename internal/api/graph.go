package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rendis/flowcanvas/internal/diagram"
	"github.com/rendis/flowcanvas/internal/state"
	"github.com/rendis/flowcanvas/pkg/schema"
)

type graphResponse struct {
	Direction   diagram.Direction    `json:"direction"`
	Nodes       []diagram.Node       `json:"nodes"`
	Edges       []diagram.Edge       `json:"edges"`
	Affordances []diagram.Affordance `json:"affordances"`
}

// handleGetGraph returns the committed graph, or its Mermaid rendering
// when ?format=mermaid.
func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	gs := s.deps.Editor.GraphStore()
	g := gs.Snapshot()
	dir := gs.Direction()

	if r.URL.Query().Get("format") == "mermaid" {
		writeText(w, http.StatusOK, diagram.RenderMermaid(g, dir))
		return
	}

	writeJSON(w, http.StatusOK, graphResponse{
		Direction:   dir,
		Nodes:       g.Nodes,
		Edges:       g.Edges,
		Affordances: diagram.GraphAffordances(g),
	})
}

func (s *Server) handleSetDirection(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Direction diagram.Direction `json:"direction"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.deps.Editor.SetDirection(body.Direction); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"direction": body.Direction})
}

func (s *Server) handleNodeChanges(w http.ResponseWriter, r *http.Request) {
	var changes []state.NodeChange
	if !decodeBody(w, r, &changes) {
		return
	}
	gs := s.deps.Editor.GraphStore()
	gs.ApplyNodeChanges(changes)
	writeJSON(w, http.StatusOK, gs.Nodes())
}

func (s *Server) handleEdgeChanges(w http.ResponseWriter, r *http.Request) {
	var changes []state.EdgeChange
	if !decodeBody(w, r, &changes) {
		return
	}
	gs := s.deps.Editor.GraphStore()
	gs.ApplyEdgeChanges(changes)
	writeJSON(w, http.StatusOK, gs.Edges())
}

func (s *Server) handleClickNode(w http.ResponseWriter, r *http.Request) {
	sel, err := s.deps.Editor.SelectNode(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

// handleFillPlaceholder inserts the posted step into the placeholder slot.
func (s *Server) handleFillPlaceholder(w http.ResponseWriter, r *http.Request) {
	var step schema.Step
	if !decodeBody(w, r, &step) {
		return
	}
	if err := s.deps.Editor.InsertStep(chi.URLParam(r, "id"), step); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.store().Integration())
}
