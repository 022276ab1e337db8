package state

import (
	"slices"
	"sync"

	"github.com/rendis/flowcanvas/internal/diagram"
)

// Node change types accepted by ApplyNodeChanges.
const (
	ChangePosition   = "position"
	ChangeDimensions = "dimensions"
	ChangeSelect     = "select"
	ChangeRemove     = "remove"
)

// NodeChange is a canvas interaction reported back for one node.
type NodeChange struct {
	Type     string            `json:"type"`
	ID       string            `json:"id"`
	Position *diagram.Position `json:"position,omitempty"`
	Width    float64           `json:"width,omitempty"`
	Height   float64           `json:"height,omitempty"`
	Selected bool              `json:"selected,omitempty"`
}

// EdgeChange is a canvas interaction reported back for one edge. Only
// select and remove apply to edges.
type EdgeChange struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Selected bool   `json:"selected,omitempty"`
}

// GraphStore owns the laid-out nodes and edges and the layout direction.
type GraphStore struct {
	mu    sync.RWMutex
	nodes []diagram.Node
	edges []diagram.Edge
	dir   diagram.Direction

	obsMu     sync.Mutex
	observers map[int]func(diagram.Graph)
	nextObs   int
}

func NewGraphStore(dir diagram.Direction) *GraphStore {
	if !dir.Valid() {
		dir = diagram.DirectionRight
	}
	return &GraphStore{
		dir:       dir,
		observers: make(map[int]func(diagram.Graph)),
	}
}

func (s *GraphStore) Nodes() []diagram.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.nodes)
}

func (s *GraphStore) Edges() []diagram.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.edges)
}

// Snapshot returns a copy of the current graph.
func (s *GraphStore) Snapshot() diagram.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return diagram.Graph{Nodes: s.nodes, Edges: s.edges}.Clone()
}

func (s *GraphStore) Direction() diagram.Direction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dir
}

// SetGraph replaces nodes and edges together.
func (s *GraphStore) SetGraph(g diagram.Graph) {
	s.update(func() {
		s.nodes = slices.Clone(g.Nodes)
		s.edges = slices.Clone(g.Edges)
	})
}

func (s *GraphStore) SetNodes(nodes []diagram.Node) {
	s.update(func() { s.nodes = slices.Clone(nodes) })
}

func (s *GraphStore) SetEdges(edges []diagram.Edge) {
	s.update(func() { s.edges = slices.Clone(edges) })
}

// SetDirection records dir. It does not move any node; re-layout is the
// caller's job.
func (s *GraphStore) SetDirection(dir diagram.Direction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dir = dir
}

// DeleteNode splices out the node at index without rebuilding edges.
// An out-of-range index is a no-op and returns false.
func (s *GraphStore) DeleteNode(index int) bool {
	deleted := false
	s.update(func() {
		if index < 0 || index >= len(s.nodes) {
			return
		}
		s.nodes = slices.Delete(slices.Clone(s.nodes), index, index+1)
		deleted = true
	})
	return deleted
}

// ApplyNodeChanges applies canvas interactions to the nodes. Unknown ids
// and change types are ignored.
func (s *GraphStore) ApplyNodeChanges(changes []NodeChange) {
	s.update(func() {
		nodes := slices.Clone(s.nodes)
		for _, c := range changes {
			i := slices.IndexFunc(nodes, func(n diagram.Node) bool { return n.ID == c.ID })
			if i < 0 {
				continue
			}
			switch c.Type {
			case ChangePosition:
				if c.Position != nil {
					nodes[i].Position = *c.Position
				}
			case ChangeDimensions:
				if c.Width > 0 {
					nodes[i].Width = c.Width
				}
				if c.Height > 0 {
					nodes[i].Height = c.Height
				}
			case ChangeSelect:
				nodes[i].Selected = c.Selected
			case ChangeRemove:
				nodes = slices.Delete(nodes, i, i+1)
			}
		}
		s.nodes = nodes
	})
}

// ApplyEdgeChanges applies canvas interactions to the edges.
func (s *GraphStore) ApplyEdgeChanges(changes []EdgeChange) {
	s.update(func() {
		edges := slices.Clone(s.edges)
		for _, c := range changes {
			i := slices.IndexFunc(edges, func(e diagram.Edge) bool { return e.ID == c.ID })
			if i < 0 {
				continue
			}
			switch c.Type {
			case ChangeSelect:
				edges[i].Selected = c.Selected
			case ChangeRemove:
				edges = slices.Delete(edges, i, i+1)
			}
		}
		s.edges = edges
	})
}

// Subscribe registers fn for every graph update.
func (s *GraphStore) Subscribe(fn func(diagram.Graph)) (cancel func()) {
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.obsMu.Lock()
			delete(s.observers, id)
			s.obsMu.Unlock()
		})
	}
}

func (s *GraphStore) update(fn func()) {
	s.mu.Lock()
	fn()
	snap := diagram.Graph{Nodes: s.nodes, Edges: s.edges}.Clone()
	s.mu.Unlock()

	s.obsMu.Lock()
	ids := make([]int, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(diagram.Graph), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.observers[id])
	}
	s.obsMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
