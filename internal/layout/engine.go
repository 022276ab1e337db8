// Package layout assigns coordinates to the nodes produced by the diagram
// builder.
package layout

import (
	"context"
	"math"

	"github.com/rendis/flowcanvas/internal/diagram"
	"github.com/rendis/flowcanvas/pkg/schema"
)

// Engine computes node positions. Implementations return new slices and
// leave the input graph untouched. Group containers are copied as is;
// FitGroups sizes them afterwards.
type Engine interface {
	Name() string
	Layout(ctx context.Context, g diagram.Graph, dir diagram.Direction) (diagram.Graph, error)
}

// Engine names accepted by New.
const (
	EngineLayered  = "layered"
	EngineGraphviz = "graphviz"
)

// New returns the engine registered under name.
func New(name string) (Engine, error) {
	switch name {
	case "", EngineLayered:
		return NewLayeredEngine(), nil
	case EngineGraphviz:
		return NewGraphvizEngine(), nil
	default:
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown layout engine %q", name)
	}
}

// Size is a width/height pair in pixels.
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Apply runs the full layout pipeline synchronously: engine, group
// fitting, and placeholder centring when viewport is non-zero.
func Apply(ctx context.Context, engine Engine, g diagram.Graph, dir diagram.Direction, viewport Size) (diagram.Graph, error) {
	out, err := engine.Layout(ctx, g, dir)
	if err != nil {
		return diagram.Graph{}, err
	}
	out.Nodes = FitGroups(out.Nodes)
	if viewport.Width > 0 && viewport.Height > 0 {
		out.Nodes = CenterPlaceholder(out.Nodes, viewport)
	}
	return out, nil
}

func nodeSize(n diagram.Node) (w, h float64) {
	w, h = n.Width, n.Height
	if w <= 0 {
		w = diagram.DefaultNodeSize
	}
	if h <= 0 {
		h = diagram.DefaultNodeSize
	}
	return w, h
}

// normalize shifts every non-group node so the top-left corner of the
// drawing sits at (margin, margin).
func normalize(nodes []diagram.Node, margin float64) {
	minX, minY := math.Inf(1), math.Inf(1)
	for _, n := range nodes {
		if n.IsGroup() {
			continue
		}
		minX = math.Min(minX, n.Position.X)
		minY = math.Min(minY, n.Position.Y)
	}
	if math.IsInf(minX, 1) {
		return
	}
	for i := range nodes {
		if nodes[i].IsGroup() {
			continue
		}
		nodes[i].Position.X += margin - minX
		nodes[i].Position.Y += margin - minY
	}
}

func layoutError(engine string, err error) error {
	return schema.NewErrorf(schema.ErrCodeLayout, "%s layout failed", engine).
		WithCause(err).
		WithDetails(map[string]any{"engine": engine})
}
