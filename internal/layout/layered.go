package layout

import (
	"context"
	"errors"

	"github.com/rendis/flowcanvas/internal/diagram"
)

// LayeredEngine is a pure Go layered layout. Nodes are ranked by longest
// path from the sources, ranks advance along the direction and nodes of a
// rank are stacked across it in input order, centred on the main axis.
type LayeredEngine struct {
	RankSep float64
	NodeSep float64
	Margin  float64
}

func NewLayeredEngine() *LayeredEngine {
	return &LayeredEngine{
		RankSep: 60,
		NodeSep: 40,
		Margin:  2 * diagram.GroupPadding,
	}
}

func (e *LayeredEngine) Name() string {
	return EngineLayered
}

var errCycle = errors.New("graph contains a cycle")

func (e *LayeredEngine) Layout(ctx context.Context, g diagram.Graph, dir diagram.Direction) (diagram.Graph, error) {
	out := g.Clone()

	ranks, err := computeRanks(out)
	if err != nil {
		return diagram.Graph{}, layoutError(e.Name(), err)
	}
	if err := ctx.Err(); err != nil {
		return diagram.Graph{}, err
	}

	// Group node indexes by rank, preserving input order.
	maxRank := 0
	for _, r := range ranks {
		maxRank = max(maxRank, r)
	}
	levels := make([][]int, maxRank+1)
	for i := range out.Nodes {
		if out.Nodes[i].IsGroup() {
			continue
		}
		levels[ranks[i]] = append(levels[ranks[i]], i)
	}

	along := 0.0
	for _, level := range levels {
		// depth is the largest extent along the main axis, stride the
		// largest across it.
		depth, stride := diagram.DefaultNodeSize, diagram.DefaultNodeSize
		for _, i := range level {
			w, h := nodeSize(out.Nodes[i])
			if dir.Horizontal() {
				depth, stride = max(depth, w), max(stride, h)
			} else {
				depth, stride = max(depth, h), max(stride, w)
			}
		}
		stride += e.NodeSep

		across := -(float64(len(level))*stride - e.NodeSep) / 2
		for _, i := range level {
			n := &out.Nodes[i]
			switch dir {
			case diagram.DirectionDown:
				n.Position = diagram.Position{X: across, Y: along}
			case diagram.DirectionUp:
				n.Position = diagram.Position{X: across, Y: -along}
			case diagram.DirectionLeft:
				n.Position = diagram.Position{X: -along, Y: across}
			default:
				n.Position = diagram.Position{X: along, Y: across}
			}
			across += stride
		}
		along += depth + e.RankSep
	}

	normalize(out.Nodes, e.Margin)
	return out, nil
}

// computeRanks assigns every non-group node its longest-path distance from
// a source, using Kahn's algorithm over the edges. Group containers get
// rank 0 and are ignored by callers.
func computeRanks(g diagram.Graph) ([]int, error) {
	index := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		if n.IsGroup() {
			continue
		}
		index[n.ID] = i
	}

	inDegree := make([]int, len(g.Nodes))
	succ := make([][]int, len(g.Nodes))
	for _, e := range g.Edges {
		src, okSrc := index[e.Source]
		tgt, okTgt := index[e.Target]
		if !okSrc || !okTgt {
			continue
		}
		succ[src] = append(succ[src], tgt)
		inDegree[tgt]++
	}

	// Sources in input order for deterministic output.
	queue := make([]int, 0, len(index))
	for i, n := range g.Nodes {
		if !n.IsGroup() && inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	ranks := make([]int, len(g.Nodes))
	visited := 0
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		visited++

		for _, s := range succ[n] {
			ranks[s] = max(ranks[s], ranks[n]+1)
			inDegree[s]--
			if inDegree[s] == 0 {
				queue = append(queue, s)
			}
		}
	}

	if visited != len(index) {
		return nil, errCycle
	}
	return ranks, nil
}

var _ Engine = (*LayeredEngine)(nil)
