package layout

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/rendis/flowcanvas/internal/diagram"
)

// formatPlain is graphviz's line-oriented output: one "node name x y w h
// ..." line per node, coordinates in inches with the origin bottom-left.
const formatPlain graphviz.Format = "plain"

const pointsPerInch = 72.0

// GraphvizEngine lays the graph out with the dot algorithm.
type GraphvizEngine struct {
	Margin float64
}

func NewGraphvizEngine() *GraphvizEngine {
	return &GraphvizEngine{Margin: 2 * diagram.GroupPadding}
}

func (e *GraphvizEngine) Name() string {
	return EngineGraphviz
}

func (e *GraphvizEngine) Layout(ctx context.Context, g diagram.Graph, dir diagram.Direction) (diagram.Graph, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return diagram.Graph{}, layoutError(e.Name(), err)
	}
	defer gv.Close()

	gv.SetLayout(graphviz.DOT)

	graph, err := gv.Graph()
	if err != nil {
		return diagram.Graph{}, layoutError(e.Name(), err)
	}
	defer graph.Close()

	if err := diagram.PopulateDot(graph, g, dir); err != nil {
		return diagram.Graph{}, layoutError(e.Name(), err)
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, formatPlain, &buf); err != nil {
		return diagram.Graph{}, layoutError(e.Name(), err)
	}

	centres, height, err := parsePlain(buf.Bytes())
	if err != nil {
		return diagram.Graph{}, layoutError(e.Name(), err)
	}

	out := g.Clone()
	for i := range out.Nodes {
		c, ok := centres[diagram.DotNodeName(i)]
		if !ok {
			continue
		}
		w, h := nodeSize(out.Nodes[i])
		out.Nodes[i].Position = diagram.Position{
			X: c.X*pointsPerInch - w/2,
			Y: (height-c.Y)*pointsPerInch - h/2,
		}
	}

	normalize(out.Nodes, e.Margin)
	return out, nil
}

// parsePlain extracts node centres (inches) and the graph height.
func parsePlain(data []byte) (map[string]diagram.Position, float64, error) {
	centres := make(map[string]diagram.Position)
	var height float64
	sawGraph := false

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "graph":
			if len(fields) < 4 {
				return nil, 0, fmt.Errorf("malformed graph line %q", sc.Text())
			}
			h, err := strconv.ParseFloat(fields[3], 64)
			if err != nil {
				return nil, 0, fmt.Errorf("graph height: %w", err)
			}
			height = h
			sawGraph = true
		case "node":
			if len(fields) < 4 {
				return nil, 0, fmt.Errorf("malformed node line %q", sc.Text())
			}
			x, err := strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return nil, 0, fmt.Errorf("node %s x: %w", fields[1], err)
			}
			y, err := strconv.ParseFloat(fields[3], 64)
			if err != nil {
				return nil, 0, fmt.Errorf("node %s y: %w", fields[1], err)
			}
			centres[fields[1]] = diagram.Position{X: x, Y: y}
		case "stop":
			if !sawGraph {
				return nil, 0, fmt.Errorf("plain output has no graph line")
			}
			return centres, height, nil
		}
	}
	if err := sc.Err(); err != nil {
		return nil, 0, err
	}
	if !sawGraph {
		return nil, 0, fmt.Errorf("plain output has no graph line")
	}
	return centres, height, nil
}

var _ Engine = (*GraphvizEngine)(nil)
