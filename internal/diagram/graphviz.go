package diagram

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/rendis/flowcanvas/pkg/schema"
)

// ImageFormat selects the output of RenderImage.
type ImageFormat string

const (
	FormatPNG ImageFormat = "png"
	FormatSVG ImageFormat = "svg"
	FormatDOT ImageFormat = "dot"
)

const pixelsPerInch = 72.0

// DotNodeName is the graphviz name of g.Nodes[i]. Names are positional so
// that step UUIDs never need quoting.
func DotNodeName(i int) string {
	return "n" + strconv.Itoa(i)
}

// RenderImage renders a Graph with graphviz in the requested format.
func RenderImage(ctx context.Context, g Graph, dir Direction, format ImageFormat) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("diagram: create graphviz: %w", err)
	}
	defer gv.Close()

	gv.SetLayout(graphviz.DOT)

	graph, err := gv.Graph()
	if err != nil {
		return nil, fmt.Errorf("diagram: create graph: %w", err)
	}
	defer graph.Close()

	if err := PopulateDot(graph, g, dir); err != nil {
		return nil, err
	}

	var gvFormat graphviz.Format
	switch format {
	case FormatPNG:
		gvFormat = graphviz.PNG
	case FormatSVG:
		gvFormat = graphviz.SVG
	case FormatDOT:
		gvFormat = graphviz.XDOT
	default:
		return nil, fmt.Errorf("diagram: unsupported image format %q", format)
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, gvFormat, &buf); err != nil {
		return nil, fmt.Errorf("diagram: render %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

// PopulateDot adds the nodes and edges of g to graph. Group containers
// become dashed clusters holding their direct members.
func PopulateDot(graph *cgraph.Graph, g Graph, dir Direction) error {
	graph.SetRankDir(rankDir(dir))

	clusters := make(map[string]*cgraph.Graph)
	for i, n := range g.Nodes {
		if !n.IsGroup() {
			continue
		}
		sub, err := graph.CreateSubGraphByName("cluster_" + DotNodeName(i))
		if err != nil {
			return fmt.Errorf("diagram: create cluster for %s: %w", n.ID, err)
		}
		sub.SetLabel(n.Data.Label)
		sub.SetStyle(cgraph.DashedGraphStyle)
		clusters[n.Data.BranchInfo.ParentID] = sub
	}

	gvNodes := make(map[string]*cgraph.Node, len(g.Nodes))
	for i, n := range g.Nodes {
		if n.IsGroup() {
			continue
		}
		parent := graph
		if n.InBranch() {
			if sub, ok := clusters[n.Data.BranchInfo.ParentID]; ok {
				parent = sub
			}
		}
		gvNode, err := parent.CreateNodeByName(DotNodeName(i))
		if err != nil {
			return fmt.Errorf("diagram: create node %s: %w", n.ID, err)
		}
		gvNode.SetLabel(n.Data.Label)
		gvNode.SetWidth(nodeInches(n.Width))
		gvNode.SetHeight(nodeInches(n.Height))
		applyNodeStyle(gvNode, n)
		gvNodes[n.ID] = gvNode
	}

	for _, e := range g.Edges {
		from, to := gvNodes[e.Source], gvNodes[e.Target]
		if from == nil || to == nil {
			continue
		}
		if _, err := graph.CreateEdgeByName("", from, to); err != nil {
			return fmt.Errorf("diagram: create edge %s: %w", e.ID, err)
		}
	}
	return nil
}

func rankDir(dir Direction) cgraph.RankDir {
	switch dir {
	case DirectionDown:
		return cgraph.TBRank
	case DirectionLeft:
		return cgraph.RLRank
	case DirectionUp:
		return cgraph.BTRank
	default:
		return cgraph.LRRank
	}
}

func nodeInches(px float64) float64 {
	if px <= 0 {
		px = DefaultNodeSize
	}
	return px / pixelsPerInch
}

// applyNodeStyle sets the graphviz shape by step role.
func applyNodeStyle(gvNode *cgraph.Node, n Node) {
	if n.Data.IsPlaceholder {
		gvNode.SetShape(cgraph.BoxShape)
		gvNode.SetStyle(cgraph.DashedNodeStyle)
		return
	}
	switch n.Data.Step.Role() {
	case schema.RoleSource:
		gvNode.SetShape(cgraph.EllipseShape)
	case schema.RoleSink:
		gvNode.SetShape(cgraph.CircleShape)
	case schema.RoleBranching:
		gvNode.SetShape(cgraph.DiamondShape)
	default:
		gvNode.SetShape(cgraph.BoxShape)
	}
}
