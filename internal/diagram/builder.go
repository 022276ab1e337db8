package diagram

import (
	"strconv"
	"strings"

	"github.com/rendis/flowcanvas/pkg/schema"
)

// Build turns a step list into nodes and edges. Positions are left at the
// origin; layout assigns coordinates. steps is not modified.
func Build(steps []schema.Step, dir Direction) Graph {
	nodes := BuildNodesFromSteps(steps, dir)

	edges := BuildEdges(FilterRootNodes(nodes))
	edges = append(edges, BuildBranchSpecialEdges(nodes)...)

	return Graph{Nodes: nodes, Edges: edges}
}

// BuildNodesFromSteps creates one node per step in document order. A step
// that can branch is followed by its group container and then, per branch,
// either the branch's nodes or a single placeholder.
// An empty list yields a single START placeholder.
func BuildNodesFromSteps(steps []schema.Step, dir Direction) []Node {
	if len(steps) == 0 {
		return InsertAddStepPlaceholder(nil, PlaceholderID(schema.StepAddress{}), schema.StepTypeStart, "")
	}

	return appendListNodes(nil, steps, nil, nil, dir)
}

func appendListNodes(nodes []Node, list []schema.Step, path schema.Path, branch *BranchInfo, dir Direction) []Node {
	for i, step := range list {
		addr := schema.StepAddress{Path: path, Index: i}
		id := NodeID(addr, step.UUID)

		var node Node
		if branch == nil {
			node = BuildNodeDefaultParams(step, id, dir)
		} else {
			node = BuildBranchNodeParams(step, id, dir)
			info := *branch
			node.Data.BranchInfo = &info
		}
		node.Data.Address = addr
		node.Data.Path = addr.String()
		node.Data.IsFirstStep = branch == nil && i == 0
		node.Data.IsLastStep = i == len(list)-1
		if i+1 < len(list) {
			node.Data.NextStepUUID = list[i+1].UUID
		}
		nodes = append(nodes, node)

		if step.Branches == nil {
			continue
		}

		width, height := groupSize(step, dir)
		nodes = InsertBranchGroupNode(nodes, node, Position{}, height, width)

		for bi, b := range step.Branches {
			childPath := path.Child(i, bi)
			info := &BranchInfo{
				ParentUUID:       step.UUID,
				ParentID:         id,
				BranchIdentifier: b.Identifier,
				BranchIndex:      bi,
				BranchStep:       true,
			}

			if len(b.Steps) == 0 {
				phAddr := schema.StepAddress{Path: childPath}
				ph := placeholderNode(PlaceholderID(phAddr), schema.StepTypeMiddle, "")
				ph.SourcePosition, ph.TargetPosition = branchHandles(dir)
				ph.Data.BranchInfo = info
				ph.Data.Address = phAddr
				ph.Data.Path = phAddr.String()
				nodes = append(nodes, ph)
				continue
			}
			nodes = appendListNodes(nodes, b.Steps, childPath, info, dir)
		}
	}
	return nodes
}

// groupSize estimates the container size before layout. FitGroups in the
// layout package replaces it with the real extent.
func groupSize(step schema.Step, dir Direction) (width, height float64) {
	longest := 1
	for _, b := range step.Branches {
		if n := len(b.Steps); n > longest {
			longest = n
		}
	}
	cell := DefaultNodeSize + GroupPadding
	along := float64(longest)*cell + GroupPadding
	across := float64(len(step.Branches))*cell + GroupPadding
	if dir.Horizontal() {
		return along, across
	}
	return across, along
}

// FilterRootNodes drops group containers and nodes inside branches.
func FilterRootNodes(nodes []Node) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if n.InBranch() {
			continue
		}
		out = append(out, n)
	}
	return out
}

// BuildNodeDefaultParams creates a root step node.
func BuildNodeDefaultParams(step schema.Step, id string, dir Direction) Node {
	source, target := defaultHandles(dir)
	return Node{
		ID:             id,
		Type:           NodeTypeStep,
		Width:          DefaultNodeSize,
		Height:         DefaultNodeSize,
		SourcePosition: source,
		TargetPosition: target,
		Data: NodeData{
			Kind:  step.Kind,
			Label: Truncate(step.Name, LabelMaxLen),
			Icon:  step.Icon,
			Step:  step,
		},
	}
}

// BuildBranchNodeParams creates a node for a step inside a branch. Branch
// nodes attach across the main axis.
func BuildBranchNodeParams(step schema.Step, id string, dir Direction) Node {
	node := BuildNodeDefaultParams(step, id, dir)
	node.SourcePosition, node.TargetPosition = branchHandles(dir)
	return node
}

func defaultHandles(dir Direction) (source, target HandlePosition) {
	switch dir {
	case DirectionDown:
		return HandleBottom, HandleTop
	case DirectionLeft:
		return HandleLeft, HandleRight
	case DirectionUp:
		return HandleTop, HandleBottom
	default:
		return HandleRight, HandleLeft
	}
}

func branchHandles(dir Direction) (source, target HandlePosition) {
	switch dir {
	case DirectionDown:
		return HandleRight, HandleLeft
	case DirectionLeft:
		return HandleBottom, HandleTop
	case DirectionUp:
		return HandleLeft, HandleRight
	default:
		return HandleTop, HandleBottom
	}
}

// Reorient returns a copy of g with every node's handles set for dir.
// Coordinates are left for the next layout.
func Reorient(g Graph, dir Direction) Graph {
	out := g.Clone()
	for i := range out.Nodes {
		n := &out.Nodes[i]
		switch {
		case n.IsGroup():
		case n.InBranch():
			n.SourcePosition, n.TargetPosition = branchHandles(dir)
		case n.Data.IsPlaceholder:
			// The root placeholder keeps its fixed orientation.
		default:
			n.SourcePosition, n.TargetPosition = defaultHandles(dir)
		}
	}
	return out
}

// InsertAddStepPlaceholder prepends an ADD A STEP node to nodes.
func InsertAddStepPlaceholder(nodes []Node, id string, stepType schema.StepType, nextStepUUID string) []Node {
	out := make([]Node, 0, len(nodes)+1)
	out = append(out, placeholderNode(id, stepType, nextStepUUID))
	return append(out, nodes...)
}

func placeholderNode(id string, stepType schema.StepType, nextStepUUID string) Node {
	source, target := defaultHandles(DirectionRight)
	return Node{
		ID:             id,
		Type:           NodeTypeStep,
		Width:          DefaultNodeSize,
		Height:         DefaultNodeSize,
		SourcePosition: source,
		TargetPosition: target,
		Data: NodeData{
			Label:         PlaceholderLabel,
			Step:          schema.Step{Type: stepType},
			IsPlaceholder: true,
			NextStepUUID:  nextStepUUID,
		},
	}
}

// InsertBranchGroupNode appends the group container of parent.
func InsertBranchGroupNode(nodes []Node, parent Node, pos Position, height, width float64) []Node {
	return append(nodes, Node{
		ID:       GroupID(parent.ID),
		Type:     NodeTypeGroup,
		Position: pos,
		Width:    width,
		Height:   height,
		Data: NodeData{
			Label:   parent.Data.Label,
			Step:    schema.Step{UUID: parent.Data.Step.UUID, Name: parent.Data.Step.Name},
			Address: parent.Data.Address,
			Path:    parent.Data.Path,
			BranchInfo: &BranchInfo{
				ParentUUID:  parent.Data.Step.UUID,
				ParentID:    parent.ID,
				BranchIndex: -1,
				BranchStep:  true,
			},
		},
	})
}

// ContainsAddStepPlaceholder reports whether any node is an ADD A STEP node.
func ContainsAddStepPlaceholder(nodes []Node) bool {
	for _, n := range nodes {
		if n.Data.Label == PlaceholderLabel {
			return true
		}
	}
	return false
}

// FindNodeIdxWithUUID returns the index of the step node for uuid, or -1.
func FindNodeIdxWithUUID(uuid string, nodes []Node) int {
	for i := range nodes {
		if nodes[i].Type == NodeTypeStep && nodes[i].Data.Step.UUID == uuid {
			return i
		}
	}
	return -1
}

// NodeID is node_<address>-<uuid>, unique for every step in the tree.
func NodeID(addr schema.StepAddress, uuid string) string {
	return "node_" + addressKey(addr) + "-" + uuid
}

// PlaceholderID names the placeholder occupying addr.
func PlaceholderID(addr schema.StepAddress) string {
	return "node_" + addressKey(addr) + "-placeholder"
}

// GroupID names the group container of the node parentID.
func GroupID(parentID string) string {
	return "group_" + parentID
}

func addressKey(addr schema.StepAddress) string {
	var b strings.Builder
	for _, seg := range addr.Path {
		b.WriteString(strconv.Itoa(seg.StepIndex))
		b.WriteByte('_')
		b.WriteString(strconv.Itoa(seg.BranchIndex))
		b.WriteByte('_')
	}
	b.WriteString(strconv.Itoa(addr.Index))
	return b.String()
}

// Truncate shortens s to max runes followed by "...".
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
