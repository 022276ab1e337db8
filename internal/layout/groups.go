package layout

import (
	"math"
	"slices"

	"github.com/rendis/flowcanvas/internal/diagram"
)

// FitGroups sizes and positions every group container to enclose its
// members plus diagram.GroupPadding. Members are the nodes of the group's
// branches and the containers of nested groups, so inner groups are fitted
// first. Groups without members keep their size and sit on their parent.
func FitGroups(nodes []diagram.Node) []diagram.Node {
	out := slices.Clone(nodes)

	byID := make(map[string]int, len(out))
	for i, n := range out {
		byID[n.ID] = i
	}

	var groups []int
	for i, n := range out {
		if n.IsGroup() {
			groups = append(groups, i)
		}
	}
	// Deepest parents first.
	slices.SortStableFunc(groups, func(a, b int) int {
		return len(out[b].Data.Address.Path) - len(out[a].Data.Address.Path)
	})

	for _, gi := range groups {
		parentID := out[gi].Data.BranchInfo.ParentID

		minX, minY := math.Inf(1), math.Inf(1)
		maxX, maxY := math.Inf(-1), math.Inf(-1)
		for i, n := range out {
			if i == gi || !isMemberOf(n, parentID, out, byID) {
				continue
			}
			w, h := nodeSize(n)
			minX, minY = math.Min(minX, n.Position.X), math.Min(minY, n.Position.Y)
			maxX, maxY = math.Max(maxX, n.Position.X+w), math.Max(maxY, n.Position.Y+h)
		}

		if math.IsInf(minX, 1) {
			if pi, ok := byID[parentID]; ok {
				out[gi].Position = out[pi].Position
			}
			continue
		}

		out[gi].Position = diagram.Position{X: minX - diagram.GroupPadding, Y: minY - diagram.GroupPadding}
		out[gi].Width = maxX - minX + 2*diagram.GroupPadding
		out[gi].Height = maxY - minY + 2*diagram.GroupPadding
	}
	return out
}

// isMemberOf reports whether n sits directly inside the branches of the
// node parentID: a branch node of it, or the container of such a node.
func isMemberOf(n diagram.Node, parentID string, nodes []diagram.Node, byID map[string]int) bool {
	if n.Data.BranchInfo == nil {
		return false
	}
	if !n.IsGroup() {
		return n.Data.BranchInfo.ParentID == parentID
	}
	owner, ok := byID[n.Data.BranchInfo.ParentID]
	if !ok {
		return false
	}
	bi := nodes[owner].Data.BranchInfo
	return bi != nil && bi.ParentID == parentID
}

// placeholderScale pulls the lone placeholder slightly up and left of the
// exact centre.
const placeholderScale = 0.8

// CenterPlaceholder centres the ADD A STEP node in viewport when it is the
// only node. Any other node list is returned unchanged.
func CenterPlaceholder(nodes []diagram.Node, viewport Size) []diagram.Node {
	if len(nodes) != 1 || !nodes[0].Data.IsPlaceholder {
		return nodes
	}
	out := slices.Clone(nodes)
	w, h := nodeSize(out[0])
	out[0].Position = diagram.Position{
		X: (viewport.Width/2 - w/2) * placeholderScale,
		Y: (viewport.Height/2 - h/2) * placeholderScale,
	}
	return out
}
