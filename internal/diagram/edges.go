package diagram

// BuildEdges connects consecutive nodes. Callers pass root nodes only
// (see FilterRootNodes); branch wiring comes from BuildBranchSpecialEdges.
func BuildEdges(nodes []Node) []Edge {
	var edges []Edge
	for i := range nodes {
		var next *Node
		if i+1 < len(nodes) {
			next = &nodes[i+1]
		}
		if ShouldAddEdge(nodes[i], next) {
			edges = append(edges, BuildEdgeParams(nodes[i], *next))
		}
	}
	return edges
}

// ShouldAddEdge reports whether node connects directly to next. A step with
// populated branches reaches next through the exits of its branches.
func ShouldAddEdge(node Node, next *Node) bool {
	if next == nil {
		return false
	}
	return !node.Data.Step.HasBranchSteps()
}

// BuildEdgeParams creates the edge source -> target.
func BuildEdgeParams(source, target Node) Edge {
	return Edge{
		ID:            "e-" + source.ID + ">" + target.ID,
		Source:        source.ID,
		Target:        target.ID,
		Type:          EdgeTypeDefault,
		ArrowHeadType: ArrowClosed,
		MarkerEnd:     MarkerEnd{Type: MarkerArrow},
	}
}

// BuildBranchSingleStepEdges wires a branch holding exactly one node:
// parent -> node and node -> next.
func BuildBranchSingleStepEdges(node, parent, next Node) []Edge {
	return []Edge{
		BuildEdgeParams(parent, node),
		BuildEdgeParams(node, next),
	}
}

// BuildBranchSpecialEdges wires every branch at any depth: the owner to the
// first node of each branch, consecutive nodes inside the branch, and the
// branch's last node to the node that follows the owner. When the owner is
// itself last in a branch, the follower is inherited from the enclosing list.
func BuildBranchSpecialEdges(nodes []Node) []Edge {
	idx := newNodeIndex(nodes)

	var edges []Edge
	for i := range nodes {
		owner := nodes[i]
		if owner.IsGroup() || owner.Data.IsPlaceholder || len(owner.Data.Step.Branches) == 0 {
			continue
		}
		next := idx.follower(owner)

		for bi := range owner.Data.Step.Branches {
			path := owner.Data.Address.Path.Child(owner.Data.Address.Index, bi)
			members := idx.lists[path.String()]
			if len(members) == 0 {
				continue
			}

			last := members[len(members)-1]
			if len(members) == 1 && next != nil && ShouldAddEdge(last, next) {
				edges = append(edges, BuildBranchSingleStepEdges(last, owner, *next)...)
				continue
			}

			edges = append(edges, BuildEdgeParams(owner, members[0]))
			for j := 0; j+1 < len(members); j++ {
				if ShouldAddEdge(members[j], &members[j+1]) {
					edges = append(edges, BuildEdgeParams(members[j], members[j+1]))
				}
			}
			if ShouldAddEdge(last, next) {
				edges = append(edges, BuildEdgeParams(last, *next))
			}
		}
	}
	return edges
}

// nodeIndex groups step nodes by the list they belong to.
type nodeIndex struct {
	lists  map[string][]Node
	byAddr map[string]Node
}

func newNodeIndex(nodes []Node) *nodeIndex {
	idx := &nodeIndex{
		lists:  make(map[string][]Node),
		byAddr: make(map[string]Node),
	}
	for _, n := range nodes {
		if n.IsGroup() {
			continue
		}
		key := n.Data.Address.Path.String()
		idx.lists[key] = append(idx.lists[key], n)
		idx.byAddr[n.Data.Address.String()] = n
	}
	return idx
}

// follower returns the node after n in its list, climbing to enclosing
// lists while n is last. Nil when nothing follows.
func (idx *nodeIndex) follower(n Node) *Node {
	for {
		addr := n.Data.Address
		list := idx.lists[addr.Path.String()]
		if addr.Index+1 < len(list) {
			next := list[addr.Index+1]
			return &next
		}
		if addr.IsRoot() {
			return nil
		}

		last := addr.Path[len(addr.Path)-1]
		parentAddr := addr
		parentAddr.Path = addr.Path[:len(addr.Path)-1]
		parentAddr.Index = last.StepIndex
		parent, ok := idx.byAddr[parentAddr.String()]
		if !ok {
			return nil
		}
		n = parent
	}
}
