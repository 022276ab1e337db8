package diagram

import (
	"fmt"
	"strings"

	"github.com/rendis/flowcanvas/pkg/schema"
)

// RenderMermaid renders a Graph as a Mermaid flowchart string. Branch
// members are listed inside a subgraph named after their group container.
func RenderMermaid(g Graph, dir Direction) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("graph %s\n", mermaidDirection(dir)))

	members := make(map[string][]Node)
	for _, n := range g.Nodes {
		if n.IsGroup() {
			continue
		}
		if n.InBranch() {
			members[n.Data.BranchInfo.ParentID] = append(members[n.Data.BranchInfo.ParentID], n)
			continue
		}
		b.WriteString(fmt.Sprintf("    %s\n", mermaidNodeDef(n)))
	}

	// Subgraphs in node order.
	for _, n := range g.Nodes {
		if !n.IsGroup() {
			continue
		}
		parentID := n.Data.BranchInfo.ParentID
		b.WriteString(fmt.Sprintf("    subgraph %s[\"%s\"]\n", mermaidSafeID(n.ID), n.Data.Label))
		for _, m := range members[parentID] {
			b.WriteString(fmt.Sprintf("        %s\n", mermaidNodeDef(m)))
		}
		b.WriteString("    end\n")
	}

	for _, e := range g.Edges {
		b.WriteString(fmt.Sprintf("    %s --> %s\n", mermaidSafeID(e.Source), mermaidSafeID(e.Target)))
	}

	b.WriteString("\n")
	b.WriteString("    classDef placeholder fill:#f4f4f4,stroke:#8a8d90,stroke-dasharray:5 5\n")
	for _, n := range g.Nodes {
		if n.Data.IsPlaceholder {
			b.WriteString(fmt.Sprintf("    class %s placeholder\n", mermaidSafeID(n.ID)))
		}
	}

	return b.String()
}

// mermaidNodeDef returns a Mermaid node definition with a shape per role.
func mermaidNodeDef(n Node) string {
	id := mermaidSafeID(n.ID)
	label := n.Data.Label

	if n.Data.IsPlaceholder {
		return fmt.Sprintf("%s[%q]", id, label)
	}
	switch n.Data.Step.Role() {
	case schema.RoleSource:
		return fmt.Sprintf("%s([%q])", id, label)
	case schema.RoleSink:
		return fmt.Sprintf("%s[(%q)]", id, label)
	case schema.RoleBranching:
		return fmt.Sprintf("%s{%q}", id, label)
	default:
		return fmt.Sprintf("%s[%q]", id, label)
	}
}

func mermaidDirection(dir Direction) string {
	switch dir {
	case DirectionDown:
		return "TD"
	case DirectionLeft:
		return "RL"
	case DirectionUp:
		return "BT"
	default:
		return "LR"
	}
}

// mermaidSafeID converts a node ID to a Mermaid-safe identifier.
func mermaidSafeID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", " ", "_", "|", "_", ">", "_")
	return r.Replace(id)
}
