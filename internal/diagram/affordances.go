package diagram

import "github.com/rendis/flowcanvas/pkg/schema"

// Affordance flags tell a canvas which insert controls to draw on a node.
type Affordance struct {
	NodeID    string `json:"nodeId"`
	Prepend   bool   `json:"prepend"`
	Append    bool   `json:"append"`
	AddBranch bool   `json:"addBranch"`
	Delete    bool   `json:"delete"`
}

// ShowPrependStepButton: only the first step, and never an END step.
func ShowPrependStepButton(data NodeData, isEndStep bool) bool {
	return data.IsFirstStep && !isEndStep
}

// ShowAppendStepButton is true for steps that can branch, for steps that
// are not last in their list, and for anything that is not an END step.
func ShowAppendStepButton(data NodeData, isEndStep bool) bool {
	return data.Step.SupportsBranching() || !data.IsLastStep || !isEndStep
}

func ShowAddBranchButton(data NodeData) bool {
	return data.Step.CanAddBranch()
}

// Affordances computes the controls for node. Placeholders and groups get
// none.
func Affordances(node Node) Affordance {
	a := Affordance{NodeID: node.ID}
	if node.IsGroup() || node.Data.IsPlaceholder {
		return a
	}
	isEnd := node.Data.Step.Type == schema.StepTypeEnd
	a.Prepend = ShowPrependStepButton(node.Data, isEnd)
	a.Append = ShowAppendStepButton(node.Data, isEnd)
	a.AddBranch = ShowAddBranchButton(node.Data)
	a.Delete = true
	return a
}

// GraphAffordances returns the affordances of every step node in g.
func GraphAffordances(g Graph) []Affordance {
	out := make([]Affordance, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.IsGroup() || n.Data.IsPlaceholder {
			continue
		}
		out = append(out, Affordances(n))
	}
	return out
}
