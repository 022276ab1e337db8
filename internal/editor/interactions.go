package editor

import (
	"github.com/rendis/flowcanvas/internal/diagram"
	"github.com/rendis/flowcanvas/internal/state"
	"github.com/rendis/flowcanvas/internal/steps"
	"github.com/rendis/flowcanvas/pkg/schema"
)

// Selection is the outcome of clicking a node.
type Selection struct {
	NodeID string `json:"nodeId"`
	// OpenCatalog is set for placeholders: the canvas should offer the
	// step catalog and call InsertStep with the chosen step.
	OpenCatalog bool               `json:"openCatalog"`
	StepType    schema.StepType    `json:"stepType,omitempty"`
	Address     schema.StepAddress `json:"-"`
	Path        string             `json:"address"`
	Step        *schema.Step       `json:"step,omitempty"`
	Views       []schema.View      `json:"views,omitempty"`
}

// Affordances returns the insert controls of every committed step node.
func (e *Editor) Affordances() []diagram.Affordance {
	return diagram.GraphAffordances(e.graph.Snapshot())
}

// DeleteStep removes the step with uuid. Unknown UUIDs are ignored.
func (e *Editor) DeleteStep(uuid string) error {
	cur := e.integrations.Integration()

	if idx := steps.FindIndexWithUUID(uuid, cur.Steps); idx >= 0 {
		if nodeIdx := diagram.FindNodeIdxWithUUID(uuid, e.graph.Nodes()); nodeIdx >= 0 {
			if e.graph.DeleteNode(nodeIdx) {
				e.publish(schema.EventGraphNodeDeleted, uuid, map[string]any{"index": nodeIdx})
			}
		}
		return e.integrations.DeleteStep(idx)
	}

	addr, ok := steps.Locate(uuid, cur.Steps)
	if !ok {
		return nil
	}
	return e.integrations.DeleteStepAt(addr)
}

// SelectNode resolves a click on nodeID and marks the node selected.
func (e *Editor) SelectNode(nodeID string) (Selection, error) {
	g := e.graph.Snapshot()
	idx := g.NodeByID(nodeID)
	if idx < 0 {
		return Selection{}, schema.NewErrorf(schema.ErrCodeNotFound, "node %q not found", nodeID)
	}
	node := g.Nodes[idx]

	e.graph.ApplyNodeChanges([]state.NodeChange{{Type: state.ChangeSelect, ID: nodeID, Selected: true}})

	sel := Selection{NodeID: nodeID}
	if node.Data.IsPlaceholder {
		sel.OpenCatalog = true
		sel.StepType = node.Data.Step.Type
		sel.Address = node.Data.Address
		sel.Path = node.Data.Address.String()
		return sel, nil
	}

	uuid := node.Data.Step.UUID
	if node.IsGroup() {
		uuid = node.Data.BranchInfo.ParentUUID
	}
	addr, step, err := e.locate(uuid)
	if err != nil {
		return Selection{}, err
	}
	sel.Address = addr
	sel.Path = addr.String()
	sel.Step = &step
	sel.Views = e.stepViews(uuid)
	return sel, nil
}

// InsertStep fills the placeholder nodeID with step.
func (e *Editor) InsertStep(placeholderID string, step schema.Step) error {
	g := e.graph.Snapshot()
	idx := g.NodeByID(placeholderID)
	if idx < 0 || !g.Nodes[idx].Data.IsPlaceholder {
		return schema.NewErrorf(schema.ErrCodeNotFound, "placeholder %q not found", placeholderID)
	}
	addr := g.Nodes[idx].Data.Address
	if addr.IsRoot() {
		return e.integrations.ReplaceStep(step, nil)
	}
	return e.integrations.InsertStepAt(step, addr)
}

// InsertStepAfter inserts step right after the step with uuid in the same
// list.
func (e *Editor) InsertStepAfter(uuid string, step schema.Step) error {
	addr, _, err := e.locate(uuid)
	if err != nil {
		return err
	}
	addr.Index++
	return e.integrations.InsertStepAt(step, addr)
}

// InsertStepBefore inserts step right before the step with uuid.
func (e *Editor) InsertStepBefore(uuid string, step schema.Step) error {
	addr, _, err := e.locate(uuid)
	if err != nil {
		return err
	}
	return e.integrations.InsertStepAt(step, addr)
}

// AddBranch appends an empty branch to the step with uuid.
func (e *Editor) AddBranch(uuid string) error {
	return e.integrations.AddBranch(uuid)
}

// SaveConfig sets the value of every parameter of the step whose id is a
// key of values. Unknown keys are ignored.
func (e *Editor) SaveConfig(uuid string, values map[string]any) error {
	addr, step, err := e.locate(uuid)
	if err != nil {
		return err
	}

	step = steps.Clone(step)
	for i, p := range step.Parameters {
		if v, ok := values[p.ID]; ok {
			step.Parameters[i].Value = v
		}
	}

	if addr.IsRoot() {
		idx := addr.Index
		return e.integrations.ReplaceStep(step, &idx)
	}
	return e.integrations.ReplaceStepAt(step, addr)
}

func (e *Editor) locate(uuid string) (schema.StepAddress, schema.Step, error) {
	list := e.integrations.Steps()
	addr, ok := steps.Locate(uuid, list)
	if !ok {
		return schema.StepAddress{}, schema.Step{}, schema.NewErrorf(schema.ErrCodeNotFound, "step %q not found", uuid).WithStep(uuid)
	}
	step, _ := steps.StepAt(list, addr)
	return addr, step, nil
}

// stepViews returns the generic views followed by the views of uuid.
func (e *Editor) stepViews(uuid string) []schema.View {
	var out []schema.View
	for _, v := range e.integrations.Views() {
		if v.Type == schema.ViewTypeGeneric || v.Step == uuid {
			out = append(out, v)
		}
	}
	return out
}
