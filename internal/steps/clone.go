package steps

import "github.com/rendis/flowcanvas/pkg/schema"

// Clone returns a deep copy of step. Parameter values are shared; they are
// treated as immutable scalars or JSON trees.
func Clone(step schema.Step) schema.Step {
	out := step
	if step.Parameters != nil {
		out.Parameters = make([]schema.Parameter, len(step.Parameters))
		copy(out.Parameters, step.Parameters)
	}
	if step.Branches != nil {
		out.Branches = make([]schema.Branch, len(step.Branches))
		for i, b := range step.Branches {
			out.Branches[i] = schema.Branch{
				Identifier: b.Identifier,
				Condition:  b.Condition,
				Steps:      CloneSteps(b.Steps),
			}
		}
	}
	return out
}

// CloneSteps deep-copies a step list. A nil list stays nil.
func CloneSteps(list []schema.Step) []schema.Step {
	if list == nil {
		return nil
	}
	out := make([]schema.Step, len(list))
	for i, s := range list {
		out[i] = Clone(s)
	}
	return out
}

// CloneIntegration deep-copies an integration.
func CloneIntegration(in *schema.Integration) *schema.Integration {
	if in == nil {
		return nil
	}
	out := &schema.Integration{
		Metadata: in.Metadata,
		Steps:    CloneSteps(in.Steps),
	}
	if out.Steps == nil {
		out.Steps = []schema.Step{}
	}
	out.Params = make([]schema.Parameter, len(in.Params))
	copy(out.Params, in.Params)
	return out
}
