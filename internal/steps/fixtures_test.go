package steps

import "github.com/rendis/flowcanvas/pkg/schema"

// --- Test step builders ---

func step(name string, typ schema.StepType) schema.Step {
	return schema.Step{Name: name, Type: typ, Kind: "Kamelet"}
}

// branchTree is timer -> choice{when:[log, set-body], otherwise:[]} -> kafka-sink,
// with identities assigned.
func branchTree() []schema.Step {
	choice := schema.Step{
		Name:        "choice",
		Type:        schema.StepTypeMiddle,
		Kind:        "EIP",
		MinBranches: 1,
		MaxBranches: -1,
		Branches: []schema.Branch{
			{Identifier: "when", Condition: `headers.type == "a"`, Steps: []schema.Step{
				step("log", schema.StepTypeMiddle),
				step("set-body", schema.StepTypeMiddle),
			}},
			{Identifier: "otherwise", Steps: []schema.Step{}},
		},
	}
	return RegenerateIdentities([]schema.Step{
		step("timer-source", schema.StepTypeStart),
		choice,
		step("kafka-sink", schema.StepTypeEnd),
	})
}

func names(list []schema.Step) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.Name
	}
	return out
}
