package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNewIntegrationTemplate(t *testing.T) {
	in := NewIntegration()
	assert.Equal(t, "integration", in.Metadata.Name)
	assert.Equal(t, "KameletBinding", in.Metadata.DSL)
	assert.Equal(t, "default", in.Metadata.Namespace)
	assert.Empty(t, in.Steps)
	assert.NotNil(t, in.Steps)

	// Each call yields an independent value.
	assert.NotSame(t, in, NewIntegration())
}

func TestStepRole(t *testing.T) {
	tests := []struct {
		name string
		step Step
		want Role
	}{
		{"start", Step{Type: StepTypeStart}, RoleSource},
		{"middle", Step{Type: StepTypeMiddle}, RoleAction},
		{"untyped", Step{}, RoleAction},
		{"end", Step{Type: StepTypeEnd}, RoleSink},
		{"choice", Step{Type: StepTypeMiddle, Branches: []Branch{}, MaxBranches: -1}, RoleBranching},
		{"branching end", Step{Type: StepTypeEnd, Branches: []Branch{{}}, MaxBranches: 2}, RoleBranching},
		{"branches without capability", Step{Type: StepTypeEnd, Branches: []Branch{{}}}, RoleSink},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.step.Role())
		})
	}
}

func TestCanAddBranch(t *testing.T) {
	unbounded := Step{Branches: []Branch{{}, {}, {}}, MaxBranches: -1}
	assert.True(t, unbounded.CanAddBranch())

	full := Step{Branches: []Branch{{}, {}}, MaxBranches: 2}
	assert.False(t, full.CanAddBranch())

	room := Step{Branches: []Branch{{}}, MaxBranches: 2}
	assert.True(t, room.CanAddBranch())

	plain := Step{Name: "log"}
	assert.False(t, plain.CanAddBranch())
}

func TestHasBranchSteps(t *testing.T) {
	empty := Step{Branches: []Branch{{Identifier: "a"}, {Identifier: "b"}}}
	assert.False(t, empty.HasBranchSteps())

	filled := Step{Branches: []Branch{{Identifier: "a"}, {Identifier: "b", Steps: []Step{{Name: "log"}}}}}
	assert.True(t, filled.HasBranchSteps())
}

func TestStepWireShape(t *testing.T) {
	step := Step{
		UUID:        "choice0",
		Name:        "choice",
		Type:        StepTypeMiddle,
		MaxBranches: -1,
		Branches:    []Branch{{Identifier: "when", Condition: "body.size() > 0", Steps: []Step{}}},
	}
	data, err := json.Marshal(step)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "choice0", raw["UUID"])
	assert.Equal(t, float64(-1), raw["maxBranches"])
	assert.Contains(t, raw, "branches")
	assert.NotContains(t, raw, "parameters")
}

func TestEmptyBranchesSurviveJSON(t *testing.T) {
	choice := Step{UUID: "choice0", Name: "choice", Type: StepTypeMiddle, MaxBranches: -1, Branches: []Branch{}}
	require.True(t, choice.SupportsBranching())

	data, err := json.Marshal(choice)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"branches":[]`)

	var back Step
	require.NoError(t, json.Unmarshal(data, &back))
	assert.NotNil(t, back.Branches)
	assert.True(t, back.SupportsBranching())

	plain := Step{UUID: "log0", Name: "log", Type: StepTypeMiddle}
	data, err = json.Marshal(plain)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "branches")

	back = Step{}
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Nil(t, back.Branches)
	assert.False(t, back.IsBranchCapable())
}

func TestEmptyBranchesSurviveYAML(t *testing.T) {
	in := &Integration{
		Metadata: Metadata{Name: "router", DSL: DefaultDSL},
		Steps: []Step{
			{UUID: "log0", Name: "log", Type: StepTypeMiddle},
			{UUID: "choice1", Name: "choice", Type: StepTypeMiddle, MaxBranches: -1, Branches: []Branch{
				{Identifier: "when", Steps: []Step{
					{UUID: "choice1|0|split0", Name: "split", Type: StepTypeMiddle, MaxBranches: 2, Branches: []Branch{}},
				}},
			}},
		},
	}

	data, err := yaml.Marshal(in)
	require.NoError(t, err)

	var back Integration
	require.NoError(t, yaml.Unmarshal(data, &back))
	require.Len(t, back.Steps, 2)
	assert.Nil(t, back.Steps[0].Branches)

	choice := back.Steps[1]
	require.Len(t, choice.Branches, 1)
	assert.Equal(t, "when", choice.Branches[0].Identifier)

	split := choice.Branches[0].Steps[0]
	assert.NotNil(t, split.Branches)
	assert.Empty(t, split.Branches)
	assert.True(t, split.SupportsBranching())
	assert.Equal(t, 2, split.MaxBranches)
}
