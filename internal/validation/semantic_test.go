package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowcanvas/pkg/schema"
)

func issuePaths(issues []schema.ValidationIssue) []string {
	out := make([]string, len(issues))
	for i, is := range issues {
		out[i] = is.Path
	}
	return out
}

func newJSV(t *testing.T) *JSONSchemaValidator {
	t.Helper()
	v, err := NewJSONSchemaValidator()
	require.NoError(t, err)
	return v
}

func TestSemantic_Clean(t *testing.T) {
	in := schema.NewIntegration()
	in.Steps = []schema.Step{
		{UUID: "timer-source0", Name: "timer-source", Type: schema.StepTypeStart},
		{UUID: "log1", Name: "log", Type: schema.StepTypeMiddle},
		{UUID: "kafka-sink2", Name: "kafka-sink", Type: schema.StepTypeEnd},
	}
	r := validateSemantic(in, newJSV(t))
	assert.True(t, r.Valid())
	assert.Empty(t, r.Warnings)
}

func TestSemantic_BranchCounts(t *testing.T) {
	in := schema.NewIntegration()
	in.Steps = []schema.Step{
		{Name: "choice", Type: schema.StepTypeMiddle, MinBranches: 2, MaxBranches: -1,
			Branches: []schema.Branch{{Identifier: "when"}}},
		{Name: "split", Type: schema.StepTypeMiddle, MaxBranches: 1,
			Branches: []schema.Branch{{Identifier: "a"}, {Identifier: "b"}}},
		{Name: "broken", Type: schema.StepTypeMiddle, MinBranches: 3, MaxBranches: 2,
			Branches: []schema.Branch{{Identifier: "a"}, {Identifier: "b"}, {Identifier: "c"}}},
	}
	r := validateSemantic(in, newJSV(t))
	assert.Equal(t, []string{
		"steps[0].branches",
		"steps[1].branches",
		"steps[2].branches",
		"steps[2].minBranches",
	}, issuePaths(r.Errors))
}

func TestSemantic_ZeroMaxBranchesAllowsNone(t *testing.T) {
	in := schema.NewIntegration()
	in.Steps = []schema.Step{
		{Name: "filter", Type: schema.StepTypeMiddle, MaxBranches: 0, Branches: []schema.Branch{}},
		{Name: "legacy", Type: schema.StepTypeMiddle, MaxBranches: 0, Branches: []schema.Branch{
			{Identifier: "a", Steps: []schema.Step{{Name: "log", Type: schema.StepTypeMiddle}}},
		}},
	}
	r := validateSemantic(in, newJSV(t))
	assert.Equal(t, []string{"steps[1].branches"}, issuePaths(r.Errors))
	assert.Contains(t, r.Errors[0].Message, "at most 0 allowed")
}

func TestValidateStep_ZeroMaxBranches(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	r := v.ValidateStep(schema.Step{Name: "legacy", Type: schema.StepTypeMiddle, MaxBranches: 0,
		Branches: []schema.Branch{{Identifier: "b", Steps: []schema.Step{{Name: "x", Type: schema.StepTypeMiddle}}}}})
	assert.False(t, r.Valid())

	r = v.ValidateStep(schema.Step{Name: "choice", Type: schema.StepTypeMiddle, MinBranches: 1, MaxBranches: 0,
		Branches: []schema.Branch{}})
	assert.Contains(t, issuePaths(r.Errors), "step.minBranches")
}

func TestSemantic_Warnings(t *testing.T) {
	in := schema.NewIntegration()
	in.Steps = []schema.Step{
		{UUID: "log0", Name: "log", Type: schema.StepTypeMiddle},
		{UUID: "log0", Name: "", Type: schema.StepTypeStart},
		{Name: "kafka-sink", Type: schema.StepTypeEnd},
		{Name: "choice", Type: schema.StepTypeMiddle, MaxBranches: -1, Branches: []schema.Branch{
			{Identifier: "when", Steps: []schema.Step{{Name: "sink", Type: schema.StepTypeEnd}, {Name: "log", Type: schema.StepTypeMiddle}}},
		}},
	}
	r := validateSemantic(in, newJSV(t))
	assert.True(t, r.Valid())
	assert.ElementsMatch(t, []string{
		"steps[1]",
		"steps[1].name",
		"steps[1].type",
		"steps[2].type",
		"steps[3].branches[0].steps[0].type",
	}, issuePaths(r.Warnings))
}

func TestSemantic_ParameterValues(t *testing.T) {
	in := schema.NewIntegration()
	in.Steps = []schema.Step{
		{Name: "timer-source", Type: schema.StepTypeStart, Parameters: []schema.Parameter{
			{ID: "period", Type: "number", Value: "soon"},
			{ID: "message", Type: "string", Value: "hi"},
			{ID: "opaque", Type: "duration", Value: 12},
			{ID: "message", Type: "string"},
		}},
	}
	in.Params = []schema.Parameter{{ID: "replicas", Type: "integer", Value: 1.5}}

	r := validateSemantic(in, newJSV(t))
	assert.Equal(t, []string{"steps[0].parameters[0].value", "params[0].value"}, issuePaths(r.Errors))
	assert.Equal(t, []string{"steps[0].parameters[3].id"}, issuePaths(r.Warnings))
}

func TestStepSemantic_Nested(t *testing.T) {
	step := schema.Step{Name: "choice", Type: schema.StepTypeMiddle, MinBranches: 1, MaxBranches: -1,
		Branches: []schema.Branch{{Identifier: "when", Steps: []schema.Step{
			{Name: "inner", Type: schema.StepTypeMiddle, MinBranches: 1, MaxBranches: -1, Branches: []schema.Branch{}},
		}}}}
	r := validateStepSemantic(step, newJSV(t))
	assert.Equal(t, []string{"step.branches[0].steps[0].branches"}, issuePaths(r.Errors))
}
