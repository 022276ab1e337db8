package validation

import (
	"encoding/json"
	"fmt"

	"github.com/rendis/flowcanvas/pkg/schema"
)

// valueTypes are the parameter types whose values are checked against a
// JSON Schema {"type": <type>}.
var valueTypes = map[string]bool{
	"string":  true,
	"number":  true,
	"integer": true,
	"boolean": true,
	"object":  true,
	"array":   true,
}

// semanticChecker performs the checks JSON Schema cannot express.
type semanticChecker struct {
	values *JSONSchemaValidator
	result *schema.ValidationResult
}

// validateSemantic checks an integration: branch counts, duplicate
// top-level UUIDs, missing names, step positions and parameter values.
func validateSemantic(in *schema.Integration, values *JSONSchemaValidator) *schema.ValidationResult {
	c := &semanticChecker{values: values, result: &schema.ValidationResult{}}

	seen := make(map[string]int, len(in.Steps))
	for i, s := range in.Steps {
		if s.UUID == "" {
			continue
		}
		if first, dup := seen[s.UUID]; dup {
			c.result.AddWarning(fmt.Sprintf("steps[%d]", i), schema.ErrCodeConflict,
				fmt.Sprintf("duplicate step UUID %q (first at steps[%d])", s.UUID, first))
			continue
		}
		seen[s.UUID] = i
	}

	c.checkList(in.Steps, "steps")
	c.checkParams(in.Params, "params")
	return c.result
}

// validateStepSemantic checks one step and its branches. Positional checks
// are skipped for the step itself since its destination is not known.
func validateStepSemantic(step schema.Step, values *JSONSchemaValidator) *schema.ValidationResult {
	c := &semanticChecker{values: values, result: &schema.ValidationResult{}}
	c.checkStep(step, "step")
	return c.result
}

func (c *semanticChecker) checkList(list []schema.Step, prefix string) {
	for i, s := range list {
		path := fmt.Sprintf("%s[%d]", prefix, i)
		c.checkStep(s, path)

		if s.Type == schema.StepTypeStart && !(prefix == "steps" && i == 0) {
			c.result.AddWarning(path+".type", schema.ErrCodeValidation,
				"START step is not the first step of the integration")
		}
		if s.Type == schema.StepTypeEnd && i != len(list)-1 {
			c.result.AddWarning(path+".type", schema.ErrCodeValidation,
				"END step is followed by other steps")
		}
	}
}

func (c *semanticChecker) checkStep(s schema.Step, path string) {
	if s.Name == "" {
		c.result.AddWarning(path+".name", schema.ErrCodeValidation, "step has no name")
	}

	if s.IsBranchCapable() {
		n := len(s.Branches)
		if n < s.MinBranches {
			c.result.AddError(path+".branches", schema.ErrCodeValidation,
				fmt.Sprintf("has %d branches, at least %d required", n, s.MinBranches))
		}
		if s.MaxBranches >= 0 && n > s.MaxBranches {
			c.result.AddError(path+".branches", schema.ErrCodeValidation,
				fmt.Sprintf("has %d branches, at most %d allowed", n, s.MaxBranches))
		}
		if s.MaxBranches >= 0 && s.MinBranches > s.MaxBranches {
			c.result.AddError(path+".minBranches", schema.ErrCodeValidation,
				fmt.Sprintf("minBranches %d exceeds maxBranches %d", s.MinBranches, s.MaxBranches))
		}
	}

	c.checkParams(s.Parameters, path+".parameters")

	for bi, b := range s.Branches {
		c.checkList(b.Steps, fmt.Sprintf("%s.branches[%d].steps", path, bi))
	}
}

func (c *semanticChecker) checkParams(params []schema.Parameter, prefix string) {
	ids := make(map[string]bool, len(params))
	for i, p := range params {
		path := fmt.Sprintf("%s[%d]", prefix, i)
		if ids[p.ID] {
			c.result.AddWarning(path+".id", schema.ErrCodeConflict,
				fmt.Sprintf("duplicate parameter id %q", p.ID))
		}
		ids[p.ID] = true

		if p.Value == nil || !valueTypes[p.Type] || c.values == nil {
			continue
		}
		typeSchema, _ := json.Marshal(map[string]string{"type": p.Type})
		if err := c.values.ValidateValue(p.Value, typeSchema); err != nil {
			c.result.AddError(path+".value", schema.ErrCodeValidation,
				fmt.Sprintf("parameter %q: value is not of type %s", p.ID, p.Type))
		}
	}
}
