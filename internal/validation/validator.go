// Package validation checks integrations and steps before they enter the
// editor state.
package validation

import (
	"errors"

	"github.com/rendis/flowcanvas/internal/expressions"
	"github.com/rendis/flowcanvas/pkg/schema"
)

// Validator orchestrates the three-stage validation pipeline:
// 1. Structural (JSON Schema)
// 2. Semantic (branch counts, UUIDs, names, positions, parameter values)
// 3. Expressions (branch conditions compile under CEL)
type Validator struct {
	jsonSchema *JSONSchemaValidator
	cel        *expressions.CELEngine
}

// NewValidator creates a Validator with the embedded schema compiled.
func NewValidator() (*Validator, error) {
	jsv, err := NewJSONSchemaValidator()
	if err != nil {
		return nil, err
	}
	cel, err := expressions.NewCELEngine()
	if err != nil {
		return nil, err
	}
	return &Validator{jsonSchema: jsv, cel: cel}, nil
}

// ValidateIntegration runs the full pipeline. Structural errors
// short-circuit: the semantic and expression stages are skipped.
func (v *Validator) ValidateIntegration(in *schema.Integration) *schema.ValidationResult {
	if in == nil {
		r := &schema.ValidationResult{}
		r.AddError("/", schema.ErrCodeValidation, "integration is nil")
		return r
	}

	result := structural(v.jsonSchema.ValidateIntegration(in))
	if !result.Valid() {
		return result
	}

	result.Merge(validateSemantic(in, v.jsonSchema))
	validateConditions(in.Steps, "steps", v.cel, result)
	return result
}

// ValidateStep runs the pipeline on a single step about to be inserted.
func (v *Validator) ValidateStep(step schema.Step) *schema.ValidationResult {
	result := structural(v.jsonSchema.ValidateStep(step))
	if !result.Valid() {
		return result
	}

	result.Merge(validateStepSemantic(step, v.jsonSchema))
	validateStepConditions(step, "step", v.cel, result)
	return result
}

// structural turns a schema error into one issue per violation, located
// where the violation is.
func structural(err error) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	if err == nil {
		return result
	}
	var fe *schema.FlowError
	if !errors.As(err, &fe) {
		result.AddError("/", schema.ErrCodeValidation, err.Error())
		return result
	}
	violations, _ := fe.Details["violations"].([]Violation)
	if len(violations) == 0 {
		result.AddError("/", schema.ErrCodeValidation, fe.Message)
		return result
	}
	for _, v := range violations {
		result.AddError(v.Path, schema.ErrCodeValidation, v.Message)
	}
	return result
}
