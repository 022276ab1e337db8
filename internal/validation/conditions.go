package validation

import (
	"fmt"

	"github.com/rendis/flowcanvas/internal/expressions"
	"github.com/rendis/flowcanvas/pkg/schema"
)

// validateConditions compiles every branch condition under CEL.
func validateConditions(list []schema.Step, prefix string, cel expressions.Checker, result *schema.ValidationResult) {
	for i, s := range list {
		validateStepConditions(s, fmt.Sprintf("%s[%d]", prefix, i), cel, result)
	}
}

func validateStepConditions(s schema.Step, path string, cel expressions.Checker, result *schema.ValidationResult) {
	for bi, b := range s.Branches {
		branchPath := fmt.Sprintf("%s.branches[%d]", path, bi)
		if b.Condition != "" {
			if err := cel.Check(b.Condition); err != nil {
				result.AddError(branchPath+".condition", schema.ErrCodeExpression, err.Error())
			}
		}
		validateConditions(b.Steps, branchPath+".steps", cel, result)
	}
}
