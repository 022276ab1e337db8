package expressions

import "context"

// Engine evaluates one expression language against a data map.
// CEL checks branch conditions, Expr decides view applicability and
// GoJQ filters flattened steps.
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}

// Checker validates an expression without evaluating it.
type Checker interface {
	Check(expression string) error
}

// EvaluateBool runs expression on e and requires a boolean result.
func EvaluateBool(ctx context.Context, e Engine, expression string, data map[string]any) (bool, error) {
	out, err := e.Evaluate(ctx, expression, data)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, notBoolError(e.Name(), expression, out)
	}
	return b, nil
}
