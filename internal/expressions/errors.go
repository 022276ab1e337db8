package expressions

import "github.com/rendis/flowcanvas/pkg/schema"

func compileError(engine, expression string, err error) *schema.FlowError {
	return schema.NewErrorf(schema.ErrCodeExpression,
		"%s compile error in %q: %s", engine, expression, err.Error()).
		WithCause(err).
		WithDetails(map[string]any{"engine": engine, "expression": expression})
}

func evalError(engine, expression string, err error) *schema.FlowError {
	return schema.NewErrorf(schema.ErrCodeExpression,
		"%s evaluation failed for %q: %s", engine, expression, err.Error()).
		WithCause(err).
		WithDetails(map[string]any{"engine": engine, "expression": expression})
}

func emptyError(engine string) *schema.FlowError {
	return schema.NewErrorf(schema.ErrCodeExpression, "empty %s expression", engine)
}

func notBoolError(engine, expression string, got any) *schema.FlowError {
	return schema.NewErrorf(schema.ErrCodeExpression,
		"%s expression %q returned %T, want bool", engine, expression, got).
		WithDetails(map[string]any{"engine": engine, "expression": expression})
}
