package expressions

import (
	"context"

	"github.com/itchyny/gojq"
)

// GoJQEngine runs jq filters over step documents; step search is built on it.
type GoJQEngine struct {
	programs *programs[*gojq.Code]
}

func NewGoJQEngine() *GoJQEngine {
	return &GoJQEngine{programs: newPrograms[*gojq.Code](defaultCacheLimit)}
}

func (e *GoJQEngine) Name() string { return "jq" }

func (e *GoJQEngine) Check(expression string) error {
	_, err := e.code(expression)
	return err
}

// Evaluate collapses the filter outputs: none is nil, one is returned as
// is, several come back as []any.
func (e *GoJQEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	outs, err := e.EvaluateAll(ctx, expression, data)
	if err != nil {
		return nil, err
	}
	switch len(outs) {
	case 0:
		return nil, nil
	case 1:
		return outs[0], nil
	}
	return outs, nil
}

// EvaluateAll returns every output of the filter.
func (e *GoJQEngine) EvaluateAll(ctx context.Context, expression string, data map[string]any) ([]any, error) {
	var outs []any
	err := e.each(ctx, expression, data, func(v any) bool {
		outs = append(outs, v)
		return true
	})
	return outs, err
}

// Any reports whether the filter yields at least one output that is neither
// null nor false. It stops at the first such output, so
// `select(.name | startswith("log"))` and `.kind == "EIP"` both work as
// predicates.
func (e *GoJQEngine) Any(ctx context.Context, expression string, data map[string]any) (bool, error) {
	found := false
	err := e.each(ctx, expression, data, func(v any) bool {
		if v == nil || v == false {
			return true
		}
		found = true
		return false
	})
	return found, err
}

func (e *GoJQEngine) each(ctx context.Context, expression string, data map[string]any, yield func(any) bool) error {
	code, err := e.code(expression)
	if err != nil {
		return err
	}
	iter := code.RunWithContext(ctx, data)
	for {
		v, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, isErr := v.(error); isErr {
			return evalError(e.Name(), expression, err)
		}
		if !yield(v) {
			return nil
		}
	}
}

func (e *GoJQEngine) code(expression string) (*gojq.Code, error) {
	if expression == "" {
		return nil, emptyError(e.Name())
	}
	return e.programs.get(expression, func(src string) (*gojq.Code, error) {
		query, err := gojq.Parse(src)
		if err != nil {
			return nil, compileError(e.Name(), src, err)
		}
		// $ENV stays empty: filters come from editor users.
		code, err := gojq.Compile(query, gojq.WithEnvironLoader(func() []string { return nil }))
		if err != nil {
			return nil, compileError(e.Name(), src, err)
		}
		return code, nil
	})
}

var (
	_ Engine  = (*GoJQEngine)(nil)
	_ Checker = (*GoJQEngine)(nil)
)
