package expressions

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
)

// Branch conditions see the message the way a route evaluates it. Anything
// the caller leaves out is bound to its zero value so a condition never
// fails on a missing variable.
var celBindings = map[string]struct {
	typ  *cel.Type
	zero func() any
}{
	"body":       {cel.DynType, func() any { return "" }},
	"headers":    {cel.MapType(cel.StringType, cel.DynType), func() any { return map[string]any{} }},
	"properties": {cel.MapType(cel.StringType, cel.DynType), func() any { return map[string]any{} }},
	"step":       {cel.MapType(cel.StringType, cel.DynType), func() any { return map[string]any{} }},
}

// CELEngine checks and runs branch conditions written in CEL.
type CELEngine struct {
	env      *cel.Env
	programs *programs[cel.Program]
}

func NewCELEngine() (*CELEngine, error) {
	opts := make([]cel.EnvOption, 0, len(celBindings))
	for name, b := range celBindings {
		opts = append(opts, cel.Variable(name, b.typ))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}
	return &CELEngine{env: env, programs: newPrograms[cel.Program](defaultCacheLimit)}, nil
}

func (e *CELEngine) Name() string { return "cel" }

// Check type-checks expression; undeclared variables are errors.
func (e *CELEngine) Check(expression string) error {
	_, err := e.program(expression)
	return err
}

func (e *CELEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	prg, err := e.program(expression)
	if err != nil {
		return nil, err
	}

	vars := make(map[string]any, len(celBindings))
	for name, b := range celBindings {
		if v := data[name]; v != nil {
			vars[name] = v
		} else {
			vars[name] = b.zero()
		}
	}

	out, _, err := prg.ContextEval(ctx, vars)
	if err != nil {
		return nil, evalError(e.Name(), expression, err)
	}
	return out.Value(), nil
}

func (e *CELEngine) program(expression string) (cel.Program, error) {
	if expression == "" {
		return nil, emptyError(e.Name())
	}
	return e.programs.get(expression, func(src string) (cel.Program, error) {
		ast, iss := e.env.Compile(src)
		if err := iss.Err(); err != nil {
			return nil, compileError(e.Name(), src, err)
		}
		prg, err := e.env.Program(ast, cel.InterruptCheckFrequency(100))
		if err != nil {
			return nil, compileError(e.Name(), src, err)
		}
		return prg, nil
	})
}

var (
	_ Engine  = (*CELEngine)(nil)
	_ Checker = (*CELEngine)(nil)
)
