package expressions

import (
	"context"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ExprEngine runs expr-lang expressions. View definitions use it for their
// applicability constraints, e.g.
//
//	step.kind == "EIP" && step.name in ["choice", "filter"]
//
// Constraints are compiled without a typed environment so one program
// serves every step shape.
type ExprEngine struct {
	programs *programs[*vm.Program]
}

func NewExprEngine() *ExprEngine {
	return &ExprEngine{programs: newPrograms[*vm.Program](defaultCacheLimit)}
}

func (e *ExprEngine) Name() string { return "expr" }

func (e *ExprEngine) Check(expression string) error {
	_, err := e.program(expression)
	return err
}

func (e *ExprEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	prg, err := e.program(expression)
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = map[string]any{}
	}
	out, err := expr.Run(prg, data)
	if err != nil {
		return nil, evalError(e.Name(), expression, err)
	}
	return out, nil
}

func (e *ExprEngine) program(expression string) (*vm.Program, error) {
	if expression == "" {
		return nil, emptyError(e.Name())
	}
	return e.programs.get(expression, func(src string) (*vm.Program, error) {
		prg, err := expr.Compile(src, expr.AllowUndefinedVariables())
		if err != nil {
			return nil, compileError(e.Name(), src, err)
		}
		return prg, nil
	})
}

var (
	_ Engine  = (*ExprEngine)(nil)
	_ Checker = (*ExprEngine)(nil)
)
