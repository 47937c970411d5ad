package overlay

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprGuardOption configures an expr guard instance.
type ExprGuardOption func(*exprGuard)

// ExprGuardWithProgramCache wires a ProgramCache into the expr guard.
func ExprGuardWithProgramCache(cache ProgramCache) ExprGuardOption {
	return func(e *exprGuard) {
		e.cache = cache
	}
}

// exprGuard executes guard expressions using github.com/expr-lang/expr.
type exprGuard struct {
	cache ProgramCache
}

// NewExprGuard constructs a GuardEvaluator backed by expr-lang/expr.
func NewExprGuard(opts ...ExprGuardOption) GuardEvaluator {
	e := &exprGuard{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Evaluate compiles and runs expression against the guard context.
func (e *exprGuard) Evaluate(ctx GuardContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapGuardError("expr", expression, fmt.Errorf("expression must not be empty"))
	}
	env := guardEnvironment(ctx)
	if e.cache == nil {
		result, err := exprlang.Eval(expression, env)
		if err != nil {
			return nil, wrapGuardError("expr", expression, err)
		}
		return result, nil
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	result, err := exprlang.Run(program, env)
	if err != nil {
		return nil, wrapGuardError("expr", expression, err)
	}
	return result, nil
}

// Compile returns a compiled guard that evaluates expression per invocation.
func (e *exprGuard) Compile(expression string) (CompiledGuard, error) {
	if expression == "" {
		return nil, wrapGuardError("expr", expression, fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &exprCompiledGuard{
		evaluator:  e,
		program:    program,
		expression: expression,
	}, nil
}

func (e *exprGuard) loadOrCompile(expression string) (*exprvm.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if program, ok := cached.(*exprvm.Program); ok {
				return program, nil
			}
		}
	}
	program, err := exprlang.Compile(expression,
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, wrapGuardError("expr", expression, err)
	}
	if e.cache != nil {
		e.cache.Set(expression, program)
	}
	return program, nil
}

type exprCompiledGuard struct {
	evaluator  *exprGuard
	program    *exprvm.Program
	expression string
}

func (g *exprCompiledGuard) Evaluate(ctx GuardContext) (any, error) {
	if g.evaluator == nil {
		return nil, wrapGuardError("expr", g.expression, fmt.Errorf("compiled guard missing evaluator"))
	}
	if g.program == nil {
		return g.evaluator.Evaluate(ctx, g.expression)
	}
	result, err := exprlang.Run(g.program, guardEnvironment(ctx))
	if err != nil {
		return nil, wrapGuardError("expr", g.expression, err)
	}
	return result, nil
}

// guardEnvironment exposes the context dimensions both flattened at the top
// level (tenantId, role, ...) and grouped under "context", plus the
// candidate overlay under "overlay" and the evaluation timestamp as "now".
func guardEnvironment(ctx GuardContext) map[string]any {
	env := map[string]any{
		"now":     ctx.timestamp(),
		"context": ctx.Context.binding(),
		"overlay": ctx.Overlay.binding(),
	}
	for name, value := range ctx.Context.binding() {
		env[name] = value
	}
	return env
}
