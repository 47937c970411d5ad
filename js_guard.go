//go:build js_eval

package overlay

import (
	"fmt"

	"github.com/dop251/goja"
)

type jsGuard struct {
	cache ProgramCache
}

// NewJSGuard constructs a GuardEvaluator backed by goja.
func NewJSGuard(opts ...JSGuardOption) GuardEvaluator {
	cfg := applyJSGuardOptions(opts)
	return &jsGuard{cache: cfg.cache}
}

func (e *jsGuard) Evaluate(ctx GuardContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapGuardError("js", expression, fmt.Errorf("expression must not be empty"))
	}
	if e.cache == nil {
		return e.run(ctx, expression, nil)
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, expression, program)
}

func (e *jsGuard) Compile(expression string) (CompiledGuard, error) {
	if expression == "" {
		return nil, wrapGuardError("js", expression, fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &jsCompiledGuard{
		evaluator:  e,
		expression: expression,
		program:    program,
	}, nil
}

func (e *jsGuard) loadOrCompile(expression string) (*goja.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("", e.wrapExpression(expression), false)
	if err != nil {
		return nil, wrapGuardError("js", expression, err)
	}
	if e.cache != nil {
		e.cache.Set(expression, program)
	}
	return program, nil
}

func (e *jsGuard) run(ctx GuardContext, expression string, program *goja.Program) (any, error) {
	vm := goja.New()
	e.injectContext(vm, ctx)
	if program != nil {
		value, err := vm.RunProgram(program)
		if err != nil {
			return nil, wrapGuardError("js", expression, err)
		}
		return value.Export(), nil
	}
	value, err := vm.RunString(e.wrapExpression(expression))
	if err != nil {
		return nil, wrapGuardError("js", expression, err)
	}
	return value.Export(), nil
}

func (e *jsGuard) injectContext(vm *goja.Runtime, ctx GuardContext) {
	vm.Set("now", ctx.timestamp())
	vm.Set("context", ctx.Context.binding())
	vm.Set("overlay", ctx.Overlay.binding())
	for name, value := range ctx.Context.binding() {
		vm.Set(name, value)
	}
}

func (e *jsGuard) wrapExpression(expression string) string {
	return fmt.Sprintf("(function(){ return (%s); })()", expression)
}

type jsCompiledGuard struct {
	evaluator  *jsGuard
	expression string
	program    *goja.Program
}

func (g *jsCompiledGuard) Evaluate(ctx GuardContext) (any, error) {
	if g.evaluator == nil {
		return nil, wrapGuardError("js", g.expression, fmt.Errorf("compiled guard missing evaluator"))
	}
	return g.evaluator.run(ctx, g.expression, g.program)
}

func jsGuardAvailable() bool {
	return true
}
