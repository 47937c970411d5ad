package overlay

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
)

// CELGuardOption configures the CEL guard.
type CELGuardOption func(*celGuard)

// CELGuardWithProgramCache wires a ProgramCache into the CEL guard.
func CELGuardWithProgramCache(cache ProgramCache) CELGuardOption {
	return func(e *celGuard) {
		e.cache = cache
	}
}

type celGuard struct {
	cache ProgramCache
}

// NewCELGuard constructs a GuardEvaluator backed by cel-go.
func NewCELGuard(opts ...CELGuardOption) GuardEvaluator {
	e := &celGuard{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celGuard) Evaluate(ctx GuardContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapGuardError("cel", expression, fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	out, _, err := program.Eval(e.activation(ctx))
	if err != nil {
		return nil, wrapGuardError("cel", expression, err)
	}
	return out.Value(), nil
}

func (e *celGuard) Compile(expression string) (CompiledGuard, error) {
	if expression == "" {
		return nil, wrapGuardError("cel", expression, fmt.Errorf("expression must not be empty"))
	}
	return &celCompiledGuard{
		evaluator:  e,
		expression: expression,
	}, nil
}

// loadOrCompile can cache unconditionally because the CEL environment is a
// fixed declaration set; it never depends on which dimensions a particular
// context populates.
func (e *celGuard) loadOrCompile(expression string) (celgo.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if program, ok := cached.(celgo.Program); ok {
				return program, nil
			}
		}
	}

	env, err := celgo.NewEnv(guardDeclarations()...)
	if err != nil {
		return nil, wrapGuardError("cel", expression, err)
	}
	ast, issues := env.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return nil, wrapGuardError("cel", expression, issues.Err())
	}
	checked, issues := env.Check(ast)
	if issues != nil && issues.Err() != nil {
		return nil, wrapGuardError("cel", expression, issues.Err())
	}
	program, err := env.Program(checked)
	if err != nil {
		return nil, wrapGuardError("cel", expression, err)
	}
	if e.cache != nil {
		e.cache.Set(expression, program)
	}
	return program, nil
}

func guardDeclarations() []celgo.EnvOption {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("context", celgo.DynType),
		celgo.Variable("overlay", celgo.DynType),
	}
	for _, name := range guardDimensionNames() {
		opts = append(opts, celgo.Variable(name, celgo.StringType))
	}
	return opts
}

func guardDimensionNames() []string {
	return []string{
		"capability", "workflow", "dataView", "presentation", "feature",
		"tenantId", "userId", "role", "device", "tier",
	}
}

func (e *celGuard) activation(ctx GuardContext) map[string]any {
	activation := map[string]any{
		"now":     ctx.timestamp(),
		"context": ctx.Context.binding(),
		"overlay": ctx.Overlay.binding(),
	}
	// Absent dimensions activate as empty strings so checked expressions
	// never fail on a missing attribute.
	for _, name := range guardDimensionNames() {
		activation[name] = ctx.Context.value(name)
	}
	return activation
}

type celCompiledGuard struct {
	evaluator  *celGuard
	expression string
}

func (g *celCompiledGuard) Evaluate(ctx GuardContext) (any, error) {
	if g.evaluator == nil {
		return nil, wrapGuardError("cel", g.expression, fmt.Errorf("compiled guard missing evaluator"))
	}
	program, err := g.evaluator.loadOrCompile(g.expression)
	if err != nil {
		return nil, err
	}
	out, _, err := program.Eval(g.evaluator.activation(ctx))
	if err != nil {
		return nil, wrapGuardError("cel", g.expression, err)
	}
	return out.Value(), nil
}
