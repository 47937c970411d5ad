package overlay

import (
	"errors"
	"fmt"
	"time"
)

// GuardContext carries the inputs a match-guard expression evaluates
// against: the render context and the candidate overlay's identity and
// ranking inputs. Guards are host configuration supplied through registry
// options; they are never stored inside overlays, so overlays stay pure
// data.
type GuardContext struct {
	Context MatchContext
	Overlay GuardOverlay
	Now     *time.Time
}

// GuardOverlay is the candidate-overlay view exposed to guard expressions.
type GuardOverlay struct {
	OverlayID   string
	Version     string
	Specificity int
	Priority    int
	Metadata    map[string]any
}

func (ctx GuardContext) withDefaultNow() GuardContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx GuardContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (o GuardOverlay) binding() map[string]any {
	binding := map[string]any{
		"overlayId":   o.OverlayID,
		"version":     o.Version,
		"specificity": o.Specificity,
		"priority":    o.Priority,
	}
	if len(o.Metadata) > 0 {
		binding["metadata"] = copyMetadata(o.Metadata)
	}
	return binding
}

// GuardEvaluator executes guard expressions against a guard context.
type GuardEvaluator interface {
	Evaluate(ctx GuardContext, expr string) (any, error)
	Compile(expr string) (CompiledGuard, error)
}

// CompiledGuard represents a reusable guard program.
type CompiledGuard interface {
	Evaluate(ctx GuardContext) (any, error)
}

// ProgramCache stores compiled guard programs keyed by expression strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// WithMatchGuard installs an eligibility expression evaluated once per
// matched overlay. Only a boolean true keeps the overlay in the match list;
// anything else, including an evaluation error, drops it.
func WithMatchGuard(expr string) Option {
	return func(cfg *registryConfig) {
		cfg.guardExpr = expr
	}
}

// WithGuardEvaluator selects the evaluator the match guard runs on. Without
// it, guards run on the expr evaluator.
func WithGuardEvaluator(evaluator GuardEvaluator) Option {
	return func(cfg *registryConfig) {
		cfg.guardEvaluator = evaluator
	}
}

// WithProgramCache registers a cache for compiled guard programs.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *registryConfig) {
		cfg.programCache = cache
	}
}

// GuardError captures evaluator metadata alongside the originating error.
type GuardError struct {
	Engine string
	Expr   string
	Err    error
}

func (e *GuardError) Error() string {
	if e == nil {
		return "<nil>"
	}
	expr := "expr=<empty>"
	if e.Expr != "" {
		expr = fmt.Sprintf("expr=%q", e.Expr)
	}
	return fmt.Sprintf("overlay: %s guard %s: %v", e.Engine, expr, e.Err)
}

func (e *GuardError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func wrapGuardError(engine, expr string, err error) error {
	if err == nil {
		return nil
	}
	var guardErr *GuardError
	if errors.As(err, &guardErr) {
		if guardErr.Engine == "" {
			guardErr.Engine = engine
		}
		if guardErr.Expr == "" {
			guardErr.Expr = expr
		}
		return guardErr
	}
	return &GuardError{Engine: engine, Expr: expr, Err: err}
}

func (r *Registry) filterByGuard(ctx MatchContext, matched []RankedOverlay) []RankedOverlay {
	if r.cfg.guardExpr == "" || len(matched) == 0 {
		return matched
	}
	evaluator := r.resolveGuardEvaluator()
	if evaluator == nil {
		return matched
	}

	kept := make([]RankedOverlay, 0, len(matched))
	for _, candidate := range matched {
		guardCtx := GuardContext{
			Context: ctx,
			Overlay: GuardOverlay{
				OverlayID:   candidate.Overlay.OverlayID,
				Version:     candidate.Overlay.Version,
				Specificity: candidate.Specificity,
				Priority:    candidate.Priority,
				Metadata:    candidate.Overlay.Metadata,
			},
		}
		value, err := evaluator.Evaluate(guardCtx, r.cfg.guardExpr)
		if err != nil {
			r.cfg.engineLogger().LogOperation(EngineLogEvent{
				Op:        "guard",
				OverlayID: candidate.Overlay.OverlayID,
				Version:   candidate.Overlay.Version,
				Err:       wrapGuardError("", r.cfg.guardExpr, err),
			})
			continue
		}
		if keep, ok := value.(bool); ok && keep {
			kept = append(kept, candidate)
		}
	}
	return kept
}

func (r *Registry) resolveGuardEvaluator() GuardEvaluator {
	if r.cfg.guardEvaluator != nil {
		return r.cfg.guardEvaluator
	}
	r.guardOnce.Do(func() {
		var exprOpts []ExprGuardOption
		if r.cfg.programCache != nil {
			exprOpts = append(exprOpts, ExprGuardWithProgramCache(r.cfg.programCache))
		}
		r.guard = NewExprGuard(exprOpts...)
	})
	return r.guard
}
