//go:build !js_eval

package overlay

// NewJSGuard is unavailable without the js_eval build tag.
func NewJSGuard(opts ...JSGuardOption) GuardEvaluator {
	_ = applyJSGuardOptions(opts)
	return nil
}

func jsGuardAvailable() bool {
	return false
}
