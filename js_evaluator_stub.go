//go:build !js_eval

package statics

// NewJSEvaluator returns nil in builds without the js_eval tag. Schemas that
// name the js engine then fail to compile with an engine unavailable error.
func NewJSEvaluator(...JSEvaluatorOption) Evaluator {
	return nil
}

func jsEvaluatorAvailable() bool { return false }
