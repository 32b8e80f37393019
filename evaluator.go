package statics

import "time"

// Rule engine names accepted in FieldSpec.Engine.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// Evaluator executes rule expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
}

// RuleContext carries the inputs of one rule evaluation: the key being
// checked, its candidate value and the whole merged mapping.
type RuleContext struct {
	Key    string
	Value  any
	Values Values
	Now    *time.Time
	Args   map[string]any
}

func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Values == nil {
		ctx.Values = Values{}
	}
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	if ctx.Now == nil {
		return time.Now()
	}
	return *ctx.Now
}

// bindings returns the variables every engine exposes to expressions.
func (ctx RuleContext) bindings() map[string]any {
	return map[string]any{
		"now":    ctx.timestamp(),
		"args":   ctx.Args,
		"key":    ctx.Key,
		"value":  ctx.Value,
		"values": ctx.Values,
	}
}

// flatBindings extends bindings with every merged key as a top-level
// variable. Reserved binding names are never shadowed.
func (ctx RuleContext) flatBindings() map[string]any {
	env := ctx.bindings()
	for key, value := range ctx.Values {
		if _, reserved := env[key]; reserved || key == "call" {
			continue
		}
		env[key] = value
	}
	return env
}
