package statics

import (
	"fmt"
	"sync"

	celgo "github.com/google/cel-go/cel"
	functions "github.com/google/cel-go/common/functions"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache wires a ProgramCache into the CEL evaluator.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry wires a FunctionRegistry into the CEL evaluator.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry

	envOnce sync.Once
	env     *celgo.Env
	envErr  error
}

// NewCELEvaluator constructs an Evaluator backed by cel-go.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapRuleError(EngineCEL, "", ctx.Key, fmt.Errorf("expression must not be empty"))
	}
	ctx = ctx.withDefaults()
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, wrapRuleError(EngineCEL, expression, ctx.Key, err)
	}
	out, _, err := program.Eval(ctx.bindings())
	if err != nil {
		return nil, wrapRuleError(EngineCEL, expression, ctx.Key, err)
	}
	return out.Value(), nil
}

func (e *celEvaluator) loadOrCompile(expression string) (celgo.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if program, ok := cached.(celgo.Program); ok {
				return program, nil
			}
		}
	}

	env, err := e.environment()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(expression, prg)
	}
	return prg, nil
}

// environment is built once; the declared variables do not depend on the
// candidate because the merged mapping is exposed as the dynamic `values`.
func (e *celEvaluator) environment() (*celgo.Env, error) {
	e.envOnce.Do(func() {
		opts := []celgo.EnvOption{
			celgo.Variable("now", celgo.TimestampType),
			celgo.Variable("args", celgo.DynType),
			celgo.Variable("key", celgo.StringType),
			celgo.Variable("value", celgo.DynType),
			celgo.Variable("values", celgo.DynType),
		}
		if e.registry != nil {
			opts = append(opts, celgo.Function("call", e.callOverloads()...))
		}
		e.env, e.envErr = celgo.NewEnv(opts...)
	})
	return e.env, e.envErr
}

// callOverloads declares call(name, args...) for up to three arguments.
func (e *celEvaluator) callOverloads() []celgo.FunctionOpt {
	binding := celgo.FunctionBinding(e.callBinding())
	overloads := make([]celgo.FunctionOpt, 0, 4)
	argTypes := []*celgo.Type{celgo.StringType}
	for arity := 0; arity <= 3; arity++ {
		overloads = append(overloads, celgo.Overload(
			fmt.Sprintf("call_dyn_%d", arity),
			append([]*celgo.Type(nil), argTypes...),
			celgo.DynType,
			binding,
		))
		argTypes = append(argTypes, celgo.DynType)
	}
	return overloads
}

func (e *celEvaluator) callBinding() functions.FunctionOp {
	return func(values ...ref.Val) ref.Val {
		if e.registry == nil {
			return types.NewErr("statics: function registry not configured")
		}
		if len(values) == 0 {
			return types.NewErr("statics: call requires function name")
		}
		name, ok := values[0].Value().(string)
		if !ok {
			return types.NewErr("statics: call name must be string")
		}
		args := make([]any, 0, len(values)-1)
		for _, val := range values[1:] {
			args = append(args, val.Value())
		}
		result, err := e.registry.Call(name, args...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}
