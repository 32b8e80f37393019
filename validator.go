package statics

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"time"
	"unicode/utf8"
)

// Validator checks a complete candidate mapping. Error returns nil when every
// entry satisfies its field specification.
type Validator interface {
	Error(candidate Values) error
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(candidate Values) error

// Error implements Validator.
func (f ValidatorFunc) Error(candidate Values) error {
	if f == nil {
		return nil
	}
	return f(candidate)
}

// ValidatorFactory builds a Validator for the schema loaded by one request.
type ValidatorFactory func(schema Schema) (Validator, error)

// ValidatorOption configures the schema validator.
type ValidatorOption func(*validatorConfig)

type validatorConfig struct {
	strictKeys    bool
	evaluators    map[string]Evaluator
	defaultEngine string
	functions     *FunctionRegistry
	cacheSize     int
	logger        EvaluatorLogger
	now           func() time.Time
	args          map[string]any
	err           error
}

// WithStrictKeys rejects candidate keys that the schema does not declare.
// By default unknown keys are ignored so that overrides stored for keys later
// removed from the schema do not block every update.
func WithStrictKeys(strict bool) ValidatorOption {
	return func(cfg *validatorConfig) {
		cfg.strictKeys = strict
	}
}

// WithRuleEngine registers or replaces the evaluator used for engine.
func WithRuleEngine(engine string, evaluator Evaluator) ValidatorOption {
	return func(cfg *validatorConfig) {
		if engine == "" || evaluator == nil {
			return
		}
		if cfg.evaluators == nil {
			cfg.evaluators = map[string]Evaluator{}
		}
		cfg.evaluators[engine] = evaluator
	}
}

// WithDefaultEngine selects the engine for rules that do not name one.
func WithDefaultEngine(engine string) ValidatorOption {
	return func(cfg *validatorConfig) {
		if engine != "" {
			cfg.defaultEngine = engine
		}
	}
}

// WithProgramCacheSize bounds the compiled rule programs kept per engine.
func WithProgramCacheSize(size int) ValidatorOption {
	return func(cfg *validatorConfig) {
		cfg.cacheSize = size
	}
}

// WithEvaluatorLogger attaches a logger notified of every rule evaluation.
func WithEvaluatorLogger(logger EvaluatorLogger) ValidatorOption {
	return func(cfg *validatorConfig) {
		if logger == nil {
			cfg.logger = noopEvaluatorLogger{}
			return
		}
		cfg.logger = logger
	}
}

// WithRuleArgs exposes args to rules as the `args` variable.
func WithRuleArgs(args map[string]any) ValidatorOption {
	return func(cfg *validatorConfig) {
		cfg.args = args
	}
}

// WithValidatorClock overrides the time bound to `now` in rules.
func WithValidatorClock(now func() time.Time) ValidatorOption {
	return func(cfg *validatorConfig) {
		if now != nil {
			cfg.now = now
		}
	}
}

func buildValidatorConfig(opts []ValidatorOption) (validatorConfig, error) {
	cfg := validatorConfig{
		defaultEngine: EngineExpr,
		functions:     NewBuiltinFunctionRegistry(),
		logger:        noopEvaluatorLogger{},
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.err != nil {
		return cfg, cfg.err
	}
	if cfg.evaluators == nil {
		cfg.evaluators = map[string]Evaluator{}
	}

	newCache := func() (ProgramCache, error) { return NewLRUProgramCache(cfg.cacheSize) }
	if _, ok := cfg.evaluators[EngineExpr]; !ok {
		cache, err := newCache()
		if err != nil {
			return cfg, err
		}
		cfg.evaluators[EngineExpr] = NewExprEvaluator(ExprWithProgramCache(cache), ExprWithFunctionRegistry(cfg.functions))
	}
	if _, ok := cfg.evaluators[EngineCEL]; !ok {
		cache, err := newCache()
		if err != nil {
			return cfg, err
		}
		cfg.evaluators[EngineCEL] = NewCELEvaluator(CELWithProgramCache(cache), CELWithFunctionRegistry(cfg.functions))
	}
	if _, ok := cfg.evaluators[EngineJS]; !ok && jsEvaluatorAvailable() {
		cache, err := newCache()
		if err != nil {
			return cfg, err
		}
		cfg.evaluators[EngineJS] = NewJSEvaluator(JSWithProgramCache(cache), JSWithFunctionRegistry(cfg.functions))
	}
	return cfg, nil
}

// NewValidatorFactory returns a factory producing SchemaValidators that share
// one set of rule engines and program caches.
func NewValidatorFactory(opts ...ValidatorOption) (ValidatorFactory, error) {
	cfg, err := buildValidatorConfig(opts)
	if err != nil {
		return nil, err
	}
	return func(schema Schema) (Validator, error) {
		return compileSchema(schema, cfg)
	}, nil
}

// NewSchemaValidator compiles schema into a validator.
func NewSchemaValidator(schema Schema, opts ...ValidatorOption) (*SchemaValidator, error) {
	cfg, err := buildValidatorConfig(opts)
	if err != nil {
		return nil, err
	}
	return compileSchema(schema, cfg)
}

// SchemaValidator checks candidates against a compiled Schema. Violations are
// reported for every failing key, ordered by key.
type SchemaValidator struct {
	fields []compiledField
	known  map[string]struct{}
	cfg    validatorConfig
}

type compiledField struct {
	key       string
	spec      FieldSpec
	pattern   *regexp.Regexp
	engine    string
	evaluator Evaluator
}

func compileSchema(schema Schema, cfg validatorConfig) (*SchemaValidator, error) {
	v := &SchemaValidator{
		fields: make([]compiledField, 0, len(schema)),
		known:  make(map[string]struct{}, len(schema)),
		cfg:    cfg,
	}
	for _, key := range schema.Keys() {
		spec := schema[key]
		field := compiledField{key: key, spec: spec}

		switch spec.Type {
		case "", FieldTypeAny, FieldTypeString, FieldTypeNumber, FieldTypeInteger,
			FieldTypeBoolean, FieldTypeObject, FieldTypeArray:
		default:
			return nil, fmt.Errorf("statics: schema key %q: unknown type %q", key, spec.Type)
		}
		if spec.MinLength != nil && spec.MaxLength != nil && *spec.MinLength > *spec.MaxLength {
			return nil, fmt.Errorf("statics: schema key %q: min_length %d exceeds max_length %d", key, *spec.MinLength, *spec.MaxLength)
		}
		if spec.Pattern != "" {
			re, err := regexp.Compile(spec.Pattern)
			if err != nil {
				return nil, fmt.Errorf("statics: schema key %q: pattern: %w", key, err)
			}
			field.pattern = re
		}
		if spec.Rule != "" {
			engine := spec.Engine
			if engine == "" {
				engine = cfg.defaultEngine
			}
			evaluator, ok := cfg.evaluators[engine]
			if !ok || evaluator == nil {
				return nil, fmt.Errorf("statics: schema key %q: rule engine %q unavailable", key, engine)
			}
			field.engine = engine
			field.evaluator = evaluator
		}

		v.fields = append(v.fields, field)
		v.known[key] = struct{}{}
	}
	return v, nil
}

// Error implements Validator.
func (v *SchemaValidator) Error(candidate Values) error {
	var violations ValidationErrors
	now := v.cfg.now()

	for _, field := range v.fields {
		value, present := candidate[field.key]
		if reason := field.check(value, present); reason != "" {
			violations = append(violations, &ValidationError{Key: field.key, Reason: reason})
			continue
		}
		if field.evaluator == nil || value == nil {
			continue
		}
		if violation := v.evaluateRule(field, value, candidate, now); violation != nil {
			violations = append(violations, violation)
		}
	}

	if v.cfg.strictKeys {
		unknown := make([]string, 0)
		for key := range candidate {
			if _, ok := v.known[key]; !ok {
				unknown = append(unknown, key)
			}
		}
		sort.Strings(unknown)
		for _, key := range unknown {
			violations = append(violations, &ValidationError{Key: key, Reason: "is not a known static"})
		}
	}

	if len(violations) == 0 {
		return nil
	}
	return violations
}

func (v *SchemaValidator) evaluateRule(field compiledField, value any, candidate Values, now time.Time) *ValidationError {
	start := time.Now()
	out, err := field.evaluator.Evaluate(RuleContext{
		Key:    field.key,
		Value:  value,
		Values: candidate,
		Now:    &now,
		Args:   v.cfg.args,
	}, field.spec.Rule)
	v.cfg.logger.LogEvaluation(EvaluatorLogEvent{
		Engine:   field.engine,
		Expr:     field.spec.Rule,
		Key:      field.key,
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil {
		return &ValidationError{Key: field.key, Reason: "rule evaluation failed", Err: err}
	}
	ok, isBool := out.(bool)
	if !isBool {
		return &ValidationError{Key: field.key, Reason: fmt.Sprintf("rule must evaluate to a boolean, got %T", out)}
	}
	if ok {
		return nil
	}
	if field.spec.Message != "" {
		return &ValidationError{Key: field.key, Reason: field.spec.Message}
	}
	return &ValidationError{Key: field.key, Reason: fmt.Sprintf("does not satisfy rule %q", field.spec.Rule)}
}

// check applies the declarative constraints and returns a violation reason,
// or "" when value is acceptable.
func (f compiledField) check(value any, present bool) string {
	spec := f.spec
	if value == nil {
		if spec.Required && !(present && spec.Nullable) {
			return "is required"
		}
		return ""
	}

	if !matchesType(spec.Type, value) {
		return fmt.Sprintf("must be of type %s", spec.Type)
	}
	if len(spec.Enum) > 0 && !containsValue(spec.Enum, value) {
		return fmt.Sprintf("must be one of %v", spec.Enum)
	}
	if n, ok := length(value); ok {
		if spec.MinLength != nil && n < *spec.MinLength {
			return fmt.Sprintf("must have a length of at least %d", *spec.MinLength)
		}
		if spec.MaxLength != nil && n > *spec.MaxLength {
			return fmt.Sprintf("must have a length of at most %d", *spec.MaxLength)
		}
	}
	if f.pattern != nil {
		s, ok := value.(string)
		if !ok || !f.pattern.MatchString(s) {
			return fmt.Sprintf("must match pattern %q", spec.Pattern)
		}
	}
	return ""
}

func matchesType(fieldType FieldType, value any) bool {
	switch fieldType {
	case "", FieldTypeAny:
		return true
	case FieldTypeString:
		_, ok := value.(string)
		return ok
	case FieldTypeBoolean:
		_, ok := value.(bool)
		return ok
	case FieldTypeNumber:
		_, ok := toFloat(value)
		return ok
	case FieldTypeInteger:
		f, ok := toFloat(value)
		return ok && !math.IsInf(f, 0) && f == math.Trunc(f)
	case FieldTypeObject:
		_, ok := value.(map[string]any)
		return ok
	case FieldTypeArray:
		_, ok := value.([]any)
		return ok
	default:
		return false
	}
}

func toFloat(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func length(value any) (int, bool) {
	switch v := value.(type) {
	case string:
		return utf8.RuneCountInString(v), true
	case []any:
		return len(v), true
	default:
		return 0, false
	}
}

// containsValue compares numbers by value so that a YAML integer enum entry
// matches a JSON float candidate.
func containsValue(options []any, value any) bool {
	vf, vNumeric := toFloat(value)
	for _, option := range options {
		if of, ok := toFloat(option); ok && vNumeric {
			if of == vf {
				return true
			}
			continue
		}
		if reflect.DeepEqual(option, value) {
			return true
		}
	}
	return false
}
