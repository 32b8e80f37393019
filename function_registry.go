package statics

import (
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Function is a helper callable from rules in every engine, either directly
// by its lower-case name (expr, js) or through call(name, args...).
type Function func(args ...any) (any, error)

var (
	functionNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	hexColorPattern     = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
)

// reservedFunctionNames are rule bindings a function may not shadow.
var reservedFunctionNames = map[string]struct{}{
	"value":  {},
	"values": {},
	"key":    {},
	"now":    {},
	"args":   {},
	"call":   {},
}

// FunctionRegistry holds rule helpers. Names are case-insensitive and stored
// lower-cased.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry returns an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]Function),
	}
}

// NewBuiltinFunctionRegistry returns a registry preloaded with the site value
// helpers: isEmail, isURL and isHexColor. Default validators start from it.
func NewBuiltinFunctionRegistry() *FunctionRegistry {
	r := NewFunctionRegistry()
	r.functions["isemail"] = stringPredicate("isEmail", isEmail)
	r.functions["isurl"] = stringPredicate("isURL", isURL)
	r.functions["ishexcolor"] = stringPredicate("isHexColor", hexColorPattern.MatchString)
	return r
}

// Register adds fn under name. Names must be identifiers, unique ignoring
// case, and must not collide with a rule binding.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("statics: function %q is nil", name)
	}
	if !functionNamePattern.MatchString(name) {
		return fmt.Errorf("statics: invalid function name %q", name)
	}
	key := strings.ToLower(name)
	if _, reserved := reservedFunctionNames[key]; reserved {
		return fmt.Errorf("statics: function name %q is reserved", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("statics: function %q already registered", name)
	}
	r.functions[key] = fn
	return nil
}

// Merge registers every function of other, failing on the first duplicate.
func (r *FunctionRegistry) Merge(other *FunctionRegistry) error {
	if other == nil {
		return nil
	}
	for _, name := range other.Names() {
		fn, _ := other.Lookup(name)
		if err := r.Register(name, fn); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{
		functions: make(map[string]Function, len(r.functions)),
	}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Lookup returns the function registered for name.
func (r *FunctionRegistry) Lookup(name string) (Function, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.functions[strings.ToLower(name)]
	return fn, ok
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, errors.New("statics: function registry is nil")
	}
	fn, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("statics: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns the registered names, lower-cased and sorted.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithFunctionRegistry adds the functions of registry to the builtins
// exposed to the default rule engines.
func WithFunctionRegistry(registry *FunctionRegistry) ValidatorOption {
	return func(cfg *validatorConfig) {
		if err := cfg.functions.Merge(registry); err != nil {
			cfg.err = errors.Join(cfg.err, err)
		}
	}
}

// WithCustomFunction registers fn under name for the default rule engines.
// Invalid or duplicate names surface as an error from NewValidatorFactory.
func WithCustomFunction(name string, fn Function) ValidatorOption {
	return func(cfg *validatorConfig) {
		if err := cfg.functions.Register(name, fn); err != nil {
			cfg.err = errors.Join(cfg.err, err)
		}
	}
}

// stringPredicate wraps check as a one-argument Function. Non-string
// arguments yield false.
func stringPredicate(name string, check func(string) bool) Function {
	return func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("statics: %s expects 1 argument, got %d", name, len(args))
		}
		s, ok := args[0].(string)
		if !ok {
			return false, nil
		}
		return check(s), nil
	}
}

func isEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
