package statics

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBuiltinFunctions(t *testing.T) {
	registry := NewBuiltinFunctionRegistry()
	if diff := cmp.Diff([]string{"isemail", "ishexcolor", "isurl"}, registry.Names()); diff != "" {
		t.Fatalf("builtin names mismatch (-want +got):\n%s", diff)
	}

	tests := []struct {
		fn   string
		arg  any
		want bool
	}{
		{fn: "isEmail", arg: "hello@acme.test", want: true},
		{fn: "isEmail", arg: "Acme <hello@acme.test>", want: false},
		{fn: "isEmail", arg: "not-an-email", want: false},
		{fn: "isEmail", arg: 42.0, want: false},
		{fn: "isURL", arg: "https://acme.test/about", want: true},
		{fn: "isURL", arg: "ftp://acme.test", want: false},
		{fn: "isURL", arg: "/relative", want: false},
		{fn: "isHexColor", arg: "#ff0088", want: true},
		{fn: "isHexColor", arg: "#FFF", want: true},
		{fn: "isHexColor", arg: "ff0088", want: false},
		{fn: "isHexColor", arg: "#12345", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.fn, func(t *testing.T) {
			got, err := registry.Call(tt.fn, tt.arg)
			if err != nil {
				t.Fatalf("call %s(%v): %v", tt.fn, tt.arg, err)
			}
			if got != tt.want {
				t.Fatalf("%s(%v) = %v, want %v", tt.fn, tt.arg, got, tt.want)
			}
		})
	}

	if _, err := registry.Call("isEmail"); err == nil {
		t.Fatalf("expected arity error")
	}
}

func TestFunctionRegistryRegister(t *testing.T) {
	noop := func(...any) (any, error) { return true, nil }
	tests := []struct {
		name    string
		fn      Function
		wantErr string
	}{
		{name: "isSlug", fn: noop},
		{name: "", fn: noop, wantErr: "invalid function name"},
		{name: "has-dash", fn: noop, wantErr: "invalid function name"},
		{name: "Value", fn: noop, wantErr: "reserved"},
		{name: "call", fn: noop, wantErr: "reserved"},
		{name: "nilFn", fn: nil, wantErr: "is nil"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewFunctionRegistry().Register(tt.name, tt.fn)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("register: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestFunctionRegistryIsCaseInsensitive(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("isSlug", func(...any) (any, error) { return "ok", nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register("ISSLUG", func(...any) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("expected duplicate error ignoring case")
	}
	got, err := registry.Call("IsSlug")
	if err != nil || got != "ok" {
		t.Fatalf("call = %v, %v", got, err)
	}
	if _, err := registry.Call("missing"); err == nil {
		t.Fatalf("expected error for unknown function")
	}
	var nilRegistry *FunctionRegistry
	if _, err := nilRegistry.Call("isSlug"); err == nil {
		t.Fatalf("expected error for nil registry")
	}
}

func TestFunctionRegistryMerge(t *testing.T) {
	extra := NewFunctionRegistry()
	if err := extra.Register("isSlug", func(...any) (any, error) { return true, nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	registry := NewBuiltinFunctionRegistry()
	if err := registry.Merge(extra); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if _, ok := registry.Lookup("isslug"); !ok {
		t.Fatalf("merged function missing")
	}
	if err := registry.Merge(extra); err == nil {
		t.Fatalf("expected duplicate error on second merge")
	}
}

func TestBuiltinsReachRules(t *testing.T) {
	v, err := NewSchemaValidator(Schema{
		"supportEmail": {Type: FieldTypeString, Rule: `isemail(value)`, Message: "must be an email address"},
		"homepage":     {Type: FieldTypeString, Rule: `call("isURL", value)`, Engine: EngineCEL},
		"brandColor":   {Type: FieldTypeString, Rule: `call("isHexColor", value)`},
	})
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	valid := Values{"supportEmail": "help@acme.test", "homepage": "https://acme.test", "brandColor": "#0af"}
	if err := v.Error(valid); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
	err = v.Error(Values{"supportEmail": "help", "homepage": "acme", "brandColor": "blue"})
	var violations ValidationErrors
	if !errors.As(err, &violations) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	if diff := cmp.Diff([]string{"brandColor", "homepage", "supportEmail"}, violations.Keys()); diff != "" {
		t.Fatalf("violation keys mismatch (-want +got):\n%s", diff)
	}
}

func TestInvalidCustomFunctionFailsFactory(t *testing.T) {
	_, err := NewValidatorFactory(WithCustomFunction("isEmail", func(...any) (any, error) { return true, nil }))
	if err == nil || !strings.Contains(err.Error(), "already registered") {
		t.Fatalf("expected duplicate builtin error, got %v", err)
	}
	_, err = NewValidatorFactory(WithCustomFunction("values", func(...any) (any, error) { return true, nil }))
	if err == nil || !strings.Contains(err.Error(), "reserved") {
		t.Fatalf("expected reserved name error, got %v", err)
	}
}
