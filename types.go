package statics

import (
	"context"
	"sort"
)

// Values maps static keys to their values. It is used for stored overrides,
// proposed overrides, the merged state and the schema-complete output.
type Values = map[string]any

// FieldType names the JSON shape a static value must have. An empty type
// accepts any value, like FieldTypeAny.
type FieldType string

const (
	FieldTypeAny     FieldType = "any"
	FieldTypeString  FieldType = "string"
	FieldTypeNumber  FieldType = "number"
	FieldTypeInteger FieldType = "integer"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeObject  FieldType = "object"
	FieldTypeArray   FieldType = "array"
)

// FieldSpec describes the allowed shape of one static value. The service
// treats it as opaque; only the Validator interprets it.
type FieldSpec struct {
	Type        FieldType `json:"type,omitempty" yaml:"type,omitempty" mapstructure:"type"`
	Label       string    `json:"label,omitempty" yaml:"label,omitempty" mapstructure:"label"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Required    bool      `json:"required,omitempty" yaml:"required,omitempty" mapstructure:"required"`
	Nullable    bool      `json:"nullable,omitempty" yaml:"nullable,omitempty" mapstructure:"nullable"`
	Enum        []any     `json:"enum,omitempty" yaml:"enum,omitempty" mapstructure:"enum"`
	MinLength   *int      `json:"min_length,omitempty" yaml:"min_length,omitempty" mapstructure:"min_length"`
	MaxLength   *int      `json:"max_length,omitempty" yaml:"max_length,omitempty" mapstructure:"max_length"`
	Pattern     string    `json:"pattern,omitempty" yaml:"pattern,omitempty" mapstructure:"pattern"`
	// Rule is a boolean expression evaluated by Engine against the candidate.
	Rule string `json:"rule,omitempty" yaml:"rule,omitempty" mapstructure:"rule"`
	// Engine selects the rule engine: expr (default), cel or js.
	Engine string `json:"engine,omitempty" yaml:"engine,omitempty" mapstructure:"engine"`
	// Message replaces the generic rule failure reason.
	Message string `json:"message,omitempty" yaml:"message,omitempty" mapstructure:"message"`
}

// Schema maps every known static key to its field specification.
type Schema map[string]FieldSpec

// Keys returns the schema keys sorted alphabetically.
func (s Schema) Keys() []string {
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// SchemaProvider yields the current schema. Implementations may return
// different content across calls; the service never caches the result.
type SchemaProvider interface {
	Load(ctx context.Context) (Schema, error)
}

// SchemaProviderFunc adapts a function to SchemaProvider.
type SchemaProviderFunc func(ctx context.Context) (Schema, error)

// Load implements SchemaProvider.
func (f SchemaProviderFunc) Load(ctx context.Context) (Schema, error) {
	return f(ctx)
}

// Result is the response of Get and Update. Values holds every schema key;
// keys without a stored override map to nil.
type Result struct {
	Values  Values `json:"values"`
	Success bool   `json:"success,omitempty"`
}
