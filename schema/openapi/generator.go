// Package openapi renders a statics schema as an OpenAPI 3 document
// describing the read and update operations of the statics API.
package openapi

import (
	statics "github.com/goliatone/go-statics"
)

// Generator builds OpenAPI documents from a statics.Schema.
type Generator struct {
	config generatorConfig
}

// NewGenerator constructs an OpenAPI generator.
func NewGenerator(opts ...GeneratorOption) *Generator {
	cfg := defaultGeneratorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Generator{config: cfg}
}

// Generate returns the OpenAPI document for schema. The document is a plain
// map ready to be encoded as JSON or YAML.
func (g *Generator) Generate(schema statics.Schema) (map[string]any, error) {
	registry := newComponentRegistry()
	values := valuesSchema(schema, registry, g.config.keyComponents)
	return newOpenAPIDocumentBuilder(g.config, registry, values).build()
}

// valuesSchema describes the values object: one property per schema key.
// With keyComponents each property is a $ref to its own component.
func valuesSchema(schema statics.Schema, registry *componentRegistry, keyComponents bool) map[string]any {
	properties := make(map[string]any, len(schema))
	required := make([]string, 0)
	for _, key := range schema.Keys() {
		spec := schema[key]
		property := propertySchema(spec)
		if keyComponents {
			property = map[string]any{"$ref": registry.add(keyComponentPrefix+key, property)}
		}
		properties[key] = property
		if spec.Required {
			required = append(required, key)
		}
	}
	out := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

// propertySchema maps one FieldSpec. Keys without an override read back as
// null, so every non-required key is nullable.
func propertySchema(spec statics.FieldSpec) map[string]any {
	out := map[string]any{}
	switch spec.Type {
	case "", statics.FieldTypeAny:
	default:
		out["type"] = string(spec.Type)
	}
	if spec.Label != "" {
		out["title"] = spec.Label
	}
	if spec.Description != "" {
		out["description"] = spec.Description
	}
	if spec.Nullable || !spec.Required {
		out["nullable"] = true
	}
	if len(spec.Enum) > 0 {
		out["enum"] = append([]any{}, spec.Enum...)
	}

	minKey, maxKey := "minLength", "maxLength"
	if spec.Type == statics.FieldTypeArray {
		minKey, maxKey = "minItems", "maxItems"
	}
	if spec.MinLength != nil {
		out[minKey] = *spec.MinLength
	}
	if spec.MaxLength != nil {
		out[maxKey] = *spec.MaxLength
	}
	if spec.Pattern != "" {
		out["pattern"] = spec.Pattern
	}

	if spec.Rule != "" {
		rule := map[string]any{"expr": spec.Rule}
		if spec.Engine != "" {
			rule["engine"] = spec.Engine
		}
		if spec.Message != "" {
			rule["message"] = spec.Message
		}
		out["x-statics-rule"] = rule
	}
	return out
}
