package schema

import (
	"context"

	statics "github.com/goliatone/go-statics"
)

// Static serves a fixed schema.
type Static struct {
	schema statics.Schema
}

// NewStatic returns a provider that always yields a copy of schema.
func NewStatic(schema statics.Schema) *Static {
	return &Static{schema: copySchema(schema)}
}

// Load implements statics.SchemaProvider.
func (s *Static) Load(ctx context.Context) (statics.Schema, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return copySchema(s.schema), nil
}

func copySchema(schema statics.Schema) statics.Schema {
	out := make(statics.Schema, len(schema))
	for key, spec := range schema {
		out[key] = spec
	}
	return out
}
