package schema

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	statics "github.com/goliatone/go-statics"
)

// ErrMissingDocumentKey is returned when a schema document has no
// top-level `statics:` mapping.
var ErrMissingDocumentKey = errors.New("schema: document has no `statics` mapping")

// File reads the schema from a YAML or JSON file. The file is read on every
// Load so edits are picked up without a restart.
type File struct {
	path string
}

// NewFile returns a provider reading path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the file the provider reads.
func (f *File) Path() string {
	return f.path
}

// Load implements statics.SchemaProvider.
func (f *File) Load(ctx context.Context) (statics.Schema, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", f.path, err)
	}
	schema, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("schema: %s: %w", f.path, err)
	}
	return schema, nil
}

// Parse decodes a YAML (or JSON) document holding a top-level `statics:`
// mapping.
func Parse(data []byte) (statics.Schema, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	raw, ok := doc[DocumentKey]
	if !ok {
		return nil, ErrMissingDocumentKey
	}
	if raw == nil {
		return statics.Schema{}, nil
	}
	fields, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("schema: `%s` must be a mapping, got %T", DocumentKey, raw)
	}
	return Decode(fields)
}
