// Package hydrate decodes JSON object payloads into typed structs.
package hydrate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrNotObject is returned when the payload is valid JSON but not an object.
	ErrNotObject = errors.New("hydrate: payload must be a JSON object")
	// ErrTrailingData is returned when the object is followed by more JSON.
	ErrTrailingData = errors.New("hydrate: unexpected data after JSON object")
)

// Context identifies where a payload came from, for error messages.
type Context struct {
	Source string
}

// Decoder converts a single JSON object into T. Fields T does not declare
// are ignored and numbers decode as float64.
type Decoder[T any] struct{}

// NewDecoder returns a Decoder for T.
func NewDecoder[T any]() *Decoder[T] {
	return &Decoder[T]{}
}

// Decode parses payload, which must hold exactly one JSON object.
func (d *Decoder[T]) Decode(ctx Context, payload []byte) (T, error) {
	var zero T

	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return zero, fmt.Errorf("hydrate: empty payload from %s", ctx.Source)
	}
	if trimmed[0] != '{' {
		if !json.Valid(trimmed) {
			return zero, fmt.Errorf("hydrate: invalid JSON from %s", ctx.Source)
		}
		return zero, fmt.Errorf("%w (%s)", ErrNotObject, ctx.Source)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	var result T
	if err := dec.Decode(&result); err != nil {
		return zero, fmt.Errorf("hydrate: decode %s: %w", ctx.Source, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return zero, fmt.Errorf("%w (%s)", ErrTrailingData, ctx.Source)
	}
	return result, nil
}
