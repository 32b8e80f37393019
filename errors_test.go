package statics

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsClientError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		client     bool
		validation bool
	}{
		{name: "nil", err: nil},
		{name: "plain", err: errors.New("store down")},
		{name: "bad request", err: badRequest(ErrValuesRequired), client: true},
		{name: "wrapped bad request", err: fmt.Errorf("update: %w", badRequest(ErrValuesNotObject)), client: true},
		{name: "single violation", err: &ValidationError{Key: "title", Reason: "is required"}, client: true, validation: true},
		{name: "aggregate", err: ValidationErrors{{Key: "a", Reason: "x"}}, client: true, validation: true},
		{name: "custom validator error", err: asValidationError(errors.New("nope")), client: true, validation: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsClientError(tc.err); got != tc.client {
				t.Fatalf("IsClientError = %v, want %v", got, tc.client)
			}
			if got := IsValidationError(tc.err); got != tc.validation {
				t.Fatalf("IsValidationError = %v, want %v", got, tc.validation)
			}
		})
	}
}

func TestBadRequestMessageAndUnwrap(t *testing.T) {
	err := badRequest(ErrValuesRequired)
	if err.Error() != "field `values` is required" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, ErrValuesRequired) {
		t.Fatalf("expected sentinel to unwrap")
	}
}

func TestValidationErrorsMessage(t *testing.T) {
	err := ValidationErrors{
		{Key: "contact", Reason: "must be a string"},
		{Key: "title", Reason: "is required"},
	}
	if got := err.Error(); got != "contact: must be a string; title: is required" {
		t.Fatalf("unexpected message %q", got)
	}
	keys := err.Keys()
	if len(keys) != 2 || keys[0] != "contact" || keys[1] != "title" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestValidationErrorWithoutKeyUsesCause(t *testing.T) {
	err := &ValidationError{Err: errors.New("schema mismatch")}
	if err.Error() != "schema mismatch" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
