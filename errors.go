package statics

import (
	"errors"
	"strings"
)

var (
	ErrValuesRequired  = errors.New("field `values` is required")
	ErrValuesNotObject = errors.New("field `values` must be an object")
	ErrStoreRequired   = errors.New("statics: store is required")
	ErrSchemaRequired  = errors.New("statics: schema provider is required")
)

// BadRequestError reports a malformed update request. It is raised before
// any store or schema access.
type BadRequestError struct {
	Err error
}

func (e *BadRequestError) Error() string {
	if e == nil || e.Err == nil {
		return "bad request"
	}
	return e.Err.Error()
}

func (e *BadRequestError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func badRequest(err error) error {
	return &BadRequestError{Err: err}
}

// ValidationError describes one value that does not satisfy its field
// specification. Key is empty when the validator could not attribute the
// failure to a single key.
type ValidationError struct {
	Key    string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	reason := e.Reason
	if reason == "" && e.Err != nil {
		reason = e.Err.Error()
	}
	if e.Key == "" {
		return reason
	}
	return e.Key + ": " + reason
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationErrors aggregates every violation found in one candidate.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, v := range e {
		parts = append(parts, v.Error())
	}
	return strings.Join(parts, "; ")
}

func (e ValidationErrors) Unwrap() []error {
	out := make([]error, 0, len(e))
	for _, v := range e {
		out = append(out, v)
	}
	return out
}

// Keys returns the keys that failed validation, in report order.
func (e ValidationErrors) Keys() []string {
	out := make([]string, 0, len(e))
	for _, v := range e {
		if v.Key != "" {
			out = append(out, v.Key)
		}
	}
	return out
}

// IsClientError reports whether err was caused by the caller's input, either
// a malformed request or a candidate rejected by validation.
func IsClientError(err error) bool {
	var bad *BadRequestError
	if errors.As(err, &bad) {
		return true
	}
	return IsValidationError(err)
}

// IsValidationError reports whether err is a validation rejection.
func IsValidationError(err error) bool {
	var single *ValidationError
	if errors.As(err, &single) {
		return true
	}
	var many ValidationErrors
	return errors.As(err, &many)
}

// asValidationError normalises errors returned by arbitrary Validator
// implementations so callers can rely on IsValidationError.
func asValidationError(err error) error {
	if IsValidationError(err) {
		return err
	}
	return &ValidationError{Err: err}
}
