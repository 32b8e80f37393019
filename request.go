package statics

import (
	"errors"

	"github.com/goliatone/go-statics/internal/hydrate"
)

// UpdateRequest is the inbound write request. Values holds the decoded
// `values` field as is; Update checks its shape before touching any store.
type UpdateRequest struct {
	Values any `json:"values"`
}

// NewUpdateRequest wraps proposed values for programmatic callers.
func NewUpdateRequest(values Values) UpdateRequest {
	return UpdateRequest{Values: values}
}

var requestDecoder = hydrate.NewDecoder[UpdateRequest]()

// DecodeUpdateRequest parses a JSON request body. Bodies that are not JSON
// objects are reported as *BadRequestError.
func DecodeUpdateRequest(body []byte) (UpdateRequest, error) {
	req, err := requestDecoder.Decode(hydrate.Context{Source: "request body"}, body)
	if err != nil {
		if errors.Is(err, hydrate.ErrNotObject) {
			return UpdateRequest{}, badRequest(errors.New("request body must be a JSON object"))
		}
		return UpdateRequest{}, badRequest(err)
	}
	return req, nil
}

// proposedValues returns the proposed mapping or a shape error.
func (r UpdateRequest) proposedValues() (Values, error) {
	switch values := r.Values.(type) {
	case nil:
		return nil, badRequest(ErrValuesRequired)
	case map[string]any:
		return values, nil
	default:
		return nil, badRequest(ErrValuesNotObject)
	}
}
