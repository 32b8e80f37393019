// Package schema provides statics.SchemaProvider implementations backed by
// fixed values, schema files and viper configuration.
package schema

import (
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"

	statics "github.com/goliatone/go-statics"
)

// DocumentKey is the top-level key holding the schema in config documents.
const DocumentKey = "statics"

// Decode converts a raw key to field spec mapping, as found under the
// `statics:` key of a config document, into a statics.Schema. A field spec
// given as a plain string is shorthand for its type. Values are decoded with
// weak typing so `required: "true"` is accepted; unknown spec fields fail.
func Decode(raw map[string]any) (statics.Schema, error) {
	out := make(statics.Schema, len(raw))
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		spec, err := decodeField(raw[key])
		if err != nil {
			return nil, fmt.Errorf("schema: key %q: %w", key, err)
		}
		out[key] = spec
	}
	return out, nil
}

func decodeField(raw any) (statics.FieldSpec, error) {
	var spec statics.FieldSpec
	switch v := raw.(type) {
	case nil:
		return spec, nil
	case string:
		spec.Type = statics.FieldType(v)
		return spec, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &spec,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return spec, err
	}
	if err := decoder.Decode(raw); err != nil {
		return spec, err
	}
	return spec, nil
}
