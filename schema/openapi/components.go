package openapi

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// keyComponentPrefix names the per-key components of WithKeyComponents.
const keyComponentPrefix = "StaticKey_"

// componentRegistry collects the schemas published under
// #/components/schemas. Two hints that sanitize to the same name get
// numbered suffixes in registration order.
type componentRegistry struct {
	schemas map[string]map[string]any
}

func newComponentRegistry() *componentRegistry {
	return &componentRegistry{schemas: map[string]map[string]any{}}
}

// add stores schema under a name derived from hint and returns its $ref.
func (r *componentRegistry) add(hint string, schema map[string]any) string {
	name := r.uniqueName(hint)
	r.schemas[name] = schema
	return "#/components/schemas/" + name
}

func (r *componentRegistry) uniqueName(hint string) string {
	base := sanitizeComponentName(hint)
	if base == "" {
		base = "Schema"
	}
	name := base
	for i := 1; ; i++ {
		if _, taken := r.schemas[name]; !taken {
			return name
		}
		name = base + strconv.Itoa(i)
	}
}

func (r *componentRegistry) names() []string {
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *componentRegistry) componentsMap() map[string]any {
	if len(r.schemas) == 0 {
		return nil
	}
	out := make(map[string]any, len(r.schemas))
	for name, schema := range r.schemas {
		out[name] = schema
	}
	return out
}

var invalidComponentChars = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

// sanitizeComponentName keeps the characters OpenAPI allows in component
// keys, replacing runs of anything else with one underscore.
func sanitizeComponentName(name string) string {
	name = strings.Trim(invalidComponentChars.ReplaceAllString(name, "_"), "_")
	if name != "" && name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return name
}
