package openapi

import (
	"strings"
)

type generatorConfig struct {
	openAPIVersion  string
	info            openapiInfo
	path            string
	read            operationConfig
	update          operationConfig
	contentType     string
	responses       map[string]responseConfig
	valuesComponent string
	keyComponents   bool
}

type openapiInfo struct {
	Title       string
	Version     string
	Description string
}

type operationConfig struct {
	Method      string
	OperationID string
	Summary     string
}

type responseConfig struct {
	Description string
}

func defaultGeneratorConfig() generatorConfig {
	return generatorConfig{
		openAPIVersion: "3.0.3",
		info: openapiInfo{
			Title:   "Statics",
			Version: "1.0.0",
		},
		path: "/api/v1/statics",
		read: operationConfig{
			Method:      "get",
			OperationID: "getStatics",
			Summary:     "Read the effective static values",
		},
		update: operationConfig{
			Method:      "put",
			OperationID: "updateStatics",
			Summary:     "Merge, validate and persist static overrides",
		},
		contentType: "application/json",
		responses: map[string]responseConfig{
			"200": {Description: "OK"},
			"400": {Description: "Malformed request or invalid values"},
			"500": {Description: "Internal error"},
		},
		valuesComponent: "StaticValues",
	}
}

// GeneratorOption configures the OpenAPI generator behaviour.
type GeneratorOption func(*generatorConfig)

// WithOpenAPIVersion overrides the OpenAPI version string (default: 3.0.3).
func WithOpenAPIVersion(version string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if version == "" {
			return
		}
		cfg.openAPIVersion = version
	}
}

// InfoOption configures optional fields on the OpenAPI info section.
type InfoOption func(*openapiInfo)

// WithInfoDescription sets the optional description field for the info section.
func WithInfoDescription(description string) InfoOption {
	return func(info *openapiInfo) {
		info.Description = description
	}
}

// WithInfo configures the OpenAPI info block. Empty strings retain the
// existing values.
func WithInfo(title, version string, opts ...InfoOption) GeneratorOption {
	return func(cfg *generatorConfig) {
		if title != "" {
			cfg.info.Title = title
		}
		if version != "" {
			cfg.info.Version = version
		}
		for _, opt := range opts {
			if opt != nil {
				opt(&cfg.info)
			}
		}
	}
}

// WithPath sets the route serving both the read and the update operation.
func WithPath(path string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if path != "" {
			cfg.path = path
		}
	}
}

// OperationOption configures optional operation metadata.
type OperationOption func(*operationConfig)

// WithOperationSummary attaches a summary to the configured operation.
func WithOperationSummary(summary string) OperationOption {
	return func(operation *operationConfig) {
		operation.Summary = summary
	}
}

// WithReadOperation overrides the operationId of the read operation.
func WithReadOperation(operationID string, opts ...OperationOption) GeneratorOption {
	return func(cfg *generatorConfig) {
		applyOperation(&cfg.read, "", operationID, opts)
	}
}

// WithUpdateOperation overrides the method and operationId of the update
// operation. Empty inputs retain the defaults.
func WithUpdateOperation(method, operationID string, opts ...OperationOption) GeneratorOption {
	return func(cfg *generatorConfig) {
		applyOperation(&cfg.update, method, operationID, opts)
	}
}

func applyOperation(operation *operationConfig, method, operationID string, opts []OperationOption) {
	if method != "" {
		operation.Method = strings.ToLower(method)
	}
	if operationID != "" {
		operation.OperationID = operationID
	}
	for _, opt := range opts {
		if opt != nil {
			opt(operation)
		}
	}
}

// WithContentType sets the content type of request and response bodies.
func WithContentType(contentType string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if contentType == "" {
			return
		}
		cfg.contentType = contentType
	}
}

// ResponseOption configures additional response metadata.
type ResponseOption func(*responseConfig)

// WithResponse registers or overrides a response template for the provided status code.
func WithResponse(status, description string, opts ...ResponseOption) GeneratorOption {
	return func(cfg *generatorConfig) {
		if status == "" {
			return
		}
		if cfg.responses == nil {
			cfg.responses = map[string]responseConfig{}
		}
		resp := cfg.responses[status]
		if description != "" {
			resp.Description = description
		}
		for _, opt := range opts {
			if opt != nil {
				opt(&resp)
			}
		}
		cfg.responses[status] = resp
	}
}

// WithValuesComponent names the component holding the values object schema.
func WithValuesComponent(name string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if name != "" {
			cfg.valuesComponent = name
		}
	}
}

// WithKeyComponents publishes every static key as its own component named
// StaticKey_<key> and references it from the values component.
func WithKeyComponents(enabled bool) GeneratorOption {
	return func(cfg *generatorConfig) {
		cfg.keyComponents = enabled
	}
}
