package openapi

import (
	"fmt"
	"sort"
	"strings"
)

type openAPIDocumentBuilder struct {
	config   generatorConfig
	registry *componentRegistry
	values   map[string]any
}

func newOpenAPIDocumentBuilder(config generatorConfig, registry *componentRegistry, values map[string]any) *openAPIDocumentBuilder {
	return &openAPIDocumentBuilder{
		config:   config,
		registry: registry,
		values:   values,
	}
}

func (b *openAPIDocumentBuilder) build() (map[string]any, error) {
	if b.values == nil {
		return nil, fmt.Errorf("openapi: values schema cannot be nil")
	}

	valuesRef := b.registry.add(b.config.valuesComponent, b.values)
	resultRef := b.registry.add("StaticsResult", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"values":  map[string]any{"$ref": valuesRef},
			"success": map[string]any{"type": "boolean"},
		},
		"required": []string{"values"},
	})
	requestRef := b.registry.add("StaticsUpdateRequest", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"values": map[string]any{
				"type":                 "object",
				"description":          "Proposed overrides merged over the stored values.",
				"additionalProperties": true,
			},
		},
		"required": []string{"values"},
	})
	errorsRef := b.registry.add("Errors", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"errors": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required": []string{"errors"},
	})

	document := map[string]any{
		"openapi": b.config.openAPIVersion,
		"info":    b.buildInfo(),
		"paths":   b.buildPaths(resultRef, requestRef, errorsRef),
	}
	if components := b.registry.componentsMap(); components != nil {
		document["components"] = map[string]any{
			"schemas": components,
		}
	}

	if err := validateDocument(document); err != nil {
		return nil, err
	}
	return document, nil
}

func (b *openAPIDocumentBuilder) buildInfo() map[string]any {
	info := map[string]any{
		"title":   b.config.info.Title,
		"version": b.config.info.Version,
	}
	if b.config.info.Description != "" {
		info["description"] = b.config.info.Description
	}
	return info
}

func (b *openAPIDocumentBuilder) buildPaths(resultRef, requestRef, errorsRef string) map[string]any {
	read := b.operation(b.config.read, "get", resultRef, errorsRef)
	update := b.operation(b.config.update, "put", resultRef, errorsRef)
	update["requestBody"] = map[string]any{
		"required": true,
		"content":  b.content(requestRef),
	}

	item := map[string]any{}
	item[methodOrDefault(b.config.read.Method, "get")] = read
	item[methodOrDefault(b.config.update.Method, "put")] = update
	return map[string]any{
		b.config.path: item,
	}
}

func (b *openAPIDocumentBuilder) operation(cfg operationConfig, fallbackMethod, resultRef, errorsRef string) map[string]any {
	statuses := make([]string, 0, len(b.config.responses))
	for status := range b.config.responses {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)

	responses := make(map[string]any, len(statuses))
	for _, status := range statuses {
		ref := errorsRef
		if strings.HasPrefix(status, "2") {
			ref = resultRef
		}
		responses[status] = map[string]any{
			"description": b.config.responses[status].Description,
			"content":     b.content(ref),
		}
	}

	operation := map[string]any{
		"operationId": operationID(cfg, methodOrDefault(cfg.Method, fallbackMethod), b.config.path),
		"responses":   responses,
	}
	if summary := strings.TrimSpace(cfg.Summary); summary != "" {
		operation["summary"] = summary
	}
	return operation
}

func (b *openAPIDocumentBuilder) content(ref string) map[string]any {
	return map[string]any{
		b.config.contentType: map[string]any{
			"schema": map[string]any{"$ref": ref},
		},
	}
}

func methodOrDefault(method, fallback string) string {
	method = strings.ToLower(strings.TrimSpace(method))
	if method == "" {
		return fallback
	}
	return method
}

func operationID(cfg operationConfig, method, path string) string {
	if cfg.OperationID != "" {
		return cfg.OperationID
	}
	return fmt.Sprintf("%s:%s", method, path)
}

func validateDocument(document map[string]any) error {
	if document == nil {
		return fmt.Errorf("openapi: document cannot be nil")
	}
	openapi, _ := document["openapi"].(string)
	if openapi == "" {
		return fmt.Errorf("openapi: document missing version string")
	}
	info, _ := document["info"].(map[string]any)
	if info == nil {
		return fmt.Errorf("openapi: document missing info section")
	}
	if title, _ := info["title"].(string); title == "" {
		return fmt.Errorf("openapi: info.title must be set")
	}
	if version, _ := info["version"].(string); version == "" {
		return fmt.Errorf("openapi: info.version must be set")
	}
	paths, _ := document["paths"].(map[string]any)
	if len(paths) == 0 {
		return fmt.Errorf("openapi: document must define at least one path")
	}
	for pathKey, pathValue := range paths {
		pathItem, _ := pathValue.(map[string]any)
		if len(pathItem) < 2 {
			return fmt.Errorf("openapi: path %q must define read and update operations", pathKey)
		}
		for method, operationValue := range pathItem {
			operation, _ := operationValue.(map[string]any)
			if operation == nil {
				return fmt.Errorf("openapi: operation %s %s invalid payload", method, pathKey)
			}
			if _, ok := operation["operationId"].(string); !ok {
				return fmt.Errorf("openapi: operation %s %s missing operationId", method, pathKey)
			}
			if responses, _ := operation["responses"].(map[string]any); len(responses) == 0 {
				return fmt.Errorf("openapi: operation %s %s missing responses", method, pathKey)
			}
		}
	}
	return nil
}
