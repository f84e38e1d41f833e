// Package validation compiles JSON schemas declared by partials and checks
// resolved parameters against them.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	ErrSchemaInvalid    = errors.New("schema invalid")
	ErrSchemaValidation = errors.New("schema validation failed")
)

const schemaResource = "partial.schema.json"

// schemaKeywords mark a map as a full JSON schema rather than the fields shorthand.
var schemaKeywords = []string{"$schema", "type", "properties", "oneOf", "anyOf", "allOf"}

// ValidationIssue is one failing parameter, located by JSON pointer.
type ValidationIssue struct {
	Location string
	Message  string
}

func (i ValidationIssue) String() string {
	location := strings.TrimSpace(i.Location)
	if !strings.HasPrefix(location, "#") {
		location = "#" + location
	}
	if i.Message == "" {
		return location
	}
	return location + ": " + i.Message
}

// PayloadValidationError reports every issue found for one payload.
type PayloadValidationError struct {
	Issues []ValidationIssue
	Cause  error
}

func (e *PayloadValidationError) Error() string {
	if len(e.Issues) == 0 {
		if e.Cause != nil {
			return e.Cause.Error()
		}
		return ErrSchemaValidation.Error()
	}
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return strings.Join(parts, "; ")
}

func (e *PayloadValidationError) Unwrap() error { return ErrSchemaValidation }

// Issues extracts validation issues from err.
func Issues(err error) []ValidationIssue {
	if err == nil {
		return nil
	}
	var payloadErr *PayloadValidationError
	if errors.As(err, &payloadErr) {
		return payloadErr.Issues
	}
	var schemaErr *jsonschema.ValidationError
	if errors.As(err, &schemaErr) {
		return leafIssues(schemaErr, nil)
	}
	return []ValidationIssue{{Message: err.Error()}}
}

// Compiled is a partial schema compiled once at registration and shared by
// every resolve.
type Compiled struct {
	schema *jsonschema.Schema
}

// Compile normalises and compiles schema. Empty schemas yield (nil, nil); a nil
// *Compiled accepts every payload.
func Compile(schema map[string]any) (*Compiled, error) {
	normalized := NormalizeSchema(schema)
	if normalized == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaInvalid, err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(schemaResource, bytes.NewReader(encoded)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaInvalid, err)
	}
	compiled, err := compiler.Compile(schemaResource)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaInvalid, err)
	}
	return &Compiled{schema: compiled}, nil
}

// Validate checks resolved partial parameters against the schema.
func (c *Compiled) Validate(params map[string]any) error {
	if c == nil || c.schema == nil {
		return nil
	}
	instance, err := jsonInstance(params)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaValidation, err)
	}
	if err := c.schema.Validate(instance); err != nil {
		return &PayloadValidationError{Issues: Issues(err), Cause: err}
	}
	return nil
}

// ValidateSchema reports whether schema compiles.
func ValidateSchema(schema map[string]any) error {
	_, err := Compile(schema)
	return err
}

// ValidatePayload compiles schema and validates payload in one step.
func ValidatePayload(schema map[string]any, payload map[string]any) error {
	compiled, err := Compile(schema)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaValidation, err)
	}
	return compiled.Validate(payload)
}

// jsonInstance round-trips params through JSON so Go ints and floats become
// the json.Number values the validator expects.
func jsonInstance(params map[string]any) (any, error) {
	if params == nil {
		params = map[string]any{}
	}
	encoded, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	decoder := json.NewDecoder(bytes.NewReader(encoded))
	decoder.UseNumber()
	var instance any
	if err := decoder.Decode(&instance); err != nil {
		return nil, err
	}
	return instance, nil
}

func leafIssues(node *jsonschema.ValidationError, issues []ValidationIssue) []ValidationIssue {
	if node == nil {
		return issues
	}
	if len(node.Causes) == 0 {
		return append(issues, ValidationIssue{
			Location: strings.TrimSpace(node.InstanceLocation),
			Message:  strings.TrimSpace(node.Message),
		})
	}
	for _, cause := range node.Causes {
		issues = leafIssues(cause, issues)
	}
	return issues
}

// NormalizeSchema accepts either a JSON schema or the shorthand
//
//	fields:
//	  - {name: src, type: string, required: true}
//
// and returns a JSON schema, or nil when there is nothing to validate.
func NormalizeSchema(schema map[string]any) map[string]any {
	if len(schema) == 0 {
		return nil
	}
	for _, keyword := range schemaKeywords {
		if _, ok := schema[keyword]; ok {
			return deepClone(schema).(map[string]any)
		}
	}

	properties := map[string]any{}
	var required []string
	var fields []map[string]any
	switch typed := schema["fields"].(type) {
	case []map[string]any:
		fields = typed
	case []any:
		for _, entry := range typed {
			switch field := entry.(type) {
			case map[string]any:
				fields = append(fields, field)
			case string:
				fields = append(fields, map[string]any{"name": field})
			}
		}
	}
	for _, field := range fields {
		name, _ := field["name"].(string)
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		properties[name] = fieldSchema(field)
		if flag, _ := field["required"].(bool); flag {
			required = append(required, name)
		}
	}
	if len(properties) == 0 {
		return nil
	}

	normalized := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if allowed, ok := schema["additionalProperties"].(bool); ok {
		normalized["additionalProperties"] = allowed
	}
	if len(required) > 0 {
		normalized["required"] = required
	}
	return normalized
}

func fieldSchema(field map[string]any) map[string]any {
	if nested, ok := field["schema"].(map[string]any); ok {
		return deepClone(nested).(map[string]any)
	}
	fieldType, _ := field["type"].(string)
	switch fieldType = strings.ToLower(strings.TrimSpace(fieldType)); fieldType {
	case "string", "number", "integer", "boolean", "object", "array", "null":
		return map[string]any{"type": fieldType}
	case "int":
		return map[string]any{"type": "integer"}
	case "bool":
		return map[string]any{"type": "boolean"}
	case "url":
		return map[string]any{"type": "string", "format": "uri-reference"}
	default:
		return map[string]any{}
	}
}

func deepClone(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = deepClone(item)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = deepClone(item)
		}
		return out
	default:
		return value
	}
}
