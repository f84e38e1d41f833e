package validation

import (
	"errors"
	"testing"
)

func TestCompileEmptySchema(t *testing.T) {
	compiled, err := Compile(nil)
	if err != nil || compiled != nil {
		t.Fatalf("expected nil schema for empty input, got %v %v", compiled, err)
	}
	if err := compiled.Validate(map[string]any{"anything": 1}); err != nil {
		t.Fatalf("expected nil schema to accept payloads, got %v", err)
	}
}

func TestCompiledValidateReportsIssues(t *testing.T) {
	compiled, err := Compile(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"width": map[string]any{"type": "integer", "minimum": 1},
			"src":   map[string]any{"type": "string", "pattern": `\.(png|jpg|svg)$`},
		},
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	if err := compiled.Validate(map[string]any{"width": 640, "src": "scene.png"}); err != nil {
		t.Fatalf("expected payload to validate, got %v", err)
	}

	err = compiled.Validate(map[string]any{"width": 0, "src": "scene.gif"})
	if !errors.Is(err, ErrSchemaValidation) {
		t.Fatalf("expected ErrSchemaValidation, got %v", err)
	}
	if issues := Issues(err); len(issues) != 2 {
		t.Fatalf("expected two issues, got %+v", issues)
	}
}

func TestFieldShorthandNormalises(t *testing.T) {
	err := ValidatePayload(map[string]any{
		"fields": []any{
			map[string]any{"name": "body", "type": "string", "required": true},
		},
	}, map[string]any{})
	if !errors.Is(err, ErrSchemaValidation) {
		t.Fatalf("expected missing required field to fail, got %v", err)
	}
}

func TestValidateSchemaRejectsInvalid(t *testing.T) {
	err := ValidateSchema(map[string]any{"type": 12})
	if !errors.Is(err, ErrSchemaInvalid) {
		t.Fatalf("expected ErrSchemaInvalid, got %v", err)
	}
}

func TestFieldShorthandMapsPartialParamTypes(t *testing.T) {
	normalized := NormalizeSchema(map[string]any{
		"fields": []any{
			map[string]any{"name": "width", "type": "int"},
			map[string]any{"name": "href", "type": "url"},
			"caption",
		},
		"additionalProperties": true,
	})
	properties := normalized["properties"].(map[string]any)
	if properties["width"].(map[string]any)["type"] != "integer" {
		t.Fatalf("expected int to map to integer, got %v", properties["width"])
	}
	if properties["href"].(map[string]any)["format"] != "uri-reference" {
		t.Fatalf("expected url to map to a uri-reference string, got %v", properties["href"])
	}
	if _, ok := properties["caption"]; !ok {
		t.Fatalf("expected bare field names to be accepted, got %v", properties)
	}
	if normalized["additionalProperties"] != true {
		t.Fatalf("expected additionalProperties override, got %v", normalized["additionalProperties"])
	}
}

func TestIssueStringAddsPointerPrefix(t *testing.T) {
	issue := ValidationIssue{Location: "/width", Message: "must be >= 1"}
	if got := issue.String(); got != "#/width: must be >= 1" {
		t.Fatalf("unexpected issue string %q", got)
	}
}
