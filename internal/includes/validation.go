package includes

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/goliatone/go-article/internal/pipelineerr"
	"github.com/goliatone/go-article/internal/placeholder"
	"github.com/goliatone/go-article/internal/validation"
	"github.com/goliatone/go-article/pkg/interfaces"
)

// Validator performs definition and parameter validation.
type Validator struct{}

// NewValidator returns a Validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateDefinition ensures the definition has a name, a body, and valid
// parameter declarations.
func (v *Validator) ValidateDefinition(def interfaces.PartialDefinition) error {
	_, err := v.compile(def)
	return err
}

// compile validates def and prepares its template, schema and required set.
// A parameter is required when declared so, or when the template references
// it without a default filter and the declaration gives no default.
func (v *Validator) compile(def interfaces.PartialDefinition) (*entry, error) {
	if strings.TrimSpace(def.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidDefinition)
	}
	if def.Handler == nil && def.Template == "" {
		return nil, fmt.Errorf("%w: partial %s has no handler or template", ErrInvalidDefinition, def.Name)
	}

	e := &entry{
		def:    def,
		params: make(map[string]interfaces.PartialParam, len(def.Params)),
	}
	for _, param := range def.Params {
		name := strings.TrimSpace(param.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: partial %s: parameter name required", ErrInvalidDefinition, def.Name)
		}
		if _, dup := e.params[name]; dup {
			return nil, fmt.Errorf("%w: partial %s: duplicate parameter %q", ErrInvalidDefinition, def.Name, name)
		}
		switch param.Type {
		case "", interfaces.PartialParamString,
			interfaces.PartialParamInt,
			interfaces.PartialParamBool,
			interfaces.PartialParamURL:
		default:
			return nil, fmt.Errorf("%w: partial %s: parameter %q unknown type %q", ErrInvalidDefinition, def.Name, name, param.Type)
		}
		if param.Default != nil {
			if _, err := coerceValue(param.Type, param.Default); err != nil {
				return nil, fmt.Errorf("%w: partial %s: default for %q: %v", ErrInvalidDefinition, def.Name, name, err)
			}
		}
		param.Name = name
		e.params[name] = param
		e.order = append(e.order, name)
	}

	seen := map[string]bool{}
	for _, name := range e.order {
		if e.params[name].Required {
			e.required = append(e.required, name)
			seen[name] = true
		}
	}

	if def.Handler == nil {
		tmpl, err := placeholder.Parse(def.Name, def.Template)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
		}
		e.template = tmpl
		for _, key := range tmpl.Keys(placeholder.ScopeInclude, true) {
			if param, declared := e.params[key]; declared && param.Default != nil {
				continue
			}
			if !seen[key] {
				e.required = append(e.required, key)
				seen[key] = true
			}
		}
	}

	if len(def.Schema) > 0 {
		compiled, err := validation.Compile(def.Schema)
		if err != nil {
			return nil, fmt.Errorf("%w: partial %s: %v", ErrInvalidDefinition, def.Name, err)
		}
		e.schema = compiled
	}

	return e, nil
}

// coerceParams applies declared defaults, coerces supplied values to their
// declared types and enforces required parameters. Undeclared parameters pass
// through as given.
func (v *Validator) coerceParams(e *entry, supplied map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(e.params)+len(supplied))
	for _, name := range e.order {
		if param := e.params[name]; param.Default != nil {
			coerced, err := coerceValue(param.Type, param.Default)
			if err != nil {
				return nil, fmt.Errorf("%w: %s %v", ErrParameterType, name, err)
			}
			out[name] = coerced
		}
	}

	for key, value := range supplied {
		param, declared := e.params[key]
		if !declared {
			out[key] = value
			continue
		}
		coerced, err := coerceValue(param.Type, value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %v", ErrParameterType, key, err)
		}
		if param.Validate != nil {
			if err := param.Validate(coerced); err != nil {
				return nil, fmt.Errorf("%w: %s %v", ErrParameterType, key, err)
			}
		}
		out[key] = coerced
	}

	for _, name := range e.required {
		if _, ok := out[name]; !ok {
			return nil, &pipelineerr.MissingParameterError{
				Partial:   e.def.Name,
				Parameter: name,
			}
		}
	}

	return out, nil
}

func coerceValue(paramType interfaces.PartialParamType, value any) (any, error) {
	switch paramType {
	case "", interfaces.PartialParamString:
		return coerceString(value)
	case interfaces.PartialParamInt:
		return coerceInt(value)
	case interfaces.PartialParamBool:
		return coerceBool(value)
	case interfaces.PartialParamURL:
		urlStr, err := coerceString(value)
		if err != nil {
			return nil, err
		}
		if _, err := url.Parse(urlStr); err != nil {
			return nil, err
		}
		return urlStr, nil
	default:
		return nil, fmt.Errorf("unsupported parameter type %q", paramType)
	}
}

func coerceString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return fmt.Sprintf("%v", value), nil
	}
}

func coerceInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int8:
		return int(v), nil
	case int16:
		return int(v), nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint, uint8, uint16, uint32, uint64:
		rv := reflect.ValueOf(v)
		return int(rv.Uint()), nil
	case float32:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, err
		}
		return i, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to int", value)
	}
}

func coerceBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "t", "yes", "y", "on":
			return true, nil
		case "0", "false", "f", "no", "n", "off":
			return false, nil
		default:
			return false, fmt.Errorf("cannot convert %q to bool", v)
		}
	default:
		return false, fmt.Errorf("cannot convert %T to bool", value)
	}
}
