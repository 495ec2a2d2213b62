package prompt

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Renderer handles template rendering with variable substitution
type Renderer struct{}

// NewRenderer creates a new template renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render substitutes ctx values into both sections of template.
// Optional variables without a value or default render as "".
func (r *Renderer) Render(template *Template, ctx *RenderContext) (*Rendered, error) {
	values, err := r.resolve(template, ctx)
	if err != nil {
		return nil, err
	}

	system, err := r.substitute(template.System, values)
	if err != nil {
		return nil, err
	}
	user, err := r.substitute(template.User, values)
	if err != nil {
		return nil, err
	}

	return &Rendered{System: system, User: user}, nil
}

func (r *Renderer) substitute(content string, values map[string]interface{}) (string, error) {
	var convErr error
	out := variablePattern.ReplaceAllStringFunc(content, func(match string) string {
		name := variablePattern.FindStringSubmatch(match)[1]
		value, ok := values[name]
		if !ok {
			return ""
		}
		s, err := r.valueToString(value)
		if err != nil && convErr == nil {
			convErr = fmt.Errorf("failed to convert variable %s: %w", name, err)
		}
		return s
	})
	return out, convErr
}

// resolve validates the provided values and returns a new map with defaults
// applied. The caller's map is not modified.
func (r *Renderer) resolve(template *Template, ctx *RenderContext) (map[string]interface{}, error) {
	values := make(map[string]interface{}, len(template.Variables))
	if ctx != nil {
		for k, v := range ctx.Values {
			values[k] = v
		}
	}

	var errs ValidationErrors

	for name, varDef := range template.Variables {
		value, provided := values[name]

		if !provided {
			if varDef.Default == "" {
				if varDef.Required {
					errs = append(errs, ValidationError{
						Field:   name,
						Message: "required variable not provided",
					})
				}
				continue
			}

			defaultValue, err := r.parseValue(varDef.Default, varDef.Type)
			if err != nil {
				errs = append(errs, ValidationError{
					Field:   name,
					Message: fmt.Sprintf("failed to parse default value: %v", err),
				})
				continue
			}
			values[name] = defaultValue
			continue
		}

		if err := r.validateType(value, varDef.Type); err != nil {
			errs = append(errs, ValidationError{
				Field:   name,
				Message: fmt.Sprintf("invalid type: %v", err),
			})
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return values, nil
}

// parseValue parses a string value into the appropriate type
func (r *Renderer) parseValue(value string, varType VarType) (interface{}, error) {
	switch varType {
	case VarTypeNumber:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number: %s", value)
		}
		return f, nil

	case VarTypeBoolean:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("invalid boolean: %s", value)
		}
		return b, nil

	case VarTypeObject:
		var obj interface{}
		if err := json.Unmarshal([]byte(value), &obj); err != nil {
			return nil, fmt.Errorf("invalid JSON object: %w", err)
		}
		return obj, nil

	default:
		return value, nil
	}
}

// validateType validates that a value matches the expected type
func (r *Renderer) validateType(value interface{}, varType VarType) error {
	switch varType {
	case VarTypeString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected string, got %T", value)
		}

	case VarTypeNumber:
		switch value.(type) {
		case int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64,
			float32, float64:
		default:
			return fmt.Errorf("expected number, got %T", value)
		}

	case VarTypeBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", value)
		}

	case VarTypeObject:
		switch value.(type) {
		case map[string]interface{}, []interface{}:
		default:
			return fmt.Errorf("expected object/array, got %T", value)
		}
	}

	return nil
}

// valueToString converts a value to its string representation
func (r *Renderer) valueToString(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}
