package tools

import (
	"fmt"
	"math"
	"slices"

	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ParamType is the JSON type of a parameter.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
	TypeObject  ParamType = "object"
)

// Param declares one parameter of a tool.
type Param struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
	Enum        []any

	// Items is the element of an array parameter.
	Items *Param
	// Properties are the fields of an object parameter.
	Properties []Param
}

func (p Param) schema() *jsonschema.Schema {
	var s *jsonschema.Schema
	switch p.Type {
	case TypeObject:
		s = objectSchema(p.Properties)
	case TypeArray:
		s = &jsonschema.Schema{Type: string(TypeArray)}
		if p.Items != nil {
			s.Items = p.Items.schema()
		}
	default:
		s = &jsonschema.Schema{Type: string(p.Type)}
	}
	s.Description = p.Description
	s.Enum = p.Enum
	return s
}

// objectSchema keeps the properties in declaration order.
func objectSchema(params []Param) *jsonschema.Schema {
	props := orderedmap.New[string, *jsonschema.Schema]()
	var required []string
	for _, p := range params {
		props.Set(p.Name, p.schema())
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return &jsonschema.Schema{
		Type:       string(TypeObject),
		Properties: props,
		Required:   required,
	}
}

func validateArgs(params []Param, in map[string]any) error {
	for _, p := range params {
		v, ok := in[p.Name]
		if !ok || v == nil {
			if p.Required {
				return fmt.Errorf("missing required parameter %q", p.Name)
			}
			continue
		}
		if err := p.check(v); err != nil {
			return fmt.Errorf("parameter %q: %w", p.Name, err)
		}
	}
	return nil
}

func (p Param) check(v any) error {
	switch p.Type {
	case TypeString:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("want string got %T", v)
		}
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("want boolean got %T", v)
		}
	case TypeNumber:
		if _, ok := toFloat(v); !ok {
			return fmt.Errorf("want number got %T", v)
		}
	case TypeInteger:
		f, ok := toFloat(v)
		if !ok || f != math.Trunc(f) {
			return fmt.Errorf("want integer got %v", v)
		}
	case TypeArray:
		items, ok := v.([]any)
		if !ok {
			return fmt.Errorf("want array got %T", v)
		}
		if p.Items == nil {
			return nil
		}
		for i, item := range items {
			if err := p.Items.check(item); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
	case TypeObject:
		m, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("want object got %T", v)
		}
		return validateArgs(p.Properties, m)
	}
	if len(p.Enum) > 0 && !slices.Contains(p.Enum, v) {
		return fmt.Errorf("%v is not one of %v", v, p.Enum)
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
