package tool

import (
	"fmt"
	"slices"

	"github.com/hupe1980/agentrelay/internal/util"
)

// ParamType is the JSON schema type of a tool parameter.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
	TypeObject  ParamType = "object"
	TypeAny     ParamType = "any"
)

// ParamSpec declares one tool parameter.
type ParamSpec struct {
	Name        string
	Type        ParamType
	Required    bool
	Description string
	Enum        []any
}

// Schema renders params as a JSON schema object.
func Schema(params []ParamSpec) map[string]any {
	properties := make(map[string]any, len(params))
	required := make([]string, 0)

	for _, p := range params {
		prop := map[string]any{}
		if p.Type != "" && p.Type != TypeAny {
			prop["type"] = string(p.Type)
		}

		if p.Description != "" {
			prop["description"] = p.Description
		}

		if len(p.Enum) > 0 {
			prop["enum"] = slices.Clone(p.Enum)
		}

		properties[p.Name] = prop

		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}

	if len(required) > 0 {
		schema["required"] = required
	}

	return schema
}

// Coerce checks args against params and converts each declared value to its
// declared type. A missing (or null) required parameter is an error. Keys not
// declared in params pass through untouched. The input map is not modified.
func Coerce(args map[string]any, params []ParamSpec) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}

	for _, p := range params {
		v, ok := out[p.Name]
		if !ok || v == nil {
			if p.Required {
				return nil, &ValidationError{Field: p.Name, Message: "required field is missing"}
			}

			continue
		}

		coerced, err := util.CoerceValue(p.Name, v, string(p.Type))
		if err != nil {
			return nil, err
		}

		if len(p.Enum) > 0 && !inEnum(coerced, p.Enum) {
			return nil, &ValidationError{Field: p.Name, Value: v, Message: fmt.Sprintf("value must be one of %v", p.Enum)}
		}

		out[p.Name] = coerced
	}

	return out, nil
}

// ParamsFromStruct derives parameter specs from a struct using its json and
// jsonschema tags. Fields without omitempty are required.
func ParamsFromStruct(structType any) []ParamSpec {
	schema := util.ReflectSchema(structType)
	if schema.Properties == nil {
		return nil
	}

	var params []ParamSpec

	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		name, prop := pair.Key, pair.Value

		typ := ParamType(prop.Type)
		if typ == "" {
			typ = TypeAny
		}

		params = append(params, ParamSpec{
			Name:        name,
			Type:        typ,
			Required:    slices.Contains(schema.Required, name),
			Description: prop.Description,
			Enum:        prop.Enum,
		})
	}

	return params
}

func inEnum(v any, enum []any) bool {
	for _, e := range enum {
		if fmt.Sprint(e) == fmt.Sprint(v) {
			return true
		}
	}

	return false
}
