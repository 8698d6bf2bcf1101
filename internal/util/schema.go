package util

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"
)

// ValidationError represents parameter validation errors with detailed information.
type ValidationError struct {
	Field   string `json:"field"`   // Field that failed validation
	Value   any    `json:"value"`   // Value that was provided
	Message string `json:"message"` // Human-readable error message
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ReflectSchema derives an inline (reference free) JSON schema from a struct
// value. Fields are required unless tagged omitempty.
func ReflectSchema(structType any) *jsonschema.Schema {
	reflector := jsonschema.Reflector{DoNotReference: true}

	schema := reflector.Reflect(structType)
	if schema.Type == "" {
		schema.Type = "object"
	}

	return schema
}

// CoerceValue converts a decoded JSON value into the representation expected
// for a JSON schema type. Integers become int64, numbers float64. Strings are
// parsed when the target type is not string.
func CoerceValue(field string, value any, typ string) (any, error) {
	fail := func(format string, args ...any) (any, error) {
		return nil, &ValidationError{Field: field, Value: value, Message: fmt.Sprintf(format, args...)}
	}

	if n, ok := value.(json.Number); ok {
		value = n.String()
		if typ == "" || typ == "any" {
			return value, nil
		}
	}

	switch typ {
	case "", "any":
		return value, nil
	case "string":
		switch v := value.(type) {
		case string:
			return v, nil
		case bool:
			return strconv.FormatBool(v), nil
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		case float32:
			return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
		}

		if i, ok := toInt64(value); ok {
			return strconv.FormatInt(i, 10), nil
		}

		if u, ok := toUint64(value); ok {
			return strconv.FormatUint(u, 10), nil
		}

		return fail("expected type string, got %T", value)
	case "integer":
		if i, ok := toInt64(value); ok {
			return i, nil
		}

		switch v := value.(type) {
		case uint, uint64:
			return fail("integer %v out of range", v)
		case float64:
			if v != math.Trunc(v) || math.IsInf(v, 0) {
				return fail("expected type integer, got fractional number %v", v)
			}
			if i, ok := floatToInt64(v); ok {
				return i, nil
			}
			return fail("integer %v out of range", v)
		case string:
			s := strings.TrimSpace(v)
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				return i, nil
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) {
				if i, ok := floatToInt64(f); ok {
					return i, nil
				}
				return fail("integer %q out of range", v)
			}
			return fail("cannot parse %q as integer", v)
		}

		return fail("expected type integer, got %T", value)
	case "number":
		switch v := value.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return fail("cannot parse %q as number", v)
			}
			return f, nil
		}

		if i, ok := toInt64(value); ok {
			return float64(i), nil
		}

		if u, ok := toUint64(value); ok {
			return float64(u), nil
		}

		return fail("expected type number, got %T", value)
	case "boolean":
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fail("cannot parse %q as boolean", v)
			}
			return b, nil
		}

		return fail("expected type boolean, got %T", value)
	case "array":
		if s, ok := value.(string); ok {
			var arr []any
			if err := json.Unmarshal([]byte(s), &arr); err != nil {
				return fail("cannot parse string as array")
			}
			return arr, nil
		}

		rv := reflect.ValueOf(value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return fail("expected type array, got %T", value)
		}

		if arr, ok := value.([]any); ok {
			return arr, nil
		}

		arr := make([]any, rv.Len())
		for i := range arr {
			arr[i] = rv.Index(i).Interface()
		}

		return arr, nil
	case "object":
		switch v := value.(type) {
		case map[string]any:
			return v, nil
		case string:
			var obj map[string]any
			if err := json.Unmarshal([]byte(v), &obj); err != nil {
				return fail("cannot parse string as object")
			}
			return obj, nil
		}

		return fail("expected type object, got %T", value)
	default:
		return fail("unsupported schema type %q", typ)
	}
}

// toInt64 converts Go integer kinds. Unsigned values above math.MaxInt64
// are rejected.
func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	}

	return 0, false
}

func toUint64(value any) (uint64, bool) {
	switch v := value.(type) {
	case uint:
		return uint64(v), true
	case uint64:
		return v, true
	}

	return 0, false
}

// floatToInt64 converts a whole float64 when it fits in int64. 2^63 itself
// is representable as float64 but not as int64.
func floatToInt64(f float64) (int64, bool) {
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}

	return int64(f), true
}
