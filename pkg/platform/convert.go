package platform

import (
	"fmt"
	"math"

	"github.com/spf13/cast"
)

// AsMap converts a decoded argument to map[string]any.
// map[any]any keys that are not strings are dropped.
func AsMap(value any) (map[string]any, error) {
	if value == nil {
		return nil, fmt.Errorf("%w: expected map, got nil", ErrInvalidArguments)
	}
	m, err := cast.ToStringMapE(value)
	if err != nil {
		return nil, fmt.Errorf("%w: expected map, got %T", ErrInvalidArguments, value)
	}
	return m, nil
}

// AsList converts a decoded argument to []any.
func AsList(value any) ([]any, error) {
	switch v := value.(type) {
	case []any:
		return v, nil
	case []float64:
		out := make([]any, len(v))
		for i, f := range v {
			out[i] = f
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: expected list, got %T", ErrInvalidArguments, value)
	}
}

// AsFloat64 converts a numeric argument to float64. Strings are rejected:
// the wire carries numbers as numbers.
func AsFloat64(value any) (float64, error) {
	if _, isString := value.(string); isString || value == nil {
		return 0, fmt.Errorf("%w: expected number, got %T", ErrInvalidArguments, value)
	}
	f, err := cast.ToFloat64E(value)
	if err != nil {
		return 0, fmt.Errorf("%w: expected number, got %T", ErrInvalidArguments, value)
	}
	return f, nil
}

// AsInt64 converts a numeric argument to int64. Fractional and
// out-of-range numbers are rejected rather than truncated.
func AsInt64(value any) (int64, error) {
	f, err := AsFloat64(value)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: expected integer, got %v", ErrInvalidArguments, value)
	}
	return cast.ToInt64E(f)
}

// AsString converts a string argument. Only real strings are accepted.
func AsString(value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected string, got %T", ErrInvalidArguments, value)
	}
	return s, nil
}

// AsBool converts a boolean argument. Only real booleans are accepted.
func AsBool(value any) (bool, error) {
	b, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("%w: expected bool, got %T", ErrInvalidArguments, value)
	}
	return b, nil
}
