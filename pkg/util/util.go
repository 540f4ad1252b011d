// Package util contains small helpers shared by the dataset packages.
package util

import (
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/util/json"
)

// functional map: (a -> b) -> [a] -> [b]
func Map[T, U any](f func(T) U, s []T) []U {
	result := make([]U, len(s))
	for i, v := range s {
		result[i] = f(v)
	}
	return result
}

// Stringify renders a value as JSON, falling back to Go syntax if it cannot be marshaled.
func Stringify(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(b)
}

// CanonicalKey returns a deterministic string for an arbitrary value so that it can be used as a
// map key. Two values get the same key iff their canonical JSON forms are equal. Map keys are
// sorted by the JSON encoder, integers and floats of the same value map to the same key.
func CanonicalKey(v any) (string, error) {
	b, err := json.Marshal(canonical(v))
	if err != nil {
		return "", fmt.Errorf("failed to compute canonical key for %T: %w", v, err)
	}
	return string(b), nil
}

func canonical(val any) any {
	switch v := val.(type) {
	case map[string]any:
		ret := make(map[string]any, len(v))
		for k, sub := range v {
			ret[k] = canonical(sub)
		}
		return ret
	case []any:
		ret := make([]any, len(v))
		for i, sub := range v {
			ret[i] = canonical(sub)
		}
		return ret
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case float32:
		return float64(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}
