package repository

import (
	"encoding/json"
	"math"
	"strings"
)

// Field readers for schemaless documents. Every reader tolerates a missing or
// mistyped value by reporting ok=false instead of failing.

func numberValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case float32:
		return numberValue(float64(n))
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return numberValue(f)
	default:
		return 0, false
	}
}

func intPtrField(data map[string]any, key string) *int64 {
	n, ok := numberValue(data[key])
	if !ok {
		return nil
	}
	v := int64(math.Round(n))
	return &v
}

func floatField(data map[string]any, key string) float64 {
	n, _ := numberValue(data[key])
	return n
}

func boolField(data map[string]any, key string) bool {
	b, _ := data[key].(bool)
	return b
}

func stringField(data map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := data[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func mapSlice(data map[string]any, key string) []map[string]any {
	items, ok := data[key].([]any)
	if !ok {
		return nil
	}
	result := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			result = append(result, m)
		}
	}
	return result
}

// eachMap visits the object elements of an array field with their original index.
func eachMap(data map[string]any, key string, fn func(i int, m map[string]any)) {
	items, _ := data[key].([]any)
	for i, item := range items {
		if m, ok := item.(map[string]any); ok {
			fn(i, m)
		}
	}
}

// floatSliceField returns nil when the field is absent or not an array, keeping
// "missing" distinct from "empty". Non-numeric elements are dropped.
func floatSliceField(data map[string]any, key string) []float64 {
	items, ok := data[key].([]any)
	if !ok {
		return nil
	}
	result := make([]float64, 0, len(items))
	for _, item := range items {
		if n, ok := numberValue(item); ok {
			result = append(result, n)
		}
	}
	return result
}
