package fetch

import "net/url"

// Extraction helpers for the upstream's loosely-typed JSON. Numeric fields
// arrive either as plain numbers or wrapped as {"raw": n, "fmt": "..."};
// both forms unwrap to the same value.

func toValues(params map[string]string) url.Values {
	if len(params) == 0 {
		return nil
	}
	v := url.Values{}
	for key, val := range params {
		v.Set(key, val)
	}
	return v
}

func unwrapNumber(val interface{}) *float64 {
	switch v := val.(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	case int64:
		f := float64(v)
		return &f
	case map[string]interface{}:
		if raw, ok := v["raw"]; ok {
			return unwrapNumber(raw)
		}
	}
	return nil
}

func getFloat64(m map[string]interface{}, key string) *float64 {
	if m == nil {
		return nil
	}
	if val, ok := m[key]; ok && val != nil {
		return unwrapNumber(val)
	}
	return nil
}

func getInt64(m map[string]interface{}, key string) *int64 {
	if f := getFloat64(m, key); f != nil {
		i := int64(*f)
		return &i
	}
	return nil
}

func getString(m map[string]interface{}, key string) *string {
	if m == nil {
		return nil
	}
	if val, ok := m[key]; ok && val != nil {
		if s, ok := val.(string); ok && s != "" {
			return &s
		}
	}
	return nil
}

// getSection returns a nested object, or nil when absent or the wrong shape.
func getSection(m map[string]interface{}, key string) map[string]interface{} {
	if m == nil {
		return nil
	}
	if val, ok := m[key]; ok {
		if sub, ok := val.(map[string]interface{}); ok {
			return sub
		}
	}
	return nil
}

// getList returns the object elements of a nested array, skipping anything
// that is not an object.
func getList(m map[string]interface{}, key string) []map[string]interface{} {
	if m == nil {
		return nil
	}
	val, ok := m[key]
	if !ok {
		return nil
	}
	items, ok := val.([]interface{})
	if !ok {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]interface{}); ok {
			out = append(out, obj)
		}
	}
	return out
}
