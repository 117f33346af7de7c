package forms

import (
	"encoding/json"
)

// Values holds field values keyed by field name.
type Values map[string]any

// Has reports whether key holds a non-empty value.
func (v Values) Has(key string) bool {
	return !isEmpty(v[key])
}

// String returns the value as a string, or "" if it is not one.
func (v Values) String(key string) string {
	if s, ok := v[key].(string); ok {
		return s
	}
	return ""
}

// Float returns the numeric value of key, or 0.
func (v Values) Float(key string) float64 {
	f, _ := ToFloat(v[key])
	return f
}

// Bool returns the value as a bool, or false.
func (v Values) Bool(key string) bool {
	b, _ := v[key].(bool)
	return b
}

// Clone returns a shallow copy.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// ValuesFromJSON decodes a JSON object. Numbers are kept as float64.
func ValuesFromJSON(data []byte) (Values, error) {
	out := make(Values)
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
