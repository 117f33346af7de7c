package forms

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Coerce converts raw input into the representation a field kind stores.
// Number fields turn empty input into 0 and numeric strings into float64;
// strings that do not parse are kept so validation can report them.
// Acknowledgement fields turn an absent value into false and keep anything
// else as given, so only a literal true validates.
func Coerce(kind FieldKind, raw any) any {
	switch kind {
	case KindNumber:
		if f, ok := ToFloat(raw); ok {
			return f
		}
		return raw
	case KindAcknowledgment:
		if raw == nil {
			return false
		}
		return raw
	case KindFile:
		return raw
	default:
		switch v := raw.(type) {
		case nil:
			return nil
		case string:
			return v
		default:
			return fmt.Sprint(v)
		}
	}
}

// ToFloat reports the finite numeric value of v. Nil and blank strings
// count as 0; NaN and infinities are not numbers.
func ToFloat(v any) (float64, bool) {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}
