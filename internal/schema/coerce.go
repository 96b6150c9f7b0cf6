package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// timestampLayouts are the string forms accepted for timestamp values.
var timestampLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

// Coerce converts v to the Go representation used for primitive type p:
// int64, float64, bool or string (timestamps stay strings, time.Time values
// are rendered as RFC 3339 in UTC). A nil value is returned unchanged.
func Coerce(v any, p PrimitiveType) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch p {
	case PrimitiveInteger:
		return toInt(v)
	case PrimitiveDouble:
		return toFloat(v)
	case PrimitiveBoolean:
		return toBool(v)
	case PrimitiveString:
		return toString(v)
	case PrimitiveTimestamp:
		return toTimestamp(v)
	}
	return nil, fmt.Errorf("unknown primitive type %q", p)
}

// CoerceField converts v for storage in field f. Collection-typed fields hold
// a list of ids and are coerced element-wise.
func CoerceField(f Field, v any) (any, error) {
	p := f.Primitive()
	if p == "" {
		return v, nil
	}
	if f.IsCollection() && v != nil {
		list, ok := AsList(v)
		if !ok {
			return nil, fmt.Errorf("must be a list of ids")
		}
		out := make([]any, len(list))
		for i, elem := range list {
			c, err := Coerce(elem, p)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	}
	c, err := Coerce(v, p)
	if err != nil {
		return nil, err
	}
	if values := f.EnumValues(); values != nil && c != nil {
		s := fmt.Sprint(c)
		if !contains(values, s) {
			return nil, fmt.Errorf("must be one of %v", values)
		}
	}
	return c, nil
}

// AsList returns v as []any if it is any slice type the engine accepts.
func AsList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	case []int:
		out := make([]any, len(t))
		for i, n := range t {
			out[i] = n
		}
		return out, true
	case []int64:
		out := make([]any, len(t))
		for i, n := range t {
			out[i] = n
		}
		return out, true
	case []float64:
		out := make([]any, len(t))
		for i, n := range t {
			out[i] = n
		}
		return out, true
	}
	return nil, false
}

func toInt(v any) (any, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return nil, fmt.Errorf("must be an integer")
		}
		return int64(n), nil
	case float32:
		return intFromFloat(float64(n))
	case float64:
		return intFromFloat(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("must be an integer")
		}
		return intFromFloat(f)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("must be an integer")
		}
		return i, nil
	}
	return nil, fmt.Errorf("must be an integer")
}

func intFromFloat(f float64) (any, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, fmt.Errorf("must be an integer")
	}
	return int64(f), nil
}

func toFloat(v any) (any, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("must be a number")
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil, fmt.Errorf("must be a number")
		}
		return f, nil
	}
	i, err := toInt(v)
	if err != nil {
		return nil, fmt.Errorf("must be a number")
	}
	return float64(i.(int64)), nil
}

func toBool(v any) (any, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		}
		return nil, fmt.Errorf("must be a boolean")
	}
	i, err := toInt(v)
	if err != nil {
		return nil, fmt.Errorf("must be a boolean")
	}
	switch i.(int64) {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return nil, fmt.Errorf("must be a boolean")
}

func toString(v any) (any, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case json.Number:
		return s.String(), nil
	case fmt.Stringer:
		return s.String(), nil
	}
	return nil, fmt.Errorf("must be a string")
}

func toTimestamp(v any) (any, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339), nil
	case *time.Time:
		if t == nil {
			return nil, nil
		}
		return t.UTC().Format(time.RFC3339), nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timestampLayouts {
			if _, err := time.Parse(layout, s); err == nil {
				return s, nil
			}
		}
		return nil, fmt.Errorf("must be a timestamp (RFC 3339 or YYYY-MM-DD)")
	}
	return nil, fmt.Errorf("must be a timestamp (RFC 3339 or YYYY-MM-DD)")
}
