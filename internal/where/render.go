package where

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jcolombo/paymo/internal/schema"
)

// Render serializes a where condition. Resolved conditions are quoted by
// their primitive type; unresolved ones fall back to the operand's Go type.
func Render(c Condition) (string, error) {
	if c.Kind == KindHas {
		return "", fmt.Errorf("has condition on %q is applied locally and cannot be rendered", c.Field)
	}
	op := normalizeOperator(c.Operator)
	if !schema.IsWhereOperator(op) {
		return "", fmt.Errorf("unknown operator %q", c.Operator)
	}

	switch op {
	case "range":
		lo, hi, inclusive, err := rangeBounds(c.Operand)
		if err != nil {
			return "", err
		}
		upper := "<"
		if inclusive {
			upper = "<="
		}
		return fmt.Sprintf("%s>=%s and %s%s%s",
			c.Field, formatValue(lo, c.Type), c.Field, upper, formatValue(hi, c.Type)), nil

	case "in", "not in":
		list, ok := schema.AsList(c.Operand)
		if !ok {
			list = []any{c.Operand}
		}
		parts := make([]string, len(list))
		for i, v := range list {
			parts[i] = formatValue(v, c.Type)
		}
		return fmt.Sprintf("%s %s (%s)", c.Field, op, strings.Join(parts, ",")), nil

	case "like", "not like":
		return fmt.Sprintf("%s %s %s", c.Field, op, quote(fmt.Sprint(c.Operand))), nil
	}
	return c.Field + op + formatValue(c.Operand, c.Type), nil
}

func formatValue(v any, p schema.PrimitiveType) string {
	if p == schema.PrimitiveString || p == schema.PrimitiveTimestamp {
		if t, ok := v.(time.Time); ok {
			return quote(t.UTC().Format(time.RFC3339))
		}
		return quote(fmt.Sprint(v))
	}
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return quote(t)
	case time.Time:
		return quote(t.UTC().Format(time.RFC3339))
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	}
	return fmt.Sprint(v)
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
