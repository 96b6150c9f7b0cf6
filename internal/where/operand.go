package where

import (
	"fmt"
	"strings"

	"github.com/jcolombo/paymo/internal/schema"
)

// coerceOperand checks the operand's shape for cond.Operator and converts it
// to cond.Type.
func coerceOperand(cond Condition) (any, error) {
	switch cond.Operator {
	case "range":
		lo, hi, inclusive, err := rangeBounds(cond.Operand)
		if err != nil {
			return nil, err
		}
		clo, err := coerceScalar(lo, cond.Type)
		if err != nil {
			return nil, err
		}
		chi, err := coerceScalar(hi, cond.Type)
		if err != nil {
			return nil, err
		}
		return []any{clo, chi, inclusive}, nil

	case "in", "not in":
		list, ok := schema.AsList(cond.Operand)
		if !ok {
			list = []any{cond.Operand}
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("%s needs at least one value", cond.Operator)
		}
		out := make([]any, len(list))
		for i, v := range list {
			c, err := coerceScalar(v, cond.Type)
			if err != nil {
				return nil, err
			}
			if err := checkEnum(c, cond.Enum); err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil

	case "like", "not like":
		s, ok := cond.Operand.(string)
		if !ok {
			return nil, fmt.Errorf("%s needs a string pattern", cond.Operator)
		}
		return s, nil
	}

	c, err := coerceScalar(cond.Operand, cond.Type)
	if err != nil {
		return nil, err
	}
	if cond.Operator == "=" || cond.Operator == "!=" {
		if err := checkEnum(c, cond.Enum); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func coerceScalar(v any, p schema.PrimitiveType) (any, error) {
	if v == nil {
		return nil, fmt.Errorf("operand is required")
	}
	if _, isList := schema.AsList(v); isList {
		return nil, fmt.Errorf("operand must be a single value")
	}
	return schema.Coerce(v, p)
}

func checkEnum(v any, values []string) error {
	if values == nil {
		return nil
	}
	s := fmt.Sprint(v)
	for _, allowed := range values {
		if allowed == s {
			return nil
		}
	}
	return fmt.Errorf("value %q must be one of %s", s, strings.Join(values, ", "))
}

// rangeBounds unpacks a [lo, hi] or [lo, hi, inclusive] operand.
func rangeBounds(operand any) (lo, hi any, inclusive bool, err error) {
	list, ok := schema.AsList(operand)
	if !ok || len(list) < 2 || len(list) > 3 {
		return nil, nil, false, fmt.Errorf("range needs [lo, hi] or [lo, hi, inclusive]")
	}
	if len(list) == 3 {
		b, ok := list[2].(bool)
		if !ok {
			return nil, nil, false, fmt.Errorf("range inclusive flag must be a boolean")
		}
		inclusive = b
	}
	return list[0], list[1], inclusive, nil
}
