package where

import (
	"strings"

	"github.com/jcolombo/paymo/internal/schema"
)

// ApplyHas keeps the rows whose related-record counts satisfy every has
// condition. Where conditions in conds are ignored. Row order is kept.
func ApplyHas(rows []map[string]any, conds []Condition) []map[string]any {
	_, has := Split(conds)
	if len(has) == 0 {
		return rows
	}
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if Matches(row, has) {
			out = append(out, row)
		}
	}
	return out
}

// Matches reports whether row satisfies every has condition in conds.
func Matches(row map[string]any, conds []Condition) bool {
	for _, c := range conds {
		if c.Kind != KindHas {
			continue
		}
		if !compareCount(RelationCount(row, c.Field), c.Operator, hasOperand(c)) {
			return false
		}
	}
	return true
}

// RelationCount counts the records reachable under a dotted relation path.
// A single related object counts as one; lists nested under lists are summed.
func RelationCount(row map[string]any, path string) int {
	return countPath(row, strings.Split(path, "."))
}

func countPath(v any, segs []string) int {
	if len(segs) == 0 {
		switch t := v.(type) {
		case nil:
			return 0
		case []any:
			return len(t)
		case []map[string]any:
			return len(t)
		}
		return 1
	}
	switch t := v.(type) {
	case map[string]any:
		return countPath(t[segs[0]], segs[1:])
	case []any:
		n := 0
		for _, elem := range t {
			n += countPath(elem, segs)
		}
		return n
	case []map[string]any:
		n := 0
		for _, elem := range t {
			n += countPath(elem, segs)
		}
		return n
	}
	return 0
}

func hasOperand(c Condition) int64 {
	n, err := schema.Coerce(c.Operand, schema.PrimitiveInteger)
	if err != nil || n == nil {
		return 0
	}
	return n.(int64)
}

func compareCount(n int, op string, want int64) bool {
	got := int64(n)
	switch normalizeOperator(op) {
	case "=":
		return got == want
	case "!=":
		return got != want
	case "<":
		return got < want
	case "<=":
		return got <= want
	case ">":
		return got > want
	case ">=":
		return got >= want
	}
	return false
}
