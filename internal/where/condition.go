// Package where validates filter conditions against the schema registry and
// compiles them to the API's where-clause language.
package where

import (
	"strings"

	"github.com/jcolombo/paymo/internal/schema"
)

// Kind distinguishes server-side where conditions from client-side has
// conditions.
type Kind int

const (
	// KindWhere conditions are compiled and sent upstream.
	KindWhere Kind = iota
	// KindHas conditions filter fetched rows by the size of an included
	// relation list.
	KindHas
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	if k == KindHas {
		return "has"
	}
	return "where"
}

// Condition is a single filter. Type and Enum are filled in by
// Compiler.Resolve; a zero Type means "not resolved against a schema".
type Condition struct {
	Kind     Kind
	Field    string
	Operator string
	Operand  any
	Type     schema.PrimitiveType
	Enum     []string
}

// New returns a where condition.
func New(field, operator string, operand any) Condition {
	return Condition{Kind: KindWhere, Field: field, Operator: normalizeOperator(operator), Operand: operand}
}

// Range returns a range condition covering [lo, hi), or [lo, hi] when
// inclusive is set.
func Range(field string, lo, hi any, inclusive bool) Condition {
	return New(field, "range", []any{lo, hi, inclusive})
}

// In returns an "in" condition over values.
func In(field string, values ...any) Condition {
	return New(field, "in", values)
}

// Has returns a has condition comparing the number of related records
// under relation against count.
func Has(relation, operator string, count int) Condition {
	return Condition{Kind: KindHas, Field: relation, Operator: normalizeOperator(operator), Operand: count}
}

// Fields returns the field paths referenced by where conditions, in order.
func Fields(conds []Condition) []string {
	var out []string
	for _, c := range conds {
		if c.Kind == KindWhere {
			out = append(out, c.Field)
		}
	}
	return out
}

// Split separates where conditions from has conditions.
func Split(conds []Condition) (wheres, has []Condition) {
	for _, c := range conds {
		if c.Kind == KindHas {
			has = append(has, c)
		} else {
			wheres = append(wheres, c)
		}
	}
	return wheres, has
}

func normalizeOperator(op string) string {
	return strings.Join(strings.Fields(strings.ToLower(op)), " ")
}
