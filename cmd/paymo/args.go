package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jcolombo/paymo/internal/schema"
	"github.com/jcolombo/paymo/internal/where"
)

// resolveEntity accepts a descriptor key ("project") or its API path
// ("projects").
func resolveEntity(registry *schema.Registry, name string) (string, error) {
	if d, ok := registry.ByPath(strings.ToLower(strings.TrimSpace(name))); ok {
		return d.Key, nil
	}
	return "", fmt.Errorf("unknown entity %q (see 'paymo schema')", name)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// splitExpr splits "field op value" where op may be two words ("not in").
func splitExpr(expr string) (field, op, value string, err error) {
	parts := strings.Fields(expr)
	if len(parts) < 2 {
		return "", "", "", fmt.Errorf("condition %q: want \"field operator value\"", expr)
	}
	field, op = parts[0], strings.ToLower(parts[1])
	rest := parts[2:]
	if op == "not" && len(rest) > 0 {
		op += " " + strings.ToLower(rest[0])
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return "", "", "", fmt.Errorf("condition %q: missing value", expr)
	}
	return field, op, strings.Join(rest, " "), nil
}

// parseWhere parses a --where flag. List operators take comma separated
// values; range takes "lo,hi" or "lo,hi,inclusive".
func parseWhere(expr string) (where.Condition, error) {
	field, op, value, err := splitExpr(expr)
	if err != nil {
		return where.Condition{}, err
	}
	switch op {
	case "in", "not in":
		return where.New(field, op, splitList(value)), nil
	case "range":
		bounds := splitList(value)
		switch {
		case len(bounds) == 2:
			return where.Range(field, bounds[0], bounds[1], false), nil
		case len(bounds) == 3 && bounds[2] == "inclusive":
			return where.Range(field, bounds[0], bounds[1], true), nil
		}
		return where.Condition{}, fmt.Errorf("condition %q: range wants lo,hi[,inclusive]", expr)
	}
	return where.New(field, op, unquote(value)), nil
}

// parseHas parses a --has flag, e.g. "tasks > 2".
func parseHas(expr string) (where.Condition, error) {
	field, op, value, err := splitExpr(expr)
	if err != nil {
		return where.Condition{}, err
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return where.Condition{}, fmt.Errorf("condition %q: count must be an integer", expr)
	}
	return where.Has(field, op, n), nil
}

func parseConditions(wheres, has []string) ([]where.Condition, error) {
	var out []where.Condition
	for _, w := range wheres {
		c, err := parseWhere(w)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	for _, h := range has {
		c, err := parseHas(h)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// parseAssignments turns key=value pairs into field values. Values that look
// like JSON arrays or objects are decoded; "null" clears the field.
func parseAssignments(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q: want field=value", p)
		}
		v, err := parseValue(value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		out[key] = v
	}
	return out, nil
}

func parseValue(s string) (any, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "null" {
		return nil, nil
	}
	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
		dec := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("invalid JSON value: %w", err)
		}
		return v, nil
	}
	return unquote(s), nil
}

func splitList(s string) []any {
	parts := strings.Split(s, ",")
	out := make([]any, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, unquote(p))
		}
	}
	return out
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
