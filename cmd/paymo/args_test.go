package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcolombo/paymo/internal/schema"
	"github.com/jcolombo/paymo/internal/where"
)

func TestResolveEntity(t *testing.T) {
	registry, err := schema.LoadDefault()
	require.NoError(t, err)

	for in, want := range map[string]string{"project": "project", "projects": "project", " Tasks ": "task", "currencies": "currency"} {
		got, err := resolveEntity(registry, in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err = resolveEntity(registry, "widgets")
	assert.Error(t, err)
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"0", "-3", "abc", ""} {
		_, err := parseID(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseWhere(t *testing.T) {
	for _, tc := range []struct {
		expr string
		want where.Condition
	}{
		{"hours >= 10", where.New("hours", ">=", "10")},
		{`name like "web site"`, where.New("name", "like", "web site")},
		{"status in open, closed", where.In("status", "open", "closed")},
		{"status NOT IN open", where.New("status", "not in", []any{"open"})},
		{"name not like draft", where.New("name", "not like", "draft")},
		{"date range 2024-01-01,2024-02-01", where.Range("date", "2024-01-01", "2024-02-01", false)},
		{"date range 2024-01-01,2024-02-01,inclusive", where.Range("date", "2024-01-01", "2024-02-01", true)},
	} {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := parseWhere(tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	for _, bad := range []string{"hours", "hours >=", "date range 2024-01-01", "status not"} {
		_, err := parseWhere(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseHas(t *testing.T) {
	got, err := parseHas("tasks > 2")
	require.NoError(t, err)
	assert.Equal(t, where.Has("tasks", ">", 2), got)

	_, err = parseHas("tasks > many")
	assert.Error(t, err)
}

func TestParseConditions(t *testing.T) {
	conds, err := parseConditions([]string{"active = true"}, []string{"tasks >= 1"})
	require.NoError(t, err)
	require.Len(t, conds, 2)
	assert.Equal(t, where.KindWhere, conds[0].Kind)
	assert.Equal(t, where.KindHas, conds[1].Kind)

	_, err = parseConditions([]string{"bad"}, nil)
	assert.Error(t, err)
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{
		"name=Website relaunch",
		"client_id=12",
		"users=[1,2]",
		`description="a=b"`,
		"color=null",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"name":        "Website relaunch",
		"client_id":   "12",
		"users":       []any{json.Number("1"), json.Number("2")},
		"description": "a=b",
		"color":       nil,
	}, got)

	for _, bad := range []string{"name", "=x", "users=[1,"} {
		_, err := parseAssignments([]string{bad})
		assert.Error(t, err, bad)
	}
}
