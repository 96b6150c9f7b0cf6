package resource

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcolombo/paymo/internal/model"
)

func hydrated(t *testing.T, s *Session, entity string, raw map[string]any) *Entity {
	t.Helper()
	e, err := s.New(entity)
	require.NoError(t, err)
	require.NoError(t, e.Hydrate(raw, 0))
	return e
}

func TestDirtyRoundTrip(t *testing.T) {
	s := newOfflineSession(t, Options{})
	e := hydrated(t, s, "task", map[string]any{"id": 1, "name": "Draft", "user_id": 5})

	assert.False(t, e.IsDirty(false))
	require.NoError(t, e.Set("user_id", 9))
	assert.True(t, e.IsDirty(false))
	assert.Equal(t, []string{"user_id"}, e.DirtyKeys())
	assert.Equal(t, Change{Original: int64(5), Current: int64(9)}, e.DirtyValues()["user_id"])

	e.Wash()
	assert.False(t, e.IsDirty(false))
	assert.Empty(t, e.DirtyValues())
}

func TestDirtyComparisonIsOnNormalizedValues(t *testing.T) {
	s := newOfflineSession(t, Options{})
	e := hydrated(t, s, "task", map[string]any{"id": 1, "user_id": json.Number("5"), "hours": 2})

	require.NoError(t, e.Set("user_id", "5"))
	require.NoError(t, e.Set("hours", 2.0))
	assert.False(t, e.IsDirty(false), "equal values in other representations are not changes")

	require.NoError(t, e.Set("hours", "2.5"))
	assert.Equal(t, []string{"hours"}, e.DirtyKeys())
}

func TestNewFieldIsDirty(t *testing.T) {
	s := newOfflineSession(t, Options{})
	e := hydrated(t, s, "task", map[string]any{"id": 1})

	require.NoError(t, e.Set("name", "Fresh"))
	assert.Equal(t, Change{Original: nil, Current: "Fresh"}, e.DirtyValues()["name"])
}

func TestReadOnlyEnforcement(t *testing.T) {
	s := newOfflineSession(t, Options{})
	e := hydrated(t, s, "task", map[string]any{"id": 1, "invoiced": false})

	err := e.Set("invoiced", true)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindSchemaViolation))
	v, _ := e.Get("invoiced")
	assert.Equal(t, false, v)

	// The same value arrives through hydration.
	require.NoError(t, e.Hydrate(map[string]any{"id": 1, "invoiced": true}, 0))
	v, _ = e.Get("invoiced")
	assert.Equal(t, true, v)

	assert.Error(t, e.Set("id", 2), "id is read-only")
}

func TestCreateOnlyField(t *testing.T) {
	s := newOfflineSession(t, Options{})

	e, err := s.New("task")
	require.NoError(t, err)
	require.NoError(t, e.Set("project_id", 3), "create-only field is writable before identity")

	e = hydrated(t, s, "task", map[string]any{"id": 8, "project_id": 3})
	assert.Error(t, e.Set("project_id", 4))
	v, _ := e.Get("project_id")
	assert.Equal(t, int64(3), v)
}

func TestSideChannel(t *testing.T) {
	s := newOfflineSession(t, Options{})
	e := hydrated(t, s, "task", map[string]any{"id": 1, "color": "red"})

	v, ok := e.Get("color")
	assert.True(t, ok)
	assert.Equal(t, "red", v)
	assert.Equal(t, map[string]any{"color": "red"}, e.Side())
	assert.NotContains(t, e.Fields(), "color")

	require.NoError(t, e.Set("note", 1))
	assert.Contains(t, e.Side(), "note")
	assert.False(t, e.IsDirty(false), "side-channel values are not tracked")
}

func TestSetRejects(t *testing.T) {
	s := newOfflineSession(t, Options{})
	e, err := s.New("task")
	require.NoError(t, err)

	for _, tc := range []struct {
		field string
		value any
	}{
		{"project", map[string]any{"id": 1}},
		{"user_id", "abc"},
		{"status", "archived"},
		{"complete", "perhaps"},
		{"due_date", "tomorrow"},
	} {
		err := e.Set(tc.field, tc.value)
		assert.True(t, model.IsKind(err, model.KindSchemaViolation), "%s: %v", tc.field, err)
		_, set := e.Get(tc.field)
		assert.False(t, set, tc.field)
	}
}

func TestHydrateKeepsUncoercibleServerValues(t *testing.T) {
	s := newOfflineSession(t, Options{})
	e := hydrated(t, s, "task", map[string]any{"id": 1, "status": "archived"})

	v, _ := e.Get("status")
	assert.Equal(t, "archived", v)
	assert.False(t, e.IsDirty(false))
}

func TestHydrateIncludes(t *testing.T) {
	s := newOfflineSession(t, Options{})
	e := hydrated(t, s, "project", map[string]any{
		"id":     json.Number("12"),
		"name":   "Apollo",
		"client": map[string]any{"id": 3, "name": "NASA"},
		"tasks": []any{
			map[string]any{"id": 20, "name": "Launch"},
			map[string]any{"id": 21, "name": "Land", "user": map[string]any{"id": 7, "name": "Neil"}},
		},
	})

	assert.Equal(t, int64(12), e.ID())
	assert.Equal(t, []string{"client", "tasks"}, e.IncludedNames())

	cl, ok := e.IncludedEntity("client")
	require.True(t, ok)
	assert.Equal(t, int64(3), cl.ID())
	assert.Equal(t, "client", cl.Type())

	tasks, ok := e.IncludedCollection("tasks")
	require.True(t, ok)
	assert.Equal(t, 2, tasks.Len())
	land, ok := tasks.At(1)
	require.True(t, ok)
	user, ok := land.IncludedEntity("user")
	require.True(t, ok)
	assert.Equal(t, int64(7), user.ID())

	flat := e.Flatten()
	assert.Equal(t, "Apollo", flat["name"])
	assert.Equal(t, "NASA", flat["client"].(map[string]any)["name"])
	flatTasks := flat["tasks"].([]map[string]any)
	assert.Len(t, flatTasks, 2)
	assert.Equal(t, "Neil", flatTasks[1]["user"].(map[string]any)["name"])

	_, isField := e.Fields()["client"]
	assert.False(t, isField)
}

func TestHydrateReplacesState(t *testing.T) {
	s := newOfflineSession(t, Options{})
	e := hydrated(t, s, "project", map[string]any{
		"id": 1, "name": "Old", "extra": true, "client": map[string]any{"id": 3},
	})
	require.NoError(t, e.Set("active", true))

	require.NoError(t, e.Hydrate(map[string]any{"id": 1, "name": "New"}, 0))
	assert.Equal(t, map[string]any{"id": int64(1), "name": "New"}, e.Fields())
	assert.Empty(t, e.Side())
	assert.Empty(t, e.IncludedNames())
	assert.False(t, e.IsDirty(true))
	assert.Equal(t, PhaseIdle, e.Phase())
}

func TestHydrateForcedID(t *testing.T) {
	s := newOfflineSession(t, Options{})
	e, err := s.New("task")
	require.NoError(t, err)

	require.NoError(t, e.Hydrate(map[string]any{"name": "No id"}, 44))
	assert.Equal(t, int64(44), e.ID())
	assert.False(t, e.IsDirty(false))

	require.NoError(t, e.Hydrate(map[string]any{"id": 5}, 0))
	assert.Equal(t, int64(5), e.ID())
}

func TestHydrateMalformedInclude(t *testing.T) {
	s := newOfflineSession(t, Options{})
	e, err := s.New("project")
	require.NoError(t, err)

	err = e.Hydrate(map[string]any{"id": 1, "tasks": []any{"not an object"}}, 0)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindSchemaViolation))
	assert.Empty(t, e.Fields(), "failed hydration leaves the entity empty")
	assert.Equal(t, PhaseIdle, e.Phase())

	err = e.Hydrate(map[string]any{"id": 1, "client": []any{}}, 0)
	assert.Error(t, err)
}

func TestIsDirtyRelations(t *testing.T) {
	s := newOfflineSession(t, Options{})
	e := hydrated(t, s, "project", map[string]any{
		"id":     1,
		"client": map[string]any{"id": 3, "name": "NASA"},
		"tasks":  []any{map[string]any{"id": 20, "name": "Launch"}},
	})

	cl, _ := e.IncludedEntity("client")
	require.NoError(t, cl.Set("name", "ESA"))
	assert.False(t, e.IsDirty(false))
	assert.True(t, e.IsDirty(true))

	cl.Wash()
	tasks, _ := e.IncludedCollection("tasks")
	task, _ := tasks.At(0)
	require.NoError(t, task.Set("name", "Abort"))
	assert.True(t, e.IsDirty(true))
}

func TestCollectionFieldValues(t *testing.T) {
	s := newOfflineSession(t, Options{})
	e := hydrated(t, s, "project", map[string]any{"id": 1, "users": []any{json.Number("4"), json.Number("5")}})

	v, _ := e.Get("users")
	assert.Equal(t, []any{int64(4), int64(5)}, v)

	require.NoError(t, e.Set("users", []int{4, 5}))
	assert.False(t, e.IsDirty(false))
	require.NoError(t, e.Set("users", []int{4}))
	assert.True(t, e.IsDirty(false))
}

func TestNoIdentityEntity(t *testing.T) {
	s := newOfflineSession(t, Options{})
	e := hydrated(t, s, "currency", map[string]any{"code": "USD", "name": "US Dollar", "id": 9})

	assert.Equal(t, int64(0), e.ID())
	assert.False(t, e.HasID())
	assert.Equal(t, map[string]any{"id": 9}, e.Side())

	_, err := s.Ref("currency", 1)
	assert.True(t, model.IsKind(err, model.KindUnsupported))
}

func TestSessionRefAndUnknownEntity(t *testing.T) {
	s := newOfflineSession(t, Options{})

	_, err := s.New("invoice")
	assert.True(t, model.IsKind(err, model.KindSchemaViolation))

	_, err = s.Ref("task", 0)
	assert.True(t, model.IsKind(err, model.KindIdentityMissing))

	e, err := s.Ref("task", 5)
	require.NoError(t, err)
	assert.Equal(t, "task#5", e.String())
	assert.False(t, e.IsDirty(false), "a bare reference has nothing to save")
}

func TestRequirementSatisfied(t *testing.T) {
	set := map[string]bool{"a": true, "c": true}
	isSet := func(f string) bool { return set[f] }

	for _, tc := range []struct {
		expr string
		want bool
	}{
		{"a", true},
		{"b", false},
		{"a||b", true},
		{"a||c", false},
		{"b||d", false},
		{"a|b", true},
		{"b|d", false},
		{"a&b", false},
		{"a&c", true},
		{"a&c||b", true},
		{"b|a&c", true},
		{" a ", true},
		{"", false},
	} {
		assert.Equal(t, tc.want, RequirementSatisfied(tc.expr, isSet), tc.expr)
	}
}

func TestMissingRequirements(t *testing.T) {
	s := newOfflineSession(t, Options{})
	e, err := s.New("task")
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "tasklist_id|project_id"}, e.MissingRequirements())
	require.NoError(t, e.Set("name", "Write"))
	require.NoError(t, e.Set("project_id", 2))
	assert.Empty(t, e.MissingRequirements())
}
