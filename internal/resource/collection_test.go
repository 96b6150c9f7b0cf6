package resource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcolombo/paymo/internal/model"
	"github.com/jcolombo/paymo/internal/where"
)

func TestCollectionHydrateAndIterate(t *testing.T) {
	s := newOfflineSession(t, Options{})
	c, err := s.NewCollection("task")
	require.NoError(t, err)

	require.NoError(t, c.Hydrate([]map[string]any{
		{"id": 1, "name": "a"},
		{"id": 2, "name": "b"},
		{"id": 3, "name": "c"},
	}))
	assert.Equal(t, 3, c.Len())

	var keys []int
	var names []any
	for c.Rewind(); c.Valid(); c.Next() {
		keys = append(keys, c.Key())
		n, _ := c.Current().Get("name")
		names = append(names, n)
	}
	assert.Equal(t, []int{0, 1, 2}, keys)
	assert.Equal(t, []any{"a", "b", "c"}, names)
	assert.Nil(t, c.Current())
	assert.Equal(t, -1, c.Key())

	c.Rewind()
	assert.Equal(t, 0, c.Key())

	// Re-hydration replaces contents.
	require.NoError(t, c.Hydrate([]map[string]any{{"id": 9}}))
	assert.Equal(t, 1, c.Len())
	e, ok := c.At(0)
	require.True(t, ok)
	assert.Equal(t, int64(9), e.ID())
}

func TestCollectionPutAppend(t *testing.T) {
	s := newOfflineSession(t, Options{})
	c, _ := s.NewCollection("task")
	task, _ := s.New("task")
	project, _ := s.New("project")

	i, err := c.Append(task)
	require.NoError(t, err)
	assert.Equal(t, 0, i)

	require.NoError(t, c.Put(5, task))
	i, err = c.Append(task)
	require.NoError(t, err)
	assert.Equal(t, 6, i)
	assert.Equal(t, []int{0, 5, 6}, c.Keys())

	assert.True(t, model.IsKind(c.Put(-1, task), model.KindSchemaViolation))
	assert.True(t, model.IsKind(c.Put(1, project), model.KindSchemaViolation))
	assert.True(t, model.IsKind(c.Put(1, nil), model.KindSchemaViolation))

	require.NoError(t, c.Put(5, task))
	assert.Equal(t, 3, c.Len(), "replacing keeps the index set")
}

func TestCollectionFlattenAndDirty(t *testing.T) {
	s := newOfflineSession(t, Options{})
	c, _ := s.NewCollection("task")
	require.NoError(t, c.Hydrate([]map[string]any{
		{"id": 1, "name": "a", "user": map[string]any{"id": 4, "name": "Ann"}},
		{"id": 2, "name": "b"},
	}))

	flat := c.Flatten()
	require.Len(t, flat, 2)
	assert.Equal(t, "Ann", flat[0]["user"].(map[string]any)["name"])
	assert.Equal(t, int64(2), flat[1]["id"])

	assert.False(t, c.IsDirty(true))
	first, _ := c.At(0)
	u, _ := first.IncludedEntity("user")
	require.NoError(t, u.Set("name", "Bob"))
	assert.False(t, c.IsDirty(false))
	assert.True(t, c.IsDirty(true))
}

func TestPreconditionGate(t *testing.T) {
	s := newOfflineSession(t, Options{})

	for _, tc := range []struct {
		name  string
		conds []where.Condition
		want  Gate
	}{
		{"no filters", nil, GateRejected},
		{"unrelated filter", []where.Condition{where.New("hours_per_day", ">", 1)}, GateRejected},
		{"anchor field", []where.Condition{where.New("task_id", "=", 4)}, GateValidated},
		{"another anchor", []where.Condition{where.In("user_id", 1, 2)}, GateValidated},
		{"paired dates", []where.Condition{where.New("start_date", ">=", "2024-01-01"), where.New("end_date", "<=", "2024-01-31")}, GateValidated},
		{"half a pair", []where.Condition{where.New("start_date", ">=", "2024-01-01")}, GateRejected},
		{"has conditions do not count", []where.Condition{where.Has("task_id", ">", 0)}, GateRejected},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c, err := s.NewCollection("booking")
			require.NoError(t, err)
			assert.Equal(t, GateUnchecked, c.Gate())

			if tc.want == GateRejected {
				// Rejected before the (failing) offline transport is reached.
				err = c.Fetch(context.Background(), FetchOptions{Where: tc.conds})
				assert.True(t, model.IsKind(err, model.KindPreconditionFailure), "got %v", err)
			} else {
				require.NoError(t, c.CheckPrecondition(tc.conds))
			}
			assert.Equal(t, tc.want, c.Gate())
		})
	}
}

func TestCollectionWithoutPreconditionValidates(t *testing.T) {
	s := newOfflineSession(t, Options{})
	c, _ := s.NewCollection("task")

	require.NoError(t, c.CheckPrecondition(nil))
	assert.Equal(t, GateValidated, c.Gate())
}

func TestCollectionFetch(t *testing.T) {
	s, api, _ := newTestSession(t, Options{})
	api.seed("tasks",
		map[string]any{"id": 1, "name": "a", "status": "open"},
		map[string]any{"id": 2, "name": "b", "status": "closed"},
	)

	c, err := s.List(context.Background(), "task", FetchOptions{
		Include: []string{"project.name"},
		Where: []where.Condition{
			where.In("status", "open", "closed"),
			where.New("complete", "=", false),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"GET /tasks"}, api.callLog())
	assert.Equal(t, `complete=false and status in ("open","closed")`, api.lastQuery.Get("where"))
	assert.Equal(t, "project.id,project.name", api.lastQuery.Get("include"))
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, GateValidated, c.Gate())
}

func TestCollectionFetchHasFilter(t *testing.T) {
	s, api, _ := newTestSession(t, Options{})
	api.seed("clients",
		map[string]any{"id": 1, "name": "none", "projects": []any{}},
		map[string]any{"id": 2, "name": "two", "projects": []any{
			map[string]any{"id": 10}, map[string]any{"id": 11},
		}},
		map[string]any{"id": 3, "name": "five", "projects": []any{
			map[string]any{"id": 20}, map[string]any{"id": 21}, map[string]any{"id": 22},
			map[string]any{"id": 23}, map[string]any{"id": 24},
		}},
	)

	c, err := s.List(context.Background(), "client", FetchOptions{
		Where: []where.Condition{where.Has("projects", ">", 0)},
	})
	require.NoError(t, err)

	assert.Equal(t, "projects", api.lastQuery.Get("include"), "has relations are requested")
	assert.Empty(t, api.lastQuery.Get("where"))
	assert.Equal(t, []int{1, 2}, c.Keys(), "keys keep source positions")

	var ids []int64
	for _, e := range c.Items() {
		ids = append(ids, e.ID())
	}
	assert.Equal(t, []int64{2, 3}, ids)

	second, _ := c.At(2)
	projects, ok := second.IncludedCollection("projects")
	require.True(t, ok)
	assert.Equal(t, 5, projects.Len())
}

func TestCollectionFetchRefusals(t *testing.T) {
	ctx := context.Background()
	s := newOfflineSession(t, Options{})

	c, _ := s.NewCollection("task")
	err := c.Fetch(ctx, FetchOptions{Where: []where.Condition{where.New("bogus", "=", 1)}})
	assert.True(t, model.IsKind(err, model.KindSchemaViolation))

	err = c.Fetch(ctx, FetchOptions{Where: []where.Condition{where.Has("name", ">", 1)}})
	assert.True(t, model.IsKind(err, model.KindSchemaViolation))

	p := newOfflineSession(t, Options{ProtectDirty: true})
	c, _ = p.NewCollection("task")
	require.NoError(t, c.Hydrate([]map[string]any{{"id": 1, "name": "a"}}))
	first, _ := c.At(0)
	require.NoError(t, first.Set("name", "edited"))
	assert.True(t, model.IsKind(c.Fetch(ctx, FetchOptions{}), model.KindDirtyStateConflict))
}
