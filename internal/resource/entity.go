package resource

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/jcolombo/paymo/internal/model"
	"github.com/jcolombo/paymo/internal/schema"
)

// Phase is the entity's transient hydration state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseHydrating
)

func (p Phase) String() string {
	if p == PhaseHydrating {
		return "hydrating"
	}
	return "idle"
}

// Relation is an included record or list attached to an entity by
// hydration.
type Relation interface {
	IsDirty(checkRelations bool) bool
	flatten() any
}

// Change is the before/after pair of a dirty field. Original is nil for
// fields never loaded.
type Change struct {
	Original any `json:"original"`
	Current  any `json:"current"`
}

// Entity is one remote record of any type, driven by its descriptor.
// Entities are not safe for concurrent use.
type Entity struct {
	session  *Session
	desc     *schema.Descriptor
	current  map[string]any
	loaded   map[string]any
	side     map[string]any
	included map[string]Relation
	phase    Phase
}

func newEntity(s *Session, d *schema.Descriptor) *Entity {
	e := &Entity{session: s, desc: d}
	e.reset()
	return e
}

func (e *Entity) reset() {
	e.current = map[string]any{}
	e.loaded = map[string]any{}
	e.side = map[string]any{}
	e.included = map[string]Relation{}
}

// Type returns the entity type key.
func (e *Entity) Type() string { return e.desc.Key }

// Descriptor returns the schema descriptor driving the entity.
func (e *Entity) Descriptor() *schema.Descriptor { return e.desc }

// Phase reports the hydration phase. It is PhaseIdle outside Hydrate.
func (e *Entity) Phase() Phase { return e.phase }

// ID returns the entity's identity, or 0 when it has none.
func (e *Entity) ID() int64 {
	if e.desc.NoIdentity {
		return 0
	}
	return idOf(e.current)
}

// HasID reports whether the entity carries a positive identity.
func (e *Entity) HasID() bool { return e.ID() > 0 }

// Get returns a field value. Names outside the schema are looked up in the
// side channel.
func (e *Entity) Get(field string) (any, bool) {
	if e.desc.HasField(field) {
		v, ok := e.current[field]
		return v, ok
	}
	v, ok := e.side[field]
	return v, ok
}

// Set writes a field, subject to the write policy: a read-only field is
// only writable while hydrating, or when it is also create-only and the
// entity has no identity yet. Values are normalized to the field's primitive
// type. Names outside the schema go to the side channel.
func (e *Entity) Set(field string, value any) error {
	if e.desc.HasInclude(field) {
		return model.Errorf(model.KindSchemaViolation, e.desc.Key, field, "includes are populated by hydration only")
	}
	f, ok := e.desc.Field(field)
	if !ok {
		e.side[field] = value
		return nil
	}
	if !e.writable(f) {
		return model.Errorf(model.KindSchemaViolation, e.desc.Key, field, "field is read-only")
	}
	v, err := schema.CoerceField(f, value)
	if err != nil {
		if e.phase == PhaseHydrating {
			// Keep what the server sent rather than lose it.
			e.current[field] = value
			return nil
		}
		return model.Errorf(model.KindSchemaViolation, e.desc.Key, field, "%v", err)
	}
	e.current[field] = v
	return nil
}

// SetAll applies Set to every pair and stops at the first refusal.
func (e *Entity) SetAll(values map[string]any) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := e.Set(k, values[k]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Entity) writable(f schema.Field) bool {
	if !f.ReadOnly || e.phase == PhaseHydrating {
		return true
	}
	return f.CreateOnly && !e.HasID()
}

// isSet reports whether a field holds a non-nil value.
func (e *Entity) isSet(field string) bool {
	v, ok := e.current[field]
	return ok && v != nil
}

// Fields returns a copy of the working values.
func (e *Entity) Fields() map[string]any { return copyValues(e.current) }

// Side returns a copy of the side-channel values.
func (e *Entity) Side() map[string]any { return copyValues(e.side) }

// Included returns the relation hydrated under name.
func (e *Entity) Included(name string) (Relation, bool) {
	r, ok := e.included[name]
	return r, ok
}

// IncludedEntity returns a single-record relation.
func (e *Entity) IncludedEntity(name string) (*Entity, bool) {
	r, ok := e.included[name].(*Entity)
	return r, ok
}

// IncludedCollection returns a list relation.
func (e *Entity) IncludedCollection(name string) (*Collection, bool) {
	r, ok := e.included[name].(*Collection)
	return r, ok
}

// IncludedNames returns the hydrated relation names, sorted.
func (e *Entity) IncludedNames() []string {
	names := make([]string, 0, len(e.included))
	for n := range e.included {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Hydrate replaces the entity's state with a raw server record. Include
// properties become nested entities or collections; everything else goes
// through Set with read-only protection lifted. A positive forcedID
// overrides the record's id. On success the loaded snapshot equals current.
func (e *Entity) Hydrate(raw map[string]any, forcedID int64) error {
	e.reset()
	defer e.enterHydration()()

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if e.desc.HasInclude(k) {
			if err := e.hydrateInclude(k, raw[k]); err != nil {
				e.reset()
				return err
			}
			continue
		}
		if err := e.Set(k, raw[k]); err != nil {
			e.reset()
			return err
		}
	}
	if forcedID > 0 && !e.desc.NoIdentity {
		e.current["id"] = forcedID
	}
	e.loaded = copyValues(e.current)
	return nil
}

// enterHydration switches to PhaseHydrating and returns the function that
// restores the previous phase.
func (e *Entity) enterHydration() func() {
	prev := e.phase
	e.phase = PhaseHydrating
	return func() { e.phase = prev }
}

func (e *Entity) hydrateInclude(name string, value any) error {
	if value == nil {
		return nil
	}
	inc, _ := e.desc.Include(name)
	target, ok := e.session.Registry.Get(inc.Entity)
	if !ok {
		e.side[name] = value
		return nil
	}

	if inc.Collection {
		rows, err := toRows(value)
		if err != nil {
			return model.Errorf(model.KindSchemaViolation, e.desc.Key, name, "%v", err)
		}
		c := newCollection(e.session, target)
		if err := c.Hydrate(rows); err != nil {
			return err
		}
		e.included[name] = c
		return nil
	}

	row, ok := value.(map[string]any)
	if !ok {
		return model.Errorf(model.KindSchemaViolation, e.desc.Key, name, "expected an object, got %T", value)
	}
	child := newEntity(e.session, target)
	if err := child.Hydrate(row, 0); err != nil {
		return err
	}
	e.included[name] = child
	return nil
}

// IsDirty reports whether any field differs from the loaded snapshot. With
// checkRelations it also descends into included relations.
func (e *Entity) IsDirty(checkRelations bool) bool {
	for k, v := range e.current {
		if lv, ok := e.loaded[k]; !ok || !reflect.DeepEqual(lv, v) {
			return true
		}
	}
	if checkRelations {
		for _, r := range e.included {
			if r.IsDirty(true) {
				return true
			}
		}
	}
	return false
}

// DirtyKeys returns the names of dirty fields, sorted.
func (e *Entity) DirtyKeys() []string {
	var keys []string
	for k, v := range e.current {
		if lv, ok := e.loaded[k]; !ok || !reflect.DeepEqual(lv, v) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// DirtyValues returns the dirty fields with their loaded and current values.
func (e *Entity) DirtyValues() map[string]Change {
	out := make(map[string]Change)
	for _, k := range e.DirtyKeys() {
		out[k] = Change{Original: e.loaded[k], Current: e.current[k]}
	}
	return out
}

// Wash marks the current values as synchronized without a round trip.
func (e *Entity) Wash() {
	e.loaded = copyValues(e.current)
}

// Flatten renders the entity and its relations as a plain value tree.
// Side-channel values are not included.
func (e *Entity) Flatten() map[string]any {
	out := copyValues(e.current)
	for name, r := range e.included {
		out[name] = r.flatten()
	}
	return out
}

func (e *Entity) flatten() any { return e.Flatten() }

// String returns "type#id" for logs.
func (e *Entity) String() string {
	if e.HasID() {
		return fmt.Sprintf("%s#%d", e.desc.Key, e.ID())
	}
	return e.desc.Key + "#new"
}

func idOf(values map[string]any) int64 {
	v, ok := values["id"]
	if !ok || v == nil {
		return 0
	}
	id, err := schema.Coerce(v, schema.PrimitiveInteger)
	if err != nil {
		return 0
	}
	return id.(int64)
}

func copyValues(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if list, ok := v.([]any); ok {
			dup := make([]any, len(list))
			copy(dup, list)
			v = dup
		}
		out[k] = v
	}
	return out
}

// toRows converts a decoded JSON list into records.
func toRows(value any) ([]map[string]any, error) {
	switch t := value.(type) {
	case []map[string]any:
		return t, nil
	case map[string]any:
		return []map[string]any{t}, nil
	case []any:
		rows := make([]map[string]any, len(t))
		for i, item := range t {
			row, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("item %d: expected an object, got %T", i, item)
			}
			rows[i] = row
		}
		return rows, nil
	}
	return nil, fmt.Errorf("expected a list, got %T", value)
}
