package resource

import (
	"context"
	"net/http"
	"sort"

	"github.com/jcolombo/paymo/internal/client"
	"github.com/jcolombo/paymo/internal/model"
	"github.com/jcolombo/paymo/internal/schema"
	"github.com/jcolombo/paymo/internal/where"
)

// Gate is the state of a collection's fetch precondition check.
type Gate int

const (
	GateUnchecked Gate = iota
	GateValidated
	GateRejected
)

func (g Gate) String() string {
	switch g {
	case GateValidated:
		return "validated"
	case GateRejected:
		return "rejected"
	}
	return "unchecked"
}

// Collection is an integer-keyed, ordered set of entities of one type. Keys
// are the records' positions in the source list and may have gaps.
type Collection struct {
	session *Session
	desc    *schema.Descriptor
	items   map[int]*Entity
	keys    []int
	cursor  int
	gate    Gate
}

func newCollection(s *Session, d *schema.Descriptor) *Collection {
	return &Collection{session: s, desc: d, items: map[int]*Entity{}}
}

// Type returns the entity type key of the members.
func (c *Collection) Type() string { return c.desc.Key }

// Gate reports the outcome of the last precondition check.
func (c *Collection) Gate() Gate { return c.gate }

// Hydrate replaces the contents with one entity per raw record, keyed by
// list position.
func (c *Collection) Hydrate(rows []map[string]any) error {
	indexed := make(map[int]map[string]any, len(rows))
	for i, row := range rows {
		indexed[i] = row
	}
	return c.hydrateIndexed(indexed)
}

func (c *Collection) hydrateIndexed(rows map[int]map[string]any) error {
	c.clear()
	for i, row := range rows {
		e := newEntity(c.session, c.desc)
		if err := e.Hydrate(row, idOf(row)); err != nil {
			c.clear()
			return err
		}
		c.items[i] = e
	}
	c.sortKeys()
	return nil
}

func (c *Collection) clear() {
	c.items = map[int]*Entity{}
	c.keys = nil
	c.cursor = 0
}

func (c *Collection) sortKeys() {
	c.keys = c.keys[:0]
	for k := range c.items {
		c.keys = append(c.keys, k)
	}
	sort.Ints(c.keys)
}

// Rewind moves the cursor to the first entity.
func (c *Collection) Rewind() { c.cursor = 0 }

// Valid reports whether the cursor points at an entity.
func (c *Collection) Valid() bool { return c.cursor < len(c.keys) }

// Next advances the cursor.
func (c *Collection) Next() { c.cursor++ }

// Current returns the entity under the cursor, or nil past the end.
func (c *Collection) Current() *Entity {
	if !c.Valid() {
		return nil
	}
	return c.items[c.keys[c.cursor]]
}

// Key returns the index under the cursor, or -1 past the end.
func (c *Collection) Key() int {
	if !c.Valid() {
		return -1
	}
	return c.keys[c.cursor]
}

// At returns the entity stored at index i.
func (c *Collection) At(i int) (*Entity, bool) {
	e, ok := c.items[i]
	return e, ok
}

// Put stores e at index i, replacing any entity already there.
func (c *Collection) Put(i int, e *Entity) error {
	if i < 0 {
		return model.Errorf(model.KindSchemaViolation, c.desc.Key, "", "index must be non-negative, got %d", i)
	}
	if e == nil || e.desc.Key != c.desc.Key {
		return model.Errorf(model.KindSchemaViolation, c.desc.Key, "", "collection holds %s entities only", c.desc.Key)
	}
	if _, exists := c.items[i]; !exists {
		c.keys = append(c.keys, i)
		sort.Ints(c.keys)
	}
	c.items[i] = e
	return nil
}

// Append stores e after the highest index and returns its index.
func (c *Collection) Append(e *Entity) (int, error) {
	next := 0
	if n := len(c.keys); n > 0 {
		next = c.keys[n-1] + 1
	}
	if err := c.Put(next, e); err != nil {
		return -1, err
	}
	return next, nil
}

// Len returns the number of entities.
func (c *Collection) Len() int { return len(c.keys) }

// Keys returns the indices in ascending order.
func (c *Collection) Keys() []int { return append([]int(nil), c.keys...) }

// Items returns the entities in index order.
func (c *Collection) Items() []*Entity {
	out := make([]*Entity, len(c.keys))
	for i, k := range c.keys {
		out[i] = c.items[k]
	}
	return out
}

// IsDirty reports whether any member is dirty.
func (c *Collection) IsDirty(checkRelations bool) bool {
	for _, e := range c.items {
		if e.IsDirty(checkRelations) {
			return true
		}
	}
	return false
}

// Flatten renders every member, in index order, as a plain value tree.
func (c *Collection) Flatten() []map[string]any {
	out := make([]map[string]any, len(c.keys))
	for i, k := range c.keys {
		out[i] = c.items[k].Flatten()
	}
	return out
}

func (c *Collection) flatten() any { return c.Flatten() }

// CheckPrecondition runs the fetch gate against the where conditions. A
// descriptor with a precondition needs a condition on one of its anchor
// fields, or on every one of its paired fields.
func (c *Collection) CheckPrecondition(conds []where.Condition) error {
	p := c.desc.Precondition
	if p.IsZero() {
		c.gate = GateValidated
		return nil
	}
	named := map[string]bool{}
	for _, f := range where.Fields(conds) {
		named[f] = true
	}
	for _, f := range p.AnyOf {
		if named[f] {
			c.gate = GateValidated
			return nil
		}
	}
	if len(p.Paired) > 0 {
		all := true
		for _, f := range p.Paired {
			all = all && named[f]
		}
		if all {
			c.gate = GateValidated
			return nil
		}
	}
	c.gate = GateRejected
	msg := "a filter on one of %v is required"
	args := []any{p.AnyOf}
	if len(p.Paired) > 0 {
		msg = "a filter on one of %v, or on all of %v, is required"
		args = append(args, p.Paired)
	}
	return model.Errorf(model.KindPreconditionFailure, c.desc.Key, "", msg, args...)
}

// Fetch lists records matching opts. Where conditions are compiled and sent
// upstream; has conditions are applied to the response, and their relations
// are added to the include list so the counts can be taken.
func (c *Collection) Fetch(ctx context.Context, opts FetchOptions) error {
	key := c.desc.Key
	if c.desc.Capabilities.NoList {
		return model.Errorf(model.KindUnsupported, key, "", "list is not supported")
	}
	if err := c.CheckPrecondition(opts.Where); err != nil {
		return err
	}
	if c.session.Options.ProtectDirty && c.IsDirty(true) {
		return model.Errorf(model.KindDirtyStateConflict, key, "", "collection has unsaved changes")
	}

	wheres, has := where.Split(opts.Where)
	compiled, err := c.session.Compiler.CompileAll(key, wheres)
	if err != nil {
		return err
	}
	includes := append([]string(nil), opts.Include...)
	for i, cond := range has {
		resolved, err := c.session.Compiler.Resolve(key, cond)
		if err != nil {
			return err
		}
		has[i] = resolved
		includes = append(includes, resolved.Field)
	}
	inc, err := c.session.scrub(key, includes)
	if err != nil {
		return err
	}

	resp, err := c.session.do(ctx, key, &client.Request{
		Method:  http.MethodGet,
		Path:    c.desc.Path,
		Include: inc,
		Where:   compiled,
	})
	if err != nil {
		return err
	}
	records, err := resp.Records(c.desc.EnvelopeKey())
	if err != nil {
		return model.Wrap(model.KindTransportFailure, key, err)
	}

	kept := make(map[int]map[string]any, len(records))
	for i, row := range records {
		if where.Matches(row, has) {
			kept[i] = row
		}
	}
	return c.hydrateIndexed(kept)
}
