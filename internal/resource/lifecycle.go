package resource

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/jcolombo/paymo/internal/client"
	"github.com/jcolombo/paymo/internal/events"
	"github.com/jcolombo/paymo/internal/model"
)

// CreateOptions tune Create.
type CreateOptions struct {
	// CancelReadonly aborts the create when a read-only field that is not
	// create-only holds a value, instead of silently leaving it out.
	CancelReadonly bool
}

func (e *Entity) itemPath() string {
	return e.desc.Path + "/" + strconv.FormatInt(e.ID(), 10)
}

func (e *Entity) requireID(op string) error {
	if e.desc.NoIdentity {
		return model.Errorf(model.KindUnsupported, e.desc.Key, "id", "%s needs an identity and this entity type has none", op)
	}
	if !e.HasID() {
		return model.Errorf(model.KindIdentityMissing, e.desc.Key, "id", "%s needs a positive id", op)
	}
	return nil
}

// Fetch loads the record by id, replacing local state.
func (e *Entity) Fetch(ctx context.Context, opts FetchOptions) error {
	if e.desc.Capabilities.NoFetch {
		return model.Errorf(model.KindUnsupported, e.desc.Key, "", "fetch is not supported")
	}
	if err := e.requireID("fetch"); err != nil {
		return err
	}
	if e.session.Options.ProtectDirty && e.IsDirty(false) {
		return model.Errorf(model.KindDirtyStateConflict, e.desc.Key, "", "unsaved changes to %v", e.DirtyKeys())
	}
	inc, err := e.session.scrub(e.desc.Key, opts.Include)
	if err != nil {
		return err
	}

	id := e.ID()
	resp, err := e.session.do(ctx, e.desc.Key, &client.Request{
		Method:  http.MethodGet,
		Path:    e.itemPath(),
		Include: inc,
	})
	if err != nil {
		return err
	}
	return e.hydrateResponse(resp, id)
}

// Create sends the entity as a new record and hydrates it from the response.
func (e *Entity) Create(ctx context.Context, opts CreateOptions) error {
	key := e.desc.Key
	if e.desc.Capabilities.NoCreate {
		return model.Errorf(model.KindUnsupported, key, "", "create is not supported")
	}
	if e.HasID() {
		return model.Errorf(model.KindIdentityConflict, key, "id", "entity already has id %d", e.ID())
	}
	if e.session.Options.ProtectDirty && len(e.loaded) > 0 && e.IsDirty(false) {
		return model.Errorf(model.KindDirtyStateConflict, key, "", "entity was loaded and has unsaved changes to %v", e.DirtyKeys())
	}
	if missing := e.MissingRequirements(); len(missing) > 0 {
		verr := &model.ValidationError{}
		for _, expr := range missing {
			verr.Add(expr, "required")
		}
		return model.Wrap(model.KindSchemaViolation, key, verr)
	}

	body := map[string]any{}
	for field, v := range e.current {
		if field == "id" || v == nil {
			continue
		}
		f, _ := e.desc.Field(field)
		if f.ReadOnly && !f.CreateOnly {
			if opts.CancelReadonly {
				return model.Errorf(model.KindSchemaViolation, key, field, "read-only field is set")
			}
			continue
		}
		body[field] = v
	}

	resp, err := e.session.do(ctx, key, &client.Request{
		Method: http.MethodPost,
		Path:   e.desc.Path,
		Body:   body,
	})
	if err != nil {
		return err
	}
	if err := e.hydrateResponse(resp, 0); err != nil {
		return err
	}
	e.session.publish(ctx, key, events.ActionCreated, events.ResourceCreated{
		Action: events.ActionCreated,
		Entity: key,
		ID:     e.ID(),
		Record: e.Flatten(),
		At:     time.Now().UTC(),
	})
	return nil
}

// Update sends the dirty, writable fields. Nothing is sent when no such
// field exists.
func (e *Entity) Update(ctx context.Context) error {
	key := e.desc.Key
	if e.desc.Capabilities.NoUpdate {
		return model.Errorf(model.KindUnsupported, key, "", "update is not supported")
	}
	if err := e.requireID("update"); err != nil {
		return err
	}

	body := map[string]any{}
	for _, field := range e.DirtyKeys() {
		if e.desc.IsReadOnly(field) {
			continue
		}
		body[field] = e.current[field]
	}
	if len(body) == 0 {
		return nil
	}

	id := e.ID()
	resp, err := e.session.do(ctx, key, &client.Request{
		Method: http.MethodPut,
		Path:   e.itemPath(),
		Body:   body,
	})
	if err != nil {
		return err
	}
	if len(resp.Body) > 0 {
		if err := e.hydrateResponse(resp, id); err != nil {
			return err
		}
	} else {
		e.Wash()
	}
	e.session.publish(ctx, key, events.ActionUpdated, events.ResourceUpdated{
		Action:  events.ActionUpdated,
		Entity:  key,
		ID:      id,
		Changes: body,
		At:      time.Now().UTC(),
	})
	return nil
}

// Delete removes the record and resets the entity to empty.
func (e *Entity) Delete(ctx context.Context) error {
	key := e.desc.Key
	if e.desc.Capabilities.NoDelete {
		return model.Errorf(model.KindUnsupported, key, "", "delete is not supported")
	}
	if err := e.requireID("delete"); err != nil {
		return err
	}

	id := e.ID()
	if _, err := e.session.do(ctx, key, &client.Request{
		Method: http.MethodDelete,
		Path:   e.itemPath(),
	}); err != nil {
		return err
	}
	e.reset()
	e.session.publish(ctx, key, events.ActionDeleted, events.ResourceDeleted{
		Action: events.ActionDeleted,
		Entity: key,
		ID:     id,
		At:     time.Now().UTC(),
	})
	return nil
}

func (e *Entity) hydrateResponse(resp *client.Response, id int64) error {
	records, err := resp.Records(e.desc.EnvelopeKey())
	if err != nil {
		return model.Wrap(model.KindTransportFailure, e.desc.Key, err)
	}
	if len(records) == 0 {
		return model.Errorf(model.KindTransportFailure, e.desc.Key, "", "response holds no %s record", e.desc.Key)
	}
	return e.Hydrate(records[0], id)
}
