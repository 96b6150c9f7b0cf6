// Package resource maps remote API records onto schema-driven entities and
// collections: hydration from raw responses, dirty tracking, write policy and
// the create/fetch/update/delete round trips.
package resource

import (
	"context"

	"go.uber.org/zap"

	"github.com/jcolombo/paymo/internal/client"
	"github.com/jcolombo/paymo/internal/events"
	"github.com/jcolombo/paymo/internal/include"
	"github.com/jcolombo/paymo/internal/model"
	"github.com/jcolombo/paymo/internal/schema"
	"github.com/jcolombo/paymo/internal/where"
)

// Options are the engine-wide behavior switches.
type Options struct {
	// ProtectDirty makes Fetch (and Create on a previously loaded entity)
	// refuse to overwrite unsaved local changes.
	ProtectDirty bool
	// DevMode validates descriptors on first use and turns silently dropped
	// include paths into errors.
	DevMode bool
}

// Session owns the collaborators shared by every entity it creates. Two
// sessions never share state, so one process can talk to several accounts.
type Session struct {
	Registry  *schema.Registry
	Scrubber  *include.Scrubber
	Compiler  *where.Compiler
	Transport client.Transport
	Publisher events.Publisher
	Logger    *zap.Logger
	Options   Options
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithPublisher sets the lifecycle event publisher.
func WithPublisher(p events.Publisher) SessionOption {
	return func(s *Session) { s.Publisher = p }
}

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) SessionOption {
	return func(s *Session) { s.Logger = l }
}

// WithOptions sets the behavior switches.
func WithOptions(o Options) SessionOption {
	return func(s *Session) { s.Options = o }
}

// NewSession builds a session over registry and transport. The scrubber and
// compiler are created here so their memo state is scoped to the session.
func NewSession(registry *schema.Registry, transport client.Transport, opts ...SessionOption) *Session {
	s := &Session{
		Registry:  registry,
		Scrubber:  include.NewScrubber(registry),
		Compiler:  where.NewCompiler(registry),
		Transport: transport,
		Publisher: &events.NoopPublisher{},
		Logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Descriptor returns the descriptor for entity, validating it first in dev
// mode.
func (s *Session) Descriptor(entity string) (*schema.Descriptor, error) {
	d, ok := s.Registry.Get(entity)
	if !ok {
		return nil, model.Errorf(model.KindSchemaViolation, entity, "", "unknown entity type")
	}
	if s.Options.DevMode {
		if err := schema.ValidateDescriptor(d); err != nil {
			return nil, model.Wrap(model.KindSchemaViolation, entity, err)
		}
	}
	return d, nil
}

// New returns an empty entity of the given type.
func (s *Session) New(entity string) (*Entity, error) {
	d, err := s.Descriptor(entity)
	if err != nil {
		return nil, err
	}
	return newEntity(s, d), nil
}

// Ref returns an entity with only its identity set, ready for Fetch, Update
// or Delete.
func (s *Session) Ref(entity string, id int64) (*Entity, error) {
	e, err := s.New(entity)
	if err != nil {
		return nil, err
	}
	if e.desc.NoIdentity {
		return nil, model.Errorf(model.KindUnsupported, entity, "id", "entity type has no identity")
	}
	if id <= 0 {
		return nil, model.Errorf(model.KindIdentityMissing, entity, "id", "id must be positive, got %d", id)
	}
	e.current["id"] = id
	e.loaded["id"] = id
	return e, nil
}

// NewCollection returns an empty collection of the given type.
func (s *Session) NewCollection(entity string) (*Collection, error) {
	d, err := s.Descriptor(entity)
	if err != nil {
		return nil, err
	}
	return newCollection(s, d), nil
}

// Get fetches a single record by id.
func (s *Session) Get(ctx context.Context, entity string, id int64, includes ...string) (*Entity, error) {
	e, err := s.Ref(entity, id)
	if err != nil {
		return nil, err
	}
	if err := e.Fetch(ctx, FetchOptions{Include: includes}); err != nil {
		return nil, err
	}
	return e, nil
}

// List fetches a collection.
func (s *Session) List(ctx context.Context, entity string, opts FetchOptions) (*Collection, error) {
	c, err := s.NewCollection(entity)
	if err != nil {
		return nil, err
	}
	if err := c.Fetch(ctx, opts); err != nil {
		return nil, err
	}
	return c, nil
}

// FetchOptions select related records and filter lists.
type FetchOptions struct {
	Include []string
	Where   []where.Condition
}

// scrub normalizes include paths. In dev mode, paths the scrubber would drop
// are reported instead.
func (s *Session) scrub(entity string, paths []string) (string, error) {
	if s.Options.DevMode {
		if rejected := s.Scrubber.Rejected(entity, paths); len(rejected) > 0 {
			return "", model.Errorf(model.KindSchemaViolation, entity, rejected[0], "invalid include path")
		}
	}
	return include.Join(s.Scrubber.Scrub(entity, paths)), nil
}

// do sends req and converts transport problems into typed errors.
func (s *Session) do(ctx context.Context, entity string, req *client.Request) (*client.Response, error) {
	resp, err := s.Transport.Do(ctx, req)
	if err != nil {
		return nil, model.Wrap(model.KindTransportFailure, entity, err)
	}
	if !resp.Success {
		return nil, &model.Error{
			Kind:    model.KindTransportFailure,
			Entity:  entity,
			Message: resp.StatusReason,
			Err:     resp.Err(),
		}
	}
	s.Logger.Debug("api call",
		zap.String("entity", entity),
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", resp.StatusCode),
		zap.Bool("cached", resp.Cached))
	return resp, nil
}

// publish emits a lifecycle event. Delivery failures are logged; the write
// they describe has already succeeded.
func (s *Session) publish(ctx context.Context, entity, action string, event any) {
	topic := events.Topic(entity, action)
	if err := s.Publisher.Publish(ctx, topic, event); err != nil {
		s.Logger.Warn("publishing event", zap.String("topic", topic), zap.Error(err))
	}
}
