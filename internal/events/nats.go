package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/jcolombo/paymo/internal/idgen"
)

// Headers set on every published lifecycle message.
const (
	HeaderEventID = "Paymo-Event-Id"
	HeaderEntity  = "Paymo-Entity"
	HeaderAction  = "Paymo-Action"
)

const eventPrefix = "evt-"

// NATSPublisher publishes JSON-encoded lifecycle events to NATS subjects.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to the NATS server at url.
func NewNATSPublisher(url string, opts ...nats.Option) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, append([]nats.Option{nats.Name("paymo-publisher")}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{conn: nc}, nil
}

// Publish sends event on topic. Only lifecycle topics are accepted; the
// entity and action are repeated as headers so consumers can route without
// decoding the body.
func (p *NATSPublisher) Publish(ctx context.Context, topic string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entity, action, err := ParseTopic(topic)
	if err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", action, err)
	}

	msg := nats.NewMsg(topic)
	msg.Data = data
	msg.Header.Set(HeaderEntity, entity)
	msg.Header.Set(HeaderAction, action)
	if id, err := idgen.WithPrefix(eventPrefix); err == nil {
		msg.Header.Set(HeaderEventID, id)
	}
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publishing %s: %w", topic, err)
	}
	return nil
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

// DefaultBuffer is the per-subscription channel capacity.
const DefaultBuffer = 64

// NATSSubscriber receives lifecycle messages from NATS. It reconnects
// forever; a watch session should outlive a server restart.
type NATSSubscriber struct {
	conn    *nats.Conn
	buffer  int
	dropped atomic.Int64
}

// NewNATSSubscriber connects to url. Extra options (reconnect handlers and
// the like) are applied after the defaults.
func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	defaults := []nats.Option{
		nats.Name("paymo-subscriber"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSSubscriber{conn: nc, buffer: DefaultBuffer}, nil
}

// Dropped returns how many messages were discarded because a consumer fell
// behind its buffer.
func (s *NATSSubscriber) Dropped() int64 {
	return s.dropped.Load()
}

// Subscribe delivers messages for topic, which may be a wildcard such as
// TopicAll or EntityTopic. The returned cancel unsubscribes and closes the
// channel; it is safe to call more than once.
func (s *NATSSubscriber) Subscribe(topic string) (<-chan Message, func(), error) {
	sub := &subscription{ch: make(chan Message, s.buffer), dropped: &s.dropped}

	ns, err := s.conn.Subscribe(topic, sub.deliver)
	if err != nil {
		close(sub.ch)
		return nil, nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	// The interest must reach the server before publishers on other
	// connections can be routed to us.
	if err := s.conn.Flush(); err != nil {
		_ = ns.Unsubscribe()
		close(sub.ch)
		return nil, nil, fmt.Errorf("flushing subscription: %w", err)
	}
	sub.ns = ns
	return sub.ch, sub.cancel, nil
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}

type subscription struct {
	ns      *nats.Subscription
	ch      chan Message
	dropped *atomic.Int64

	mu     sync.Mutex
	closed bool
	once   sync.Once
}

func (s *subscription) deliver(msg *nats.Msg) {
	m := Message{Subject: msg.Subject, Data: msg.Data}
	if msg.Header != nil {
		m.EventID = msg.Header.Get(HeaderEventID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- m:
	default:
		s.dropped.Add(1)
	}
}

func (s *subscription) cancel() {
	s.once.Do(func() {
		_ = s.ns.Unsubscribe()
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
}
