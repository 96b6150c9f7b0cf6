package events

import "context"

// NoopPublisher is a Publisher that does nothing (used when no event bus is
// configured).
type NoopPublisher struct{}

func (n *NoopPublisher) Publish(ctx context.Context, topic string, event any) error {
	return nil
}

func (n *NoopPublisher) Close() error {
	return nil
}

// Recorder is a Publisher that keeps every event in memory, for tests and
// dry runs.
type Recorder struct {
	Events []Recorded
}

// Recorded is one captured publication.
type Recorded struct {
	Topic string
	Event any
}

func (r *Recorder) Publish(ctx context.Context, topic string, event any) error {
	r.Events = append(r.Events, Recorded{Topic: topic, Event: event})
	return nil
}

func (r *Recorder) Close() error {
	return nil
}

// Topics returns the recorded topics in publication order.
func (r *Recorder) Topics() []string {
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Topic
	}
	return out
}
