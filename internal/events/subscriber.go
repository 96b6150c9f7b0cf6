package events

// Subscriber receives lifecycle events from the event bus.
type Subscriber interface {
	// Subscribe delivers messages on the returned channel until the returned
	// cancel function is called.
	Subscribe(topic string) (<-chan Message, func(), error)
	Close() error
}

// Message is one lifecycle event as received off the bus.
type Message struct {
	Subject string
	EventID string
	Data    []byte
}

// Envelope decodes the payload. Entity and action missing from the body are
// taken from the subject, so older publishers that omit them still decode.
func (m Message) Envelope() (Envelope, error) {
	env, err := Decode(m.Data)
	if err != nil {
		return Envelope{}, err
	}
	if env.Entity == "" || env.Action == "" {
		if entity, action, err := ParseTopic(m.Subject); err == nil {
			if env.Entity == "" {
				env.Entity = entity
			}
			if env.Action == "" {
				env.Action = action
			}
		}
	}
	return env, nil
}
