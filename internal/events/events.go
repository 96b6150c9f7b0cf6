// Package events publishes resource lifecycle notifications (created,
// updated, deleted) to an event bus so other processes can react to writes
// made through the engine.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Actions carried in the last topic segment.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// TopicPrefix is the first segment of every topic.
const TopicPrefix = "paymo"

// TopicAll matches every lifecycle topic.
const TopicAll = TopicPrefix + ".>"

// Topic returns the subject for an entity action, e.g. "paymo.task.created".
func Topic(entity, action string) string {
	return TopicPrefix + "." + entity + "." + action
}

// EntityTopic matches every action for one entity type.
func EntityTopic(entity string) string {
	return TopicPrefix + "." + entity + ".*"
}

// ParseTopic splits a lifecycle topic into entity and action.
func ParseTopic(topic string) (entity, action string, err error) {
	parts := strings.Split(topic, ".")
	if len(parts) != 3 || parts[0] != TopicPrefix {
		return "", "", fmt.Errorf("not a lifecycle topic: %q", topic)
	}
	return parts[1], parts[2], nil
}

// Event types

type ResourceCreated struct {
	Action string         `json:"action"`
	Entity string         `json:"entity"`
	ID     int64          `json:"id"`
	Record map[string]any `json:"record"`
	At     time.Time      `json:"at"`
}

type ResourceUpdated struct {
	Action  string         `json:"action"`
	Entity  string         `json:"entity"`
	ID      int64          `json:"id"`
	Changes map[string]any `json:"changes"` // field name -> new value
	At      time.Time      `json:"at"`
}

type ResourceDeleted struct {
	Action string    `json:"action"`
	Entity string    `json:"entity"`
	ID     int64     `json:"id"`
	At     time.Time `json:"at"`
}

// Envelope is the union of the event payloads, used by consumers that
// subscribe to several topics at once.
type Envelope struct {
	Action  string         `json:"action"`
	Entity  string         `json:"entity"`
	ID      int64          `json:"id"`
	Record  map[string]any `json:"record,omitempty"`
	Changes map[string]any `json:"changes,omitempty"`
	At      time.Time      `json:"at"`
}

// Decode parses a raw payload received from a Subscriber.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decoding event: %w", err)
	}
	return env, nil
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
