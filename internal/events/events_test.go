package events

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

func TestTopic(t *testing.T) {
	for _, tc := range []struct {
		entity, action, want string
	}{
		{"task", ActionCreated, "paymo.task.created"},
		{"timeentry", ActionUpdated, "paymo.timeentry.updated"},
		{"project", ActionDeleted, "paymo.project.deleted"},
	} {
		if got := Topic(tc.entity, tc.action); got != tc.want {
			t.Errorf("Topic(%q, %q) = %q, want %q", tc.entity, tc.action, got, tc.want)
		}
		entity, action, err := ParseTopic(tc.want)
		if err != nil || entity != tc.entity || action != tc.action {
			t.Errorf("ParseTopic(%q) = %q, %q, %v", tc.want, entity, action, err)
		}
	}
	if got := EntityTopic("task"); got != "paymo.task.*" {
		t.Errorf("EntityTopic = %q", got)
	}
}

func TestParseTopic_Invalid(t *testing.T) {
	for _, topic := range []string{"", "paymo.task", "beads.bead.created", "paymo.task.created.extra"} {
		if _, _, err := ParseTopic(topic); err == nil {
			t.Errorf("ParseTopic(%q) error = nil, want error", topic)
		}
	}
}

func TestDecode(t *testing.T) {
	data, err := json.Marshal(ResourceUpdated{Action: ActionUpdated, Entity: "task", ID: 7, Changes: map[string]any{"name": "New"}})
	if err != nil {
		t.Fatal(err)
	}
	env, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if env.Action != ActionUpdated || env.Entity != "task" || env.ID != 7 || env.Changes["name"] != "New" {
		t.Errorf("Decode = %+v", env)
	}
	if _, err := Decode([]byte("not json")); err == nil {
		t.Error("Decode(garbage) error = nil")
	}
}

func TestNoopPublisher_Publish(t *testing.T) {
	pub := &NoopPublisher{}
	err := pub.Publish(context.Background(), Topic("task", ActionCreated), ResourceCreated{})
	if err != nil {
		t.Fatalf("NoopPublisher.Publish returned unexpected error: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("NoopPublisher.Close returned unexpected error: %v", err)
	}
}

func TestRecorder(t *testing.T) {
	rec := &Recorder{}
	_ = rec.Publish(context.Background(), Topic("task", ActionCreated), ResourceCreated{ID: 1})
	_ = rec.Publish(context.Background(), Topic("task", ActionDeleted), ResourceDeleted{ID: 1})

	got := rec.Topics()
	if len(got) != 2 || got[0] != "paymo.task.created" || got[1] != "paymo.task.deleted" {
		t.Errorf("Topics() = %v", got)
	}
}

func TestPublishersImplementPublisher(t *testing.T) {
	var _ Publisher = (*NoopPublisher)(nil)
	var _ Publisher = (*Recorder)(nil)
	var _ Publisher = (*NATSPublisher)(nil)
}

func TestNATSPublisher_Publish(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	// Subscribe to capture published messages.
	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer nc.Close()

	topic := Topic("task", ActionCreated)
	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe(topic, ch)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Unsubscribe() //nolint:errcheck
	nc.Flush()

	event := ResourceCreated{Entity: "task", ID: 42, Record: map[string]any{"name": "Write docs"}, At: time.Now().UTC()}
	if err := pub.Publish(context.Background(), topic, event); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	pub.conn.Flush()

	select {
	case msg := <-ch:
		var got ResourceCreated
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.ID != 42 || got.Record["name"] != "Write docs" {
			t.Errorf("got %+v", got)
		}
		if e, a := msg.Header.Get(HeaderEntity), msg.Header.Get(HeaderAction); e != "task" || a != ActionCreated {
			t.Errorf("headers = %q, %q", e, a)
		}
		if id := msg.Header.Get(HeaderEventID); !strings.HasPrefix(id, "evt-") {
			t.Errorf("event id = %q", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestNATSPublisher_RejectsForeignTopic(t *testing.T) {
	url := startTestNATS(t)
	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	if err := pub.Publish(context.Background(), "other.task.created", ResourceDeleted{}); err == nil {
		t.Fatal("expected error for non-lifecycle topic")
	}
}

func TestNATSPublisher_CancelledContext(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pub.Publish(ctx, Topic("task", ActionCreated), ResourceCreated{}); err == nil {
		t.Error("expected error publishing with cancelled context")
	}
}

func TestNATSPublisher_Close(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}

	if err := pub.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	// Publishing after close should fail.
	err = pub.Publish(context.Background(), Topic("task", ActionCreated), ResourceCreated{})
	if err == nil {
		t.Error("expected error publishing after close")
	}
}
