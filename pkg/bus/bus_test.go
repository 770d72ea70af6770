package bus

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMemoryBus_PublishSubscribe(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	ctx := context.Background()
	received := make(chan *Message, 1)

	sub, err := bus.Subscribe(ctx, "test.subject", func(msg *Message) {
		received <- msg
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	if err := bus.Publish(ctx, "test.subject", []byte("hello")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-received:
		if string(msg.Data) != "hello" {
			t.Errorf("Expected 'hello', got %q", string(msg.Data))
		}
		if msg.Subject != "test.subject" {
			t.Errorf("Expected subject 'test.subject', got %q", msg.Subject)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for message")
	}
}

func TestMemoryBus_Wildcard(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	ctx := context.Background()
	var received atomic.Int32
	done := make(chan struct{}, 4)

	sub, err := bus.Subscribe(ctx, "ghostdriver.session.*", func(msg *Message) {
		received.Add(1)
		done <- struct{}{}
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	_ = bus.Publish(ctx, "ghostdriver.session.created", nil)
	_ = bus.Publish(ctx, "ghostdriver.session.deleted", nil)
	_ = bus.Publish(ctx, "ghostdriver.other.created", nil)

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Timeout waiting for wildcard delivery")
		}
	}
	if got := received.Load(); got != 2 {
		t.Errorf("Expected 2 messages, got %d", got)
	}
}

func TestMatchSubject(t *testing.T) {
	cases := []struct {
		pattern, subject string
		want             bool
	}{
		{"a.b", "a.b", true},
		{"a.*", "a.b", true},
		{"a.*", "a.b.c", false},
		{"a.>", "a.b.c", true},
		{"a.b", "a.c", false},
		{"*", "a.b", false},
	}
	for _, c := range cases {
		if got := matchSubject(c.pattern, c.subject); got != c.want {
			t.Errorf("matchSubject(%q, %q) = %v, want %v", c.pattern, c.subject, got, c.want)
		}
	}
}

func TestMemoryBus_UnsubscribeStopsDelivery(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	ctx := context.Background()
	var received atomic.Int32
	sub, err := bus.Subscribe(ctx, "x", func(msg *Message) { received.Add(1) })
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := sub.Unsubscribe(); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}
	if err := sub.Unsubscribe(); err != nil {
		t.Fatalf("second Unsubscribe should be a no-op: %v", err)
	}
	_ = bus.Publish(ctx, "x", nil)
	if received.Load() != 0 {
		t.Error("unsubscribed handler should not run")
	}
}

func TestMemoryBus_Closed(t *testing.T) {
	bus := NewMemoryBus()
	if _, err := bus.Subscribe(context.Background(), "x", func(*Message) {}); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := bus.Close(); err != ErrClosed {
		t.Errorf("second Close = %v, want ErrClosed", err)
	}
	if err := bus.Publish(context.Background(), "x", nil); err != ErrClosed {
		t.Errorf("Publish after close = %v, want ErrClosed", err)
	}
	if _, err := bus.Subscribe(context.Background(), "x", func(*Message) {}); err != ErrClosed {
		t.Errorf("Subscribe after close = %v, want ErrClosed", err)
	}
}

func TestNewSelectsMemoryWithoutURL(t *testing.T) {
	b, err := New(Config{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer b.Close()
	if _, ok := b.(*MemoryBus); !ok {
		t.Fatalf("expected *MemoryBus, got %T", b)
	}
}

func TestEventPublisher(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	ctx := context.Background()
	received := make(chan *Message, 1)
	sub, err := bus.Subscribe(ctx, "gd.session.>", func(msg *Message) { received <- msg })
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	pub := NewEventPublisher(bus, "gd.")
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	pub.now = func() time.Time { return fixed }

	if got := pub.Subject(EventSessionCreated); got != "gd.session.created" {
		t.Fatalf("Subject = %q", got)
	}
	if err := pub.Publish(ctx, SessionEvent{Type: EventSessionCreated, SessionID: "abc"}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-received:
		var evt SessionEvent
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if evt.SessionID != "abc" || evt.Type != EventSessionCreated {
			t.Errorf("unexpected event %+v", evt)
		}
		if !evt.Timestamp.Equal(fixed) {
			t.Errorf("Timestamp = %v, want %v", evt.Timestamp, fixed)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for event")
	}
}

func TestEventPublisherNilBus(t *testing.T) {
	var pub *EventPublisher
	if err := pub.Publish(context.Background(), SessionEvent{Type: EventSessionDeleted}); err != nil {
		t.Fatalf("nil publisher should drop events: %v", err)
	}
	if err := NewEventPublisher(nil, "x").Publish(context.Background(), SessionEvent{}); err != nil {
		t.Fatalf("publisher without bus should drop events: %v", err)
	}
}

func TestLogEvents(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := context.Background()
	sub, err := LogEvents(ctx, bus, "gd", zap.New(core))
	if err != nil {
		t.Fatalf("LogEvents failed: %v", err)
	}
	defer sub.Unsubscribe()

	pub := NewEventPublisher(bus, "gd")
	if err := pub.Publish(ctx, SessionEvent{Type: EventSessionDeleted, SessionID: "abc", Reason: "client"}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if err := bus.Publish(ctx, "gd.session.created", []byte("{")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for logs.Len() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	entries := logs.FilterMessage("session event").All()
	if len(entries) != 1 {
		t.Fatalf("got %d session event logs, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["session_id"] != "abc" || fields["subject"] != "gd.session.deleted" || fields["reason"] != "client" {
		t.Errorf("unexpected fields %v", fields)
	}
	if logs.FilterMessage("undecodable session event").Len() != 1 {
		t.Error("malformed event was not reported")
	}
}
