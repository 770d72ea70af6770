package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Session lifecycle event types.
const (
	EventSessionCreated = "session.created"
	EventSessionDeleted = "session.deleted"
)

// SessionEvent is published whenever a session starts or ends.
type SessionEvent struct {
	Type         string         `json:"type"`
	SessionID    string         `json:"sessionId"`
	Capabilities map[string]any `json:"capabilities,omitempty"`
	Reason       string         `json:"reason,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// EventPublisher serializes session events onto a bus under a subject prefix.
type EventPublisher struct {
	bus    MessageBus
	prefix string
	now    func() time.Time
}

// NewEventPublisher wraps bus. A nil bus yields a publisher that drops events.
func NewEventPublisher(bus MessageBus, prefix string) *EventPublisher {
	return &EventPublisher{
		bus:    bus,
		prefix: strings.TrimSuffix(prefix, "."),
		now:    time.Now,
	}
}

// Subject returns the full subject for an event type.
func (p *EventPublisher) Subject(eventType string) string {
	if p.prefix == "" {
		return eventType
	}
	return p.prefix + "." + eventType
}

// Publish stamps and sends the event.
func (p *EventPublisher) Publish(ctx context.Context, evt SessionEvent) error {
	if p == nil || p.bus == nil {
		return nil
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = p.now().UTC()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", evt.Type, err)
	}
	return p.bus.Publish(ctx, p.Subject(evt.Type), data)
}

// LogEvents subscribes to every session event under prefix and writes each
// one to logger at debug level.
func LogEvents(ctx context.Context, b MessageBus, prefix string, logger *zap.Logger) (Subscription, error) {
	subject := NewEventPublisher(b, prefix).Subject("session.>")
	return b.Subscribe(ctx, subject, func(msg *Message) {
		var evt SessionEvent
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			logger.Warn("undecodable session event", zap.String("subject", msg.Subject), zap.Error(err))
			return
		}
		logger.Debug("session event",
			zap.String("subject", msg.Subject),
			zap.String("session_id", evt.SessionID),
			zap.String("reason", evt.Reason),
			zap.Time("at", evt.Timestamp),
		)
	})
}
