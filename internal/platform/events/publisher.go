// Package events provides a fire-and-forget NATS publisher for editor
// save events. Downstream consumers (search indexing, notifications)
// subscribe to editor.saved.* and editor.save_failed.*.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// SaveEvent is the canonical envelope sent on every terminal save state.
type SaveEvent struct {
	EventID    string    `json:"event_id"`
	CourseID   string    `json:"course_id"`
	Category   string    `json:"category"`
	Key        string    `json:"key"`
	Success    bool      `json:"success"`
	Message    string    `json:"message,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher publishes save events to NATS JetStream.
// The zero value and a nil pointer are both safe no-op stubs.
type Publisher struct {
	js  nats.JetStreamContext
	log *zap.Logger
}

// New creates a Publisher using an existing JetStream context.
// Pass js=nil to get a no-op stub (useful in tests and deployments without NATS).
func New(js nats.JetStreamContext, log *zap.Logger) *Publisher {
	return &Publisher{js: js, log: log}
}

// Publish sends a save event asynchronously (fire-and-forget).
// Failures are logged as warnings and never surface to the caller.
// Safe to call with a nil receiver.
func (p *Publisher) Publish(courseID, category, key string, success bool, message string) {
	if p == nil || p.js == nil {
		return
	}
	subject := "editor.saved." + category
	if !success {
		subject = "editor.save_failed." + category
	}
	ev := SaveEvent{
		EventID:    uuid.NewString(),
		CourseID:   courseID,
		Category:   category,
		Key:        key,
		Success:    success,
		Message:    message,
		OccurredAt: time.Now().UTC(),
	}
	data, err := json.Marshal(ev)
	if err != nil {
		p.log.Warn("events: marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	if _, err := p.js.PublishAsync(subject, data); err != nil {
		p.log.Warn("events: publish failed", zap.String("subject", subject), zap.Error(err))
	}
}
