// Package notify delivers review progress events. Sinks are fire-and-forget: Notify never
// returns an error and callers never wait on delivery.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"resume-review/internal/queue"
	"resume-review/internal/shared/telemetry"
)

// Kind classifies an event.
type Kind string

const (
	KindStarted   Kind = "started"
	KindCompleted Kind = "completed"
	KindError     Kind = "error"
)

// Event is one observation of review progress.
type Event struct {
	SessionID  string    `json:"sessionId"`
	DocumentID string    `json:"documentId"`
	Stage      string    `json:"stage"`
	Kind       Kind      `json:"kind"`
	Message    string    `json:"message"`
	At         time.Time `json:"at"`
}

// Sink receives events.
type Sink interface {
	Notify(ctx context.Context, ev Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event)

func (f SinkFunc) Notify(ctx context.Context, ev Event) { f(ctx, ev) }

// Nop discards events.
type Nop struct{}

func (Nop) Notify(context.Context, Event) {}

// LogSink writes events to the structured log.
type LogSink struct{}

func (LogSink) Notify(_ context.Context, ev Event) {
	fields := map[string]any{
		"session_id":  ev.SessionID,
		"document_id": ev.DocumentID,
		"stage":       ev.Stage,
		"kind":        string(ev.Kind),
		"message":     ev.Message,
	}
	if ev.Kind == KindError {
		telemetry.Warn("review.notify", fields)
		return
	}
	telemetry.Info("review.notify", fields)
}

// QueueSink publishes events as JSON to a queue.
type QueueSink struct {
	Publisher queue.Publisher
}

func (s QueueSink) Notify(ctx context.Context, ev Event) {
	if s.Publisher == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		telemetry.Warn("notify.encode_failed", map[string]any{"error": err.Error()})
		return
	}
	if err := s.Publisher.Publish(ctx, payload); err != nil {
		telemetry.Warn("notify.publish_failed", map[string]any{
			"session_id": ev.SessionID,
			"stage":      ev.Stage,
			"error":      err.Error(),
		})
	}
}

// Multi fans an event out to every sink in order.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, ev Event) {
	for _, s := range m {
		if s != nil {
			s.Notify(ctx, ev)
		}
	}
}
