// Package llm adapts a chat-completion model to the review.Analyzer contract.
package llm

import (
	"context"
	"errors"
)

// Message is one chat message.
type Message struct {
	Role    string
	Content string
}

// Completer returns the model's raw reply to a chat prompt.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("LLM provider not configured")

// ErrUnavailable is returned while the circuit breaker rejects calls.
var ErrUnavailable = errors.New("analyzer unavailable")

// PlaceholderClient is used when no provider is configured.
type PlaceholderClient struct{}

// Complete returns ErrNotConfigured.
func (PlaceholderClient) Complete(ctx context.Context, messages []Message) (string, error) {
	_ = ctx
	_ = messages
	return "", ErrNotConfigured
}
