package queue

import "context"

// Client sends review jobs to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// Publisher sends an opaque payload to a queue.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
}
