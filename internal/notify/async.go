package notify

import (
	"context"
	"sync"
	"time"

	"resume-review/internal/shared/metrics"
)

const defaultAsyncBuffer = 256

// Async hands events to a background goroutine. When the buffer is full the event is dropped
// and counted, so Notify never blocks the caller.
type Async struct {
	next    Sink
	timeout time.Duration
	events  chan Event

	closeOnce sync.Once
	done      chan struct{}
}

// NewAsync starts delivering to next. timeout bounds each delivery; zero means 5s.
func NewAsync(next Sink, buffer int, timeout time.Duration) *Async {
	if buffer <= 0 {
		buffer = defaultAsyncBuffer
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	a := &Async{
		next:    next,
		timeout: timeout,
		events:  make(chan Event, buffer),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

// Notify enqueues ev without waiting. The caller's context is not propagated.
func (a *Async) Notify(_ context.Context, ev Event) {
	defer func() {
		// Notify after Close.
		if recover() != nil {
			metrics.IncNotificationsDropped()
		}
	}()
	select {
	case a.events <- ev:
	default:
		metrics.IncNotificationsDropped()
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (a *Async) Close() {
	a.closeOnce.Do(func() {
		close(a.events)
	})
	<-a.done
}

func (a *Async) run() {
	defer close(a.done)
	for ev := range a.events {
		a.deliver(ev)
	}
}

func (a *Async) deliver(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	defer func() {
		_ = recover()
	}()
	a.next.Notify(ctx, ev)
}
