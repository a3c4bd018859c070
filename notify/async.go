package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sagarc03/storehouse"
)

type queued struct {
	ctx   context.Context
	event storehouse.Event
}

// Async delivers events to next from a single worker goroutine, in order.
// When the queue is full the event is dropped and a warning logged; the
// request never waits on a slow sink.
type Async struct {
	next   storehouse.Notifier
	logger *slog.Logger
	queue  chan queued
	done   chan struct{}

	mu     sync.RWMutex
	closed bool

	// OnDrop is called for every dropped event.
	OnDrop func(e storehouse.Event)
}

// NewAsync starts the worker. size is the queue capacity.
func NewAsync(next storehouse.Notifier, size int, logger *slog.Logger) *Async {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &Async{
		next:   next,
		logger: logger,
		queue:  make(chan queued, size),
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) run() {
	defer close(a.done)
	for q := range a.queue {
		a.next.Notify(q.ctx, q.event)
	}
}

// Notify enqueues e. The request context's cancellation is detached so a
// finished request does not cancel its own events.
func (a *Async) Notify(ctx context.Context, e storehouse.Event) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		a.drop(ctx, e, "closed")
		return
	}

	select {
	case a.queue <- queued{ctx: context.WithoutCancel(ctx), event: e}:
	default:
		a.drop(ctx, e, "queue full")
	}
}

func (a *Async) drop(ctx context.Context, e storehouse.Event, reason string) {
	a.logger.WarnContext(ctx, "dropping lifecycle event",
		"kind", string(e.Kind),
		"path", e.Path,
		"reason", reason,
	)
	if a.OnDrop != nil {
		a.OnDrop(e)
	}
}

// Close stops accepting events and waits until queued ones are delivered.
func (a *Async) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		<-a.done
		return
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	<-a.done
}
