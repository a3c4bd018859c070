package storehouse

import "context"

// Notifier receives lifecycle events. Notify is called synchronously from
// the request goroutine and its outcome is not inspected; implementations
// that do slow work should hand off (see notify.Async).
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, e Event)

func (f NotifierFunc) Notify(ctx context.Context, e Event) {
	f(ctx, e)
}

// MultiNotifier delivers each event to every notifier in order.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, e Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, e)
		}
	}
}

// NopNotifier discards events.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) {}
