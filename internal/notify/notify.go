// Package notify carries user-visible notifications from the components that
// raise them to the response that shows them.
package notify

import (
	"context"
	"sync"
)

// Variants.
const (
	VariantDefault     = "default"
	VariantDestructive = "destructive"
)

// Notification is a short message shown to the shopper.
type Notification struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Variant     string `json:"variant"`
}

// Info builds a default notification.
func Info(title, description string) Notification {
	return Notification{Title: title, Description: description, Variant: VariantDefault}
}

// Error builds a destructive notification.
func Error(title, description string) Notification {
	return Notification{Title: title, Description: description, Variant: VariantDestructive}
}

// Notifier receives notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

func (f NotifierFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// Discard drops every notification.
var Discard Notifier = NotifierFunc(func(context.Context, Notification) {})

// maxPending bounds an inbox nobody drains.
const maxPending = 32

// Inbox queues notifications for one shopper session until the next response
// drains them. The oldest entries are dropped once maxPending is reached.
type Inbox struct {
	mu      sync.Mutex
	pending []Notification
}

func (b *Inbox) Notify(_ context.Context, n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == maxPending {
		b.pending = b.pending[1:]
	}
	b.pending = append(b.pending, n)
}

// Drain returns and removes every queued notification. It never returns nil.
func (b *Inbox) Drain() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.pending
	b.pending = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}

type ctxKey struct{}

// WithNotifier attaches n to ctx so request-scoped notifications reach the
// caller's inbox.
func WithNotifier(ctx context.Context, n Notifier) context.Context {
	return context.WithValue(ctx, ctxKey{}, n)
}

// FromContext returns the notifier attached to ctx, or Discard.
func FromContext(ctx context.Context) Notifier {
	if n, ok := ctx.Value(ctxKey{}).(Notifier); ok {
		return n
	}
	return Discard
}
