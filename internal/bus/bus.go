// Package bus propagates session changes to every interested party: the
// instance that made the change (in-process, synchronous) and, when redis
// is configured, every other running instance. This is the counterpart of
// the web client's custom event + storage event pair.
package bus

import (
	"context"
	"sync"

	"docchat/internal/models"
)

// Handler receives the announced session. A nil session means it was
// cleared. Handlers must be idempotent under duplicate delivery.
type Handler func(*models.Session)

// Bus delivers announced sessions to subscribers.
type Bus interface {
	// Announce delivers the session to all subscribers. In-process
	// subscribers observe announcements synchronously and in call order.
	Announce(ctx context.Context, s *models.Session) error

	// Subscribe registers a handler and returns its unsubscribe func.
	Subscribe(h Handler) (unsubscribe func())

	Close() error
}

type subscriber struct {
	id int
	h  Handler
}

// Local is the in-process bus. It is both the standalone Bus used without
// redis and the delivery fan-out inside the redis adapter.
type Local struct {
	mu   sync.Mutex
	next int
	subs []subscriber
}

// NewLocal creates an in-process bus.
func NewLocal() *Local {
	return &Local{}
}

// Announce implements Bus. Each subscriber receives its own copy so no
// handler can mutate the value seen by another.
func (b *Local) Announce(ctx context.Context, s *models.Session) error {
	b.mu.Lock()
	subs := make([]subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.h(s.Clone())
	}
	return nil
}

// Subscribe implements Bus.
func (b *Local) Subscribe(h Handler) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs = append(b.subs, subscriber{id: id, h: h})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, sub := range b.subs {
			if sub.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Close implements Bus.
func (b *Local) Close() error {
	b.mu.Lock()
	b.subs = nil
	b.mu.Unlock()
	return nil
}
