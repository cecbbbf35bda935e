// Package events carries document and catalog changes from the org service
// to the autosaver and the activity feed.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// EventHandler reacts to one org-chart event.
type EventHandler func(context.Context, Event) error

// Dispatcher fans document and catalog events out to subscribers.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// syncDispatcher runs subscribers on the publishing goroutine, in the order
// they subscribed. The org service publishes under its lock, so the
// autosaver sees document versions in mutation order.
type syncDispatcher struct {
	mu          sync.RWMutex
	subscribers map[EventType][]EventHandler
}

// NewInMemoryDispatcher returns a synchronous in-process dispatcher.
func NewInMemoryDispatcher() Dispatcher {
	return &syncDispatcher{subscribers: make(map[EventType][]EventHandler)}
}

// Publish delivers event to every subscriber of its type. A failing
// subscriber does not stop later ones; all failures come back joined.
func (d *syncDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	handlers := append([]EventHandler(nil), d.subscribers[event.Type]...)
	d.mu.RUnlock()

	var errs []error
	for i, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%s subscriber %d: %w", event.Type, i, err))
		}
	}
	return errors.Join(errs...)
}

// Subscribe appends handler to the subscribers of eventType.
func (d *syncDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers[eventType] = append(d.subscribers[eventType], handler)
}
