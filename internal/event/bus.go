// internal/event/bus.go

// Package event delivers lifecycle events to registered collaborators.
package event

import (
	"context"
	"log"
	"sync"

	"spotshare/internal/domain/spot"
)

// Handler consumes one lifecycle event. Handlers run after the state
// transition has committed; returning an error never rolls it back.
type Handler func(ctx context.Context, ev spot.Event) error

// Bus is a typed in-process publish mechanism. Delivery is best-effort and
// asynchronous so a slow or failing collaborator can never block a lifecycle
// mutation that already committed.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	wg       sync.WaitGroup
}

// NewBus creates a bus with no handlers
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for all lifecycle events
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers = append(b.handlers, h)
}

// Emit delivers ev to every registered handler on its own goroutine. Handler
// errors and panics are logged and isolated.
func (b *Bus) Emit(ctx context.Context, ev spot.Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Recovered panic in event handler for %s event on spot %s: %v", ev.Kind(), ev.Spot(), r)
				}
			}()

			if err := h(ctx, ev); err != nil {
				log.Printf("Error handling %s event for spot %s: %v", ev.Kind(), ev.Spot(), err)
			}
		}(h)
	}
}

// Drain blocks until all in-flight deliveries finish or ctx is done
func (b *Bus) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
