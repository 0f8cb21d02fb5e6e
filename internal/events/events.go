// Package events provides in-process pub/sub used to fan committed
// scheduling decisions out to best-effort consumers (notifications,
// cache invalidation).
package events

import (
	"sync"
	"time"
)

// Well-known event types.
const (
	ReservationCreated   = "reservation.created"
	ReservationCancelled = "reservation.cancelled"
	RequestSubmitted     = "rooftop.request.submitted"
	RequestApproved      = "rooftop.request.approved"
	RequestRejected      = "rooftop.request.rejected"
	RequestCancelled     = "rooftop.request.cancelled"
)

// Event is a lightweight domain event. Payload carries the affected
// entity (a *models.Booking, *models.RooftopRequest, ...).
type Event struct {
	Type      string
	Payload   any
	CreatedAt time.Time
}

// Handler reacts to an event. Handlers run synchronously on the
// publishing goroutine and must not block.
type Handler func(event Event)

// Bus provides in-process pub/sub for events.
type Bus struct {
	subscribers map[string][]Handler
	mu          sync.RWMutex
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type. A nil bus is a no-op
// so services can run without wiring one.
func (b *Bus) Publish(event Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		handler(event)
	}
}
