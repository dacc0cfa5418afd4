// Package audit implements the engine's synchronous, in-process audit event
// bus: a typed multicaster over a closed event set, dispatching to any
// number of isolated listeners.
package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/swapengine/engine/internal/domain"
	"github.com/swapengine/engine/pkg/observability"
)

// Listener receives every emitted event in order. Listeners are expected to
// be side-effect-free and quick; panics and errors never propagate to the
// emitter.
type Listener interface {
	Handle(ctx context.Context, record domain.AuditRecord)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ctx context.Context, record domain.AuditRecord)

func (f ListenerFunc) Handle(ctx context.Context, record domain.AuditRecord) { f(ctx, record) }

// Bus is a synchronous in-process multicaster. Emission assigns a
// strictly-increasing EventVersion per order, guarded by per-order
// sequencing, then calls every registered listener in turn.
type Bus struct {
	logger    *observability.Logger
	mu        sync.Mutex
	listeners []Listener
	versions  map[uuid.UUID]int
}

// NewBus creates an audit bus. Listeners should be registered before the
// engine starts processing orders.
func NewBus(logger *observability.Logger) *Bus {
	return &Bus{
		logger:   logger,
		versions: make(map[uuid.UUID]int),
	}
}

// Register adds a listener. Not safe to call concurrently with Emit.
func (b *Bus) Register(l Listener) {
	b.listeners = append(b.listeners, l)
}

// Emit assigns the next EventVersion for orderID and dispatches the event to
// every listener synchronously, isolating listener panics.
func (b *Bus) Emit(ctx context.Context, orderID uuid.UUID, eventType domain.EventType, data map[string]interface{}) domain.AuditRecord {
	b.mu.Lock()
	b.versions[orderID]++
	version := b.versions[orderID]
	b.mu.Unlock()

	record := domain.AuditRecord{
		ID:           uuid.New(),
		OrderID:      orderID,
		EventType:    eventType,
		EventData:    data,
		EventVersion: version,
		Timestamp:    time.Now().UTC(),
	}

	for _, l := range b.listeners {
		b.dispatchSafely(ctx, l, record)
	}
	return record
}

// dispatchSafely calls a listener, recovering and logging any panic or
// error so one misbehaving listener can never affect the emitter or its
// siblings.
func (b *Bus) dispatchSafely(ctx context.Context, l Listener, record domain.AuditRecord) {
	defer func() {
		if r := recover(); r != nil {
			if b.logger != nil {
				b.logger.Error(ctx, "audit listener panicked", fmt.Errorf("%v", r), map[string]interface{}{
					"event_type": record.EventType,
					"order_id":   record.OrderID.String(),
				})
			}
		}
	}()
	l.Handle(ctx, record)
}
