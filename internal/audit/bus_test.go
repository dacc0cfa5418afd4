package audit

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/swapengine/engine/internal/domain"
)

func TestBusEmitAssignsMonotonicVersionsPerOrder(t *testing.T) {
	bus := NewBus(nil)
	var received []domain.AuditRecord
	bus.Register(ListenerFunc(func(ctx context.Context, record domain.AuditRecord) {
		received = append(received, record)
	}))

	orderA := uuid.New()
	orderB := uuid.New()

	bus.Emit(context.Background(), orderA, domain.EventOrderCreated, nil)
	bus.Emit(context.Background(), orderA, domain.EventExecStarted, nil)
	bus.Emit(context.Background(), orderB, domain.EventOrderCreated, nil)

	if len(received) != 3 {
		t.Fatalf("expected 3 dispatched records, got %d", len(received))
	}
	if received[0].EventVersion != 1 || received[1].EventVersion != 2 {
		t.Fatalf("expected order A's events to be versioned 1, 2; got %d, %d", received[0].EventVersion, received[1].EventVersion)
	}
	if received[2].EventVersion != 1 {
		t.Fatalf("expected order B's first event to start at version 1, got %d", received[2].EventVersion)
	}
}

func TestBusDispatchesToEveryListener(t *testing.T) {
	bus := NewBus(nil)
	var calls int
	bus.Register(ListenerFunc(func(ctx context.Context, record domain.AuditRecord) { calls++ }))
	bus.Register(ListenerFunc(func(ctx context.Context, record domain.AuditRecord) { calls++ }))

	bus.Emit(context.Background(), uuid.New(), domain.EventOrderCreated, nil)
	if calls != 2 {
		t.Fatalf("expected both listeners to be called, got %d calls", calls)
	}
}

func TestBusIsolatesPanickingListener(t *testing.T) {
	bus := NewBus(nil)
	var sawEvent bool
	bus.Register(ListenerFunc(func(ctx context.Context, record domain.AuditRecord) {
		panic("listener exploded")
	}))
	bus.Register(ListenerFunc(func(ctx context.Context, record domain.AuditRecord) {
		sawEvent = true
	}))

	// Must not panic out of Emit, and the second listener must still run.
	bus.Emit(context.Background(), uuid.New(), domain.EventOrderCreated, nil)
	if !sawEvent {
		t.Fatalf("expected the second listener to still be dispatched after the first panicked")
	}
}

func TestBusEmitReturnsTheRecord(t *testing.T) {
	bus := NewBus(nil)
	orderID := uuid.New()
	record := bus.Emit(context.Background(), orderID, domain.EventOrderCreated, map[string]interface{}{"tokenIn": "SOL"})
	if record.OrderID != orderID {
		t.Fatalf("expected returned record to carry the order ID")
	}
	if record.EventType != domain.EventOrderCreated {
		t.Fatalf("expected returned record to carry the event type")
	}
	if record.EventData["tokenIn"] != "SOL" {
		t.Fatalf("expected returned record to carry the event data")
	}
}
