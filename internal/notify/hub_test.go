package notify

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/swapengine/engine/internal/config"
	"github.com/swapengine/engine/internal/domain"
	"github.com/swapengine/engine/pkg/observability"
)

func testLogger() *observability.Logger {
	return observability.NewLogger(config.ObservabilityConfig{ServiceName: "test", LogLevel: "error", LogFormat: "json"})
}

func TestHubPublishDeliversToSubscriber(t *testing.T) {
	hub := NewHub(testLogger())
	orderID := uuid.New()
	ch := hub.Subscribe(orderID)

	hub.Publish(context.Background(), Update{OrderID: orderID, Status: domain.ProgressProcessing})

	select {
	case update := <-ch:
		if update.OrderID != orderID {
			t.Fatalf("expected update for order %s, got %s", orderID, update.OrderID)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected to receive the published update")
	}
}

func TestHubPublishIgnoresOtherOrders(t *testing.T) {
	hub := NewHub(testLogger())
	subscribed := uuid.New()
	other := uuid.New()
	ch := hub.Subscribe(subscribed)

	hub.Publish(context.Background(), Update{OrderID: other, Status: domain.ProgressProcessing})

	select {
	case <-ch:
		t.Fatalf("expected no update for an order nobody subscribed to cross-deliver")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubPublishDropsOnFullBuffer(t *testing.T) {
	hub := NewHub(testLogger())
	orderID := uuid.New()
	ch := hub.Subscribe(orderID)

	// Hub buffers 16 updates per subscriber; flood past that without draining.
	for i := 0; i < 32; i++ {
		hub.Publish(context.Background(), Update{OrderID: orderID, Status: domain.ProgressProcessing})
	}

	drained := 0
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
			drained++
		default:
			if drained == 0 {
				t.Fatalf("expected at least one buffered update to survive")
			}
			return
		}
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub(testLogger())
	orderID := uuid.New()
	ch := hub.Subscribe(orderID)
	hub.Unsubscribe(orderID, ch)

	_, ok := <-ch
	if ok {
		t.Fatalf("expected the channel to be closed after unsubscribe")
	}
}

func TestHubRemoveAllClosesEverySubscriber(t *testing.T) {
	hub := NewHub(testLogger())
	orderID := uuid.New()
	ch1 := hub.Subscribe(orderID)
	ch2 := hub.Subscribe(orderID)

	hub.RemoveAll(orderID)

	for _, ch := range []<-chan Update{ch1, ch2} {
		if _, ok := <-ch; ok {
			t.Fatalf("expected channel to be closed by RemoveAll")
		}
	}
}
