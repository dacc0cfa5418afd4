// Package notify implements the notification hub: a fan-out of order
// progress events to subscribed WebSocket connections, keyed by order ID.
package notify

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/swapengine/engine/internal/domain"
	"github.com/swapengine/engine/pkg/observability"
)

// Update is one progress push delivered to subscribers of an order.
type Update struct {
	OrderID uuid.UUID             `json:"orderId"`
	Status  domain.ProgressStatus `json:"status"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// Hub fans order updates out to any number of subscribers per order. Unlike
// the audit bus, delivery here is best-effort: a slow or gone subscriber
// never blocks the orchestrator.
type Hub struct {
	logger *observability.Logger

	mu          sync.RWMutex
	subscribers map[uuid.UUID][]chan Update
}

func NewHub(logger *observability.Logger) *Hub {
	return &Hub{
		logger:      logger,
		subscribers: make(map[uuid.UUID][]chan Update),
	}
}

// Subscribe registers a buffered channel for updates on orderID. Callers
// must Unsubscribe with the same channel when done (e.g. on WS close).
func (h *Hub) Subscribe(orderID uuid.UUID) <-chan Update {
	ch := make(chan Update, 16)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[orderID] = append(h.subscribers[orderID], ch)
	return ch
}

// Unsubscribe removes ch from orderID's subscriber list and closes it.
func (h *Hub) Unsubscribe(orderID uuid.UUID, ch <-chan Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.subscribers[orderID]
	if !ok {
		return
	}
	for i, sub := range subs {
		if sub == ch {
			close(sub)
			h.subscribers[orderID] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(h.subscribers[orderID]) == 0 {
		delete(h.subscribers, orderID)
	}
}

// Publish delivers update to every current subscriber of its order,
// dropping it for any subscriber whose buffer is full rather than
// blocking the caller. Delivery happens under the same lock Unsubscribe
// and RemoveAll close channels under, so a send can never race a close.
func (h *Hub) Publish(ctx context.Context, update Update) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subscribers[update.OrderID] {
		select {
		case ch <- update:
		default:
			h.logger.Warn(ctx, "dropping order update: subscriber buffer full", map[string]interface{}{
				"orderId": update.OrderID.String(),
			})
		}
	}
}

// RemoveAll closes and clears every subscriber for orderID, used when an
// order reaches a terminal state.
func (h *Hub) RemoveAll(orderID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subscribers[orderID] {
		close(ch)
	}
	delete(h.subscribers, orderID)
}
