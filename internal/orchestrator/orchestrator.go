// Package orchestrator drives one order through its full execution
// lifecycle: load & validate, enter processing, fetch quotes, select a
// venue, submit the swap, and finalize success or failure.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/swapengine/engine/internal/audit"
	"github.com/swapengine/engine/internal/domain"
	"github.com/swapengine/engine/internal/notify"
	"github.com/swapengine/engine/internal/store"
	"github.com/swapengine/engine/internal/venue"
	"github.com/swapengine/engine/pkg/observability"
)

// Orchestrator implements worker.Processor: it is the single place that
// advances an order's state machine.
type Orchestrator struct {
	store      *store.OrderStore
	registry   *venue.Registry
	aggregator *venue.Aggregator
	bus        *audit.Bus
	hub        *notify.Hub
	logger     *observability.Logger
	metrics    *observability.MetricsProvider
	wallet     string
}

func New(orderStore *store.OrderStore, registry *venue.Registry, aggregator *venue.Aggregator, bus *audit.Bus, hub *notify.Hub, logger *observability.Logger, metrics *observability.MetricsProvider, wallet string) *Orchestrator {
	return &Orchestrator{
		store:      orderStore,
		registry:   registry,
		aggregator: aggregator,
		bus:        bus,
		hub:        hub,
		logger:     logger,
		metrics:    metrics,
		wallet:     wallet,
	}
}

// Process runs one execution attempt for job.OrderID. A non-nil return
// tells the worker pool to Nack (retry with backoff); nil tells it to Ack.
// Terminal outcomes — success, non-retriable failure, or exhausted
// retries — are always acked, even when the attempt itself failed, because
// the order's persisted state has already reached a terminal status.
func (o *Orchestrator) Process(ctx context.Context, job domain.ExecutionJob) error {
	order, err := o.store.FindByID(ctx, job.OrderID)
	if err != nil {
		o.logger.Error(ctx, "orchestrator: load order failed", err, map[string]interface{}{"orderId": job.OrderID.String()})
		return nil // nothing to retry against; drop the job
	}
	if order.Status.IsTerminal() {
		return nil // already finalized by a previous attempt or a cancel race
	}
	if !order.Amount.IsPositive() {
		return o.finalizeAttempt(ctx, order, domain.NewError(domain.KindInvalidOrder, "order amount is not positive"))
	}

	if order.Status != domain.StatusProcessing {
		if _, err := o.store.UpdateStatus(ctx, order.ID, domain.StatusProcessing); err != nil {
			return err
		}
	}
	o.emit(ctx, order.ID, domain.EventExecStarted, domain.ProgressProcessing, nil)

	quoteStart := time.Now()
	quoteSet := o.aggregator.GetAllQuotes(ctx, order.TokenIn, order.TokenOut, order.Amount, order.SlippageTolerance)
	o.metrics.RecordQuoteFetch(ctx, len(quoteSet.Quotes)+len(quoteSet.Errors), time.Since(quoteStart))
	o.emit(ctx, order.ID, domain.EventExecQuotesFetched, domain.ProgressProcessing, map[string]interface{}{
		"quoteCount": len(quoteSet.Quotes),
		"errorCount": len(quoteSet.Errors),
	})

	if cancelled, err := o.cancelledInFlight(ctx, order.ID); err != nil || cancelled {
		return err
	}

	best, ok := venue.GetBestQuote(quoteSet)
	if !ok {
		return o.finalizeAttempt(ctx, order, domain.NewError(domain.KindNoQuotes, "no venue returned a usable quote"))
	}

	o.emit(ctx, order.ID, domain.EventExecDexSelected, domain.ProgressRouting, map[string]interface{}{
		"venue":     best.VenueName,
		"amountOut": best.AmountOut.String(),
	})

	adapter, ok := o.registry.Get(best.VenueName)
	if !ok {
		return o.finalizeAttempt(ctx, order, domain.NewError(domain.KindUnavailable, fmt.Sprintf("selected venue %s not registered", best.VenueName)))
	}

	if cancelled, err := o.cancelledInFlight(ctx, order.ID); err != nil || cancelled {
		return err
	}
	o.emit(ctx, order.ID, domain.EventExecSwapSubmitted, domain.ProgressSubmitted, map[string]interface{}{"venue": best.VenueName})

	swapStart := time.Now()
	result, err := adapter.ExecuteSwap(ctx, best, o.wallet)
	o.metrics.RecordSwapExecution(ctx, best.VenueName, err == nil, time.Since(swapStart))
	if err != nil {
		return o.finalizeAttempt(ctx, order, err)
	}

	return o.finalizeSuccess(ctx, order, best, result)
}

// cancelledInFlight re-reads order's persisted status and reports whether it
// has reached a terminal state (a cancel racing the in-flight attempt) since
// Process started. A cancelled order must never have its quote/routing
// progress overwrite the terminal row, so every step between load and swap
// submission checks again rather than trusting the status read at the top
// of Process.
func (o *Orchestrator) cancelledInFlight(ctx context.Context, orderID uuid.UUID) (bool, error) {
	current, err := o.store.FindByID(ctx, orderID)
	if err != nil {
		o.logger.Error(ctx, "orchestrator: reload order failed", err, map[string]interface{}{"orderId": orderID.String()})
		return false, nil // treat as not cancelled; the attempt carries on
	}
	return current.Status.IsTerminal(), nil
}

func (o *Orchestrator) finalizeSuccess(ctx context.Context, order *domain.Order, quote domain.Quote, result domain.SwapResult) error {
	now := result.ExecutedAt
	patch := store.OrderPatch{
		Status:          ptrStatus(domain.StatusCompleted),
		SelectedVenue:   ptrString(result.VenueName),
		ExecutedPrice:   ptrDecimal(result.ExecutionPrice),
		TransactionHash: ptrString(result.Signature),
		ConfirmedAt:     &now,
	}
	updated, err := o.store.Update(ctx, order.ID, patch)
	if err != nil {
		if domain.KindOf(err) == domain.KindConflict {
			// The order reached a terminal state (e.g. cancelled) while this
			// attempt was in flight. The swap already executed on-chain, but
			// the persisted order must stay in whatever terminal state beat
			// us here, not flip back to completed.
			o.logger.Warn(ctx, "orchestrator: swap succeeded but order already terminal, dropping result", map[string]interface{}{"orderId": order.ID.String()})
			return nil
		}
		return err
	}

	o.emit(ctx, order.ID, domain.EventExecSwapConfirmed, domain.ProgressCompleted, map[string]interface{}{
		"venue":           result.VenueName,
		"transactionHash": result.Signature,
	})
	o.emit(ctx, order.ID, domain.EventOrderConfirmed, domain.ProgressCompleted, nil)
	o.hub.Publish(ctx, notify.Update{OrderID: order.ID, Status: domain.ProgressCompleted, Data: map[string]interface{}{
		"transactionHash": result.Signature,
		"executedPrice":   result.ExecutionPrice.String(),
	}})
	o.hub.RemoveAll(order.ID)
	o.metrics.RecordOrderTerminal(ctx, result.VenueName, true)
	_ = updated
	return nil
}

// finalizeAttempt handles a failed attempt: retriable errors under the
// retry budget go back to pending (a queue Nack requeues the job);
// everything else — non-retriable errors or an exhausted retry budget —
// is a terminal failure.
func (o *Orchestrator) finalizeAttempt(ctx context.Context, order *domain.Order, cause error) error {
	kind := domain.KindOf(cause)

	if domain.Retriable(kind) && order.RetryCount < order.MaxRetries {
		newCount := order.RetryCount + 1
		patch := store.OrderPatch{
			Status:       ptrStatus(domain.StatusPending),
			RetryCount:   &newCount,
			ErrorMessage: ptrString(cause.Error()),
		}
		if _, err := o.store.Update(ctx, order.ID, patch); err != nil {
			if domain.KindOf(err) == domain.KindConflict {
				return nil // order already reached a terminal state; nothing to retry
			}
			return err
		}
		o.emit(ctx, order.ID, domain.EventExecRetrying, domain.ProgressFailed, map[string]interface{}{
			"attempt": newCount,
			"error":   cause.Error(),
		})
		return cause // Nack: requeue with backoff
	}

	if _, err := o.store.Update(ctx, order.ID, store.OrderPatch{
		Status:       ptrStatus(domain.StatusFailed),
		ErrorMessage: ptrString(cause.Error()),
	}); err != nil {
		if domain.KindOf(err) == domain.KindConflict {
			return nil // order already reached a terminal state; nothing to retry
		}
		return err
	}
	o.emit(ctx, order.ID, domain.EventExecFailed, domain.ProgressFailed, map[string]interface{}{"error": cause.Error()})
	o.emit(ctx, order.ID, domain.EventOrderFailed, domain.ProgressFailed, map[string]interface{}{"error": cause.Error()})
	o.hub.Publish(ctx, notify.Update{OrderID: order.ID, Status: domain.ProgressFailed, Data: map[string]interface{}{"error": cause.Error()}})
	o.hub.RemoveAll(order.ID)
	o.metrics.RecordOrderTerminal(ctx, order.SelectedVenue, false)
	return nil // terminal: ack, do not retry
}

func (o *Orchestrator) emit(ctx context.Context, orderID uuid.UUID, eventType domain.EventType, progress domain.ProgressStatus, data map[string]interface{}) {
	o.bus.Emit(ctx, orderID, eventType, data)
	o.hub.Publish(ctx, notify.Update{OrderID: orderID, Status: progress, Data: data})
}

func ptrStatus(s domain.OrderStatus) *domain.OrderStatus { return &s }
func ptrString(s string) *string                         { return &s }
func ptrDecimal(d decimal.Decimal) *decimal.Decimal       { return &d }
