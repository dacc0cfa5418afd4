// Package domain holds the core types of the swap execution engine: orders,
// their state machine, quotes, swap results, and audit records.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the persisted lifecycle state of an order. Only the values
// in the CHECK-constrained set below are ever written to the orders table;
// the in-memory-only progress states (routing, submitted) are reported to
// the audit bus and notification hub but never persisted here.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusCompleted OrderStatus = "completed"
	StatusFailed    OrderStatus = "failed"
	StatusCancelled OrderStatus = "cancelled"
)

// ProgressStatus is the wider set of states reported over audit/push during
// execution but never written to Order.Status.
type ProgressStatus string

const (
	ProgressProcessing ProgressStatus = "processing"
	ProgressRouting    ProgressStatus = "routing"
	ProgressSubmitted  ProgressStatus = "submitted"
	ProgressCompleted  ProgressStatus = "completed"
	ProgressFailed     ProgressStatus = "failed"
)

// IsTerminal reports whether status allows no further transitions.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

const (
	DefaultSlippageTolerance = 0.5
	DefaultMaxRetries        = 3
	MaxAllowedRetries        = 10
)

// Order is the central persisted entity of the engine.
type Order struct {
	ID                uuid.UUID       `json:"id"`
	TokenIn           string          `json:"tokenIn"`
	TokenOut          string          `json:"tokenOut"`
	Amount            decimal.Decimal `json:"amount"`
	Status            OrderStatus     `json:"status"`
	SlippageTolerance decimal.Decimal `json:"slippageTolerance"`
	MaxRetries        int             `json:"maxRetries"`
	RetryCount        int             `json:"retryCount"`
	SelectedVenue     string          `json:"selectedVenue,omitempty"`
	ExecutedPrice     decimal.Decimal `json:"executedPrice,omitempty"`
	TransactionHash   string          `json:"transactionHash,omitempty"`
	ErrorMessage      string          `json:"errorMessage,omitempty"`
	ConfirmedAt       *time.Time      `json:"confirmedAt,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// CreateOrderInput is the user-supplied payload for order creation.
type CreateOrderInput struct {
	TokenIn           string
	TokenOut          string
	Amount            decimal.Decimal
	SlippageTolerance *decimal.Decimal
	MaxRetries        *int
}

// Validate enforces the create-time invariants on a new order.
func (in CreateOrderInput) Validate() error {
	if in.TokenIn == "" || in.TokenOut == "" {
		return NewError(KindValidation, "tokenIn and tokenOut are required")
	}
	if in.TokenIn == in.TokenOut {
		return NewError(KindValidation, "tokenIn and tokenOut must differ")
	}
	if !in.Amount.IsPositive() {
		return NewError(KindValidation, "amount must be positive")
	}
	if in.SlippageTolerance != nil {
		s := *in.SlippageTolerance
		if s.IsNegative() || s.GreaterThan(decimal.NewFromInt(100)) {
			return NewError(KindValidation, "slippageTolerance must be between 0 and 100")
		}
	}
	if in.MaxRetries != nil {
		if *in.MaxRetries < 0 || *in.MaxRetries > MaxAllowedRetries {
			return NewError(KindValidation, "maxRetries must be between 0 and 10")
		}
	}
	return nil
}

// NewOrder builds a fresh pending order from validated input.
func NewOrder(in CreateOrderInput) *Order {
	now := time.Now().UTC()
	slippage := decimal.NewFromFloat(DefaultSlippageTolerance)
	if in.SlippageTolerance != nil {
		slippage = *in.SlippageTolerance
	}
	maxRetries := DefaultMaxRetries
	if in.MaxRetries != nil {
		maxRetries = *in.MaxRetries
	}
	return &Order{
		ID:                uuid.New(),
		TokenIn:           in.TokenIn,
		TokenOut:          in.TokenOut,
		Amount:            in.Amount,
		Status:            StatusPending,
		SlippageTolerance: slippage,
		MaxRetries:        maxRetries,
		RetryCount:        0,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// validTransitions encodes the persisted-status state machine. routing and
// submitted are intentionally absent: they never reach Order.Status.
var validTransitions = map[OrderStatus]map[OrderStatus]bool{
	StatusPending: {
		StatusProcessing: true,
		StatusCancelled:  true,
		StatusFailed:     true,
	},
	StatusProcessing: {
		StatusPending:   true, // retry
		StatusCompleted: true,
		StatusFailed:    true,
		StatusCancelled: true,
	},
}

// CanTransition reports whether from -> to is a legal persisted transition.
func CanTransition(from, to OrderStatus) bool {
	if from.IsTerminal() {
		return false
	}
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	return allowed[to]
}

// OrderFilter narrows findAll/count queries over the order store.
type OrderFilter struct {
	Status    *OrderStatus
	TokenIn   *string
	TokenOut  *string
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Limit     int
	Offset    int
	SortBy    string
	SortDesc  bool
}
