package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a venue's ephemeral, non-binding offer for a swap. Quotes are
// never persisted.
type Quote struct {
	VenueName        string          `json:"venueName"`
	AmountIn         decimal.Decimal `json:"amountIn"`
	AmountOut        decimal.Decimal `json:"amountOut"`
	PricePerToken    decimal.Decimal `json:"pricePerToken"`
	PriceImpact      decimal.Decimal `json:"priceImpact"`
	MinimumAmountOut decimal.Decimal `json:"minimumAmountOut"`
	EstimatedFee     decimal.Decimal `json:"estimatedFee"`
	Route            string          `json:"route"`
	Timestamp        time.Time       `json:"timestamp"`
	ExpiresInSeconds  int            `json:"expiresInSeconds"`
}

// NewQuote fills in MinimumAmountOut from amountOut and the order's slippage
// tolerance: minimumAmountOut = amountOut * (1 - slippage/100).
func NewQuote(venue string, amountIn, amountOut, pricePerToken, priceImpact, fee decimal.Decimal, slippageTolerance decimal.Decimal, route string) Quote {
	factor := decimal.NewFromInt(1).Sub(slippageTolerance.Div(decimal.NewFromInt(100)))
	return Quote{
		VenueName:        venue,
		AmountIn:         amountIn,
		AmountOut:        amountOut,
		PricePerToken:    pricePerToken,
		PriceImpact:      priceImpact,
		MinimumAmountOut: amountOut.Mul(factor),
		EstimatedFee:     fee,
		Route:            route,
		Timestamp:        time.Now().UTC(),
		ExpiresInSeconds:  30,
	}
}

// SwapResultStatus is the outcome state of an executed swap.
type SwapResultStatus string

const (
	SwapPending   SwapResultStatus = "pending"
	SwapCompleted SwapResultStatus = "completed"
	SwapFailed    SwapResultStatus = "failed"
)

// SwapResult is returned by an adapter's executeSwap.
type SwapResult struct {
	Signature      string           `json:"signature"`
	VenueName      string           `json:"venueName"`
	AmountOut      decimal.Decimal  `json:"amountOut"`
	ExecutionPrice decimal.Decimal  `json:"executionPrice"`
	ExecutedAt     time.Time        `json:"executedAt"`
	Status         SwapResultStatus `json:"status"`
}

// QuoteSet is the result of a parallel fan-out across venues: successful
// quotes plus a per-adapter health/error map, computed in parallel.
type QuoteSet struct {
	Quotes []Quote
	Errors map[string]error
}
