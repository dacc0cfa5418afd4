// Package venue implements the uniform venue adapter contract and the
// registry and aggregator that fan quote requests out across every enabled
// adapter in parallel.
//
// Concrete adapters compute deterministic quotes from in-memory pool state
// instead of calling a live DEX endpoint, kept in the same
// httpClient/baseURL/context-bound shape so a real integration is a
// drop-in swap.
package venue

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/swapengine/engine/internal/domain"
)

// Adapter is the uniform contract over one DEX venue.
type Adapter interface {
	Name() string
	Enabled() bool
	GetQuote(ctx context.Context, tokenIn, tokenOut string, amountIn, slippageTolerance decimal.Decimal) (domain.Quote, error)
	ExecuteSwap(ctx context.Context, quote domain.Quote, wallet string) (domain.SwapResult, error)
	GetTransactionStatus(ctx context.Context, signature string) (domain.SwapResultStatus, error)
	HealthCheck(ctx context.Context) bool
	SupportedPairs() []string
}

// Config bundles the knobs shared by all mock adapters.
type Config struct {
	QuoteDeadline time.Duration // default 5s
	SwapDeadline  time.Duration // default 10s
}

func DefaultConfig() Config {
	return Config{
		QuoteDeadline: 5 * time.Second,
		SwapDeadline:  10 * time.Second,
	}
}

// validateWallet rejects a destination wallet that isn't a well-formed
// Solana base58 public key before a venue ever attempts to submit against it.
func validateWallet(wallet string) error {
	if _, err := solana.PublicKeyFromBase58(wallet); err != nil {
		return domain.Wrap(domain.KindValidation, "wallet is not a valid Solana public key", err)
	}
	return nil
}
