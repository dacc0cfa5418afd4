package venue

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/swapengine/engine/internal/domain"
)

type stubAdapter struct {
	name    string
	enabled bool
}

func (s *stubAdapter) Name() string  { return s.name }
func (s *stubAdapter) Enabled() bool { return s.enabled }
func (s *stubAdapter) GetQuote(ctx context.Context, tokenIn, tokenOut string, amountIn, slippageTolerance decimal.Decimal) (domain.Quote, error) {
	return domain.Quote{}, nil
}
func (s *stubAdapter) ExecuteSwap(ctx context.Context, quote domain.Quote, wallet string) (domain.SwapResult, error) {
	return domain.SwapResult{}, nil
}
func (s *stubAdapter) GetTransactionStatus(ctx context.Context, signature string) (domain.SwapResultStatus, error) {
	return domain.SwapCompleted, nil
}
func (s *stubAdapter) HealthCheck(ctx context.Context) bool { return s.enabled }
func (s *stubAdapter) SupportedPairs() []string             { return nil }

func TestRegistryEnabledFiltersDisabled(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubAdapter{name: "raydium", enabled: true})
	r.Register(&stubAdapter{name: "orca", enabled: false})
	r.Register(&stubAdapter{name: "jupiter", enabled: true})

	enabled := r.Enabled()
	if len(enabled) != 2 {
		t.Fatalf("expected 2 enabled adapters, got %d", len(enabled))
	}
	if len(r.All()) != 3 {
		t.Fatalf("expected 3 total adapters, got %d", len(r.All()))
	}
}

func TestRegistryGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubAdapter{name: "raydium", enabled: true})

	a, ok := r.Get("raydium")
	if !ok || a.Name() != "raydium" {
		t.Fatalf("expected to find registered adapter raydium")
	}
	if _, ok := r.Get("missing"); ok {
		t.Fatalf("expected missing adapter lookup to fail")
	}
}
