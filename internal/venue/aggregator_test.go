package venue

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/swapengine/engine/internal/domain"
)

type fakeQuoteAdapter struct {
	name  string
	quote domain.Quote
	err   error
	delay time.Duration
}

func (f *fakeQuoteAdapter) Name() string  { return f.name }
func (f *fakeQuoteAdapter) Enabled() bool { return true }
func (f *fakeQuoteAdapter) GetQuote(ctx context.Context, tokenIn, tokenOut string, amountIn, slippageTolerance decimal.Decimal) (domain.Quote, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return domain.Quote{}, ctx.Err()
		}
	}
	if f.err != nil {
		return domain.Quote{}, f.err
	}
	return f.quote, nil
}
func (f *fakeQuoteAdapter) ExecuteSwap(ctx context.Context, quote domain.Quote, wallet string) (domain.SwapResult, error) {
	return domain.SwapResult{}, nil
}
func (f *fakeQuoteAdapter) GetTransactionStatus(ctx context.Context, signature string) (domain.SwapResultStatus, error) {
	return domain.SwapCompleted, nil
}
func (f *fakeQuoteAdapter) HealthCheck(ctx context.Context) bool { return true }
func (f *fakeQuoteAdapter) SupportedPairs() []string             { return nil }

func TestAggregatorGetAllQuotesIsolatesErrors(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&fakeQuoteAdapter{name: "raydium", quote: domain.Quote{VenueName: "raydium", AmountOut: decimal.NewFromInt(100)}})
	registry.Register(&fakeQuoteAdapter{name: "orca", err: domain.NewError(domain.KindProtocolError, "no pool")})

	agg := NewAggregator(registry)
	set := agg.GetAllQuotes(context.Background(), "SOL", "USDC", decimal.NewFromInt(10), decimal.NewFromFloat(0.5))

	if len(set.Quotes) != 1 {
		t.Fatalf("expected 1 successful quote, got %d", len(set.Quotes))
	}
	if len(set.Errors) != 1 {
		t.Fatalf("expected 1 adapter error, got %d", len(set.Errors))
	}
	if _, ok := set.Errors["orca"]; !ok {
		t.Fatalf("expected orca's error to be recorded")
	}
}

func TestAggregatorWaitsForSlowAdapter(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&fakeQuoteAdapter{name: "slow", delay: 50 * time.Millisecond, quote: domain.Quote{VenueName: "slow", AmountOut: decimal.NewFromInt(50)}})
	registry.Register(&fakeQuoteAdapter{name: "fast", quote: domain.Quote{VenueName: "fast", AmountOut: decimal.NewFromInt(100)}})

	agg := NewAggregator(registry)
	set := agg.GetAllQuotes(context.Background(), "SOL", "USDC", decimal.NewFromInt(10), decimal.NewFromFloat(0.5))

	if len(set.Quotes) != 2 {
		t.Fatalf("expected both adapters to return a quote, got %d (errors: %v)", len(set.Quotes), set.Errors)
	}
}

func TestGetBestQuoteTiebreaks(t *testing.T) {
	set := domain.QuoteSet{Quotes: []domain.Quote{
		{VenueName: "orca", AmountOut: decimal.NewFromInt(100), EstimatedFee: decimal.NewFromInt(2)},
		{VenueName: "raydium", AmountOut: decimal.NewFromInt(100), EstimatedFee: decimal.NewFromInt(1)},
		{VenueName: "jupiter", AmountOut: decimal.NewFromInt(90), EstimatedFee: decimal.Zero},
	}}
	best, ok := GetBestQuote(set)
	if !ok {
		t.Fatalf("expected a best quote")
	}
	if best.VenueName != "raydium" {
		t.Fatalf("expected raydium to win on lower fee at equal amountOut, got %s", best.VenueName)
	}
}

func TestGetBestQuoteNameTiebreak(t *testing.T) {
	set := domain.QuoteSet{Quotes: []domain.Quote{
		{VenueName: "orca", AmountOut: decimal.NewFromInt(100), EstimatedFee: decimal.NewFromInt(1)},
		{VenueName: "jupiter", AmountOut: decimal.NewFromInt(100), EstimatedFee: decimal.NewFromInt(1)},
	}}
	best, ok := GetBestQuote(set)
	if !ok || best.VenueName != "jupiter" {
		t.Fatalf("expected jupiter to win the venueName asc tiebreak, got %v ok=%v", best.VenueName, ok)
	}
}

func TestGetBestQuoteEmptySet(t *testing.T) {
	if _, ok := GetBestQuote(domain.QuoteSet{}); ok {
		t.Fatalf("expected no best quote for an empty set")
	}
}
