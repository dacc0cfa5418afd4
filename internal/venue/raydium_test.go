package venue

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/swapengine/engine/internal/domain"
)

const testWallet = "11111111111111111111111111111111"

func TestRaydiumAdapterGetQuote(t *testing.T) {
	a := NewRaydiumAdapter(nil, []RaydiumPool{
		{TokenIn: "SOL", TokenOut: "USDC", ReserveIn: decimal.NewFromInt(1000), ReserveOut: decimal.NewFromInt(100000), FeeBps: 25},
	})

	quote, err := a.GetQuote(context.Background(), "SOL", "USDC", decimal.NewFromInt(10), decimal.NewFromFloat(0.5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.VenueName != "raydium" {
		t.Fatalf("expected venueName raydium, got %s", quote.VenueName)
	}
	if !quote.AmountOut.IsPositive() {
		t.Fatalf("expected a positive amountOut, got %v", quote.AmountOut)
	}
	if quote.Route != "raydium:direct" {
		t.Fatalf("expected route raydium:direct, got %s", quote.Route)
	}
}

func TestRaydiumAdapterGetQuoteUnknownPair(t *testing.T) {
	a := NewRaydiumAdapter(nil, nil)
	if _, err := a.GetQuote(context.Background(), "SOL", "USDC", decimal.NewFromInt(10), decimal.NewFromFloat(0.5)); err == nil {
		t.Fatalf("expected an error for an unconfigured pair")
	}
}

func TestRaydiumAdapterDisabled(t *testing.T) {
	a := NewRaydiumAdapter(nil, []RaydiumPool{{TokenIn: "SOL", TokenOut: "USDC", ReserveIn: decimal.NewFromInt(1000), ReserveOut: decimal.NewFromInt(100000), FeeBps: 25}})
	a.SetEnabled(false)
	if _, err := a.GetQuote(context.Background(), "SOL", "USDC", decimal.NewFromInt(10), decimal.NewFromFloat(0.5)); err == nil {
		t.Fatalf("expected a disabled adapter to refuse quotes")
	}
	if a.HealthCheck(context.Background()) {
		t.Fatalf("expected HealthCheck to report unhealthy while disabled")
	}
}

func TestRaydiumAdapterExecuteSwap(t *testing.T) {
	a := NewRaydiumAdapter(nil, []RaydiumPool{{TokenIn: "SOL", TokenOut: "USDC", ReserveIn: decimal.NewFromInt(1000), ReserveOut: decimal.NewFromInt(100000), FeeBps: 25}})
	// Generous tolerance so simulated execution slip can never trip the
	// slippage guard here; the guard itself is covered separately below.
	quote, err := a.GetQuote(context.Background(), "SOL", "USDC", decimal.NewFromInt(10), decimal.NewFromFloat(5))
	if err != nil {
		t.Fatalf("unexpected quote error: %v", err)
	}

	result, err := a.ExecuteSwap(context.Background(), quote, testWallet)
	if err != nil {
		t.Fatalf("unexpected swap error: %v", err)
	}
	if result.VenueName != "raydium" {
		t.Fatalf("expected venueName raydium, got %s", result.VenueName)
	}
	if result.Signature == "" {
		t.Fatalf("expected a non-empty signature")
	}
}

func TestRaydiumAdapterExecuteSwapRejectsBadWallet(t *testing.T) {
	a := NewRaydiumAdapter(nil, []RaydiumPool{{TokenIn: "SOL", TokenOut: "USDC", ReserveIn: decimal.NewFromInt(1000), ReserveOut: decimal.NewFromInt(100000), FeeBps: 25}})
	quote, _ := a.GetQuote(context.Background(), "SOL", "USDC", decimal.NewFromInt(10), decimal.NewFromFloat(0.5))
	if _, err := a.ExecuteSwap(context.Background(), quote, "not-a-wallet"); err == nil {
		t.Fatalf("expected an invalid wallet to be rejected before any swap logic runs")
	}
}

func TestRaydiumAdapterExecuteSwapSlippageExceeded(t *testing.T) {
	a := NewRaydiumAdapter(nil, []RaydiumPool{{TokenIn: "SOL", TokenOut: "USDC", ReserveIn: decimal.NewFromInt(1000), ReserveOut: decimal.NewFromInt(100000), FeeBps: 25}})
	quote, _ := a.GetQuote(context.Background(), "SOL", "USDC", decimal.NewFromInt(10), decimal.NewFromFloat(0.5))
	quote.MinimumAmountOut = quote.AmountOut.Add(decimal.NewFromInt(1)) // impossible minimum

	if _, err := a.ExecuteSwap(context.Background(), quote, testWallet); err == nil {
		t.Fatalf("expected a slippage-exceeded error")
	}
}

func TestRaydiumAdapterExecuteSwapSimulatedSlipCanExceedTightTolerance(t *testing.T) {
	a := NewRaydiumAdapter(nil, []RaydiumPool{{TokenIn: "SOL", TokenOut: "USDC", ReserveIn: decimal.NewFromInt(1000), ReserveOut: decimal.NewFromInt(100000), FeeBps: 25}})
	quote, _ := a.GetQuote(context.Background(), "SOL", "USDC", decimal.NewFromInt(10), decimal.Zero)

	var sawSlippageExceeded bool
	for i := 0; i < 200; i++ {
		_, err := a.ExecuteSwap(context.Background(), quote, testWallet)
		if err == nil {
			continue
		}
		if domain.KindOf(err) == domain.KindSlippageExceeded {
			sawSlippageExceeded = true
			break
		}
	}
	if !sawSlippageExceeded {
		t.Fatalf("expected simulated execution slip to trip the slippage guard at zero tolerance within 200 attempts")
	}
}

func TestRaydiumAdapterSupportedPairs(t *testing.T) {
	a := NewRaydiumAdapter(nil, []RaydiumPool{
		{TokenIn: "SOL", TokenOut: "USDC", ReserveIn: decimal.NewFromInt(1), ReserveOut: decimal.NewFromInt(1)},
		{TokenIn: "BONK", TokenOut: "USDC", ReserveIn: decimal.NewFromInt(1), ReserveOut: decimal.NewFromInt(1)},
	})
	pairs := a.SupportedPairs()
	if len(pairs) != 2 {
		t.Fatalf("expected 2 supported pairs, got %d", len(pairs))
	}
}
