package venue

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/swapengine/engine/internal/domain"
)

func TestOrcaAdapterGetQuoteAndSwap(t *testing.T) {
	a := NewOrcaAdapter(nil, []OrcaPool{
		{TokenIn: "SOL", TokenOut: "USDC", ReserveIn: decimal.NewFromInt(2000), ReserveOut: decimal.NewFromInt(200000), FeeBps: 5},
	})

	// Generous tolerance so simulated execution slip can never trip the
	// slippage guard here; the guard itself is covered separately below.
	quote, err := a.GetQuote(context.Background(), "SOL", "USDC", decimal.NewFromInt(10), decimal.NewFromFloat(5))
	if err != nil {
		t.Fatalf("unexpected quote error: %v", err)
	}
	if quote.Route != "orca:whirlpool" {
		t.Fatalf("expected route orca:whirlpool, got %s", quote.Route)
	}

	result, err := a.ExecuteSwap(context.Background(), quote, testWallet)
	if err != nil {
		t.Fatalf("unexpected swap error: %v", err)
	}
	if result.VenueName != "orca" {
		t.Fatalf("expected venueName orca, got %s", result.VenueName)
	}
}

func TestOrcaAdapterUnknownPair(t *testing.T) {
	a := NewOrcaAdapter(nil, nil)
	if _, err := a.GetQuote(context.Background(), "SOL", "USDC", decimal.NewFromInt(10), decimal.NewFromFloat(0.5)); err == nil {
		t.Fatalf("expected an error for an unconfigured pair")
	}
}

func TestOrcaAdapterExecuteSwapSimulatedSlipCanExceedTightTolerance(t *testing.T) {
	a := NewOrcaAdapter(nil, []OrcaPool{
		{TokenIn: "SOL", TokenOut: "USDC", ReserveIn: decimal.NewFromInt(2000), ReserveOut: decimal.NewFromInt(200000), FeeBps: 5},
	})
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
