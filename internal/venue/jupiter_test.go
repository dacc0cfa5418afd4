package venue

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/swapengine/engine/internal/domain"
)

func TestJupiterAdapterPicksBestRoute(t *testing.T) {
	a := NewJupiterAdapter(nil, []JupiterRoute{
		{TokenIn: "SOL", TokenOut: "USDC", ReserveIn: decimal.NewFromInt(1000), ReserveOut: decimal.NewFromInt(90000), FeeBps: 30, Label: "jupiter:raydium-leg"},
		{TokenIn: "SOL", TokenOut: "USDC", ReserveIn: decimal.NewFromInt(1000), ReserveOut: decimal.NewFromInt(110000), FeeBps: 30, Label: "jupiter:orca-leg"},
	})

	quote, err := a.GetQuote(context.Background(), "SOL", "USDC", decimal.NewFromInt(10), decimal.NewFromFloat(0.5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Route != "jupiter:orca-leg" {
		t.Fatalf("expected jupiter to pick the higher-reserve route, got %s", quote.Route)
	}
}

func TestJupiterAdapterDefaultsRouteLabel(t *testing.T) {
	a := NewJupiterAdapter(nil, []JupiterRoute{
		{TokenIn: "SOL", TokenOut: "USDC", ReserveIn: decimal.NewFromInt(1000), ReserveOut: decimal.NewFromInt(90000), FeeBps: 30},
	})
	quote, err := a.GetQuote(context.Background(), "SOL", "USDC", decimal.NewFromInt(10), decimal.NewFromFloat(0.5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Route != "jupiter:direct" {
		t.Fatalf("expected default route label jupiter:direct, got %s", quote.Route)
	}
}

func TestJupiterAdapterNoRoutes(t *testing.T) {
	a := NewJupiterAdapter(nil, nil)
	if _, err := a.GetQuote(context.Background(), "SOL", "USDC", decimal.NewFromInt(10), decimal.NewFromFloat(0.5)); err == nil {
		t.Fatalf("expected an error when no route exists for the pair")
	}
}

func TestJupiterAdapterExecuteSwap(t *testing.T) {
	a := NewJupiterAdapter(nil, []JupiterRoute{
		{TokenIn: "SOL", TokenOut: "USDC", ReserveIn: decimal.NewFromInt(1000), ReserveOut: decimal.NewFromInt(90000), FeeBps: 30},
	})
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
	if result.VenueName != "jupiter" {
		t.Fatalf("expected venueName jupiter, got %s", result.VenueName)
	}
}

func TestJupiterAdapterExecuteSwapSimulatedSlipCanExceedTightTolerance(t *testing.T) {
	a := NewJupiterAdapter(nil, []JupiterRoute{
		{TokenIn: "SOL", TokenOut: "USDC", ReserveIn: decimal.NewFromInt(1000), ReserveOut: decimal.NewFromInt(90000), FeeBps: 30},
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
