package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewQuoteMinimumAmountOut(t *testing.T) {
	amountOut := decimal.NewFromInt(1000)
	slippage := decimal.NewFromFloat(1) // 1%
	quote := NewQuote("raydium", decimal.NewFromInt(10), amountOut, decimal.NewFromFloat(100), decimal.Zero, decimal.Zero, slippage, "raydium:direct")

	want := decimal.NewFromInt(990) // 1000 * (1 - 0.01)
	if !quote.MinimumAmountOut.Equal(want) {
		t.Fatalf("expected minimumAmountOut %v, got %v", want, quote.MinimumAmountOut)
	}
	if quote.VenueName != "raydium" {
		t.Fatalf("expected venueName raydium, got %s", quote.VenueName)
	}
	if quote.ExpiresInSeconds != 30 {
		t.Fatalf("expected quotes to expire in 30s, got %d", quote.ExpiresInSeconds)
	}
}

func TestNewQuoteZeroSlippage(t *testing.T) {
	amountOut := decimal.NewFromInt(500)
	quote := NewQuote("orca", decimal.NewFromInt(5), amountOut, decimal.NewFromInt(100), decimal.Zero, decimal.Zero, decimal.Zero, "orca:whirlpool")
	if !quote.MinimumAmountOut.Equal(amountOut) {
		t.Fatalf("expected minimumAmountOut to equal amountOut at zero slippage, got %v", quote.MinimumAmountOut)
	}
}
