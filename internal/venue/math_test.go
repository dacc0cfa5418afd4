package venue

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestConstantProductOutNoFee(t *testing.T) {
	reserveIn := decimal.NewFromInt(1000)
	reserveOut := decimal.NewFromInt(1000)
	amountIn := decimal.NewFromInt(100)

	out := constantProductOut(reserveIn, reserveOut, amountIn, 0)
	// x*y=k: (1000+100) * (1000-out) = 1000*1000 => out = 1000 - 1000000/1100
	want := decimal.NewFromInt(1000).Sub(decimal.NewFromInt(1000000).Div(decimal.NewFromInt(1100)))
	if !out.Equal(want) {
		t.Fatalf("expected %v, got %v", want, out)
	}
}

func TestConstantProductOutAppliesFee(t *testing.T) {
	reserveIn := decimal.NewFromInt(1000)
	reserveOut := decimal.NewFromInt(1000)
	amountIn := decimal.NewFromInt(100)

	withoutFee := constantProductOut(reserveIn, reserveOut, amountIn, 0)
	withFee := constantProductOut(reserveIn, reserveOut, amountIn, 30) // 30bps
	if !withFee.LessThan(withoutFee) {
		t.Fatalf("expected fee to reduce output: withFee=%v withoutFee=%v", withFee, withoutFee)
	}
}

func TestConstantProductOutZeroReserves(t *testing.T) {
	out := constantProductOut(decimal.Zero, decimal.Zero, decimal.NewFromInt(10), 0)
	if !out.Equal(decimal.Zero) {
		t.Fatalf("expected zero output for zero reserves, got %v", out)
	}
}

func TestPriceImpact(t *testing.T) {
	reserveIn := decimal.NewFromInt(900)
	amountIn := decimal.NewFromInt(100)
	impact := priceImpact(reserveIn, amountIn)
	want := decimal.NewFromInt(10) // 100 / (900+100) * 100 = 10%
	if !impact.Equal(want) {
		t.Fatalf("expected impact %v, got %v", want, impact)
	}
}

func TestPriceImpactZeroReserve(t *testing.T) {
	if impact := priceImpact(decimal.Zero, decimal.NewFromInt(10)); !impact.Equal(decimal.Zero) {
		t.Fatalf("expected zero impact for zero reserve, got %v", impact)
	}
}
