package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCreateOrderInputValidate(t *testing.T) {
	valid := CreateOrderInput{
		TokenIn:  "SOL",
		TokenOut: "USDC",
		Amount:   decimal.NewFromInt(10),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid input to pass, got %v", err)
	}

	cases := []struct {
		name  string
		input CreateOrderInput
	}{
		{"missing tokenIn", CreateOrderInput{TokenOut: "USDC", Amount: decimal.NewFromInt(1)}},
		{"missing tokenOut", CreateOrderInput{TokenIn: "SOL", Amount: decimal.NewFromInt(1)}},
		{"same token", CreateOrderInput{TokenIn: "SOL", TokenOut: "SOL", Amount: decimal.NewFromInt(1)}},
		{"zero amount", CreateOrderInput{TokenIn: "SOL", TokenOut: "USDC", Amount: decimal.Zero}},
		{"negative amount", CreateOrderInput{TokenIn: "SOL", TokenOut: "USDC", Amount: decimal.NewFromInt(-1)}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if err := c.input.Validate(); err == nil {
				t.Fatalf("expected validation error")
			} else if KindOf(err) != KindValidation {
				t.Fatalf("expected KindValidation, got %v", KindOf(err))
			}
		})
	}
}

func TestCreateOrderInputValidateSlippageBounds(t *testing.T) {
	tooHigh := decimal.NewFromInt(101)
	in := CreateOrderInput{TokenIn: "SOL", TokenOut: "USDC", Amount: decimal.NewFromInt(1), SlippageTolerance: &tooHigh}
	if err := in.Validate(); err == nil {
		t.Fatalf("expected slippage > 100 to be rejected")
	}

	negative := decimal.NewFromInt(-1)
	in.SlippageTolerance = &negative
	if err := in.Validate(); err == nil {
		t.Fatalf("expected negative slippage to be rejected")
	}

	ok := decimal.NewFromFloat(0.5)
	in.SlippageTolerance = &ok
	if err := in.Validate(); err != nil {
		t.Fatalf("expected 0.5 slippage to be valid, got %v", err)
	}
}

func TestCreateOrderInputValidateMaxRetriesBounds(t *testing.T) {
	tooMany := MaxAllowedRetries + 1
	in := CreateOrderInput{TokenIn: "SOL", TokenOut: "USDC", Amount: decimal.NewFromInt(1), MaxRetries: &tooMany}
	if err := in.Validate(); err == nil {
		t.Fatalf("expected maxRetries above the allowed ceiling to be rejected")
	}

	negative := -1
	in.MaxRetries = &negative
	if err := in.Validate(); err == nil {
		t.Fatalf("expected negative maxRetries to be rejected")
	}
}

func TestNewOrderDefaults(t *testing.T) {
	in := CreateOrderInput{TokenIn: "SOL", TokenOut: "USDC", Amount: decimal.NewFromInt(5)}
	order := NewOrder(in)

	if order.Status != StatusPending {
		t.Fatalf("expected new order to start pending, got %s", order.Status)
	}
	if order.RetryCount != 0 {
		t.Fatalf("expected retryCount 0, got %d", order.RetryCount)
	}
	if order.MaxRetries != DefaultMaxRetries {
		t.Fatalf("expected default maxRetries %d, got %d", DefaultMaxRetries, order.MaxRetries)
	}
	if !order.SlippageTolerance.Equal(decimal.NewFromFloat(DefaultSlippageTolerance)) {
		t.Fatalf("expected default slippage %v, got %v", DefaultSlippageTolerance, order.SlippageTolerance)
	}
	if order.ID.String() == "" {
		t.Fatalf("expected a generated ID")
	}
}

func TestNewOrderHonorsOverrides(t *testing.T) {
	slippage := decimal.NewFromFloat(1.5)
	retries := 7
	in := CreateOrderInput{
		TokenIn: "SOL", TokenOut: "USDC", Amount: decimal.NewFromInt(5),
		SlippageTolerance: &slippage, MaxRetries: &retries,
	}
	order := NewOrder(in)
	if !order.SlippageTolerance.Equal(slippage) {
		t.Fatalf("expected overridden slippage %v, got %v", slippage, order.SlippageTolerance)
	}
	if order.MaxRetries != retries {
		t.Fatalf("expected overridden maxRetries %d, got %d", retries, order.MaxRetries)
	}
}

func TestOrderStatusIsTerminal(t *testing.T) {
	terminal := []OrderStatus{StatusCompleted, StatusFailed, StatusCancelled}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Fatalf("expected %s to be terminal", s)
		}
	}
	nonTerminal := []OrderStatus{StatusPending, StatusProcessing}
	for _, s := range nonTerminal {
		if s.IsTerminal() {
			t.Fatalf("expected %s to be non-terminal", s)
		}
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		want     bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusPending, true}, // retry
		{StatusCompleted, StatusProcessing, false},
		{StatusFailed, StatusPending, false},
		{StatusCancelled, StatusProcessing, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}
