package venue

import (
	"math/rand"

	"github.com/shopspring/decimal"
)

// executionSlipBpsMax bounds the simulated adverse price movement between
// the moment a quote is produced and the moment the swap actually lands
// on-chain. Real pool reserves shift in that window; a venue that always
// filled at exactly the quoted price could never trip the slippage guard.
const executionSlipBpsMax = 80

// simulateExecutionOut derives the amount a swap actually fills at from the
// quoted amount, applying a random adverse move of 0-executionSlipBpsMax
// basis points to stand in for that window.
func simulateExecutionOut(quotedOut decimal.Decimal) decimal.Decimal {
	slipBps := rand.Intn(executionSlipBpsMax + 1)
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromInt(int64(slipBps)).Div(decimal.NewFromInt(10000)))
	return quotedOut.Mul(factor)
}

// constantProductOut computes the output amount of an x*y=k AMM swap after
// fees, the pricing model Raydium and Orca pools use.
func constantProductOut(reserveIn, reserveOut, amountIn decimal.Decimal, feeBps int) decimal.Decimal {
	fee := decimal.NewFromInt(int64(feeBps)).Div(decimal.NewFromInt(10000))
	amountInAfterFee := amountIn.Mul(decimal.NewFromInt(1).Sub(fee))
	numerator := amountInAfterFee.Mul(reserveOut)
	denominator := reserveIn.Add(amountInAfterFee)
	if denominator.IsZero() {
		return decimal.Zero
	}
	return numerator.Div(denominator)
}

// priceImpact estimates the impact of amountIn on a pool of the given
// reserves, expressed in percent.
func priceImpact(reserveIn, amountIn decimal.Decimal) decimal.Decimal {
	if reserveIn.IsZero() {
		return decimal.Zero
	}
	return amountIn.Div(reserveIn.Add(amountIn)).Mul(decimal.NewFromInt(100))
}
