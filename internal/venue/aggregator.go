package venue

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/swapengine/engine/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Aggregator fans a quote request out across every enabled adapter in
// parallel and picks a deterministic winner.
type Aggregator struct {
	registry *Registry
}

func NewAggregator(registry *Registry) *Aggregator {
	return &Aggregator{registry: registry}
}

// GetAllQuotes queries every enabled adapter concurrently. A single
// adapter's error or timeout is isolated: it is recorded in QuoteSet.Errors
// and does not cancel the others.
func (a *Aggregator) GetAllQuotes(ctx context.Context, tokenIn, tokenOut string, amountIn, slippageTolerance decimal.Decimal) domain.QuoteSet {
	adapters := a.registry.Enabled()

	var (
		mu     sync.Mutex
		quotes []domain.Quote
		errs   = make(map[string]error)
	)

	g, gctx := errgroup.WithContext(context.Background())
	_ = gctx // each adapter enforces its own deadline; we don't want one adapter's
	// timeout to cancel its siblings, so the group context is unused for cancellation.

	for _, adapter := range adapters {
		adapter := adapter
		g.Go(func() error {
			quote, err := adapter.GetQuote(ctx, tokenIn, tokenOut, amountIn, slippageTolerance)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[adapter.Name()] = err
				return nil
			}
			quotes = append(quotes, quote)
			return nil
		})
	}
	_ = g.Wait() // errors are collected per-adapter above; g.Go never returns an error itself

	return domain.QuoteSet{Quotes: quotes, Errors: errs}
}

// GetBestQuote selects the winner from a QuoteSet using the deterministic
// tiebreak order: amountOut desc, then estimatedFee asc, then
// venueName asc.
func GetBestQuote(set domain.QuoteSet) (domain.Quote, bool) {
	if len(set.Quotes) == 0 {
		return domain.Quote{}, false
	}
	sorted := make([]domain.Quote, len(set.Quotes))
	copy(sorted, set.Quotes)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].AmountOut.Equal(sorted[j].AmountOut) {
			return sorted[i].AmountOut.GreaterThan(sorted[j].AmountOut)
		}
		if !sorted[i].EstimatedFee.Equal(sorted[j].EstimatedFee) {
			return sorted[i].EstimatedFee.LessThan(sorted[j].EstimatedFee)
		}
		return sorted[i].VenueName < sorted[j].VenueName
	})
	return sorted[0], true
}
