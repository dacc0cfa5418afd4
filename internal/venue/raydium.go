package venue

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/swapengine/engine/internal/domain"
	"github.com/swapengine/engine/pkg/observability"
)

// RaydiumPool is a constant-product pool keyed by its two reserves.
type RaydiumPool struct {
	TokenIn    string
	TokenOut   string
	ReserveIn  decimal.Decimal
	ReserveOut decimal.Decimal
	FeeBps     int
}

// RaydiumAdapter is a mock Raydium AMM adapter: quotes are computed from
// in-memory pool state rather than a live RPC call.
type RaydiumAdapter struct {
	name       string
	baseURL    string
	httpClient *http.Client
	logger     *observability.Logger
	cfg        Config

	mu      sync.RWMutex
	enabled bool
	pools   map[string]RaydiumPool // keyed by "tokenIn/tokenOut"
}

// NewRaydiumAdapter creates a Raydium adapter seeded with pool state.
func NewRaydiumAdapter(logger *observability.Logger, pools []RaydiumPool) *RaydiumAdapter {
	a := &RaydiumAdapter{
		name:       "raydium",
		baseURL:    "https://api.raydium.io/v2",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		cfg:        DefaultConfig(),
		enabled:    true,
		pools:      make(map[string]RaydiumPool),
	}
	for _, p := range pools {
		a.pools[poolKey(p.TokenIn, p.TokenOut)] = p
	}
	return a
}

func poolKey(tokenIn, tokenOut string) string { return tokenIn + "/" + tokenOut }

func (a *RaydiumAdapter) Name() string { return a.name }

func (a *RaydiumAdapter) Enabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetEnabled lets tests and ops simulate a disabled venue.
func (a *RaydiumAdapter) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

func (a *RaydiumAdapter) GetQuote(ctx context.Context, tokenIn, tokenOut string, amountIn, slippageTolerance decimal.Decimal) (domain.Quote, error) {
	if !a.Enabled() {
		return domain.Quote{}, domain.NewError(domain.KindUnavailable, "raydium adapter disabled")
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.QuoteDeadline)
	defer cancel()

	a.mu.RLock()
	pool, ok := a.pools[poolKey(tokenIn, tokenOut)]
	a.mu.RUnlock()
	if !ok {
		return domain.Quote{}, domain.NewError(domain.KindProtocolError, fmt.Sprintf("raydium: no pool for %s/%s", tokenIn, tokenOut))
	}

	select {
	case <-ctx.Done():
		return domain.Quote{}, domain.Wrap(domain.KindTimeout, "raydium quote deadline exceeded", ctx.Err())
	default:
	}

	amountOut := constantProductOut(pool.ReserveIn, pool.ReserveOut, amountIn, pool.FeeBps)
	impact := priceImpact(pool.ReserveIn, amountIn)
	fee := amountIn.Mul(decimal.NewFromInt(int64(pool.FeeBps))).Div(decimal.NewFromInt(10000))
	pricePerToken := decimal.Zero
	if !amountIn.IsZero() {
		pricePerToken = amountOut.Div(amountIn)
	}

	quote := domain.NewQuote(a.name, amountIn, amountOut, pricePerToken, impact, fee, slippageTolerance, "raydium:direct")
	return quote, nil
}

func (a *RaydiumAdapter) ExecuteSwap(ctx context.Context, quote domain.Quote, wallet string) (domain.SwapResult, error) {
	if !a.Enabled() {
		return domain.SwapResult{}, domain.NewError(domain.KindUnavailable, "raydium adapter disabled")
	}
	if err := validateWallet(wallet); err != nil {
		return domain.SwapResult{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.SwapDeadline)
	defer cancel()
	select {
	case <-ctx.Done():
		return domain.SwapResult{}, domain.Wrap(domain.KindTimeout, "raydium swap deadline exceeded", ctx.Err())
	default:
	}

	actualOut := simulateExecutionOut(quote.AmountOut)
	if actualOut.LessThan(quote.MinimumAmountOut) {
		return domain.SwapResult{}, domain.NewError(domain.KindSlippageExceeded,
			fmt.Sprintf("raydium: actual amountOut %s below minimum %s", actualOut, quote.MinimumAmountOut))
	}

	return domain.SwapResult{
		Signature:      uuid.New().String(),
		VenueName:      a.name,
		AmountOut:      actualOut,
		ExecutionPrice: quote.PricePerToken,
		ExecutedAt:     time.Now().UTC(),
		Status:         domain.SwapCompleted,
	}, nil
}

func (a *RaydiumAdapter) GetTransactionStatus(ctx context.Context, signature string) (domain.SwapResultStatus, error) {
	return domain.SwapCompleted, nil
}

func (a *RaydiumAdapter) HealthCheck(ctx context.Context) bool { return a.Enabled() }

func (a *RaydiumAdapter) SupportedPairs() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	pairs := make([]string, 0, len(a.pools))
	for k := range a.pools {
		pairs = append(pairs, k)
	}
	return pairs
}
