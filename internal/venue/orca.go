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

// OrcaPool is a concentrated-liquidity pool with its own fee tier.
type OrcaPool struct {
	TokenIn    string
	TokenOut   string
	ReserveIn  decimal.Decimal
	ReserveOut decimal.Decimal
	FeeBps     int
}

// OrcaAdapter is a mock Orca concentrated-liquidity adapter.
type OrcaAdapter struct {
	name       string
	baseURL    string
	httpClient *http.Client
	logger     *observability.Logger
	cfg        Config

	mu      sync.RWMutex
	enabled bool
	pools   map[string]OrcaPool
}

// NewOrcaAdapter creates an Orca adapter seeded with pool state.
func NewOrcaAdapter(logger *observability.Logger, pools []OrcaPool) *OrcaAdapter {
	a := &OrcaAdapter{
		name:       "orca",
		baseURL:    "https://api.orca.so",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		cfg:        DefaultConfig(),
		enabled:    true,
		pools:      make(map[string]OrcaPool),
	}
	for _, p := range pools {
		a.pools[poolKey(p.TokenIn, p.TokenOut)] = p
	}
	return a
}

func (a *OrcaAdapter) Name() string { return a.name }

func (a *OrcaAdapter) Enabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

func (a *OrcaAdapter) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

func (a *OrcaAdapter) GetQuote(ctx context.Context, tokenIn, tokenOut string, amountIn, slippageTolerance decimal.Decimal) (domain.Quote, error) {
	if !a.Enabled() {
		return domain.Quote{}, domain.NewError(domain.KindUnavailable, "orca adapter disabled")
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.QuoteDeadline)
	defer cancel()

	a.mu.RLock()
	pool, ok := a.pools[poolKey(tokenIn, tokenOut)]
	a.mu.RUnlock()
	if !ok {
		return domain.Quote{}, domain.NewError(domain.KindProtocolError, fmt.Sprintf("orca: no pool for %s/%s", tokenIn, tokenOut))
	}

	select {
	case <-ctx.Done():
		return domain.Quote{}, domain.Wrap(domain.KindTimeout, "orca quote deadline exceeded", ctx.Err())
	default:
	}

	amountOut := constantProductOut(pool.ReserveIn, pool.ReserveOut, amountIn, pool.FeeBps)
	impact := priceImpact(pool.ReserveIn, amountIn)
	fee := amountIn.Mul(decimal.NewFromInt(int64(pool.FeeBps))).Div(decimal.NewFromInt(10000))
	pricePerToken := decimal.Zero
	if !amountIn.IsZero() {
		pricePerToken = amountOut.Div(amountIn)
	}

	return domain.NewQuote(a.name, amountIn, amountOut, pricePerToken, impact, fee, slippageTolerance, "orca:whirlpool"), nil
}

func (a *OrcaAdapter) ExecuteSwap(ctx context.Context, quote domain.Quote, wallet string) (domain.SwapResult, error) {
	if !a.Enabled() {
		return domain.SwapResult{}, domain.NewError(domain.KindUnavailable, "orca adapter disabled")
	}
	if err := validateWallet(wallet); err != nil {
		return domain.SwapResult{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.SwapDeadline)
	defer cancel()
	select {
	case <-ctx.Done():
		return domain.SwapResult{}, domain.Wrap(domain.KindTimeout, "orca swap deadline exceeded", ctx.Err())
	default:
	}

	actualOut := simulateExecutionOut(quote.AmountOut)
	if actualOut.LessThan(quote.MinimumAmountOut) {
		return domain.SwapResult{}, domain.NewError(domain.KindSlippageExceeded,
			fmt.Sprintf("orca: actual amountOut %s below minimum %s", actualOut, quote.MinimumAmountOut))
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

func (a *OrcaAdapter) GetTransactionStatus(ctx context.Context, signature string) (domain.SwapResultStatus, error) {
	return domain.SwapCompleted, nil
}

func (a *OrcaAdapter) HealthCheck(ctx context.Context) bool { return a.Enabled() }

func (a *OrcaAdapter) SupportedPairs() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	pairs := make([]string, 0, len(a.pools))
	for k := range a.pools {
		pairs = append(pairs, k)
	}
	return pairs
}
