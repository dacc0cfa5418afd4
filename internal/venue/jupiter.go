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

// JupiterRoute is one candidate route Jupiter can fill through: a pool plus
// the label Jupiter would show for it ("direct", "split-raydium+orca", etc).
type JupiterRoute struct {
	TokenIn    string
	TokenOut   string
	ReserveIn  decimal.Decimal
	ReserveOut decimal.Decimal
	FeeBps     int
	Label      string
}

// JupiterAdapter is a mock Jupiter aggregator: it holds its own candidate
// routes and returns the best one for a pair, the way a real aggregator
// calls /quote and picks the route plan with the best price.
type JupiterAdapter struct {
	name       string
	baseURL    string
	httpClient *http.Client
	logger     *observability.Logger
	cfg        Config

	mu      sync.RWMutex
	enabled bool
	routes  map[string][]JupiterRoute
}

// NewJupiterAdapter creates a Jupiter adapter seeded with candidate routes.
func NewJupiterAdapter(logger *observability.Logger, routes []JupiterRoute) *JupiterAdapter {
	a := &JupiterAdapter{
		name:       "jupiter",
		baseURL:    "https://quote-api.jup.ag/v6",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		cfg:        DefaultConfig(),
		enabled:    true,
		routes:     make(map[string][]JupiterRoute),
	}
	for _, r := range routes {
		key := poolKey(r.TokenIn, r.TokenOut)
		a.routes[key] = append(a.routes[key], r)
	}
	return a
}

func (a *JupiterAdapter) Name() string { return a.name }

func (a *JupiterAdapter) Enabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

func (a *JupiterAdapter) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

func (a *JupiterAdapter) GetQuote(ctx context.Context, tokenIn, tokenOut string, amountIn, slippageTolerance decimal.Decimal) (domain.Quote, error) {
	if !a.Enabled() {
		return domain.Quote{}, domain.NewError(domain.KindUnavailable, "jupiter adapter disabled")
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.QuoteDeadline)
	defer cancel()

	a.mu.RLock()
	candidates := a.routes[poolKey(tokenIn, tokenOut)]
	a.mu.RUnlock()
	if len(candidates) == 0 {
		return domain.Quote{}, domain.NewError(domain.KindProtocolError, fmt.Sprintf("jupiter: no route for %s/%s", tokenIn, tokenOut))
	}

	select {
	case <-ctx.Done():
		return domain.Quote{}, domain.Wrap(domain.KindTimeout, "jupiter quote deadline exceeded", ctx.Err())
	default:
	}

	var best JupiterRoute
	var bestOut decimal.Decimal
	for i, r := range candidates {
		out := constantProductOut(r.ReserveIn, r.ReserveOut, amountIn, r.FeeBps)
		if i == 0 || out.GreaterThan(bestOut) {
			best = r
			bestOut = out
		}
	}

	impact := priceImpact(best.ReserveIn, amountIn)
	fee := amountIn.Mul(decimal.NewFromInt(int64(best.FeeBps))).Div(decimal.NewFromInt(10000))
	pricePerToken := decimal.Zero
	if !amountIn.IsZero() {
		pricePerToken = bestOut.Div(amountIn)
	}

	route := best.Label
	if route == "" {
		route = "jupiter:direct"
	}
	return domain.NewQuote(a.name, amountIn, bestOut, pricePerToken, impact, fee, slippageTolerance, route), nil
}

func (a *JupiterAdapter) ExecuteSwap(ctx context.Context, quote domain.Quote, wallet string) (domain.SwapResult, error) {
	if !a.Enabled() {
		return domain.SwapResult{}, domain.NewError(domain.KindUnavailable, "jupiter adapter disabled")
	}
	if err := validateWallet(wallet); err != nil {
		return domain.SwapResult{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.SwapDeadline)
	defer cancel()
	select {
	case <-ctx.Done():
		return domain.SwapResult{}, domain.Wrap(domain.KindTimeout, "jupiter swap deadline exceeded", ctx.Err())
	default:
	}

	actualOut := simulateExecutionOut(quote.AmountOut)
	if actualOut.LessThan(quote.MinimumAmountOut) {
		return domain.SwapResult{}, domain.NewError(domain.KindSlippageExceeded,
			fmt.Sprintf("jupiter: actual amountOut %s below minimum %s", actualOut, quote.MinimumAmountOut))
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

func (a *JupiterAdapter) GetTransactionStatus(ctx context.Context, signature string) (domain.SwapResultStatus, error) {
	return domain.SwapCompleted, nil
}

func (a *JupiterAdapter) HealthCheck(ctx context.Context) bool { return a.Enabled() }

func (a *JupiterAdapter) SupportedPairs() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	pairs := make([]string, 0, len(a.routes))
	for k := range a.routes {
		pairs = append(pairs, k)
	}
	return pairs
}
