package app

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/dexquote/swap-quoter/business/execution/infra/codec"
	marketdomain "github.com/dexquote/swap-quoter/business/market/domain"
	"github.com/dexquote/swap-quoter/business/quote/domain"
	"github.com/dexquote/swap-quoter/internal/apperror"
	"github.com/dexquote/swap-quoter/internal/cache"
	"github.com/dexquote/swap-quoter/internal/config"
	"github.com/dexquote/swap-quoter/internal/logger"
)

const (
	tracerName = "quote"
	meterName  = "quote"
)

// Conservative per-version swap gas costs, used to rank candidates and as
// the fallback when node-side estimation fails.
const (
	gasSwapV2 uint64 = 120_000
	gasSwapV3 uint64 = 150_000
	gasSwapV4 uint64 = 170_000
)

// Request is one quote request. A nil Deadline stamps the configured
// default.
type Request struct {
	Network           string
	TokenIn           string
	TokenOut          string
	AmountIn          *big.Int
	SlippageBps       int64
	Deadline          *time.Time
	MaxPriceImpactBps int64
	MaxGasEstimate    uint64
	Recipient         string
}

// quoterMetrics holds OTEL metric instruments.
type quoterMetrics struct {
	quotesTotal    metric.Int64Counter
	quoteErrors    metric.Int64Counter
	quoteLatencyMs metric.Float64Histogram
	cacheHits      metric.Int64Counter
	candidates     metric.Int64Histogram
}

// Quoter is the public entry point: it validates a request, resolves and
// prices every viable pool, selects the best route, and assembles the final
// quote. Every failure leaving Quote carries a classified code.
type Quoter struct {
	cfg    *config.Config
	pools  PoolFinder
	tokens TokenReader
	gas    GasOracle
	logger logger.LoggerInterface

	maxAmountIn *big.Int
	quoteCache  *cache.Cache[string, *domain.Quote]

	tracer  trace.Tracer
	metrics *quoterMetrics
}

// NewQuoter creates the quote orchestrator.
func NewQuoter(cfg *config.Config, pools PoolFinder, tokens TokenReader, gas GasOracle, log logger.LoggerInterface) (*Quoter, error) {
	maxAmount, ok := new(big.Int).SetString(cfg.Quote.MaxAmountInWei, 10)
	if !ok || maxAmount.Sign() <= 0 {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext(fmt.Sprintf("bad max_amount_in_wei %q", cfg.Quote.MaxAmountInWei)))
	}

	q := &Quoter{
		cfg:         cfg,
		pools:       pools,
		tokens:      tokens,
		gas:         gas,
		logger:      log,
		maxAmountIn: maxAmount,
		quoteCache:  cache.New[string, *domain.Quote](time.Minute),
		tracer:      otel.Tracer(tracerName),
	}

	if err := q.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return q, nil
}

func (q *Quoter) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	q.metrics = &quoterMetrics{}

	if q.metrics.quotesTotal, err = meter.Int64Counter(
		"quotes_total",
		metric.WithDescription("Total quote requests"),
	); err != nil {
		return err
	}
	if q.metrics.quoteErrors, err = meter.Int64Counter(
		"quote_errors_total",
		metric.WithDescription("Quote requests that returned an error"),
	); err != nil {
		return err
	}
	if q.metrics.quoteLatencyMs, err = meter.Float64Histogram(
		"quote_latency_ms",
		metric.WithDescription("Quote latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return err
	}
	if q.metrics.cacheHits, err = meter.Int64Counter(
		"quote_cache_hits_total",
		metric.WithDescription("Quotes served from the quote cache"),
	); err != nil {
		return err
	}
	if q.metrics.candidates, err = meter.Int64Histogram(
		"quote_candidates",
		metric.WithDescription("Priced candidates per quote"),
	); err != nil {
		return err
	}
	return nil
}

// Quote produces a complete quote for a swap. Identical requests within the
// quote TTL return the identical cached quote.
func (q *Quoter) Quote(ctx context.Context, req Request) (*domain.Quote, error) {
	ctx, span := q.tracer.Start(ctx, "quote.quote",
		trace.WithAttributes(
			attribute.String("network", req.Network),
			attribute.String("token_in", req.TokenIn),
			attribute.String("token_out", req.TokenOut),
		),
	)
	defer span.End()

	start := time.Now()
	q.metrics.quotesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("network", req.Network)))

	quote, err := q.quote(ctx, req)

	q.metrics.quoteLatencyMs.Record(ctx, float64(time.Since(start).Milliseconds()))
	if err != nil {
		q.metrics.quoteErrors.Add(ctx, 1,
			metric.WithAttributes(attribute.String("code", string(apperror.GetCode(err)))))
		span.RecordError(err)
		span.SetStatus(codes.Error, "quote failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "quoted")
	return quote, nil
}

func (q *Quoter) quote(ctx context.Context, req Request) (*domain.Quote, error) {
	tokenIn, tokenOut, deadline, err := q.validate(req)
	if err != nil {
		return nil, err
	}

	key := q.cacheKey(req)
	if cached, found := q.quoteCache.Get(ctx, key); found {
		q.metrics.cacheHits.Add(ctx, 1)
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, q.cfg.Quote.OverallTimeout)
	defer cancel()

	// Both addresses must answer ERC-20 metadata reads before any pool work;
	// a non-token contract fails here instead of as a confusing empty route.
	mg, mctx := errgroup.WithContext(ctx)
	for _, token := range []common.Address{tokenIn, tokenOut} {
		mg.Go(func() error {
			_, err := q.tokens.Metadata(mctx, req.Network, token)
			return err
		})
	}
	if err := mg.Wait(); err != nil {
		return nil, q.classified(ctx, err)
	}

	refs, err := q.pools.ResolveAll(ctx, req.Network, tokenIn, tokenOut)
	if err != nil {
		return nil, q.classified(ctx, err)
	}

	candidates, err := q.priceCandidates(ctx, req, tokenIn, refs)
	if err != nil {
		return nil, q.classified(ctx, err)
	}
	q.metrics.candidates.Record(ctx, int64(len(candidates)))

	best, err := domain.SelectBest(candidates, domain.Constraints{
		MaxPriceImpactBps: req.MaxPriceImpactBps,
		MaxGasEstimate:    req.MaxGasEstimate,
	})
	if err != nil {
		return nil, err
	}

	amountOutMin, err := domain.ApplySlippage(best.AmountOut, req.SlippageBps, domain.SlippageMin)
	if err != nil {
		return nil, err
	}

	gasEstimate, gasPriceWei := q.estimateGas(ctx, req, tokenIn, tokenOut, best, amountOutMin, deadline)

	quote := &domain.Quote{
		Network:        req.Network,
		TokenIn:        tokenIn,
		TokenOut:       tokenOut,
		AmountIn:       new(big.Int).Set(req.AmountIn),
		AmountOut:      best.AmountOut,
		AmountOutMin:   amountOutMin,
		PriceImpactBps: best.PriceImpactBps,
		Route:          []domain.RouteHop{{Ref: best.Ref, HopIndex: 0}},
		Version:        best.Ref.Version,
		GasEstimate:    gasEstimate,
		GasPriceWei:    gasPriceWei,
		Deadline:       deadline,
		CreatedAt:      time.Now(),
	}

	q.quoteCache.Set(ctx, key, quote, q.cfg.Cache.QuoteTTL)
	return quote, nil
}

// validate enforces the request bounds. The identical-token check runs
// before anything that could touch the network.
func (q *Quoter) validate(req Request) (tokenIn, tokenOut common.Address, deadline time.Time, err error) {
	fail := func(e error) (common.Address, common.Address, time.Time, error) {
		return common.Address{}, common.Address{}, time.Time{}, e
	}

	if !common.IsHexAddress(req.TokenIn) {
		return fail(apperror.New(apperror.CodeInvalidAddress, apperror.WithContext(req.TokenIn)))
	}
	if !common.IsHexAddress(req.TokenOut) {
		return fail(apperror.New(apperror.CodeInvalidAddress, apperror.WithContext(req.TokenOut)))
	}
	if strings.EqualFold(req.TokenIn, req.TokenOut) {
		return fail(apperror.New(apperror.CodeIdenticalTokens,
			apperror.WithContext("token in and token out are the same address")))
	}
	if _, ok := q.cfg.Network(req.Network); !ok {
		return fail(apperror.New(apperror.CodeUnknownNetwork, apperror.WithContext(req.Network)))
	}
	if req.AmountIn == nil || req.AmountIn.Sign() <= 0 {
		return fail(apperror.New(apperror.CodeInvalidAmount,
			apperror.WithContext("amount in must be positive")))
	}
	if req.AmountIn.Cmp(q.maxAmountIn) > 0 {
		return fail(apperror.New(apperror.CodeInvalidAmount,
			apperror.WithContext("amount in exceeds the maximum representable bound")))
	}
	if req.SlippageBps < 0 || req.SlippageBps > domain.MaxSlippageBps {
		return fail(apperror.New(apperror.CodeInvalidSlippage,
			apperror.WithContext(fmt.Sprintf("slippage %d bps outside [0, %d]", req.SlippageBps, domain.MaxSlippageBps))))
	}

	now := time.Now()
	if req.Deadline == nil {
		deadline = now.Add(q.cfg.Quote.DefaultDeadline)
	} else {
		deadline = *req.Deadline
		if deadline.Before(now.Add(q.cfg.Quote.MinDeadline)) || deadline.After(now.Add(q.cfg.Quote.MaxDeadline)) {
			return fail(apperror.New(apperror.CodeInvalidDeadline,
				apperror.WithContext(fmt.Sprintf("deadline must fall within [now+%s, now+%s]",
					q.cfg.Quote.MinDeadline, q.cfg.Quote.MaxDeadline))))
		}
	}

	return common.HexToAddress(req.TokenIn), common.HexToAddress(req.TokenOut), deadline, nil
}

func (q *Quoter) cacheKey(req Request) string {
	deadlinePart := "default"
	if req.Deadline != nil {
		deadlinePart = strconv.FormatInt(req.Deadline.Unix(), 10)
	}
	return cache.Key(req.Network, "quote",
		req.TokenIn,
		req.TokenOut,
		req.AmountIn.String(),
		strconv.FormatInt(req.SlippageBps, 10),
		deadlinePart,
		strconv.FormatInt(req.MaxPriceImpactBps, 10),
		strconv.FormatUint(req.MaxGasEstimate, 10),
	)
}

// priceCandidates fetches state and prices every resolved pool
// concurrently. A candidate that fails structurally is skipped; the quote
// fails only when pricing left nothing and the failure was not structural.
func (q *Quoter) priceCandidates(ctx context.Context, req Request, tokenIn common.Address, refs []marketdomain.PoolRef) ([]domain.RouteCandidate, error) {
	var (
		mu         sync.Mutex
		candidates []domain.RouteCandidate
		lastErr    error
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, ref := range refs {
		g.Go(func() error {
			candidate, err := q.priceOne(gctx, req, tokenIn, ref)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if apperror.IsRetryable(err) && gctx.Err() != nil {
					return err
				}
				lastErr = err
				q.logger.Debug(gctx, "candidate pricing failed",
					"pool", ref.Identity(),
					"version", string(ref.Version),
					"error", err,
				)
				return nil
			}
			candidates = append(candidates, candidate)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(candidates) == 0 && lastErr != nil && apperror.IsRetryable(lastErr) {
		return nil, lastErr
	}
	return candidates, nil
}

func (q *Quoter) priceOne(ctx context.Context, req Request, tokenIn common.Address, ref marketdomain.PoolRef) (domain.RouteCandidate, error) {
	state, err := q.pools.FetchState(ctx, ref)
	if err != nil {
		return domain.RouteCandidate{}, err
	}

	zeroForOne := ref.ZeroForOne(tokenIn)

	var (
		amountOut *big.Int
		impact    int64
		gasCost   uint64
	)
	switch ref.Version {
	case marketdomain.VersionV2:
		reserveIn, reserveOut := state.Reserve0, state.Reserve1
		if !zeroForOne {
			reserveIn, reserveOut = state.Reserve1, state.Reserve0
		}
		amountOut, err = domain.CPOut(reserveIn, reserveOut, req.AmountIn, domain.DefaultCPFeeBps)
		if err != nil {
			return domain.RouteCandidate{}, err
		}
		impact, err = domain.PriceImpactBps(reserveIn, reserveOut, req.AmountIn, amountOut)
		if err != nil {
			return domain.RouteCandidate{}, err
		}
		gasCost = gasSwapV2

	case marketdomain.VersionV3, marketdomain.VersionV4:
		amountOut, err = domain.CLOut(state.Liquidity, state.SqrtPriceX96, req.AmountIn, ref.FeeTier, zeroForOne)
		if err != nil {
			return domain.RouteCandidate{}, err
		}
		impact, err = domain.CLPriceImpactBps(state.SqrtPriceX96, req.AmountIn, amountOut, zeroForOne)
		if err != nil {
			return domain.RouteCandidate{}, err
		}
		gasCost = gasSwapV3
		if ref.Version == marketdomain.VersionV4 {
			gasCost = gasSwapV4
		}

	default:
		return domain.RouteCandidate{}, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext(fmt.Sprintf("unsupported pool version %q", ref.Version)))
	}

	candidate := domain.RouteCandidate{
		Ref:            ref,
		AmountOut:      amountOut,
		PriceImpactBps: impact,
		GasEstimate:    gasCost,
	}
	if ref.Version.ConcentratedLiquidity() && ref.FeeTier == int64(q.cfg.Quote.PreferredFeeTier) {
		candidate.FeeTierBonusBps = int64(q.cfg.Quote.FeeTierBonusBps)
	}
	return candidate, nil
}

// estimateGas asks the node to cost the winning route's swap calldata. Any
// failure degrades to the per-version conservative constant rather than
// failing the quote.
func (q *Quoter) estimateGas(ctx context.Context, req Request, tokenIn, tokenOut common.Address, best domain.RouteCandidate, amountOutMin *big.Int, deadline time.Time) (uint64, *big.Int) {
	fallbackGas := best.GasEstimate
	gasPriceWei := big.NewInt(0)

	netCfg, ok := q.cfg.Network(req.Network)
	if !ok {
		return fallbackGas, gasPriceWei
	}

	recipient := common.HexToAddress(req.Recipient)
	deadlineUnix := big.NewInt(deadline.Unix())

	var (
		router common.Address
		data   []byte
	)
	switch best.Ref.Version {
	case marketdomain.VersionV2:
		router = common.HexToAddress(netCfg.V2Router)
		data = codec.V2SwapExactTokensForTokens(req.AmountIn, amountOutMin,
			[]common.Address{tokenIn, tokenOut}, recipient, deadlineUnix)
	case marketdomain.VersionV3:
		router = common.HexToAddress(netCfg.V3Router)
		data = codec.V3ExactInputSingle(codec.V3ExactInputSingleParams{
			TokenIn:           tokenIn,
			TokenOut:          tokenOut,
			Fee:               best.Ref.FeeTier,
			Recipient:         recipient,
			Deadline:          deadlineUnix,
			AmountIn:          req.AmountIn,
			AmountOutMinimum:  amountOutMin,
			SqrtPriceLimitX96: big.NewInt(0),
		})
	default:
		// No router is configured for V4 routes; price the conservative
		// constant instead of estimating.
		if price, err := q.gas.GasPrice(ctx, req.Network); err == nil {
			gasPriceWei = price.Wei
		}
		return fallbackGas, gasPriceWei
	}

	estimate, err := q.gas.EstimateGas(ctx, req.Network, router, data)
	if err != nil {
		q.logger.Warn(ctx, "gas estimation degraded to fallback",
			"network", req.Network,
			"version", string(best.Ref.Version),
			"error", err,
		)
		if price, perr := q.gas.GasPrice(ctx, req.Network); perr == nil {
			gasPriceWei = price.Wei
		}
		return fallbackGas, gasPriceWei
	}
	return estimate.GasLimit, estimate.GasPrice.Wei
}

// classified guarantees nothing unclassified escapes the orchestrator.
func (q *Quoter) classified(ctx context.Context, err error) error {
	if apperror.IsAppError(err) {
		return err
	}
	if ctx.Err() != nil {
		return apperror.New(apperror.CodeTimeout, apperror.WithCause(err),
			apperror.WithContext("quote exceeded its overall timeout"))
	}
	return apperror.New(apperror.CodeQuoteFailed, apperror.WithCause(err))
}

// Close releases the quote cache.
func (q *Quoter) Close() {
	q.quoteCache.Close()
}
