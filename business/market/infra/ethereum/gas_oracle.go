package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/dexquote/swap-quoter/business/market/domain"
	rpcapp "github.com/dexquote/swap-quoter/business/rpc/app"
	"github.com/dexquote/swap-quoter/internal/cache"
	"github.com/dexquote/swap-quoter/internal/logger"
)

const (
	tracerName = "market-ethereum"
	meterName  = "market-ethereum"
)

// GasOracleConfig holds configuration for the gas oracle.
type GasOracleConfig struct {
	CacheTTL    time.Duration // how long a fetched price stays valid
	MaxGasPrice *big.Int      // cap on acceptable gas price
	DefaultGas  uint64        // fallback gas limit when estimation fails
}

// DefaultGasOracleConfig returns sensible defaults.
func DefaultGasOracleConfig() GasOracleConfig {
	maxGas := new(big.Int)
	maxGas.SetString("500000000000", 10) // 500 gwei

	return GasOracleConfig{
		CacheTTL:    30 * time.Second,
		MaxGasPrice: maxGas,
		DefaultGas:  200_000,
	}
}

// gasOracleMetrics holds OTEL metric instruments.
type gasOracleMetrics struct {
	priceFetches metric.Int64Counter
	priceGwei    metric.Float64Gauge
	estimates    metric.Int64Counter
	cacheHits    metric.Int64Counter
	cacheMisses  metric.Int64Counter
}

// GasOracle fetches gas prices and estimates through the RPC gateway,
// caching prices per network.
type GasOracle struct {
	config GasOracleConfig
	caller rpcapp.Caller
	reader *Reader
	logger logger.LoggerInterface

	priceCache *cache.Cache[string, *domain.GasPrice]

	tracer  trace.Tracer
	metrics *gasOracleMetrics
}

// NewGasOracle creates a gas oracle over the RPC gateway.
func NewGasOracle(cfg GasOracleConfig, caller rpcapp.Caller, reader *Reader, log logger.LoggerInterface) (*GasOracle, error) {
	g := &GasOracle{
		config:     cfg,
		caller:     caller,
		reader:     reader,
		logger:     log,
		priceCache: cache.New[string, *domain.GasPrice](5 * time.Minute),
		tracer:     otel.Tracer(tracerName),
	}

	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return g, nil
}

func (g *GasOracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &gasOracleMetrics{}

	if g.metrics.priceFetches, err = meter.Int64Counter(
		"gas_price_fetches_total",
		metric.WithDescription("Total gas price fetch attempts"),
	); err != nil {
		return err
	}
	if g.metrics.priceGwei, err = meter.Float64Gauge(
		"gas_price_gwei",
		metric.WithDescription("Last fetched gas price in gwei"),
		metric.WithUnit("gwei"),
	); err != nil {
		return err
	}
	if g.metrics.estimates, err = meter.Int64Counter(
		"gas_estimate_total",
		metric.WithDescription("Total gas estimation calls"),
	); err != nil {
		return err
	}
	if g.metrics.cacheHits, err = meter.Int64Counter(
		"gas_cache_hits_total",
		metric.WithDescription("Gas price cache hits"),
	); err != nil {
		return err
	}
	if g.metrics.cacheMisses, err = meter.Int64Counter(
		"gas_cache_misses_total",
		metric.WithDescription("Gas price cache misses"),
	); err != nil {
		return err
	}
	return nil
}

// GasPrice returns the current gas price for a network, cached per the
// configured TTL and capped at MaxGasPrice.
func (g *GasOracle) GasPrice(ctx context.Context, network string) (*domain.GasPrice, error) {
	ctx, span := g.tracer.Start(ctx, "gas.price",
		trace.WithAttributes(attribute.String("network", network)),
	)
	defer span.End()

	key := cache.Key(network, "gasprice")
	if price, found := g.priceCache.Get(ctx, key); found {
		g.metrics.cacheHits.Add(ctx, 1)
		span.AddEvent("cache_hit")
		return price, nil
	}
	g.metrics.cacheMisses.Add(ctx, 1)
	g.metrics.priceFetches.Add(ctx, 1)

	wei, err := g.reader.GasPriceWei(ctx, network)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, err
	}

	value := wei.ToInt()
	if g.config.MaxGasPrice != nil && value.Cmp(g.config.MaxGasPrice) > 0 {
		g.logger.Warn(ctx, "gas price exceeds max, capping",
			"network", network,
			"wei", value.String(),
		)
		value = g.config.MaxGasPrice
	}

	price := domain.NewGasPrice(value)
	g.priceCache.Set(ctx, key, price, g.config.CacheTTL)

	g.metrics.priceGwei.Record(ctx, price.Gwei())
	span.SetAttributes(attribute.Float64("gwei", price.Gwei()))
	span.SetStatus(codes.Ok, "fetched")

	return price, nil
}

// EstimateGas estimates the gas needed for a call. A node-side estimation
// failure degrades to the configured default limit instead of failing the
// caller; the Fallback flag on the estimate records the degradation.
func (g *GasOracle) EstimateGas(ctx context.Context, network string, to common.Address, data []byte) (*domain.GasEstimate, error) {
	ctx, span := g.tracer.Start(ctx, "gas.estimate",
		trace.WithAttributes(
			attribute.String("network", network),
			attribute.String("to", to.Hex()),
		),
	)
	defer span.End()

	g.metrics.estimates.Add(ctx, 1)

	price, err := g.GasPrice(ctx, network)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var out hexutil.Uint64
	err = g.caller.Call(ctx, network, &out, "eth_estimateGas", callMsg{To: to, Data: data})
	if err != nil {
		span.AddEvent("using_default_gas",
			trace.WithAttributes(attribute.Int64("default", int64(g.config.DefaultGas))))
		estimate := domain.NewGasEstimate(g.config.DefaultGas, price)
		estimate.Fallback = true
		span.SetStatus(codes.Ok, "estimated with fallback")
		return estimate, nil
	}

	// 10% margin over the node's estimate
	gas := uint64(out)
	gas = gas + gas/10

	span.SetAttributes(attribute.Int64("gas", int64(gas)))
	span.SetStatus(codes.Ok, "estimated")

	return domain.NewGasEstimate(gas, price), nil
}

// Close releases the price cache.
func (g *GasOracle) Close() {
	g.priceCache.Close()
}
