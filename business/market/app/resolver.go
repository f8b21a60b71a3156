package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/dexquote/swap-quoter/business/market/domain"
	ethinfra "github.com/dexquote/swap-quoter/business/market/infra/ethereum"
	"github.com/dexquote/swap-quoter/internal/apperror"
	"github.com/dexquote/swap-quoter/internal/cache"
	"github.com/dexquote/swap-quoter/internal/config"
	"github.com/dexquote/swap-quoter/internal/logger"
)

const (
	tracerName = "market"
	meterName  = "market"
)

var zeroAddress common.Address

// resolverMetrics holds OTEL metric instruments.
type resolverMetrics struct {
	resolves     metric.Int64Counter
	stateFetches metric.Int64Counter
	cacheHits    metric.Int64Counter
	cacheMisses  metric.Int64Counter
}

// Resolver locates pools for a token pair across AMM versions and fee tiers
// and fetches their state. Resolved refs are cached long-term; state is
// cached per the pool-state TTL and refetched once it lapses.
type Resolver struct {
	cfg    *config.Config
	chain  ChainReader
	logger logger.LoggerInterface

	refCache   *cache.Cache[string, domain.PoolRef]
	stateCache *cache.Cache[string, *domain.PoolState]

	tracer  trace.Tracer
	metrics *resolverMetrics
}

// NewResolver creates a pool resolver over a chain reader.
func NewResolver(cfg *config.Config, chain ChainReader, log logger.LoggerInterface) (*Resolver, error) {
	r := &Resolver{
		cfg:        cfg,
		chain:      chain,
		logger:     log,
		refCache:   cache.New[string, domain.PoolRef](10 * time.Minute),
		stateCache: cache.New[string, *domain.PoolState](time.Minute),
		tracer:     otel.Tracer(tracerName),
	}

	if err := r.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return r, nil
}

func (r *Resolver) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	r.metrics = &resolverMetrics{}

	if r.metrics.resolves, err = meter.Int64Counter(
		"pool_resolves_total",
		metric.WithDescription("Total pool resolution attempts"),
	); err != nil {
		return err
	}
	if r.metrics.stateFetches, err = meter.Int64Counter(
		"pool_state_fetches_total",
		metric.WithDescription("Total pool state fetches"),
	); err != nil {
		return err
	}
	if r.metrics.cacheHits, err = meter.Int64Counter(
		"pool_cache_hits_total",
		metric.WithDescription("Pool ref and state cache hits"),
	); err != nil {
		return err
	}
	if r.metrics.cacheMisses, err = meter.Int64Counter(
		"pool_cache_misses_total",
		metric.WithDescription("Pool ref and state cache misses"),
	); err != nil {
		return err
	}
	return nil
}

func notFound(network string, version domain.Version, feeTier int64) error {
	return apperror.New(apperror.CodePoolNotFound,
		apperror.WithContext(fmt.Sprintf("%s %s fee tier %d", network, version, feeTier)))
}

// Resolve locates the pool for a token pair at one version and fee tier.
// V2 ignores the fee tier. A pool that does not exist, has no deployed code
// or holds no liquidity resolves to POOL_NOT_FOUND.
func (r *Resolver) Resolve(ctx context.Context, network string, tokenA, tokenB common.Address, version domain.Version, feeTier int64) (domain.PoolRef, error) {
	ctx, span := r.tracer.Start(ctx, "market.resolve",
		trace.WithAttributes(
			attribute.String("network", network),
			attribute.String("version", string(version)),
			attribute.Int64("fee_tier", feeTier),
		),
	)
	defer span.End()

	r.metrics.resolves.Add(ctx, 1, metric.WithAttributes(attribute.String("version", string(version))))

	netCfg, ok := r.cfg.Network(network)
	if !ok {
		err := apperror.New(apperror.CodeUnknownNetwork, apperror.WithContext(network))
		span.RecordError(err)
		return domain.PoolRef{}, err
	}

	t0, t1 := domain.SortTokens(tokenA, tokenB)
	key := cache.Key(network, "poolref", string(version), strconv.FormatInt(feeTier, 10), t0.Hex(), t1.Hex())

	if ref, found := r.refCache.Get(ctx, key); found {
		r.metrics.cacheHits.Add(ctx, 1)
		span.AddEvent("cache_hit")
		return ref, nil
	}
	r.metrics.cacheMisses.Add(ctx, 1)

	ref, err := r.resolveUncached(ctx, network, netCfg, t0, t1, version, feeTier)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve failed")
		return domain.PoolRef{}, err
	}

	r.refCache.Set(ctx, key, ref, r.cfg.Cache.PoolRefTTL)
	span.SetStatus(codes.Ok, "resolved")
	return ref, nil
}

func (r *Resolver) resolveUncached(ctx context.Context, network string, netCfg config.NetworkConfig, t0, t1 common.Address, version domain.Version, feeTier int64) (domain.PoolRef, error) {
	switch version {
	case domain.VersionV2:
		pair, err := r.chain.V2PairAddress(ctx, network, common.HexToAddress(netCfg.V2Factory), t0, t1)
		if err != nil {
			return domain.PoolRef{}, err
		}
		if pair == zeroAddress {
			return domain.PoolRef{}, notFound(network, version, 0)
		}
		if err := r.requireCode(ctx, network, pair); err != nil {
			return domain.PoolRef{}, err
		}
		return domain.NewPoolRef(network, version, pair, t0, t1, 30), nil

	case domain.VersionV3:
		pool, err := r.chain.V3PoolAddress(ctx, network, common.HexToAddress(netCfg.V3Factory), t0, t1, feeTier)
		if err != nil {
			return domain.PoolRef{}, err
		}
		if pool == zeroAddress {
			return domain.PoolRef{}, notFound(network, version, feeTier)
		}
		if err := r.requireCode(ctx, network, pool); err != nil {
			return domain.PoolRef{}, err
		}
		return domain.NewPoolRef(network, version, pool, t0, t1, feeTier), nil

	case domain.VersionV4:
		if netCfg.V4StateView == "" {
			return domain.PoolRef{}, notFound(network, version, feeTier)
		}
		poolID, err := ethinfra.V4PoolID(t0, t1, feeTier, domain.TickSpacingForFee(feeTier))
		if err != nil {
			return domain.PoolRef{}, apperror.New(apperror.CodePoolNotFound,
				apperror.WithCause(err),
				apperror.WithContext("pool key encoding"))
		}
		state, err := r.chain.V4PoolState(ctx, network, common.HexToAddress(netCfg.V4StateView), poolID)
		if err != nil {
			return domain.PoolRef{}, err
		}
		if state.Empty() {
			return domain.PoolRef{}, notFound(network, version, feeTier)
		}
		ref := domain.NewPoolRef(network, version, zeroAddress, t0, t1, feeTier)
		ref.PoolID = poolID
		// Resolution already read fresh state; seed the state cache with it.
		r.stateCache.Set(ctx, stateKey(ref), state, r.cfg.Cache.PoolStateTTL)
		return ref, nil

	default:
		return domain.PoolRef{}, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext(fmt.Sprintf("unsupported pool version %q", version)))
	}
}

func (r *Resolver) requireCode(ctx context.Context, network string, addr common.Address) error {
	has, err := r.chain.HasCode(ctx, network, addr)
	if err != nil {
		return err
	}
	if !has {
		return apperror.New(apperror.CodePoolNotFound,
			apperror.WithContext(fmt.Sprintf("no code at %s", addr.Hex())))
	}
	return nil
}

// ResolveAll enumerates every viable pool for a token pair: the V2 pair plus
// every existing V3 and V4 fee tier. Missing pools are skipped; a transport
// failure only surfaces when it left no candidates at all.
func (r *Resolver) ResolveAll(ctx context.Context, network string, tokenA, tokenB common.Address) ([]domain.PoolRef, error) {
	ctx, span := r.tracer.Start(ctx, "market.resolve_all",
		trace.WithAttributes(attribute.String("network", network)),
	)
	defer span.End()

	type probe struct {
		version domain.Version
		feeTier int64
	}
	probes := []probe{{domain.VersionV2, 0}}
	for _, tier := range domain.FeeTiers {
		probes = append(probes, probe{domain.VersionV3, tier})
		probes = append(probes, probe{domain.VersionV4, tier})
	}

	var (
		refs     []domain.PoolRef
		firstErr error
	)
	for _, p := range probes {
		ref, err := r.Resolve(ctx, network, tokenA, tokenB, p.version, p.feeTier)
		if err != nil {
			if apperror.GetCode(err) != apperror.CodePoolNotFound {
				if firstErr == nil {
					firstErr = err
				}
				r.logger.Warn(ctx, "pool probe failed",
					"network", network,
					"version", string(p.version),
					"fee_tier", p.feeTier,
					"error", err,
				)
			}
			continue
		}
		refs = append(refs, ref)
	}

	if len(refs) == 0 {
		if firstErr != nil {
			span.RecordError(firstErr)
			return nil, firstErr
		}
		err := apperror.New(apperror.CodePoolNotFound,
			apperror.WithContext(fmt.Sprintf("no pools for pair on %s", network)))
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("candidates", len(refs)))
	span.SetStatus(codes.Ok, "resolved")
	return refs, nil
}

func stateKey(ref domain.PoolRef) string {
	return cache.Key(ref.Network, "poolstate", ref.Identity())
}

// FetchState returns the pool's current state, served from cache until the
// pool-state TTL lapses. An empty snapshot means the pool has been drained
// since resolution and reads as POOL_NOT_FOUND.
func (r *Resolver) FetchState(ctx context.Context, ref domain.PoolRef) (*domain.PoolState, error) {
	ctx, span := r.tracer.Start(ctx, "market.fetch_state",
		trace.WithAttributes(
			attribute.String("network", ref.Network),
			attribute.String("pool", ref.Identity()),
		),
	)
	defer span.End()

	key := stateKey(ref)
	if state, found := r.stateCache.Get(ctx, key); found {
		r.metrics.cacheHits.Add(ctx, 1)
		span.AddEvent("cache_hit")
		return state, nil
	}
	r.metrics.cacheMisses.Add(ctx, 1)
	r.metrics.stateFetches.Add(ctx, 1)

	state, err := r.fetchStateUncached(ctx, ref)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, err
	}
	if err := state.Validate(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if state.Empty() {
		err := apperror.New(apperror.CodePoolNotFound,
			apperror.WithContext(fmt.Sprintf("pool %s is empty", ref.Identity())))
		span.RecordError(err)
		return nil, err
	}

	r.stateCache.Set(ctx, key, state, r.cfg.Cache.PoolStateTTL)
	span.SetStatus(codes.Ok, "fetched")
	return state, nil
}

func (r *Resolver) fetchStateUncached(ctx context.Context, ref domain.PoolRef) (*domain.PoolState, error) {
	switch ref.Version {
	case domain.VersionV2:
		return r.chain.V2Reserves(ctx, ref.Network, ref.PoolAddress)
	case domain.VersionV3:
		return r.chain.V3PoolState(ctx, ref.Network, ref.PoolAddress)
	case domain.VersionV4:
		netCfg, ok := r.cfg.Network(ref.Network)
		if !ok || netCfg.V4StateView == "" {
			return nil, apperror.New(apperror.CodeUnknownNetwork, apperror.WithContext(ref.Network))
		}
		return r.chain.V4PoolState(ctx, ref.Network, common.HexToAddress(netCfg.V4StateView), ref.PoolID)
	default:
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext(fmt.Sprintf("unsupported pool version %q", ref.Version)))
	}
}

// Close releases both caches.
func (r *Resolver) Close() {
	r.refCache.Close()
	r.stateCache.Close()
}
