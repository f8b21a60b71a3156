package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/dexquote/swap-quoter/business/market/domain"
	"github.com/dexquote/swap-quoter/internal/asset"
	"github.com/dexquote/swap-quoter/internal/cache"
	"github.com/dexquote/swap-quoter/internal/config"
	"github.com/dexquote/swap-quoter/internal/logger"
)

// tokenMetrics holds OTEL metric instruments.
type tokenMetrics struct {
	lookups     metric.Int64Counter
	chainReads  metric.Int64Counter
	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter
}

// TokenService serves ERC-20 metadata. Well-known tokens resolve from the
// static registry without a network call; everything else is read on-chain
// once and cached for the token-metadata TTL.
type TokenService struct {
	cfg      *config.Config
	chain    ChainReader
	registry *asset.Registry
	logger   logger.LoggerInterface

	metaCache *cache.Cache[string, *domain.TokenMeta]

	tracer  trace.Tracer
	metrics *tokenMetrics
}

// NewTokenService creates a token metadata service.
func NewTokenService(cfg *config.Config, chain ChainReader, log logger.LoggerInterface) (*TokenService, error) {
	s := &TokenService{
		cfg:       cfg,
		chain:     chain,
		registry:  asset.DefaultRegistry(),
		logger:    log,
		metaCache: cache.New[string, *domain.TokenMeta](time.Hour),
		tracer:    otel.Tracer(tracerName),
	}

	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return s, nil
}

func (s *TokenService) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &tokenMetrics{}

	if s.metrics.lookups, err = meter.Int64Counter(
		"token_lookups_total",
		metric.WithDescription("Total token metadata lookups"),
	); err != nil {
		return err
	}
	if s.metrics.chainReads, err = meter.Int64Counter(
		"token_chain_reads_total",
		metric.WithDescription("Token metadata reads that went on-chain"),
	); err != nil {
		return err
	}
	if s.metrics.cacheHits, err = meter.Int64Counter(
		"token_cache_hits_total",
		metric.WithDescription("Token metadata cache hits"),
	); err != nil {
		return err
	}
	if s.metrics.cacheMisses, err = meter.Int64Counter(
		"token_cache_misses_total",
		metric.WithDescription("Token metadata cache misses"),
	); err != nil {
		return err
	}
	return nil
}

// Metadata returns the token's name, symbol and decimals.
func (s *TokenService) Metadata(ctx context.Context, network string, token common.Address) (*domain.TokenMeta, error) {
	ctx, span := s.tracer.Start(ctx, "market.token_metadata",
		trace.WithAttributes(
			attribute.String("network", network),
			attribute.String("token", token.Hex()),
		),
	)
	defer span.End()

	s.metrics.lookups.Add(ctx, 1)

	key := cache.Key(network, "tokenmeta", token.Hex())
	if meta, found := s.metaCache.Get(ctx, key); found {
		s.metrics.cacheHits.Add(ctx, 1)
		span.AddEvent("cache_hit")
		return meta, nil
	}
	s.metrics.cacheMisses.Add(ctx, 1)

	if meta := s.fromRegistry(network, token); meta != nil {
		span.AddEvent("registry_hit")
		s.metaCache.Set(ctx, key, meta, s.cfg.Cache.TokenMetaTTL)
		return meta, nil
	}

	s.metrics.chainReads.Add(ctx, 1)
	name, symbol, decimals, err := s.chain.TokenMetadata(ctx, network, token)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return nil, err
	}

	meta, err := domain.NewTokenMeta(network, token, name, symbol, decimals)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.metaCache.Set(ctx, key, meta, s.cfg.Cache.TokenMetaTTL)
	span.SetStatus(codes.Ok, "fetched")
	return meta, nil
}

func (s *TokenService) fromRegistry(network string, token common.Address) *domain.TokenMeta {
	netCfg, ok := s.cfg.Network(network)
	if !ok {
		return nil
	}
	a, ok := s.registry.Get(netCfg.ChainID, token)
	if !ok {
		return nil
	}
	return &domain.TokenMeta{
		Network:  network,
		Address:  a.Address(),
		Name:     a.Name(),
		Symbol:   a.Symbol(),
		Decimals: a.Decimals(),
	}
}

// Close releases the metadata cache.
func (s *TokenService) Close() {
	s.metaCache.Close()
}
