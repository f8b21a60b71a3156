// Package main is the entry point for the swap quote service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/joho/godotenv"

	executionapp "github.com/dexquote/swap-quoter/business/execution/app"
	marketapp "github.com/dexquote/swap-quoter/business/market/app"
	"github.com/dexquote/swap-quoter/business/market/infra/ethereum"
	quoteapp "github.com/dexquote/swap-quoter/business/quote/app"
	rpcapp "github.com/dexquote/swap-quoter/business/rpc/app"
	"github.com/dexquote/swap-quoter/internal/apm"
	"github.com/dexquote/swap-quoter/internal/config"
	"github.com/dexquote/swap-quoter/internal/health"
	"github.com/dexquote/swap-quoter/internal/logger"
	"github.com/dexquote/swap-quoter/internal/metrics"
	"github.com/dexquote/swap-quoter/internal/retry"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("quoterd %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logLevel := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		logLevel = logger.LevelDebug
	case "warn":
		logLevel = logger.LevelWarn
	case "error":
		logLevel = logger.LevelError
	}
	log := logger.New(os.Stderr, logLevel, cfg.App.Name)

	log.Info(ctx, "starting swap quote service",
		"version", version,
		"environment", cfg.App.Environment,
		"networks", len(cfg.Networks),
	)

	// Observability. Without an endpoint the providers no-op, so the
	// per-component instruments register unconditionally.
	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		traceOpt := apm.UseEmpty()
		if cfg.Telemetry.OTLPEndpoint != "" {
			traceOpt = apm.UseOTLPGRPC(cfg.Telemetry.OTLPEndpoint)
		}
		traceProvider = apm.NewTraceProvider(cfg.Telemetry.ServiceName, traceOpt)
		log.Info(ctx, "tracing initialized", "endpoint", cfg.Telemetry.OTLPEndpoint)

		if _, err := metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithPrometheus(),
		); err != nil {
			return fmt.Errorf("failed to init metrics: %w", err)
		}

		promPort := cfg.Telemetry.PrometheusPort
		if promPort == 0 {
			promPort = 9090
		}
		go func() {
			if serveErr := metrics.ServePrometheusMetrics(promPort); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
				log.Warn(ctx, "prometheus server stopped", "error", serveErr)
			}
		}()
		log.Info(ctx, "prometheus metrics server started", "port", promPort)
	}
	defer func() {
		if traceProvider != nil {
			_ = traceProvider.Stop()
		}
	}()

	// RPC layer.
	gateway, err := rpcapp.NewGateway(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create rpc gateway: %w", err)
	}
	defer gateway.Close()

	retryPolicy := retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		Multiplier:  cfg.Retry.Multiplier,
		MaxDelay:    cfg.Retry.MaxDelay,
	}

	// Market layer.
	reader := ethereum.NewReader(gateway, retryPolicy)
	poolReader, err := ethereum.NewPoolReader(reader)
	if err != nil {
		return fmt.Errorf("failed to create pool reader: %w", err)
	}

	resolver, err := marketapp.NewResolver(cfg, poolReader, log)
	if err != nil {
		return fmt.Errorf("failed to create pool resolver: %w", err)
	}
	defer resolver.Close()

	tokens, err := marketapp.NewTokenService(cfg, poolReader, log)
	if err != nil {
		return fmt.Errorf("failed to create token service: %w", err)
	}
	defer tokens.Close()

	oracleCfg := ethereum.DefaultGasOracleConfig()
	if cfg.Cache.GasPriceTTL > 0 {
		oracleCfg.CacheTTL = cfg.Cache.GasPriceTTL
	}
	oracle, err := ethereum.NewGasOracle(oracleCfg, gateway, reader, log)
	if err != nil {
		return fmt.Errorf("failed to create gas oracle: %w", err)
	}
	defer oracle.Close()

	// Quote and execution layers.
	quoter, err := quoteapp.NewQuoter(cfg, resolver, tokens, oracle, log)
	if err != nil {
		return fmt.Errorf("failed to create quoter: %w", err)
	}
	defer quoter.Close()

	approvals := executionapp.NewApprovalService(gateway, cfg.Cache.ApprovalTTL, retryPolicy, log)
	defer approvals.Close()

	builder := executionapp.NewTxBuilder(cfg)

	// Health probes: one block-number check per configured network.
	healthPort := cfg.App.HealthPort
	if healthPort == 0 {
		healthPort = 8081
	}
	healthServer := health.NewServer(healthPort, version)
	for name := range cfg.Networks {
		healthServer.RegisterCheck("rpc-"+name, networkCheck(gateway, name))
	}
	healthServer.Start()
	defer func() { _ = healthServer.Stop(context.Background()) }()
	log.Info(ctx, "health server started", "port", healthPort)

	// HTTP API.
	listenPort := cfg.App.ListenPort
	if listenPort == 0 {
		listenPort = 8080
	}
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", listenPort),
		Handler:           newAPI(quoter, approvals, builder, log).routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "http server started", "port", listenPort)
		if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "http server shutdown failed", "error", err)
	}

	return nil
}

// networkCheck probes one network's RPC endpoints with a block number read.
func networkCheck(gateway *rpcapp.Gateway, network string) health.CheckFunc {
	return func(ctx context.Context) (bool, string) {
		var head hexutil.Uint64
		if err := gateway.Call(ctx, network, &head, "eth_blockNumber"); err != nil {
			return false, err.Error()
		}
		return true, fmt.Sprintf("block %d", uint64(head))
	}
}
