package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/dexquote/swap-quoter/business/rpc/domain"
	"github.com/dexquote/swap-quoter/business/rpc/infra/jsonrpc"
	"github.com/dexquote/swap-quoter/internal/apperror"
	"github.com/dexquote/swap-quoter/internal/config"
	"github.com/dexquote/swap-quoter/internal/logger"
)

const (
	tracerName = "rpc-gateway"
	meterName  = "rpc-gateway"
)

var _ Caller = (*Gateway)(nil)

// gatewayMetrics holds OTEL metric instruments.
type gatewayMetrics struct {
	callsTotal    metric.Int64Counter
	callErrors    metric.Int64Counter
	dedupJoins    metric.Int64Counter
	batchesTotal  metric.Int64Counter
	batchSize     metric.Int64Histogram
	callLatencyMs metric.Float64Histogram
}

// networkGateway holds everything bound to a single network: the endpoint
// pool, one transport per endpoint, the in-flight table, and the batcher.
type networkGateway struct {
	pool       *domain.Pool
	transports []Transport
	selector   domain.Selector
	flight     singleflight.Group
	batcher    *Batcher
}

// Gateway issues JSON-RPC calls against per-network endpoint pools.
// One endpoint is selected per call; there is no failover within a call —
// the retry controller one layer up may pick a different endpoint on retry.
type Gateway struct {
	networks    map[string]*networkGateway
	callTimeout time.Duration

	logger  logger.LoggerInterface
	tracer  trace.Tracer
	metrics *gatewayMetrics
}

// TransportFactory builds the transport for one endpoint URL.
type TransportFactory func(url string) Transport

// GatewayOption customizes gateway construction.
type GatewayOption func(*gatewayOptions)

type gatewayOptions struct {
	factory   TransportFactory
	selectors func() domain.Selector
}

// WithTransportFactory injects a transport constructor; tests use this to
// substitute fakes for live endpoints.
func WithTransportFactory(f TransportFactory) GatewayOption {
	return func(o *gatewayOptions) { o.factory = f }
}

// WithSelectorFactory injects the per-network endpoint selection strategy.
func WithSelectorFactory(f func() domain.Selector) GatewayOption {
	return func(o *gatewayOptions) { o.selectors = f }
}

// NewGateway creates a gateway from the configured networks.
func NewGateway(cfg *config.Config, log logger.LoggerInterface, opts ...GatewayOption) (*Gateway, error) {
	options := &gatewayOptions{
		factory: func(url string) Transport {
			return jsonrpc.NewClient(url, cfg.RPC.RequestsPerSecond, cfg.RPC.Burst)
		},
		selectors: selectorFactory(cfg.RPC.Selection),
	}
	for _, opt := range opts {
		opt(options)
	}

	g := &Gateway{
		networks:    make(map[string]*networkGateway),
		callTimeout: cfg.RPC.CallTimeout,
		logger:      log,
		tracer:      otel.Tracer(tracerName),
	}

	for name, netCfg := range cfg.Networks {
		ng := &networkGateway{
			pool:     domain.NewPool(name, netCfg.Endpoints),
			selector: options.selectors(),
		}
		for _, url := range netCfg.Endpoints {
			ng.transports = append(ng.transports, options.factory(url))
		}
		ng.batcher = NewBatcher(cfg.RPC.BatchWindow, cfg.RPC.MaxBatchSize, g.flushBatch(ng))
		g.networks[name] = ng
	}

	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return g, nil
}

func selectorFactory(mode string) func() domain.Selector {
	if mode == "random" {
		return func() domain.Selector { return domain.NewRandom(time.Now().UnixNano()) }
	}
	return func() domain.Selector { return domain.NewRoundRobin() }
}

func (g *Gateway) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &gatewayMetrics{}

	if g.metrics.callsTotal, err = meter.Int64Counter(
		"rpc_calls_total",
		metric.WithDescription("Total gateway calls"),
	); err != nil {
		return err
	}
	if g.metrics.callErrors, err = meter.Int64Counter(
		"rpc_call_errors_total",
		metric.WithDescription("Total gateway call failures"),
	); err != nil {
		return err
	}
	if g.metrics.dedupJoins, err = meter.Int64Counter(
		"rpc_dedup_joins_total",
		metric.WithDescription("Calls that joined an identical in-flight call"),
	); err != nil {
		return err
	}
	if g.metrics.batchesTotal, err = meter.Int64Counter(
		"rpc_batches_total",
		metric.WithDescription("Batched transport calls issued"),
	); err != nil {
		return err
	}
	if g.metrics.batchSize, err = meter.Int64Histogram(
		"rpc_batch_size",
		metric.WithDescription("Requests per batched transport call"),
	); err != nil {
		return err
	}
	if g.metrics.callLatencyMs, err = meter.Float64Histogram(
		"rpc_call_latency_ms",
		metric.WithDescription("Gateway call latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return err
	}
	return nil
}

// Call implements Caller.
func (g *Gateway) Call(ctx context.Context, network string, result any, method string, params ...any) error {
	ctx, span := g.tracer.Start(ctx, "rpc.call",
		trace.WithAttributes(
			attribute.String("network", network),
			attribute.String("method", method),
		),
	)
	defer span.End()

	start := time.Now()
	g.metrics.callsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))

	raw, err := g.callRaw(ctx, network, method, params)

	g.metrics.callLatencyMs.Record(ctx, float64(time.Since(start).Milliseconds()))

	if err != nil {
		g.metrics.callErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
		span.RecordError(err)
		span.SetStatus(codes.Error, "call failed")
		return err
	}

	if result != nil {
		if uerr := json.Unmarshal(raw, result); uerr != nil {
			err := apperror.New(apperror.CodeRPCError,
				apperror.WithCause(uerr),
				apperror.WithContext(fmt.Sprintf("malformed %s response", method)))
			span.RecordError(err)
			return err
		}
	}

	span.SetStatus(codes.Ok, "ok")
	return nil
}

// callRaw coalesces identical in-flight calls and funnels unique ones into
// the network's batcher.
func (g *Gateway) callRaw(ctx context.Context, network, method string, params []any) (json.RawMessage, error) {
	ng, ok := g.networks[network]
	if !ok {
		return nil, apperror.New(apperror.CodeUnknownNetwork, apperror.WithContext(network))
	}
	if ng.pool.Size() == 0 {
		return nil, apperror.New(apperror.CodeNoEndpoints, apperror.WithContext(network))
	}

	ctx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	key, err := dedupKey(network, method, params)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithCause(err),
			apperror.WithContext("unencodable call params"))
	}

	raw, err, shared := ng.flight.Do(key, func() (any, error) {
		res, serr := ng.batcher.Submit(ctx, method, params)
		if serr != nil && !apperror.IsAppError(serr) {
			// The batcher surfaces the leader's context error raw. Joined
			// callers share this outcome, so it must leave here classified.
			return nil, apperror.New(apperror.CodeTimeout,
				apperror.WithCause(serr),
				apperror.WithContext("call abandoned before its batch settled"))
		}
		return res, serr
	})
	if shared {
		g.metrics.dedupJoins.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
	}
	if err != nil {
		return nil, err
	}
	return raw.(json.RawMessage), nil
}

// flushBatch executes one collected batch against a freshly selected
// endpoint. Batches run on their own deadline because several callers share
// the outcome.
func (g *Gateway) flushBatch(ng *networkGateway) flushFunc {
	return func(calls []*pendingCall) {
		ctx, cancel := context.WithTimeout(context.Background(), g.callTimeout)
		defer cancel()

		transport := ng.transports[ng.selector.Next(len(ng.transports))]

		g.metrics.batchesTotal.Add(ctx, 1)
		g.metrics.batchSize.Record(ctx, int64(len(calls)))

		if len(calls) == 1 {
			raw, err := transport.Call(ctx, calls[0].method, calls[0].params...)
			calls[0].done <- callResult{raw: raw, err: err}
			return
		}

		elems := make([]jsonrpc.BatchElem, len(calls))
		for i, c := range calls {
			elems[i] = jsonrpc.BatchElem{Method: c.method, Params: c.params}
		}

		if err := transport.Batch(ctx, elems); err != nil {
			g.logger.Warn(ctx, "batched call failed",
				"endpoint", transport.URL(),
				"size", len(calls),
				"error", err,
			)
			deliverError(calls, err)
			return
		}

		for i, c := range calls {
			c.done <- callResult{raw: elems[i].Result, err: elems[i].Err}
		}
	}
}

// dedupKey builds the endpoint-independent identity of a call.
func dedupKey(network, method string, params []any) (string, error) {
	encoded, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	return network + "|" + method + "|" + string(encoded), nil
}

// Close releases every transport.
func (g *Gateway) Close() {
	for _, ng := range g.networks {
		for _, t := range ng.transports {
			t.Close()
		}
	}
}
