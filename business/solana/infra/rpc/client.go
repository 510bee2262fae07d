// Package rpc talks to a Solana cluster over JSON-RPC 2.0.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/evalysfun/evalys-arcium-bridge-service/business/solana/domain"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/apperror"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/cache"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/circuitbreaker"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/logger"
)

const (
	tracerName = "github.com/evalysfun/evalys-arcium-bridge-service/business/solana/infra/rpc"
	meterName  = "github.com/evalysfun/evalys-arcium-bridge-service/business/solana/infra/rpc"

	slotKey = "slot"
)

// Config holds RPC client settings.
type Config struct {
	URL        string
	Timeout    time.Duration // per call
	Commitment string
	SlotTTL    time.Duration // how long a fetched slot is reused
}

// DefaultConfig returns settings for url.
func DefaultConfig(url string) Config {
	return Config{
		URL:        url,
		Timeout:    10 * time.Second,
		Commitment: "confirmed",
		SlotTTL:    400 * time.Millisecond, // ~1 slot
	}
}

type clientMetrics struct {
	calls     metric.Int64Counter
	slot      metric.Int64Gauge
	cacheHits metric.Int64Counter
	cacheMiss metric.Int64Counter
}

// Client is a Solana RPC client.
type Client struct {
	config Config
	logger logger.LoggerInterface

	rpc   *gethrpc.Client
	rpcMu sync.RWMutex

	slotCache *cache.Cache[string, uint64]
	cb        *circuitbreaker.CircuitBreaker[json.RawMessage]

	tracer  trace.Tracer
	metrics *clientMetrics
}

// New creates a Client. No connection is made until Connect.
func New(cfg Config, log logger.LoggerInterface) (*Client, error) {
	if cfg.URL == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("solana rpc url is required"))
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	c := &Client{
		config:    cfg,
		logger:    log,
		slotCache: cache.New[string, uint64](0),
		tracer:    otel.Tracer(tracerName),
	}

	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	c.initCircuitBreaker()

	return c, nil
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &clientMetrics{}

	c.metrics.calls, err = meter.Int64Counter(
		"solana_rpc_calls_total",
		metric.WithDescription("Solana RPC calls by method and outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	c.metrics.slot, err = meter.Int64Gauge(
		"solana_slot",
		metric.WithDescription("Last observed Solana slot"),
		metric.WithUnit("{slot}"),
	)
	if err != nil {
		return err
	}

	c.metrics.cacheHits, err = meter.Int64Counter(
		"solana_slot_cache_hits_total",
		metric.WithDescription("Slot cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	c.metrics.cacheMiss, err = meter.Int64Counter(
		"solana_slot_cache_misses_total",
		metric.WithDescription("Slot cache misses"),
		metric.WithUnit("{miss}"),
	)
	return err
}

func (c *Client) initCircuitBreaker() {
	cfg := circuitbreaker.DefaultConfig("solana-rpc")
	cfg.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, context.Canceled)
	}
	cfg.OnStateChange = func(name string, from, to gobreaker.State) {
		c.logger.Warn(context.Background(), "circuit breaker state changed",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	c.cb = circuitbreaker.New[json.RawMessage](cfg)
}

// Connect dials the RPC endpoint. HTTP endpoints are dialed lazily, so this
// only fails on a malformed URL.
func (c *Client) Connect(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "solana.connect",
		trace.WithAttributes(attribute.String("url", c.config.URL)),
	)
	defer span.End()

	httpClient := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	client, err := gethrpc.DialOptions(ctx, c.config.URL, gethrpc.WithHTTPClient(httpClient))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		return apperror.New(apperror.CodeSolanaConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to dial solana rpc"))
	}

	c.rpcMu.Lock()
	old := c.rpc
	c.rpc = client
	c.rpcMu.Unlock()
	if old != nil {
		old.Close()
	}

	span.SetStatus(codes.Ok, "connected")
	c.logger.Info(ctx, "solana rpc connected", "url", c.config.URL)
	return nil
}

// GetHealth returns nil when the node reports "ok".
func (c *Client) GetHealth(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "solana.get_health")
	defer span.End()

	var status string
	if err := c.call(ctx, &status, "getHealth"); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unhealthy")
		return err
	}
	if status != "ok" {
		err := apperror.New(apperror.CodeSolanaRPCError,
			apperror.WithContext(fmt.Sprintf("node reported %q", status)),
			apperror.WithStatusCode(http.StatusServiceUnavailable))
		span.SetStatus(codes.Error, "unhealthy")
		return err
	}

	span.SetStatus(codes.Ok, "healthy")
	return nil
}

// GetSlot returns the current slot, reusing a recent answer.
func (c *Client) GetSlot(ctx context.Context) (uint64, error) {
	ctx, span := c.tracer.Start(ctx, "solana.get_slot")
	defer span.End()

	if slot, ok := c.slotCache.Get(ctx, slotKey); ok {
		c.metrics.cacheHits.Add(ctx, 1)
		span.AddEvent("cache_hit")
		return slot, nil
	}
	c.metrics.cacheMiss.Add(ctx, 1)

	var slot uint64
	if err := c.call(ctx, &slot, "getSlot", map[string]string{"commitment": c.config.Commitment}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return 0, err
	}

	c.slotCache.Set(ctx, slotKey, slot, c.config.SlotTTL)
	c.metrics.slot.Record(ctx, int64(slot))

	span.SetAttributes(attribute.Int64("slot", int64(slot)))
	span.SetStatus(codes.Ok, "fetched")
	return slot, nil
}

type accountInfoResult struct {
	Value *struct {
		Lamports   uint64 `json:"lamports"`
		Owner      string `json:"owner"`
		Executable bool   `json:"executable"`
	} `json:"value"`
}

// GetAccountInfo returns the account at pk, or a PROGRAM_NOT_FOUND error when
// it does not exist.
func (c *Client) GetAccountInfo(ctx context.Context, pk domain.PublicKey) (*domain.AccountInfo, error) {
	ctx, span := c.tracer.Start(ctx, "solana.get_account_info",
		trace.WithAttributes(attribute.String("account", pk.String())),
	)
	defer span.End()

	var res accountInfoResult
	opts := map[string]string{"encoding": "base64", "commitment": c.config.Commitment}
	if err := c.call(ctx, &res, "getAccountInfo", pk.String(), opts); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, err
	}
	if res.Value == nil {
		span.SetStatus(codes.Error, "not found")
		return nil, apperror.New(apperror.CodeProgramNotFound,
			apperror.WithContext(pk.String()),
			apperror.WithStatusCode(http.StatusNotFound))
	}

	owner, err := domain.ParsePublicKey(res.Value.Owner)
	if err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeSolanaRPCError,
			apperror.WithCause(err),
			apperror.WithContext("malformed account owner"))
	}

	span.SetAttributes(attribute.Bool("executable", res.Value.Executable))
	span.SetStatus(codes.Ok, "fetched")
	return &domain.AccountInfo{
		Lamports:   res.Value.Lamports,
		Owner:      owner,
		Executable: res.Value.Executable,
	}, nil
}

// ProgramExists reports whether programID is a deployed executable account.
func (c *Client) ProgramExists(ctx context.Context, programID domain.ProgramID) (bool, error) {
	info, err := c.GetAccountInfo(ctx, programID)
	if apperror.GetCode(err) == apperror.CodeProgramNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Executable, nil
}

// call runs one JSON-RPC method through the breaker and decodes into out.
func (c *Client) call(ctx context.Context, out any, method string, args ...any) error {
	c.rpcMu.RLock()
	client := c.rpc
	c.rpcMu.RUnlock()

	if client == nil {
		return apperror.New(apperror.CodeSolanaConnectionFailed,
			apperror.WithContext("solana rpc not connected"))
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	raw, err := c.cb.Execute(func() (json.RawMessage, error) {
		var raw json.RawMessage
		err := client.CallContext(ctx, &raw, method, args...)
		return raw, err
	})
	c.metrics.calls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.Bool("success", err == nil),
	))
	if err != nil {
		if apperror.IsAppError(err) {
			return err
		}
		var rpcErr gethrpc.Error
		if errors.As(err, &rpcErr) {
			return apperror.New(apperror.CodeSolanaRPCError,
				apperror.WithCause(err),
				apperror.WithContext(fmt.Sprintf("%s: code %d", method, rpcErr.ErrorCode())),
				apperror.WithStatusCode(http.StatusBadGateway))
		}
		return apperror.New(apperror.CodeSolanaConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext(method),
			apperror.WithStatusCode(http.StatusServiceUnavailable))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return apperror.New(apperror.CodeSolanaRPCError,
			apperror.WithCause(err),
			apperror.WithContext(method+": malformed result"))
	}
	return nil
}

// Close releases the connection and the slot cache.
func (c *Client) Close() error {
	c.rpcMu.Lock()
	defer c.rpcMu.Unlock()

	if c.rpc != nil {
		c.rpc.Close()
		c.rpc = nil
	}
	c.slotCache.Close()
	return nil
}
