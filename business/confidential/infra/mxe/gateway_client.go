package mxe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/app"
	"github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/domain"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/apperror"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/circuitbreaker"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/httpclient"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/logger"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/ratelimit"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/wsconn"
)

// Ensure GatewayClient implements MXEClient.
var _ app.MXEClient = (*GatewayClient)(nil)

// GatewayConfig holds configuration for the gateway client.
type GatewayConfig struct {
	BaseURL         string
	RateLimitRPM    int           // 0 = unlimited
	RequestTimeout  time.Duration // per REST call
	PollInterval    time.Duration // first poll delay
	MaxPollInterval time.Duration // poll backoff cap
	DisableEvents   bool          // poll only
}

// DefaultGatewayConfig returns sensible defaults.
func DefaultGatewayConfig(baseURL string) GatewayConfig {
	return GatewayConfig{
		BaseURL:         baseURL,
		RateLimitRPM:    600,
		RequestTimeout:  10 * time.Second,
		PollInterval:    250 * time.Millisecond,
		MaxPollInterval: 5 * time.Second,
	}
}

// GatewayClient talks to a remote MXE gateway. REST calls go through a rate
// limiter and a circuit breaker; Await listens on the computation's event
// stream and falls back to polling when the stream is unavailable.
type GatewayClient struct {
	config  GatewayConfig
	logger  logger.LoggerInterface
	client  httpclient.Client
	limiter *ratelimit.Limiter
	cb      *circuitbreaker.CircuitBreaker[*httpclient.Response]
	tracer  trace.Tracer
}

// NewGatewayClient creates a gateway client.
func NewGatewayClient(cfg GatewayConfig, log logger.LoggerInterface) (*GatewayClient, error) {
	if cfg.BaseURL == "" {
		return nil, apperror.New(apperror.CodeConfigurationError, apperror.WithContext("gateway base url is required"))
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 250 * time.Millisecond
	}
	if cfg.MaxPollInterval < cfg.PollInterval {
		cfg.MaxPollInterval = cfg.PollInterval
	}

	tracer := otel.Tracer(tracerName)

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("mxe_gateway"),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(cfg.RequestTimeout),
		httpclient.WithTracer(tracer),
		httpclient.WithHeaders(map[string]string{
			"Accept": "application/json",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	g := &GatewayClient{
		config:  cfg,
		logger:  log,
		client:  client,
		limiter: ratelimit.New(cfg.RateLimitRPM),
		tracer:  tracer,
	}

	cbCfg := circuitbreaker.DefaultConfig("mxe_gateway")
	cbCfg.IsSuccessful = breakerSuccess
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "circuit breaker state changed",
			"name", name,
			"from", from.String(),
			"to", to.String(),
		)
	}
	g.cb = circuitbreaker.New[*httpclient.Response](cbCfg)

	return g, nil
}

// ClusterKeys fetches the cluster's public keys.
func (g *GatewayClient) ClusterKeys(ctx context.Context) (*domain.ClusterInfo, error) {
	ctx, span := g.tracer.Start(ctx, "mxe.gateway.cluster_keys")
	defer span.End()

	var info domain.ClusterInfo
	if _, err := g.do(ctx, http.MethodGet, clusterPath, nil, &info, "cluster"); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &info, nil
}

// Submit posts a computation to the gateway.
func (g *GatewayClient) Submit(ctx context.Context, req domain.ComputationRequest) error {
	ctx, span := g.tracer.Start(ctx, "mxe.gateway.submit",
		trace.WithAttributes(
			attribute.String("computation.id", req.ID),
			attribute.String("computation.kind", string(req.Payload.Kind)),
		),
	)
	defer span.End()

	var ack SubmitResponse
	if _, err := g.do(ctx, http.MethodPost, computationsPath, req, &ack, "submit"); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// Status polls the state of a computation once.
func (g *GatewayClient) Status(ctx context.Context, computationID string) (*domain.ComputationState, error) {
	var state domain.ComputationState
	if _, err := g.do(ctx, http.MethodGet, computationsPath+"/"+url.PathEscape(computationID), nil, &state, "status"); err != nil {
		return nil, err
	}
	return &state, nil
}

// Await waits for the computation to finish, preferring the event stream.
func (g *GatewayClient) Await(ctx context.Context, computationID string) (*domain.ComputationOutcome, error) {
	ctx, span := g.tracer.Start(ctx, "mxe.gateway.await",
		trace.WithAttributes(attribute.String("computation.id", computationID)),
	)
	defer span.End()

	if !g.config.DisableEvents {
		outcome, err := g.awaitEvents(ctx, computationID)
		if err == nil {
			span.SetAttributes(attribute.String("await.mode", "events"))
			return outcome, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.logger.Debug(ctx, "event stream unavailable, polling",
			"computation_id", computationID,
			"error", err,
		)
	}

	span.SetAttributes(attribute.String("await.mode", "poll"))
	return g.awaitPoll(ctx, computationID)
}

type streamEvent struct {
	state *domain.ComputationState
	err   error
}

// awaitEvents listens on the computation's WebSocket event stream until a
// terminal state arrives. Any stream failure is returned so the caller can poll.
func (g *GatewayClient) awaitEvents(ctx context.Context, computationID string) (*domain.ComputationOutcome, error) {
	wsCfg := wsconn.DefaultConfig(g.eventsURL(computationID), "mxe_gateway_events")
	wsCfg.Reconnect = false
	wsCfg.PingInterval = 0

	ws, err := wsconn.New(wsCfg)
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	events := make(chan streamEvent, 8)
	ws.OnMessage(func(hctx context.Context, msg []byte) {
		var state domain.ComputationState
		ev := streamEvent{state: &state}
		if err := json.Unmarshal(msg, &state); err != nil {
			ev = streamEvent{err: fmt.Errorf("decode event: %w", err)}
		}
		select {
		case events <- ev:
		case <-hctx.Done():
		}
	})
	ws.OnStateChange(func(state wsconn.State, cause error) {
		if state != wsconn.StateDisconnected {
			return
		}
		if cause == nil {
			cause = errors.New("event stream disconnected")
		}
		select {
		case events <- streamEvent{err: cause}:
		default:
		}
	})

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if err := ws.Connect(ctx); err != nil {
		return nil, err
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case ev := <-events:
			if ev.err != nil {
				return nil, ev.err
			}
			if ev.state.Status.Terminal() {
				if ev.state.Outcome == nil {
					return nil, errors.New("terminal event without outcome")
				}
				return ev.state.Outcome, nil
			}
		}
	}
}

// awaitPoll polls the computation with exponential backoff.
func (g *GatewayClient) awaitPoll(ctx context.Context, computationID string) (*domain.ComputationOutcome, error) {
	interval := g.config.PollInterval
	for {
		state, err := g.Status(ctx, computationID)
		if err != nil {
			return nil, err
		}
		if state.Status.Terminal() {
			if state.Outcome == nil {
				return nil, apperror.New(apperror.CodeExternalServiceError,
					apperror.WithContext("terminal state without outcome"),
					apperror.WithStatusCode(http.StatusBadGateway))
			}
			return state.Outcome, nil
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		interval = min(interval*2, g.config.MaxPollInterval)
	}
}

// do runs one REST call through the rate limiter and circuit breaker.
func (g *GatewayClient) do(ctx context.Context, method, path string, body, result any, endpoint string) (*httpclient.Response, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	return g.cb.Execute(func() (*httpclient.Response, error) {
		req := g.client.NewRequestWithOptions(
			httpclient.WithLabels(httpclient.NewLabel("endpoint", endpoint)),
			httpclient.WithResponseErrorHandler(gatewayErrorHandler),
		).SetResult(result)
		if body != nil {
			req = req.SetBody(body)
		}

		var (
			resp *httpclient.Response
			err  error
		)
		switch method {
		case http.MethodPost:
			resp, err = req.Post(ctx, path)
		default:
			resp, err = req.Get(ctx, path)
		}

		if err != nil && !apperror.IsAppError(err) {
			if ctx.Err() != nil {
				return nil, err
			}
			return nil, apperror.External(apperror.CodeMXEConnectionFailed, endpoint, err)
		}
		return resp, err
	})
}

func (g *GatewayClient) eventsURL(computationID string) string {
	base := strings.TrimSuffix(g.config.BaseURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + computationsPath + "/" + url.PathEscape(computationID) + "/events"
}

// gatewayErrorHandler decodes the gateway's error envelope.
func gatewayErrorHandler(statusCode int, body []byte) error {
	if statusCode < 400 {
		return nil
	}

	// Gateway faults surface as a bad upstream.
	status := statusCode
	if status == http.StatusInternalServerError {
		status = http.StatusBadGateway
	}
	if appErr, ok := apperror.FromResponse(status, body); ok {
		return appErr
	}
	return apperror.New(apperror.CodeExternalServiceError, apperror.WithStatusCode(status))
}

// breakerSuccess keeps client errors and cancellations from tripping the breaker.
func breakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode < 500
	}
	return false
}
