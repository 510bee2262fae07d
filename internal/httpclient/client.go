package httpclient

import (
	"context"
	"net"
	"net/http"
	"net/http/httptrace"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultRequestTimeout   = 10 * time.Second
	defaultMaxConnsPerHost  = 8
	defaultIdleConnTimeout  = 90 * time.Second
	defaultMaxResponseBytes = 4 << 20

	instrumentationName = "evalys_bridge_http_client"
)

// Client builds requests against one upstream.
type Client interface {
	NewRequest() Request
	NewRequestWithOptions(opts ...RequestOption) Request
}

// InstrumentedClient is an http.Client with OpenTelemetry spans, a request
// counter and a latency histogram, all labelled with the provider name.
type InstrumentedClient struct {
	client         *http.Client
	instruments    instruments
	providerName   string
	tracer         trace.Tracer
	baseURL        string
	defaultHeaders map[string]string
	maxBodyBytes   int64
}

type instruments struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// NewInstrumentedClient creates a new instrumented HTTP client.
func NewInstrumentedClient(opts ...ClientOption) (*InstrumentedClient, error) {
	options := NewClientOptions(opts...)

	httpClient := options.client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	if options.roundTripper != nil {
		httpClient.Transport = options.roundTripper
	} else if httpClient.Transport == nil {
		httpClient.Transport = newTransport()
	}
	if options.requestTimeout != nil {
		httpClient.Timeout = *options.requestTimeout
	}
	httpClient.Transport = otelhttp.NewTransport(
		httpClient.Transport,
		otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
			return otelhttptrace.NewClientTrace(ctx)
		}),
	)

	providerName := options.providerName
	if providerName == "" {
		providerName = "default"
	}

	meterProvider := options.meterProvider
	if meterProvider == nil {
		meterProvider = otel.GetMeterProvider()
	}
	inst, err := newInstruments(meterProvider.Meter(
		instrumentationName,
		metric.WithInstrumentationAttributes(attribute.String("provider", providerName)),
	))
	if err != nil {
		return nil, err
	}

	tracer := options.tracer
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}

	maxBody := options.maxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxResponseBytes
	}

	return &InstrumentedClient{
		client:         httpClient,
		instruments:    inst,
		providerName:   providerName,
		tracer:         tracer,
		baseURL:        options.baseURL,
		defaultHeaders: options.headers,
		maxBodyBytes:   maxBody,
	}, nil
}

func newTransport() *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxConnsPerHost:       defaultMaxConnsPerHost,
		MaxIdleConnsPerHost:   defaultMaxConnsPerHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

func newInstruments(meter metric.Meter) (instruments, error) {
	requests, err := meter.Int64Counter("http_client_requests_total",
		metric.WithDescription("Outbound HTTP requests by provider and status"))
	if err != nil {
		return instruments{}, err
	}
	duration, err := meter.Float64Histogram("http_client_request_duration_ms",
		metric.WithDescription("Outbound HTTP request latency"),
		metric.WithUnit("ms"))
	if err != nil {
		return instruments{}, err
	}
	return instruments{requests: requests, duration: duration}, nil
}

func (c *InstrumentedClient) NewRequest() Request {
	return c.NewRequestWithOptions()
}

func (c *InstrumentedClient) NewRequestWithOptions(opts ...RequestOption) Request {
	reqOpts := NewRequestOptions(opts...)

	headers := make(map[string]string, len(c.defaultHeaders))
	for k, v := range c.defaultHeaders {
		headers[k] = v
	}

	return &requestBuilder{
		client:       c.client,
		instruments:  c.instruments,
		providerName: c.providerName,
		tracer:       c.tracer,
		baseURL:      c.baseURL,
		headers:      headers,
		errorHandler: reqOpts.responseErrorHandler,
		labels:       reqOpts.labels,
		maxBodyBytes: c.maxBodyBytes,
	}
}
