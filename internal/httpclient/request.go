package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ErrDecodeResult is returned when a successful response does not decode
// into the value passed to SetResult.
var ErrDecodeResult = errors.New("httpclient: decode result")

// Request builds and executes a single call.
type Request interface {
	Get(ctx context.Context, url string) (*Response, error)
	Post(ctx context.Context, url string) (*Response, error)

	// SetBody sets the body. Values other than []byte, string and io.Reader
	// are JSON encoded.
	SetBody(body any) Request
	SetHeader(key, value string) Request
	SetQueryParam(key, value string) Request
	// SetResult decodes a successful JSON response into result.
	SetResult(result any) Request
}

// Response is an http.Response with its body already read.
type Response struct {
	*http.Response
	body []byte
}

func (r *Response) Body() []byte {
	return r.body
}

func (r *Response) String() string {
	return string(r.body)
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode < 400
}

type requestBuilder struct {
	client       *http.Client
	instruments  instruments
	providerName string
	tracer       trace.Tracer
	baseURL      string
	headers      map[string]string
	queryParams  map[string]string
	body         any
	result       any
	errorHandler ResponseErrorHandler
	labels       []Label
	maxBodyBytes int64
}

func (r *requestBuilder) Get(ctx context.Context, url string) (*Response, error) {
	return r.execute(ctx, http.MethodGet, url)
}

func (r *requestBuilder) Post(ctx context.Context, url string) (*Response, error) {
	return r.execute(ctx, http.MethodPost, url)
}

func (r *requestBuilder) SetBody(body any) Request {
	r.body = body
	return r
}

func (r *requestBuilder) SetHeader(key, value string) Request {
	r.headers[key] = value
	return r
}

func (r *requestBuilder) SetQueryParam(key, value string) Request {
	if r.queryParams == nil {
		r.queryParams = make(map[string]string)
	}
	r.queryParams[key] = value
	return r
}

func (r *requestBuilder) SetResult(result any) Request {
	r.result = result
	return r
}

func (r *requestBuilder) execute(ctx context.Context, method, url string) (*Response, error) {
	ctx, span := r.tracer.Start(ctx, "http.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", url),
			attribute.String("provider", r.providerName),
		),
	)
	defer span.End()

	start := time.Now()
	resp, err := r.roundTrip(ctx, span, method, url)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	r.record(ctx, start, err == nil, status)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return resp, err
}

func (r *requestBuilder) roundTrip(ctx context.Context, span trace.Span, method, url string) (*Response, error) {
	fullURL, err := r.buildURL(url)
	if err != nil {
		return nil, err
	}

	bodyReader, bodySize, err := r.encodeBody()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.request_body_size", bodySize))

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			span.SetAttributes(attribute.Bool("request.timeout", true))
		}
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBodyBytes))
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	span.SetAttributes(
		attribute.Int("http.status_code", resp.StatusCode),
		attribute.Int("http.response_body_size", len(body)),
	)

	response := &Response{Response: resp, body: body}

	if r.errorHandler != nil {
		if err := r.errorHandler(resp.StatusCode, body); err != nil {
			return response, err
		}
	}

	if r.result != nil && response.IsSuccess() && len(body) > 0 {
		if err := json.Unmarshal(body, r.result); err != nil {
			return response, fmt.Errorf("%w: %w", ErrDecodeResult, err)
		}
	}
	return response, nil
}

// buildURL joins the base URL and escapes query parameters.
func (r *requestBuilder) buildURL(raw string) (string, error) {
	full := raw
	if r.baseURL != "" && !strings.HasPrefix(raw, "http") {
		full = strings.TrimSuffix(r.baseURL, "/") + "/" + strings.TrimPrefix(raw, "/")
	}

	u, err := neturl.Parse(full)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if len(r.queryParams) > 0 {
		q := u.Query()
		for k, v := range r.queryParams {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (r *requestBuilder) encodeBody() (io.Reader, int, error) {
	switch b := r.body.(type) {
	case nil:
		return nil, 0, nil
	case []byte:
		return bytes.NewReader(b), len(b), nil
	case string:
		return strings.NewReader(b), len(b), nil
	case io.Reader:
		return b, -1, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal body: %w", err)
		}
		if _, ok := r.headers["Content-Type"]; !ok {
			r.headers["Content-Type"] = "application/json"
		}
		return bytes.NewReader(data), len(data), nil
	}
}

func (r *requestBuilder) record(ctx context.Context, start time.Time, success bool, status int) {
	attrs := make([]attribute.KeyValue, 0, 3+len(r.labels))
	attrs = append(attrs,
		attribute.String("provider", r.providerName),
		attribute.Bool("success", success),
		attribute.Int("status", status),
	)
	for _, label := range r.labels {
		attrs = append(attrs, attribute.String(label.Key, label.Value))
	}

	set := metric.WithAttributes(attrs...)
	r.instruments.requests.Add(ctx, 1, set)
	r.instruments.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000, set)
}
