// Package bridgeclient is a Go client for the bridge HTTP API.
package bridgeclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/domain"
	"github.com/evalysfun/evalys-arcium-bridge-service/business/httpapi"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/apperror"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/httpclient"
)

const (
	planPath      = "/api/v1/arcium/plan"
	riskScorePath = "/api/v1/arcium/risk-score"
	curveEvalPath = "/api/v1/arcium/curve-eval"
	healthPath    = "/api/v1/health"
)

// Client calls a running bridge.
type Client struct {
	http httpclient.Client
}

// New creates a client for the bridge at baseURL, e.g. http://localhost:8010.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	c, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("evalys_bridge"),
		httpclient.WithBaseURL(baseURL),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithHeaders(map[string]string{"Accept": "application/json"}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}
	return &Client{http: c}, nil
}

// Health checks the bridge's health route.
func (c *Client) Health(ctx context.Context) (*httpapi.HealthResponse, error) {
	var out httpapi.HealthResponse
	if err := c.call(ctx, http.MethodGet, healthPath, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Plan requests a confidential strategy plan.
func (c *Client) Plan(ctx context.Context, req httpapi.PlanRequest) (*domain.StrategyPlan, error) {
	var out domain.StrategyPlan
	if err := c.call(ctx, http.MethodPost, planPath, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RiskScore requests a confidential risk assessment.
func (c *Client) RiskScore(ctx context.Context, req httpapi.RiskScoreRequest) (*domain.RiskAssessment, error) {
	var out domain.RiskAssessment
	if err := c.call(ctx, http.MethodPost, riskScorePath, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CurveEval requests a confidential execution recommendation.
func (c *Client) CurveEval(ctx context.Context, req httpapi.CurveEvalRequest) (*domain.ExecutionRecommendation, error) {
	var out domain.ExecutionRecommendation
	if err := c.call(ctx, http.MethodPost, curveEvalPath, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	req := c.http.NewRequestWithOptions(httpclient.WithResponseErrorHandler(decodeError)).SetResult(out)
	if body != nil {
		req = req.SetBody(body)
	}

	var err error
	switch method {
	case http.MethodPost:
		_, err = req.Post(ctx, path)
	default:
		_, err = req.Get(ctx, path)
	}
	if err != nil && !apperror.IsAppError(err) {
		return apperror.External(apperror.CodeExternalServiceError, path, err)
	}
	return err
}

// decodeError turns the bridge's error envelope back into an AppError.
func decodeError(statusCode int, body []byte) error {
	if statusCode < 400 {
		return nil
	}

	if appErr, ok := apperror.FromResponse(statusCode, body); ok {
		return appErr
	}
	return apperror.New(apperror.CodeExternalServiceError,
		apperror.WithContext(fmt.Sprintf("status %d", statusCode)),
		apperror.WithStatusCode(statusCode))
}
