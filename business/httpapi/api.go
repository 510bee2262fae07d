// Package httpapi exposes the bridge over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/domain"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/logger"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/ratelimit"
)

const (
	basePath = "/api/v1"

	limiterIdleTTL = 10 * time.Minute
)

// Bridge is the confidential computation surface the routes delegate to.
type Bridge interface {
	GetConfidentialPlan(ctx context.Context, prefs domain.UserPreferences, hist domain.UserHistory, curve domain.CurveState) (*domain.StrategyPlan, error)
	GetRiskScore(ctx context.Context, portfolio domain.PortfolioContext, perf domain.PerformanceHistory, market domain.MarketConditions) (*domain.RiskAssessment, error)
	GetCurveEvaluation(ctx context.Context, sizing domain.SizingPreferences, constraints domain.UserConstraints, metrics domain.CurveMetrics) (*domain.ExecutionRecommendation, error)
}

// Config holds API settings.
type Config struct {
	ServiceName  string
	CORSOrigins  []string
	RateLimitRPM int   // per client IP; 0 disables
	MaxBodyBytes int64 // request body cap
}

// API serves the bridge routes.
type API struct {
	config  Config
	bridge  Bridge
	logger  logger.LoggerInterface
	limiter *ratelimit.KeyedLimiter
	handler http.Handler
}

// New builds the router.
func New(cfg Config, bridge Bridge, log logger.LoggerInterface) *API {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 << 10
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	a := &API{
		config:  cfg,
		bridge:  bridge,
		logger:  log,
		limiter: ratelimit.NewKeyed(cfg.RateLimitRPM, limiterIdleTTL),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", a.handleHealth)
	r.Route(basePath, func(r chi.Router) {
		r.Get("/health", a.handleHealth)
		r.Route("/arcium", func(r chi.Router) {
			r.Use(a.rateLimit)
			r.Post("/plan", a.handlePlan)
			r.Post("/risk-score", a.handleRiskScore)
			r.Post("/curve-eval", a.handleCurveEval)
		})
	})

	a.handler = otelhttp.NewHandler(r, "bridge.api",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
	return a
}

// ServeHTTP implements http.Handler.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

// Close stops the per-client limiter janitor.
func (a *API) Close() {
	a.limiter.Close()
}
