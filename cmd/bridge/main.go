// Package main is the entry point for the Evalys Arcium Bridge Service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/evalysfun/evalys-arcium-bridge-service/business/confidential"
	confidentialDI "github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/di"
	"github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/infra/mxe"
	"github.com/evalysfun/evalys-arcium-bridge-service/business/httpapi"
	"github.com/evalysfun/evalys-arcium-bridge-service/business/solana"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/apm"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/config"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/health"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/logger"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/metrics"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/monolith"
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
	serveGateway := flag.String("serve-gateway", "", "Serve a standalone local MXE gateway on this address instead of the API")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("evalys-arcium-bridge %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *serveGateway); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, gatewayAddr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level := logger.ParseLevel(cfg.App.LogLevel)
	if cfg.API.Debug {
		level = logger.LevelDebug
	}
	log := logger.New(os.Stderr, level, cfg.App.Name, nil)
	log.Info(ctx, "starting "+cfg.App.Name,
		"version", version,
		"environment", cfg.App.Environment,
		"backend", cfg.Arcium.Backend,
	)

	shutdownTelemetry, err := setupTelemetry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer shutdownTelemetry()

	healthServer := health.NewServer(cfg.Health.Port, cfg.App.Name, version, log)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", cfg.Health.Port)
	}
	defer healthServer.Stop(context.Background())

	if gatewayAddr != "" {
		return runGateway(ctx, cfg, log, healthServer, gatewayAddr)
	}

	mono, err := monolith.New(cfg, log, healthServer)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}

	// Define modules in dependency order
	modules := []monolith.Module{
		&solana.Module{},
		&confidential.Module{},
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
		defer cancel()
		if err := mono.Close(stopCtx); err != nil {
			log.Error(stopCtx, "error stopping modules", "error", err)
		}
	}()
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	api := httpapi.New(httpapi.Config{
		ServiceName:  cfg.App.Name,
		CORSOrigins:  cfg.API.CORSOrigins,
		RateLimitRPM: cfg.API.RateLimitRPM,
		MaxBodyBytes: cfg.API.MaxBodyBytes,
	}, confidentialDI.GetBridgeService(mono.Services()), log)
	defer api.Close()

	srv := &http.Server{
		Addr:              cfg.API.Addr(),
		Handler:           api,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.API.ReadTimeout,
		WriteTimeout:      cfg.API.WriteTimeout,
	}

	log.Info(ctx, "Starting Evalys Arcium Bridge Service on "+cfg.API.Addr())
	return serve(ctx, srv, cfg.API.ShutdownTimeout, log, "Shutting down Evalys Arcium Bridge Service")
}

// runGateway serves a local MXE cluster over the gateway REST and event
// surface so other bridge instances can use the gateway backend.
func runGateway(ctx context.Context, cfg *config.Config, log logger.LoggerInterface, hs *health.Server, addr string) error {
	cluster, err := mxe.NewLocalCluster(confidential.LocalClusterConfig(cfg), log)
	if err != nil {
		return fmt.Errorf("failed to create local cluster: %w", err)
	}
	cluster.Start(ctx)
	defer cluster.Stop()

	hs.RegisterCheck("mxe", func(ctx context.Context) (bool, string) {
		if _, err := cluster.ClusterKeys(ctx); err != nil {
			return false, err.Error()
		}
		return true, "local"
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mxe.NewGatewayHandler(cluster, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info(ctx, "Starting MXE gateway on "+addr, "cluster_offset", cfg.Arcium.ClusterOffset)
	return serve(ctx, srv, cfg.API.ShutdownTimeout, log, "Shutting down MXE gateway")
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, timeout time.Duration, log logger.LoggerInterface, stopMsg string) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info(context.Background(), stopMsg)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return <-errCh
}

// setupTelemetry installs tracing and metrics when enabled and returns a
// function that flushes them.
func setupTelemetry(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (func(), error) {
	if !cfg.Telemetry.Enabled {
		return func() {}, nil
	}

	traceProvider, err := apm.NewTraceProvider(ctx, apm.TraceConfig{
		Provider:    apm.ParseProvider(cfg.Telemetry.TraceProvider),
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Headers:     cfg.Telemetry.OTLPHeaders,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}

	opts := []metrics.OptionFn{
		metrics.WithServiceName(cfg.Telemetry.ServiceName),
		metrics.WithProviderConfig(metrics.Prometheus()),
	}
	if cfg.Telemetry.TraceProvider == string(apm.OTLPGRPCProvider) && cfg.Telemetry.OTLPEndpoint != "" {
		opts = append(opts, metrics.WithProviderConfig(
			metrics.OTLP(cfg.Telemetry.OTLPEndpoint, apm.ParseHeaders(cfg.Telemetry.OTLPHeaders))))
	}
	meterProvider, err := metrics.NewMetricProvider(ctx, opts...)
	if err != nil {
		_ = traceProvider.Stop()
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	promServer := metrics.NewPrometheusServer(metrics.WithPort(strconv.Itoa(cfg.Telemetry.PrometheusPort)))
	go func() {
		if err := promServer.ListenAndServe(); err != nil {
			log.Error(context.Background(), "prometheus metrics server stopped", "error", err)
		}
	}()
	log.Info(ctx, "prometheus metrics server started", "port", cfg.Telemetry.PrometheusPort)

	return func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = promServer.Shutdown(stopCtx)
		_ = meterProvider.Shutdown(stopCtx)
		_ = traceProvider.Stop()
	}, nil
}
