// Package confidential implements the bridge bounded context: it seals
// strategy inputs, runs them on an Arcium MXE cluster and releases results
// only after their receipts verify.
package confidential

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/app"
	confidentialDI "github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/di"
	"github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/infra/ledger"
	"github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/infra/mxe"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/config"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/di"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/logger"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/monolith"
)

const ledgerConnectTimeout = 10 * time.Second

// Module implements the confidential bounded context.
type Module struct{}

// RegisterServices registers all confidential services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, confidentialDI.LocalCluster, func(sr di.ServiceRegistry) *mxe.LocalCluster {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		cluster, err := mxe.NewLocalCluster(LocalClusterConfig(cfg), log)
		if err != nil {
			panic("failed to create local mxe cluster: " + err.Error())
		}
		return cluster
	})

	di.RegisterToken(c, confidentialDI.MXEClient, func(sr di.ServiceRegistry) app.MXEClient {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		if cfg.Arcium.Backend != config.BackendGateway {
			return confidentialDI.GetLocalCluster(sr)
		}

		gwCfg := mxe.DefaultGatewayConfig(cfg.Arcium.GatewayURL)
		gwCfg.RateLimitRPM = cfg.Arcium.GatewayRateLimitRPM
		if cfg.Arcium.PollInterval > 0 {
			gwCfg.PollInterval = cfg.Arcium.PollInterval
		}
		if cfg.Arcium.MaxPollInterval > 0 {
			gwCfg.MaxPollInterval = cfg.Arcium.MaxPollInterval
		}
		client, err := mxe.NewGatewayClient(gwCfg, log)
		if err != nil {
			panic("failed to create mxe gateway client: " + err.Error())
		}
		return client
	})

	di.RegisterToken(c, confidentialDI.ReceiptLedger, func(sr di.ServiceRegistry) app.ReceiptLedger {
		cfg := sr.Get("config").(*config.Config)

		if cfg.Ledger.Driver == config.LedgerPostgres {
			ctx, cancel := context.WithTimeout(context.Background(), ledgerConnectTimeout)
			defer cancel()
			l, err := ledger.NewPostgresLedger(ctx, cfg.Ledger.DSN)
			if err != nil {
				panic("failed to open receipt ledger: " + err.Error())
			}
			return l
		}
		return ledger.NewMemoryLedger(cfg.Arcium.ReceiptMaxAge + cfg.Arcium.ReceiptMaxSkew)
	})

	di.RegisterToken(c, confidentialDI.BridgeService, func(sr di.ServiceRegistry) *app.BridgeService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		svc, err := app.NewBridgeService(
			confidentialDI.GetMXEClient(sr),
			confidentialDI.GetReceiptLedger(sr),
			app.BridgeConfig{
				ProgramID:          cfg.Arcium.MXEProgramID,
				ClusterOffset:      cfg.Arcium.ClusterOffset,
				ComputationTimeout: cfg.Arcium.ComputationTimeout,
				ReceiptMaxAge:      cfg.Arcium.ReceiptMaxAge,
				ReceiptMaxSkew:     cfg.Arcium.ReceiptMaxSkew,
			},
			log,
		)
		if err != nil {
			panic("failed to create bridge service: " + err.Error())
		}
		return svc
	})

	return nil
}

// Startup starts the local cluster when selected, resolves the bridge and
// registers readiness checks.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()
	sr := mono.Services()

	if cfg.Arcium.Backend != config.BackendGateway {
		confidentialDI.GetLocalCluster(sr).Start(ctx)
	}

	client := confidentialDI.GetMXEClient(sr)
	receipts := confidentialDI.GetReceiptLedger(sr)
	confidentialDI.GetBridgeService(sr)

	mono.Health().RegisterCheck("mxe", func(ctx context.Context) (bool, string) {
		info, err := client.ClusterKeys(ctx)
		if err != nil {
			return false, err.Error()
		}
		if info.ClusterOffset != cfg.Arcium.ClusterOffset {
			return false, "cluster offset mismatch"
		}
		return true, cfg.Arcium.Backend
	})

	if pinger, ok := receipts.(interface{ Ping(context.Context) error }); ok {
		mono.Health().RegisterCheck("ledger", func(ctx context.Context) (bool, string) {
			if err := pinger.Ping(ctx); err != nil {
				return false, err.Error()
			}
			return true, cfg.Ledger.Driver
		})
	}

	log.Info(ctx, "confidential module started",
		"backend", cfg.Arcium.Backend,
		"ledger", cfg.Ledger.Driver,
		"cluster_offset", cfg.Arcium.ClusterOffset,
	)
	return nil
}

// Shutdown stops the local cluster and closes the ledger.
func (m *Module) Shutdown(ctx context.Context, mono monolith.Monolith) error {
	sr := mono.Services()

	if mono.Config().Arcium.Backend != config.BackendGateway {
		confidentialDI.GetLocalCluster(sr).Stop()
	}
	if closer, ok := confidentialDI.GetReceiptLedger(sr).(interface{ Close() }); ok {
		closer.Close()
	}
	return nil
}

// LocalClusterConfig maps configuration onto the in-process cluster. A hex
// client_encryption_key is used as the key seed; any other non-empty value is
// used as raw seed bytes.
func LocalClusterConfig(cfg *config.Config) mxe.LocalConfig {
	local := mxe.DefaultLocalConfig(cfg.Arcium.MXEProgramID, cfg.Arcium.ClusterOffset)
	if cfg.Arcium.LocalWorkers > 0 {
		local.Workers = cfg.Arcium.LocalWorkers
	}
	if cfg.Arcium.LocalQueueSize > 0 {
		local.QueueSize = cfg.Arcium.LocalQueueSize
	}
	if key := cfg.Arcium.ClientEncryptionKey; key != "" {
		seed, err := hex.DecodeString(key)
		if err != nil {
			seed = []byte(key)
		}
		local.Seed = seed
	}
	return local
}
