// Package solana implements the Solana bounded context: program addressing
// and cluster reachability for the MXE program.
package solana

import (
	"context"

	"github.com/evalysfun/evalys-arcium-bridge-service/business/solana/app"
	solanaDI "github.com/evalysfun/evalys-arcium-bridge-service/business/solana/di"
	"github.com/evalysfun/evalys-arcium-bridge-service/business/solana/domain"
	"github.com/evalysfun/evalys-arcium-bridge-service/business/solana/infra/rpc"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/config"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/di"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/logger"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/monolith"
)

// Module implements the solana bounded context.
type Module struct{}

// RegisterServices registers all solana services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, solanaDI.ClusterRPC, func(sr di.ServiceRegistry) app.ClusterRPC {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		rpcCfg := rpc.DefaultConfig(cfg.Solana.RPCURL)
		if cfg.Solana.Timeout > 0 {
			rpcCfg.Timeout = cfg.Solana.Timeout
		}
		client, err := rpc.New(rpcCfg, log)
		if err != nil {
			panic("failed to create solana rpc client: " + err.Error())
		}
		return client
	})

	di.RegisterToken(c, solanaDI.SolanaService, func(sr di.ServiceRegistry) *app.SolanaService {
		cfg := sr.Get("config").(*config.Config)
		programID, err := domain.ParseProgramID(cfg.Arcium.MXEProgramID)
		if err != nil {
			panic("invalid mxe program id: " + err.Error())
		}
		return app.NewSolanaService(solanaDI.GetClusterRPC(sr), programID)
	})

	return nil
}

// Startup connects the RPC client and registers the readiness check when
// program checking is enabled.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	svc := solanaDI.GetSolanaService(mono.Services())
	rpcClient := solanaDI.GetClusterRPC(mono.Services())

	if connector, ok := rpcClient.(interface{ Connect(context.Context) error }); ok {
		if err := connector.Connect(ctx); err != nil {
			return err
		}
	}

	if cfg.Solana.KeypairPath != "" {
		payer, err := domain.LoadKeypairPublicKey(cfg.Solana.KeypairPath)
		if err != nil {
			log.Warn(ctx, "failed to load solana keypair", "path", cfg.Solana.KeypairPath, "error", err)
		} else {
			log.Info(ctx, "solana keypair loaded", "payer", payer.String())
		}
	}

	if cfg.Solana.CheckProgram {
		mono.Health().RegisterCheck("solana_rpc", svc.HealthCheck)

		st := svc.Status(ctx)
		if !st.Ready() {
			log.Warn(ctx, "mxe program not reachable",
				"program_id", svc.ProgramID().String(), "healthy", st.Healthy, "error", st.Err)
		}
	}

	log.Info(ctx, "solana module started", "program_id", svc.ProgramID().String())
	return nil
}

// Shutdown closes the RPC client.
func (m *Module) Shutdown(ctx context.Context, mono monolith.Monolith) error {
	if closer, ok := solanaDI.GetClusterRPC(mono.Services()).(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
