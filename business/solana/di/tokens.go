// Package di contains dependency injection tokens for the solana context.
package di

import (
	"github.com/evalysfun/evalys-arcium-bridge-service/business/solana/app"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/di"
)

// Public service tokens - exposed to other modules
var (
	SolanaService = di.NewToken[*app.SolanaService]("solana.SolanaService")
)

// Private dependency tokens - internal to solana module
var (
	ClusterRPC = di.NewToken[app.ClusterRPC]("solana:clusterRPC")
)

func GetSolanaService(c di.ServiceRegistry) *app.SolanaService {
	return di.GetToken(c, SolanaService)
}

func GetClusterRPC(c di.ServiceRegistry) app.ClusterRPC {
	return di.GetToken(c, ClusterRPC)
}
