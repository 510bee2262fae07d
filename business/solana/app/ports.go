// Package app contains the Solana application service and ports.
package app

import (
	"context"

	"github.com/evalysfun/evalys-arcium-bridge-service/business/solana/domain"
)

// ClusterRPC is the subset of Solana JSON-RPC the bridge relies on.
type ClusterRPC interface {
	GetHealth(ctx context.Context) error
	GetSlot(ctx context.Context) (uint64, error)
	ProgramExists(ctx context.Context, programID domain.ProgramID) (bool, error)
}
