package app

import (
	"context"
	"time"

	"github.com/evalysfun/evalys-arcium-bridge-service/business/solana/domain"
)

// SolanaService checks that the cluster hosting the MXE program is reachable.
type SolanaService struct {
	rpc       ClusterRPC
	programID domain.ProgramID
	now       func() time.Time
}

// NewSolanaService creates a service probing programID through rpc.
func NewSolanaService(rpc ClusterRPC, programID domain.ProgramID) *SolanaService {
	return &SolanaService{rpc: rpc, programID: programID, now: time.Now}
}

// ProgramID returns the MXE program address.
func (s *SolanaService) ProgramID() domain.ProgramID {
	return s.programID
}

// Status checks node health, slot and program deployment. Check errors are
// reported in the status rather than returned.
func (s *SolanaService) Status(ctx context.Context) domain.ClusterStatus {
	status := domain.ClusterStatus{CheckedAt: s.now()}

	if err := s.rpc.GetHealth(ctx); err != nil {
		status.Err = err
		return status
	}
	status.Healthy = true

	slot, err := s.rpc.GetSlot(ctx)
	if err != nil {
		status.Err = err
		return status
	}
	status.Slot = slot

	deployed, err := s.rpc.ProgramExists(ctx, s.programID)
	if err != nil {
		status.Err = err
		return status
	}
	status.ProgramDeployed = deployed
	return status
}

// HealthCheck adapts Status to the health server's check signature.
func (s *SolanaService) HealthCheck(ctx context.Context) (bool, string) {
	st := s.Status(ctx)
	switch {
	case st.Err != nil:
		return false, st.Err.Error()
	case !st.ProgramDeployed:
		return false, "program " + s.programID.String() + " not deployed"
	default:
		return true, "ok"
	}
}
