package app

import (
	"context"
	"errors"
	"testing"

	"github.com/evalysfun/evalys-arcium-bridge-service/business/solana/domain"
)

type fakeRPC struct {
	healthErr error
	slot      uint64
	deployed  bool
	slotCalls int
}

func (f *fakeRPC) GetHealth(context.Context) error { return f.healthErr }

func (f *fakeRPC) GetSlot(context.Context) (uint64, error) {
	f.slotCalls++
	return f.slot, nil
}

func (f *fakeRPC) ProgramExists(context.Context, domain.ProgramID) (bool, error) {
	return f.deployed, nil
}

func TestSolanaService_Status(t *testing.T) {
	pid, err := domain.ParseProgramID("Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		rpc     *fakeRPC
		ready   bool
		healthy bool
		detail  string
	}{
		{
			name:    "deployed",
			rpc:     &fakeRPC{slot: 42, deployed: true},
			ready:   true,
			healthy: true,
			detail:  "ok",
		},
		{
			name:    "missing program",
			rpc:     &fakeRPC{slot: 42},
			healthy: true,
			detail:  "program " + pid.String() + " not deployed",
		},
		{
			name:   "node down",
			rpc:    &fakeRPC{healthErr: errors.New("node is behind")},
			detail: "node is behind",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewSolanaService(tt.rpc, pid)
			st := svc.Status(context.Background())
			if st.Ready() != tt.ready {
				t.Errorf("Ready() = %v, want %v", st.Ready(), tt.ready)
			}
			if st.Healthy != tt.healthy {
				t.Errorf("Healthy = %v, want %v", st.Healthy, tt.healthy)
			}
			if tt.healthy && st.Slot != 42 {
				t.Errorf("Slot = %d, want 42", st.Slot)
			}
			if !tt.healthy && tt.rpc.slotCalls != 0 {
				t.Error("slot should not be fetched from an unhealthy node")
			}

			ok, detail := svc.HealthCheck(context.Background())
			if ok != tt.ready || detail != tt.detail {
				t.Errorf("HealthCheck() = (%v, %q), want (%v, %q)", ok, detail, tt.ready, tt.detail)
			}
		})
	}
}
