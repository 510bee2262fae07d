package domain

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const systemProgram = "11111111111111111111111111111111"

func TestParsePublicKey(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{name: "system program", in: systemProgram},
		{name: "program id", in: "Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS"},
		{name: "empty", in: "", wantErr: true},
		{name: "not base58", in: "0OIl", wantErr: true},
		{name: "short", in: "3yZe7d", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pk, err := ParsePublicKey(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPublicKey) {
					t.Fatalf("ParsePublicKey(%q) error = %v, want ErrInvalidPublicKey", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePublicKey(%q) error = %v", tt.in, err)
			}
			if pk.String() != tt.in {
				t.Errorf("String() = %q, want %q", pk.String(), tt.in)
			}
		})
	}

	pk, _ := ParsePublicKey(systemProgram)
	if !pk.IsZero() {
		t.Error("system program should be the zero key")
	}
}

func writeKeypair(t *testing.T, raw []byte) string {
	t.Helper()
	ints := make([]int, len(raw))
	for i, b := range raw {
		ints[i] = int(b)
	}
	data, err := json.Marshal(ints)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "id.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadKeypairPublicKey(t *testing.T) {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i)
	}
	priv := ed25519.NewKeyFromSeed(seed)

	pk, err := LoadKeypairPublicKey(writeKeypair(t, priv))
	if err != nil {
		t.Fatalf("LoadKeypairPublicKey() error = %v", err)
	}
	if string(pk[:]) != string(priv.Public().(ed25519.PublicKey)) {
		t.Error("public key mismatch")
	}

	bad := append([]byte(nil), priv...)
	bad[63] ^= 1
	if _, err := LoadKeypairPublicKey(writeKeypair(t, bad)); err == nil {
		t.Error("expected mismatch error")
	}
	if _, err := LoadKeypairPublicKey(writeKeypair(t, priv[:32])); err == nil {
		t.Error("expected length error")
	}
	if _, err := LoadKeypairPublicKey(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected read error")
	}
}

func TestClusterStatus_Ready(t *testing.T) {
	if (ClusterStatus{Healthy: true}).Ready() {
		t.Error("not ready without program")
	}
	if !(ClusterStatus{Healthy: true, ProgramDeployed: true}).Ready() {
		t.Error("expected ready")
	}
}
