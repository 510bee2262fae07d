package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testProgramID = "Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS"

func TestLoad_DefaultsAndLegacyEnv(t *testing.T) {
	t.Setenv("ARCIUM_MXE_PROGRAM_ID", testProgramID)
	t.Setenv("API_PORT", "9010")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Arcium.MXEProgramID != testProgramID {
		t.Errorf("program id = %q", cfg.Arcium.MXEProgramID)
	}
	if cfg.Arcium.ClusterOffset != 1078779259 {
		t.Errorf("cluster offset = %d", cfg.Arcium.ClusterOffset)
	}
	if cfg.Arcium.RPCURL != "https://api.devnet.solana.com" {
		t.Errorf("arcium rpc = %q", cfg.Arcium.RPCURL)
	}
	if cfg.Solana.RPCURL != "https://api.devnet.solana.com" {
		t.Errorf("solana rpc = %q", cfg.Solana.RPCURL)
	}
	if cfg.API.Host != "0.0.0.0" || cfg.API.Port != 9010 {
		t.Errorf("api addr = %s", cfg.API.Addr())
	}
	if cfg.API.Debug {
		t.Error("api.debug should default to false")
	}
	if cfg.Arcium.Backend != BackendLocal {
		t.Errorf("backend = %q", cfg.Arcium.Backend)
	}
	if cfg.Arcium.ComputationTimeout != 30*time.Second {
		t.Errorf("computation timeout = %s", cfg.Arcium.ComputationTimeout)
	}
	if cfg.Arcium.ReceiptMaxAge != 5*time.Minute {
		t.Errorf("receipt max age = %s", cfg.Arcium.ReceiptMaxAge)
	}
	if len(cfg.API.CORSOrigins) != 1 || cfg.API.CORSOrigins[0] != "*" {
		t.Errorf("cors origins = %v", cfg.API.CORSOrigins)
	}
	if cfg.Ledger.Driver != LedgerMemory {
		t.Errorf("ledger driver = %q", cfg.Ledger.Driver)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.yaml")
	content := `
arcium:
  mxe_program_id: ` + testProgramID + `
  backend: gateway
  gateway_url: http://mxe.local:9000
  receipt_max_age: 2m
ledger:
  driver: postgres
  dsn: postgres://bridge@localhost/bridge
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Arcium.Backend != BackendGateway || cfg.Arcium.GatewayURL != "http://mxe.local:9000" {
		t.Errorf("arcium = %+v", cfg.Arcium)
	}
	if cfg.Arcium.ReceiptMaxAge != 2*time.Minute {
		t.Errorf("receipt max age = %s", cfg.Arcium.ReceiptMaxAge)
	}
	if cfg.Ledger.Driver != LedgerPostgres {
		t.Errorf("ledger = %+v", cfg.Ledger)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Arcium: ArciumConfig{
				MXEProgramID:       testProgramID,
				Backend:            BackendLocal,
				LocalWorkers:       1,
				ComputationTimeout: time.Second,
				ReceiptMaxAge:      time.Minute,
			},
			API:    APIConfig{Port: 8010},
			Ledger: LedgerConfig{Driver: LedgerMemory},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing program id", func(c *Config) { c.Arcium.MXEProgramID = "" }, "mxe_program_id is required"},
		{"bad program id", func(c *Config) { c.Arcium.MXEProgramID = "not-base58-0OIl" }, "invalid arcium.mxe_program_id"},
		{"short program id", func(c *Config) { c.Arcium.MXEProgramID = "1111" }, "invalid arcium.mxe_program_id"},
		{"unknown backend", func(c *Config) { c.Arcium.Backend = "quantum" }, "unknown arcium.backend"},
		{"gateway without url", func(c *Config) { c.Arcium.Backend = BackendGateway }, "gateway_url is required"},
		{"zero workers", func(c *Config) { c.Arcium.LocalWorkers = 0 }, "local_workers"},
		{"bad port", func(c *Config) { c.API.Port = 70000 }, "invalid api.port"},
		{"postgres without dsn", func(c *Config) { c.Ledger.Driver = LedgerPostgres }, "ledger.dsn is required"},
		{"unknown ledger", func(c *Config) { c.Ledger.Driver = "redis" }, "unknown ledger.driver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
