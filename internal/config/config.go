// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mr-tron/base58"
	"github.com/spf13/viper"
)

// Supported MXE backends.
const (
	BackendLocal   = "local"
	BackendGateway = "gateway"
)

// Supported receipt ledger drivers.
const (
	LedgerMemory   = "memory"
	LedgerPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Arcium    ArciumConfig    `mapstructure:"arcium"`
	Solana    SolanaConfig    `mapstructure:"solana"`
	API       APIConfig       `mapstructure:"api"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Health    HealthConfig    `mapstructure:"health"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// ArciumConfig holds MXE cluster settings.
type ArciumConfig struct {
	MXEProgramID        string `mapstructure:"mxe_program_id"`
	ClusterOffset       uint64 `mapstructure:"cluster_offset"`
	RPCURL              string `mapstructure:"rpc_url"`
	ClientEncryptionKey string `mapstructure:"client_encryption_key"` // hex seed, optional
	Backend             string `mapstructure:"backend"`               // local | gateway
	GatewayURL          string `mapstructure:"gateway_url"`
	GatewayRateLimitRPM int    `mapstructure:"gateway_rate_limit_rpm"`

	ComputationTimeout time.Duration `mapstructure:"computation_timeout"`
	PollInterval       time.Duration `mapstructure:"poll_interval"`
	MaxPollInterval    time.Duration `mapstructure:"max_poll_interval"`
	ReceiptMaxAge      time.Duration `mapstructure:"receipt_max_age"`
	ReceiptMaxSkew     time.Duration `mapstructure:"receipt_max_skew"`

	LocalWorkers   int `mapstructure:"local_workers"`
	LocalQueueSize int `mapstructure:"local_queue_size"`
}

// SolanaConfig holds Solana RPC settings.
type SolanaConfig struct {
	RPCURL       string        `mapstructure:"rpc_url"`
	KeypairPath  string        `mapstructure:"keypair_path"`
	CheckProgram bool          `mapstructure:"check_program"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// APIConfig holds HTTP API settings.
type APIConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Debug           bool          `mapstructure:"debug"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	RateLimitRPM    int           `mapstructure:"rate_limit_rpm"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns host:port.
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LedgerConfig selects where consumed receipt ids are stored.
type LedgerConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// HealthConfig holds the health server settings.
type HealthConfig struct {
	Port int `mapstructure:"port"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceProvider  string `mapstructure:"trace_provider"` // zipkin | otlp-grpc | otlp-http | console
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("BRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// bindEnvVars keeps the variable names used by existing .env files working.
func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "BRIDGE_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "BRIDGE_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "BRIDGE_LOG_LEVEL", "LOG_LEVEL")

	// Arcium
	v.BindEnv("arcium.mxe_program_id", "BRIDGE_ARCIUM_MXE_PROGRAM_ID", "ARCIUM_MXE_PROGRAM_ID")
	v.BindEnv("arcium.cluster_offset", "BRIDGE_ARCIUM_CLUSTER_OFFSET", "ARCIUM_CLUSTER_OFFSET")
	v.BindEnv("arcium.rpc_url", "BRIDGE_ARCIUM_RPC_URL", "ARCIUM_RPC_URL")
	v.BindEnv("arcium.client_encryption_key", "BRIDGE_ARCIUM_CLIENT_ENCRYPTION_KEY", "ARCIUM_CLIENT_ENCRYPTION_KEY")
	v.BindEnv("arcium.backend", "BRIDGE_ARCIUM_BACKEND", "ARCIUM_BACKEND")
	v.BindEnv("arcium.gateway_url", "BRIDGE_ARCIUM_GATEWAY_URL", "ARCIUM_GATEWAY_URL")
	v.BindEnv("arcium.computation_timeout", "BRIDGE_ARCIUM_COMPUTATION_TIMEOUT", "ARCIUM_COMPUTATION_TIMEOUT")

	// Solana
	v.BindEnv("solana.rpc_url", "BRIDGE_SOLANA_RPC_URL", "SOLANA_RPC_URL")
	v.BindEnv("solana.keypair_path", "BRIDGE_SOLANA_KEYPAIR_PATH", "SOLANA_KEYPAIR_PATH")

	// API
	v.BindEnv("api.host", "BRIDGE_API_HOST", "API_HOST")
	v.BindEnv("api.port", "BRIDGE_API_PORT", "API_PORT")
	v.BindEnv("api.debug", "BRIDGE_API_DEBUG", "API_DEBUG")
	v.BindEnv("api.cors_origins", "BRIDGE_API_CORS_ORIGINS", "API_CORS_ORIGINS")

	// Ledger
	v.BindEnv("ledger.driver", "BRIDGE_LEDGER_DRIVER", "LEDGER_DRIVER")
	v.BindEnv("ledger.dsn", "BRIDGE_LEDGER_DSN", "LEDGER_DSN", "DATABASE_URL")

	// Health
	v.BindEnv("health.port", "BRIDGE_HEALTH_PORT", "HEALTH_PORT")

	// Telemetry
	v.BindEnv("telemetry.enabled", "BRIDGE_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "BRIDGE_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "BRIDGE_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "evalys-arcium-bridge")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Arcium defaults
	v.SetDefault("arcium.cluster_offset", 1078779259)
	v.SetDefault("arcium.rpc_url", "https://api.devnet.solana.com")
	v.SetDefault("arcium.backend", BackendLocal)
	v.SetDefault("arcium.gateway_rate_limit_rpm", 600)
	v.SetDefault("arcium.computation_timeout", "30s")
	v.SetDefault("arcium.poll_interval", "250ms")
	v.SetDefault("arcium.max_poll_interval", "5s")
	v.SetDefault("arcium.receipt_max_age", "5m")
	v.SetDefault("arcium.receipt_max_skew", "30s")
	v.SetDefault("arcium.local_workers", 4)
	v.SetDefault("arcium.local_queue_size", 64)

	// Solana defaults
	v.SetDefault("solana.rpc_url", "https://api.devnet.solana.com")
	v.SetDefault("solana.check_program", false)
	v.SetDefault("solana.timeout", "10s")

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8010)
	v.SetDefault("api.debug", false)
	v.SetDefault("api.cors_origins", []string{"*"})
	v.SetDefault("api.rate_limit_rpm", 600)
	v.SetDefault("api.max_body_bytes", 64<<10)
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "60s")
	v.SetDefault("api.shutdown_timeout", "10s")

	// Ledger defaults
	v.SetDefault("ledger.driver", LedgerMemory)

	// Health defaults
	v.SetDefault("health.port", 8081)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "evalys-arcium-bridge")
	v.SetDefault("telemetry.trace_provider", "zipkin")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Arcium.MXEProgramID == "" {
		return fmt.Errorf("arcium.mxe_program_id is required")
	}
	if raw, err := base58.Decode(c.Arcium.MXEProgramID); err != nil || len(raw) != 32 {
		return fmt.Errorf("invalid arcium.mxe_program_id: must be a base58 encoded 32 byte public key")
	}

	switch c.Arcium.Backend {
	case BackendLocal:
		if c.Arcium.LocalWorkers <= 0 {
			return fmt.Errorf("arcium.local_workers must be positive")
		}
	case BackendGateway:
		if c.Arcium.GatewayURL == "" {
			return fmt.Errorf("arcium.gateway_url is required for the gateway backend")
		}
	default:
		return fmt.Errorf("unknown arcium.backend: %q", c.Arcium.Backend)
	}

	if c.Arcium.ComputationTimeout <= 0 {
		return fmt.Errorf("arcium.computation_timeout must be positive")
	}
	if c.Arcium.ReceiptMaxAge <= 0 {
		return fmt.Errorf("arcium.receipt_max_age must be positive")
	}

	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("invalid api.port: %d", c.API.Port)
	}

	switch c.Ledger.Driver {
	case LedgerMemory:
	case LedgerPostgres:
		if c.Ledger.DSN == "" {
			return fmt.Errorf("ledger.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown ledger.driver: %q", c.Ledger.Driver)
	}

	return nil
}
