package metrics

import (
	"strings"
	"time"
)

type Provider string

const (
	PrometheusProvider Provider = "prometheus"
	OTLPProvider       Provider = "otlp-grpc"

	defaultExportInterval = 15 * time.Second
)

type Config struct {
	ServiceName string
	Provider    []ProviderCfg
}

type ProviderCfg struct {
	Provider Provider
	Endpoint string
	Headers  map[string]string
	Insecure bool
	Interval time.Duration
}

// Prometheus exposes instruments on the default registry for NewPrometheusServer.
func Prometheus() ProviderCfg {
	return ProviderCfg{Provider: PrometheusProvider}
}

// OTLP pushes to a collector over gRPC. An http:// endpoint disables TLS.
func OTLP(endpoint string, headers map[string]string) ProviderCfg {
	return ProviderCfg{
		Provider: OTLPProvider,
		Endpoint: endpoint,
		Headers:  headers,
		Insecure: strings.HasPrefix(endpoint, "http://"),
		Interval: defaultExportInterval,
	}
}

type OptionFn func(config Config) Config

func WithProviderConfig(provider ProviderCfg) OptionFn {
	return func(config Config) Config {
		config.Provider = append(config.Provider, provider)
		return config
	}
}

func WithServiceName(serviceName string) OptionFn {
	return func(config Config) Config {
		config.ServiceName = serviceName
		return config
	}
}

type PromServerConfig struct {
	port string
}

type PromOptionFn func(config PromServerConfig) PromServerConfig

func WithPort(port string) PromOptionFn {
	return func(config PromServerConfig) PromServerConfig {
		config.port = port
		return config
	}
}
