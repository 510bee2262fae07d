package app

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	tracerName = "github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/app"
	meterName  = tracerName
)

// Computation outcomes used as metric labels.
const (
	outcomeOK          = "ok"
	outcomeInvalid     = "invalid"
	outcomeTimeout     = "timeout"
	outcomeFailed      = "failed"
	outcomeRejected    = "rejected"
	outcomeUnavailable = "unavailable"
	outcomeError       = "error"
)

type bridgeMetrics struct {
	computations      metric.Int64Counter
	duration          metric.Float64Histogram
	receiptRejections metric.Int64Counter
}

func newBridgeMetrics() (*bridgeMetrics, error) {
	meter := otel.Meter(meterName)
	m := &bridgeMetrics{}
	var err error

	m.computations, err = meter.Int64Counter(
		"bridge_computations_total",
		metric.WithDescription("Confidential computations by kind and outcome"),
		metric.WithUnit("{computation}"),
	)
	if err != nil {
		return nil, err
	}

	m.duration, err = meter.Float64Histogram(
		"bridge_computation_duration_ms",
		metric.WithDescription("End to end confidential computation latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	m.receiptRejections, err = meter.Int64Counter(
		"bridge_receipt_rejections_total",
		metric.WithDescription("Receipts rejected during verification"),
		metric.WithUnit("{receipt}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}
