package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPrometheusProvider_ExposesInstruments(t *testing.T) {
	ctx := context.Background()
	mp, err := NewMetricProvider(ctx,
		WithServiceName("bridge-test"),
		WithProviderConfig(Prometheus()),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer mp.Shutdown(ctx)

	counter, err := mp.Meter("test").Int64Counter("bridge_test_events")
	if err != nil {
		t.Fatal(err)
	}
	counter.Add(ctx, 3)

	srv := NewPrometheusServer(WithPort("0"))
	rec := httptest.NewRecorder()
	srv.srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "bridge_test_events") {
		t.Errorf("metric not exposed:\n%s", body)
	}
}

func TestOTLP_InsecureFromScheme(t *testing.T) {
	if !OTLP("http://collector:4317", nil).Insecure {
		t.Error("http endpoint should be insecure")
	}
	cfg := OTLP("https://otlp.example.com:4317", map[string]string{"api-key": "k"})
	if cfg.Insecure || cfg.Provider != OTLPProvider || cfg.Interval != defaultExportInterval {
		t.Errorf("cfg = %+v", cfg)
	}
}
