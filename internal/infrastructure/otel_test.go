package infrastructure

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestInitializeOTel_Disabled(t *testing.T) {
	providers, err := InitializeOTel(config.TelemetryConfig{
		TraceExporter:  "none",
		MetricExporter: "none",
	}, discardLogger())
	require.NoError(t, err)

	assert.Nil(t, providers.TracerProvider)
	assert.Nil(t, providers.MeterProvider)
	assert.Nil(t, providers.PrometheusHTTP)
	require.NotNil(t, providers.Tracer)
	require.NotNil(t, providers.Meter)

	_, span := providers.Tracer.Start(context.Background(), "noop")
	span.End()
	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestInitializeOTel_Prometheus(t *testing.T) {
	cfg := config.TelemetryConfig{
		Environment:    "test",
		TraceExporter:  "none",
		MetricExporter: "prometheus",
		SampleRatio:    1,
	}

	// Two initialisations must not collide on a shared registry.
	for i := 0; i < 2; i++ {
		providers, err := InitializeOTel(cfg, discardLogger())
		require.NoError(t, err)
		require.NotNil(t, providers.PrometheusHTTP)

		counter, err := providers.Meter.Int64Counter("test_events_total")
		require.NoError(t, err)
		counter.Add(context.Background(), 3)

		rec := httptest.NewRecorder()
		providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "test_events_total")
		assert.Contains(t, rec.Body.String(), "go_goroutines")

		require.NoError(t, providers.Shutdown(context.Background()))
	}
}

func TestInitializeOTel_Unsupported(t *testing.T) {
	_, err := InitializeOTel(config.TelemetryConfig{TraceExporter: "zipkin"}, discardLogger())
	assert.Error(t, err)

	_, err = InitializeOTel(config.TelemetryConfig{MetricExporter: "statsd"}, discardLogger())
	assert.Error(t, err)
}
