package instrumentation

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{ServiceName: "meetsync", Enabled: false})
	require.NoError(t, err)

	assert.False(t, provider.Enabled())
	assert.False(t, provider.PrometheusEnabled())
	require.NotNil(t, provider.Metrics())
	assert.NotNil(t, provider.Tracer("meetsync"))
	assert.NoError(t, provider.Shutdown(context.Background()))

	// The no-op recorder must accept calls.
	provider.Metrics().RecordBooking(context.Background(), BookingBoth)
}

func TestNewProvider_Exporters(t *testing.T) {
	tests := []struct {
		name           string
		metrics        string
		tracing        string
		endpoint       string
		wantErr        bool
		wantPrometheus bool
	}{
		{name: "prometheus", metrics: ExporterPrometheus, tracing: ExporterNone, wantPrometheus: true},
		{name: "stdout", metrics: ExporterStdout, tracing: ExporterStdout},
		{name: "unknown metrics exporter", metrics: "statsd", tracing: ExporterNone, wantErr: true},
		{name: "unknown tracing exporter", metrics: ExporterPrometheus, tracing: "zipkin", wantErr: true},
		{name: "otlp tracing without endpoint", metrics: ExporterPrometheus, tracing: ExporterOTLP, wantErr: true},
		{name: "otlp metrics without endpoint", metrics: ExporterOTLP, tracing: ExporterNone, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			provider, err := NewProvider(ctx, Config{
				ServiceName:       "meetsync-test",
				ServiceVersion:    "1.0.0",
				Enabled:           true,
				MetricsExporter:   tt.metrics,
				TracingExporter:   tt.tracing,
				OTLPEndpoint:      tt.endpoint,
				OTLPInsecure:      true,
				TraceSamplingRate: 1,
			})
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

			assert.True(t, provider.Enabled())
			assert.Equal(t, tt.wantPrometheus, provider.PrometheusEnabled())
			assert.NotNil(t, provider.Metrics())
			assert.NotNil(t, provider.Tracer("meetsync"))
		})
	}
}

func TestNewProvider_StdoutGoesToConsoleWriter(t *testing.T) {
	var console bytes.Buffer
	provider, err := NewProvider(context.Background(), Config{
		ServiceName:       "meetsync-test",
		Enabled:           true,
		MetricsExporter:   ExporterStdout,
		TracingExporter:   ExporterStdout,
		TraceSamplingRate: 1,
		ConsoleWriter:     &console,
	})
	require.NoError(t, err)

	_, span := provider.Tracer("meetsync").Start(context.Background(), "book_meeting")
	span.End()
	require.NoError(t, provider.Shutdown(context.Background()))

	assert.Contains(t, console.String(), "book_meeting")
}

func TestProvider_MetricsPath(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	assert.Equal(t, "/metrics", p.MetricsPath())

	p, err = NewProvider(context.Background(), Config{Enabled: false, PrometheusEndpoint: "/internal/metrics"})
	require.NoError(t, err)
	assert.Equal(t, "/internal/metrics", p.MetricsPath())
}
