package instrumentation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	for _, key := range []string{"OTEL_SERVICE_NAME", "INSTRUMENTATION_ENABLED", "METRICS_EXPORTER", "TRACING_EXPORTER", "OTEL_TRACES_SAMPLER_ARG"} {
		t.Setenv(key, "")
	}

	cfg := DefaultConfig()
	assert.Equal(t, "meetsync", cfg.ServiceName)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, ExporterPrometheus, cfg.MetricsExporter)
	assert.Equal(t, ExporterNone, cfg.TracingExporter)
	assert.InDelta(t, 0.1, cfg.TraceSamplingRate, 1e-9)
	assert.True(t, cfg.AuditLogging.Enabled)
	assert.False(t, cfg.AuditLogging.IncludePII)
}

func TestDefaultConfig_FromEnv(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "meetsync-staging")
	t.Setenv("INSTRUMENTATION_ENABLED", "false")
	t.Setenv("METRICS_EXPORTER", "stdout")
	t.Setenv("TRACING_EXPORTER", "stdout")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.5")
	t.Setenv("AUDIT_LOGGING_INCLUDE_PII", "true")

	cfg := DefaultConfig()
	assert.Equal(t, "meetsync-staging", cfg.ServiceName)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, ExporterStdout, cfg.MetricsExporter)
	assert.Equal(t, ExporterStdout, cfg.TracingExporter)
	assert.InDelta(t, 0.5, cfg.TraceSamplingRate, 1e-9)
	assert.True(t, cfg.AuditLogging.IncludePII)
}

func TestDefaultConfig_BadValuesFallBack(t *testing.T) {
	t.Setenv("INSTRUMENTATION_ENABLED", "maybe")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "lots")

	cfg := DefaultConfig()
	assert.True(t, cfg.Enabled)
	assert.InDelta(t, 0.1, cfg.TraceSamplingRate, 1e-9)
}

func TestConfigFromEnv_FallbackChain(t *testing.T) {
	env := map[string]string{"POD_NAMESPACE": "meetings", "HOSTNAME": "meetsync-7d9f"}
	cfg := configFromEnv(func(key string) string { return env[key] })
	assert.Equal(t, "meetings", cfg.K8sNamespace)
	assert.Equal(t, "meetsync-7d9f", cfg.K8sPodName)

	env["K8S_POD_NAME"] = "meetsync-0"
	cfg = configFromEnv(func(key string) string { return env[key] })
	assert.Equal(t, "meetsync-0", cfg.K8sPodName)
}

func TestConfig_ValidateReportsAllProblems(t *testing.T) {
	cfg := Config{TraceSamplingRate: 2, MetricsExporter: "statsd", TracingExporter: ExporterOTLP}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sampling rate")
	assert.Contains(t, err.Error(), "invalid metrics exporter")
	assert.Contains(t, err.Error(), "OTLP tracing exporter")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "prometheus without tracing",
			cfg:  Config{MetricsExporter: ExporterPrometheus, TracingExporter: ExporterNone, TraceSamplingRate: 0.1},
		},
		{
			name: "empty exporters",
			cfg:  Config{TraceSamplingRate: 1},
		},
		{
			name:    "sampling rate above one",
			cfg:     Config{TraceSamplingRate: 1.5},
			wantErr: "sampling rate",
		},
		{
			name:    "negative sampling rate",
			cfg:     Config{TraceSamplingRate: -0.1},
			wantErr: "sampling rate",
		},
		{
			name:    "unknown metrics exporter",
			cfg:     Config{MetricsExporter: "statsd"},
			wantErr: "invalid metrics exporter",
		},
		{
			name:    "unknown tracing exporter",
			cfg:     Config{TracingExporter: "zipkin"},
			wantErr: "invalid tracing exporter",
		},
		{
			name:    "otlp tracing without endpoint",
			cfg:     Config{TracingExporter: ExporterOTLP},
			wantErr: "OTLP endpoint is required",
		},
		{
			name:    "otlp metrics without endpoint",
			cfg:     Config{MetricsExporter: ExporterOTLP},
			wantErr: "OTLP endpoint is required",
		},
		{
			name: "otlp with endpoint",
			cfg:  Config{MetricsExporter: ExporterOTLP, TracingExporter: ExporterOTLP, OTLPEndpoint: "collector:4318"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
