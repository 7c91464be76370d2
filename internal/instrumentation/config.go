package instrumentation

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
)

// Config selects the exporters and labels of the telemetry pipeline.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// ServiceInstanceID defaults to the hostname, which is the pod name in
	// Kubernetes.
	ServiceInstanceID string
	K8sNamespace      string
	K8sPodName        string

	// Enabled is false with INSTRUMENTATION_ENABLED=false; metrics then
	// become no-ops and spans are never sampled.
	Enabled bool

	// MetricsExporter is prometheus, otlp or stdout.
	MetricsExporter string
	// TracingExporter is otlp, stdout or none.
	TracingExporter string

	// OTLPEndpoint is host:port without a scheme.
	OTLPEndpoint string
	// OTLPInsecure disables TLS towards the collector. Spans carry calendar
	// and meeting IDs, so keep it off outside development.
	OTLPInsecure bool

	// TraceSamplingRate is a ratio in [0, 1].
	TraceSamplingRate float64

	// PrometheusEndpoint is the scrape path of the metrics server.
	PrometheusEndpoint string

	// DetailedLabels adds the calendar mode and caller to tool metrics.
	DetailedLabels bool

	AuditLogging AuditLoggingConfig

	// ConsoleWriter receives the output of the stdout exporters. Nil means
	// os.Stderr, since stdout carries the MCP stdio transport.
	ConsoleWriter io.Writer
}

// AuditLoggingConfig controls the per-tool-call audit records.
type AuditLoggingConfig struct {
	Enabled bool

	// IncludePII logs participant and calendar IDs verbatim instead of a
	// stable hash.
	IncludePII bool

	// LogLevel is debug, info, warn or error.
	LogLevel string
}

// envReader reads typed settings from the environment. Unset or
// unparsable values yield the fallback.
type envReader func(key string) string

func (e envReader) str(key, fallback string) string {
	if v := e(key); v != "" {
		return v
	}
	return fallback
}

// first returns the first non-empty value among keys.
func (e envReader) first(fallback string, keys ...string) string {
	for _, k := range keys {
		if v := e(k); v != "" {
			return v
		}
	}
	return fallback
}

func (e envReader) boolean(key string, fallback bool) bool {
	v, err := strconv.ParseBool(e(key))
	if err != nil {
		return fallback
	}
	return v
}

func (e envReader) float(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(e(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

// DefaultConfig reads the instrumentation settings from the environment.
func DefaultConfig() Config {
	return configFromEnv(os.Getenv)
}

func configFromEnv(env envReader) Config {
	return Config{
		ServiceName:        env.str("OTEL_SERVICE_NAME", "meetsync"),
		ServiceVersion:     "unknown",
		ServiceInstanceID:  env.str("OTEL_SERVICE_INSTANCE_ID", ""),
		K8sNamespace:       env.first("", "K8S_NAMESPACE", "POD_NAMESPACE"),
		K8sPodName:         env.first("", "K8S_POD_NAME", "HOSTNAME"),
		Enabled:            env.boolean("INSTRUMENTATION_ENABLED", true),
		MetricsExporter:    env.str("METRICS_EXPORTER", ExporterPrometheus),
		TracingExporter:    env.str("TRACING_EXPORTER", ExporterNone),
		OTLPEndpoint:       env.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:       env.boolean("OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSamplingRate:  env.float("OTEL_TRACES_SAMPLER_ARG", 0.1),
		PrometheusEndpoint: env.str("PROMETHEUS_ENDPOINT", "/metrics"),
		DetailedLabels:     env.boolean("METRICS_DETAILED_LABELS", false),
		AuditLogging: AuditLoggingConfig{
			Enabled:    env.boolean("AUDIT_LOGGING_ENABLED", true),
			IncludePII: env.boolean("AUDIT_LOGGING_INCLUDE_PII", false),
			LogLevel:   env.str("AUDIT_LOGGING_LEVEL", "info"),
		},
	}
}

var (
	metricsExporters = []string{ExporterPrometheus, ExporterOTLP, ExporterStdout}
	tracingExporters = []string{ExporterOTLP, ExporterStdout, ExporterNone}
)

// Validate reports every problem of the configuration at once. Empty
// exporter names are accepted and treated like the defaults.
func (c *Config) Validate() error {
	var errs []error
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		errs = append(errs, fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate))
	}
	if c.MetricsExporter != "" && !slices.Contains(metricsExporters, c.MetricsExporter) {
		errs = append(errs, fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter))
	}
	if c.TracingExporter != "" && !slices.Contains(tracingExporters, c.TracingExporter) {
		errs = append(errs, fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter))
	}
	if c.OTLPEndpoint == "" {
		if c.TracingExporter == ExporterOTLP {
			errs = append(errs, errors.New("OTLP endpoint is required when using OTLP tracing exporter"))
		}
		if c.MetricsExporter == ExporterOTLP {
			errs = append(errs, errors.New("OTLP endpoint is required when using OTLP metrics exporter"))
		}
	}
	return errors.Join(errs...)
}

// Label values of the recorded metrics.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	OAuthResultSuccess = "success"
	OAuthResultFailure = "failure"
	OAuthResultExpired = "expired"

	// Calendar provider operations
	OperationInsert   = "insert"
	OperationDelete   = "delete"
	OperationFreeBusy = "freebusy"

	// Conference fallback results
	FallbackRecovered = "recovered"
	FallbackFailed    = "failed"

	// Booking outcomes
	BookingBoth     = "both"
	BookingPartial  = "partial"
	BookingFailed   = "failed"
	BookingRejected = "rejected"

	// Cancellation cleanup outcomes
	CleanupComplete   = "complete"
	CleanupIncomplete = "incomplete"

	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)
