package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teemow/meetsync/internal/instrumentation"
)

const (
	DefaultMetricsAddr = ":9090"
	DefaultMetricsPath = "/metrics"

	DefaultMetricsReadTimeout  = 10 * time.Second
	DefaultMetricsWriteTimeout = 10 * time.Second
	DefaultMetricsIdleTimeout  = 60 * time.Second

	// DefaultShutdownTimeout bounds graceful shutdown of every HTTP listener.
	DefaultShutdownTimeout = 30 * time.Second
)

// MetricsServerConfig configures the dedicated scrape listener.
type MetricsServerConfig struct {
	Addr    string
	Enabled bool
	// Path is the scrape path, DefaultMetricsPath when empty.
	Path string
	// Gatherer is scraped on Path. Nil means the default registry, which is
	// where the otel prometheus exporter registers.
	Gatherer                prometheus.Gatherer
	InstrumentationProvider *instrumentation.Provider
}

// MetricsServer exposes Prometheus metrics on their own port, apart from the
// MCP endpoint.
type MetricsServer struct {
	mu         sync.Mutex
	httpServer *http.Server
	addr       string
	boundAddr  string
}

// NewMetricsServer validates config and prepares the listener without
// binding it.
func NewMetricsServer(config MetricsServerConfig) (*MetricsServer, error) {
	switch {
	case config.InstrumentationProvider == nil:
		return nil, fmt.Errorf("instrumentation provider is required for metrics server")
	case !config.InstrumentationProvider.Enabled():
		return nil, fmt.Errorf("instrumentation provider is not enabled")
	}
	if config.Addr == "" {
		config.Addr = DefaultMetricsAddr
	}
	if config.Path == "" {
		config.Path = DefaultMetricsPath
	}
	if config.Gatherer == nil {
		config.Gatherer = prometheus.DefaultGatherer
	}

	mux := http.NewServeMux()
	mux.Handle(config.Path, promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &MetricsServer{
		addr: config.Addr,
		httpServer: &http.Server{
			Addr:              config.Addr,
			Handler:           mux,
			ReadHeaderTimeout: DefaultMetricsReadTimeout,
			WriteTimeout:      DefaultMetricsWriteTimeout,
			IdleTimeout:       DefaultMetricsIdleTimeout,
		},
	}, nil
}

// Start serves until Shutdown.
func (s *MetricsServer) Start() error {
	return s.StartWithReadySignal(nil)
}

// StartWithReadySignal binds the listener, closes ready once the port
// accepts connections and serves until Shutdown. ready may be nil.
func (s *MetricsServer) StartWithReadySignal(ready chan<- struct{}) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.boundAddr = ln.Addr().String()
	s.mu.Unlock()

	slog.Info("starting metrics server", "addr", ln.Addr().String())
	if ready != nil {
		close(ready)
	}
	return s.httpServer.Serve(ln)
}

// Handler returns the mux of the server, for tests.
func (s *MetricsServer) Handler() http.Handler {
	return s.httpServer.Handler
}

// Shutdown stops the listener. It is a no-op before Start.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	slog.Info("shutting down metrics server")
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the bound address once started, the configured one before.
func (s *MetricsServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.boundAddr != "" {
		return s.boundAddr
	}
	return s.addr
}
