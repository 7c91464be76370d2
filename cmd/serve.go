package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/meetsync/internal/instrumentation"
	"github.com/teemow/meetsync/internal/logging"
	"github.com/teemow/meetsync/internal/server"
	"github.com/teemow/meetsync/internal/tools/scheduling_tools"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

// ServeConfig collects the serve command flags.
type ServeConfig struct {
	Transport        string
	HTTPAddr         string
	ReadOnly         bool
	DisableStreaming bool
	Metrics          MetricsConfig
}

const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

func newServeCmd() *cobra.Command {
	var serveConfig ServeConfig

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server to provide meeting scheduling
tools for AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport, with /healthz and /readyz

Read-only Mode:
  With --read-only only tools that do not book, cancel or change availability
  are registered.

Calendars:
  Delegated calendars need GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET and a
  token per participant (see "meetsync connect"). The shared calendar uses the
  service account key in GOOGLE_SERVICE_ACCOUNT_FILE.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			loadMetricsEnvVars(cmd, &serveConfig.Metrics)
			return runServe(cmd, serveConfig)
		},
	}

	cmd.Flags().StringVar(&serveConfig.Transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&serveConfig.HTTPAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().BoolVar(&serveConfig.ReadOnly, "read-only", false, "Only register tools that do not change meetings or availability")
	cmd.Flags().BoolVar(&serveConfig.DisableStreaming, "disable-streaming", false, "Disable streaming for HTTP transport (for compatibility with certain clients)")

	// Metrics server flags
	cmd.Flags().BoolVar(&serveConfig.Metrics.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&serveConfig.Metrics.Addr, "metrics-addr", ":9090", "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

func runServe(cmd *cobra.Command, serveConfig ServeConfig) error {
	switch serveConfig.Transport {
	case transportStdio, transportStreamableHTTP:
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", serveConfig.Transport)
	}

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// stdout carries the stdio transport, so logs always go to stderr.
	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	if err := instrConfig.Validate(); err != nil {
		return fmt.Errorf("invalid instrumentation configuration: %w", err)
	}

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	// Start metrics server if enabled and not in stdio mode
	var metricsServer *server.MetricsServer
	if serveConfig.Transport != transportStdio && serveConfig.Metrics.Enabled && provider.PrometheusEnabled() {
		metricsServer, err = startMetricsServer(serveConfig.Metrics.Addr, provider, logger)
		if err != nil {
			return err
		}
	}

	a, err := newApp(shutdownCtx, cfg, logger, provider.Metrics())
	if err != nil {
		return err
	}

	var pinger server.Pinger
	if p, ok := a.store.(server.Pinger); ok {
		pinger = p
	}
	serverContext := server.NewServerContext(shutdownCtx, a.manager, pinger)

	// Set metrics and audit logger on server context for tool instrumentation
	if provider.Enabled() {
		serverContext.SetMetrics(provider.Metrics())
		serverContext.SetAuditLogger(instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging))
	}
	defer func() {
		// Shutdown metrics server first
		if metricsServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Warn("metrics server shutdown failed", logging.Err(err))
			}
		}
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("server context shutdown failed", logging.Err(err))
		}
		if err := a.Close(); err != nil {
			logger.Warn("failed to close store", logging.Err(err))
		}
	}()

	mcpSrv := mcpserver.NewMCPServer("meetsync", version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := scheduling_tools.RegisterSchedulingTools(mcpSrv, serverContext, serveConfig.ReadOnly); err != nil {
		return fmt.Errorf("failed to register scheduling tools: %w", err)
	}

	logger.Info("starting meetsync MCP server",
		slog.String("transport", serveConfig.Transport),
		slog.Bool("read_only", serveConfig.ReadOnly),
		slog.Int("owners", len(cfg.OwnerIDs)),
		slog.String("store", cfg.Store))

	if serveConfig.Transport == transportStdio {
		return runStdioServer(mcpSrv)
	}
	return runStreamableHTTPServer(shutdownCtx, mcpSrv, serverContext, serveConfig, provider, logger)
}

func startMetricsServer(addr string, provider *instrumentation.Provider, logger *slog.Logger) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		Path:                    provider.MetricsPath(),
		Enabled:                 true,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	// Use ready channel to confirm metrics server started successfully
	metricsReady := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	// Wait for metrics server to be ready or fail
	select {
	case <-metricsReady:
		logger.Info("metrics server started", slog.String("addr", metricsServer.Addr()))
		return metricsServer, nil
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, serveConfig ServeConfig, provider *instrumentation.Provider, logger *slog.Logger) error {
	var httpMetrics *instrumentation.Metrics
	if provider.Enabled() {
		httpMetrics = provider.Metrics()
	}
	httpServer := server.NewHTTPServer(mcpSrv, sc, server.HTTPServerConfig{
		Addr:             serveConfig.HTTPAddr,
		DisableStreaming: serveConfig.DisableStreaming,
		Metrics:          httpMetrics,
	})

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()
	logger.Info("HTTP server listening", slog.String("addr", serveConfig.HTTPAddr), slog.String("endpoint", "/mcp"))

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}

// loadMetricsEnvVars applies METRICS_ENABLED and METRICS_ADDR when the
// corresponding flags were not set explicitly.
func loadMetricsEnvVars(cmd *cobra.Command, config *MetricsConfig) {
	if !cmd.Flags().Changed("metrics-enabled") {
		switch os.Getenv("METRICS_ENABLED") {
		case "true":
			config.Enabled = true
		case "false":
			config.Enabled = false
		}
	}
	if !cmd.Flags().Changed("metrics-addr") {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			config.Addr = addr
		}
	}
}
