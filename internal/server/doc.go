// Package server provides the MCP server context and the HTTP surfaces of
// meetsync.
//
// # Key Components
//
// ServerContext carries the meetings.Manager that every MCP tool calls into,
// together with the optional metrics recorder and audit logger.
//
// HTTPServer serves the streamable HTTP transport on /mcp and the health
// endpoints:
//   - /healthz: liveness
//   - /readyz: readiness, including a store ping
//   - /healthz/detailed: uptime and status
//
// MetricsServer exposes Prometheus metrics on a dedicated port so scraping
// stays off the application listener.
package server
