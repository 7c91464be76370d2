// Package common provides shared utilities for MCP tool implementations:
// argument parsing and the instrumented handler wrapper every tool is
// registered through.
package common
