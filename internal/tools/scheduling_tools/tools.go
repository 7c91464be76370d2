package scheduling_tools

import (
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetsync/internal/server"
)

// RegisterSchedulingTools registers all scheduling tools with the MCP server.
// With readOnly set, only tools that do not change meetings or availability
// are registered.
func RegisterSchedulingTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if sc == nil || sc.Manager() == nil {
		return fmt.Errorf("scheduling tools need a meeting manager")
	}

	registerSlotTools(s, sc, readOnly)
	registerMeetingTools(s, sc, readOnly)
	registerAvailabilityTools(s, sc, readOnly)
	return nil
}
