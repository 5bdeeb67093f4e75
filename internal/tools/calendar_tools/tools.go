package calendar_tools

import (
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/calbridge/calbridge/internal/server"
)

// RegisterCalendarTools registers all Calendar-related tools with the
// MCP server. With readOnly set, mutating tools are left unregistered.
func RegisterCalendarTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if err := RegisterEventTools(s, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register event tools: %w", err)
	}

	if err := RegisterCalendarManagementTools(s, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register calendar management tools: %w", err)
	}

	return nil
}
