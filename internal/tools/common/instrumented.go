package common

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/calbridge/calbridge/internal/instrumentation"
	"github.com/calbridge/calbridge/internal/server"
)

// InstrumentedToolHandler wraps a tool handler with invocation metrics.
// The signature stays an unnamed func type so the result satisfies
// mcp-go's handler type directly.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(
	toolName string,
	sc *server.ServerContext,
	handler func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error),
) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		result, err := handler(ctx, request)

		status := instrumentation.StatusSuccess
		if err != nil || (result != nil && result.IsError) {
			status = instrumentation.StatusError
		}
		sc.Metrics().RecordToolInvocation(ctx, toolName, status, time.Since(start))

		return result, err
	}
}

// StringArg extracts a string argument, returning its value and whether
// a non-empty value was present.
func StringArg(args map[string]interface{}, name string) (string, bool) {
	v, ok := args[name].(string)
	return v, ok && v != ""
}

// StringArgOrDefault extracts a string argument, falling back to def
// when absent or empty.
func StringArgOrDefault(args map[string]interface{}, name, def string) string {
	if v, ok := StringArg(args, name); ok {
		return v
	}
	return def
}

// BoolArg extracts a boolean argument, defaulting to false.
func BoolArg(args map[string]interface{}, name string) bool {
	v, ok := args[name].(bool)
	return ok && v
}

// TimeArg parses an RFC3339 string argument. Absent or empty values
// return the zero time with no error.
func TimeArg(args map[string]interface{}, name string) (time.Time, error) {
	v, ok := StringArg(args, name)
	if !ok {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v)
}
