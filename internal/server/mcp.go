package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/comigor/calendar-agent/internal/calendar"
	"github.com/comigor/calendar-agent/internal/logger"
	"github.com/comigor/calendar-agent/pkg/tools"
)

// NewMCPServer publishes the local tools of m over MCP. Tools proxied from
// remote MCP servers are not re-exported.
func NewMCPServer(m *tools.ToolManager, version string) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("calendar-agent", version, mcpserver.WithToolCapabilities(false))
	for _, t := range m.List() {
		if _, remote := t.(*tools.RemoteTool); remote {
			continue
		}
		schema, err := json.Marshal(t.Parameters())
		if err != nil {
			logger.L.Error("failed to marshal tool schema, skipping MCP export", "tool", t.Name(), "error", err)
			continue
		}
		s.AddTool(mcp.NewToolWithRawSchema(t.Name(), t.Description(), schema), callHandler(m, t.Name()))
	}
	return s
}

// NewMCPHandler serves the local tools over the streamable HTTP transport.
func NewMCPHandler(m *tools.ToolManager, version string) http.Handler {
	return mcpserver.NewStreamableHTTPServer(NewMCPServer(m, version))
}

func callHandler(m *tools.ToolManager, name string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := "{}"
		if req.Params.Arguments != nil {
			b, err := json.Marshal(req.Params.Arguments)
			if err != nil {
				return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
			}
			args = string(b)
		}

		payload := m.Call(ctx, name, args)
		text := tools.Encode(payload)
		if failed(payload) {
			return mcp.NewToolResultError(text), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}

// failed reports whether a tool payload is one of the error shapes produced
// by ToolManager.Call.
func failed(payload any) bool {
	var m map[string]any
	switch v := payload.(type) {
	case map[string]any:
		m = v
	case calendar.Result:
		m = v
	default:
		return false
	}
	if okv, present := m["ok"]; present {
		b, isBool := okv.(bool)
		return isBool && !b
	}
	_, hasErr := m["error"]
	return hasErr
}
