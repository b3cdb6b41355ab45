package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/comigor/calendar-agent/internal/config"
	"github.com/comigor/calendar-agent/internal/logger"
)

// MCPClient is the part of an MCP client used to discover and call remote tools.
type MCPClient interface {
	Initialize(ctx context.Context, req mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	ListPrompts(ctx context.Context, req mcp.ListPromptsRequest) (*mcp.ListPromptsResult, error)
	GetPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error)
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

var _ MCPClient = (*client.Client)(nil)

var emptySchema = json.RawMessage(`{"type": "object", "properties": {}}`)

// RemoteTool forwards calls to a tool living on an MCP server.
type RemoteTool struct {
	client MCPClient
	tool   mcp.Tool
	schema json.RawMessage
}

func NewRemoteTool(c MCPClient, t mcp.Tool) *RemoteTool {
	return &RemoteTool{client: c, tool: t, schema: remoteSchema(t)}
}

func remoteSchema(t mcp.Tool) json.RawMessage {
	if len(t.RawInputSchema) > 0 && string(t.RawInputSchema) != "null" {
		return t.RawInputSchema
	}
	if t.InputSchema.Type == "" && len(t.InputSchema.Properties) == 0 {
		logger.L.Warn("tool from MCP server has an empty schema, using empty object schema", "tool", t.Name)
		return emptySchema
	}
	b, err := json.Marshal(t.InputSchema)
	if err != nil {
		logger.L.Error("failed to marshal InputSchema for tool, using empty schema", "tool", t.Name, "error", err)
		return emptySchema
	}
	return b
}

func (r *RemoteTool) Name() string        { return r.tool.Name }
func (r *RemoteTool) Description() string { return r.tool.Description }
func (r *RemoteTool) Parameters() any     { return r.schema }

// Run calls the remote tool. The first text content is the result; JSON text
// is passed through as-is.
func (r *RemoteTool) Run(ctx context.Context, args map[string]any) (any, error) {
	res, err := r.client.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: r.tool.Name, Arguments: args},
	})
	if err != nil {
		return nil, fmt.Errorf("mcp call %s: %w", r.tool.Name, err)
	}
	if res == nil {
		return nil, fmt.Errorf("mcp call %s: empty result", r.tool.Name)
	}

	var text string
	for _, c := range res.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			text = tc.Text
			break
		}
	}
	if res.IsError {
		if text == "" {
			text = "tool execution resulted in an error without specific text"
		}
		return nil, errors.New(text)
	}
	if text == "" {
		return res, nil
	}
	if json.Valid([]byte(text)) {
		return json.RawMessage(text), nil
	}
	return text, nil
}

// Remote holds the MCP clients that were connected at start-up.
type Remote struct {
	Clients []MCPClient
	// Prompts are system prompt fragments published by the servers.
	Prompts []string
}

// Close closes every connected client.
func (r *Remote) Close() error {
	var errs []error
	for _, c := range r.Clients {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func newMCPClient(ctx context.Context, sc config.MCPServerConfig) (*client.Client, error) {
	var (
		c   *client.Client
		err error
	)
	switch sc.Type {
	case config.ClientTypeSSE:
		var opts []transport.ClientOption
		if len(sc.Headers) > 0 {
			opts = append(opts, transport.WithHeaders(sc.Headers))
		}
		c, err = client.NewSSEMCPClient(sc.URL, opts...)
	case config.ClientTypeStreamableHTTP:
		var opts []transport.StreamableHTTPCOption
		if len(sc.Headers) > 0 {
			opts = append(opts, transport.WithHTTPHeaders(sc.Headers))
		}
		c, err = client.NewStreamableHttpClient(sc.URL, opts...)
	case config.ClientTypeStdio:
		var env []string
		for k, v := range sc.Env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		// stdio clients are started by the constructor
		return client.NewStdioMCPClient(sc.Command, env, sc.Args...)
	case "":
		return nil, errors.New("MCP server type not specified, set 'type' to 'sse', 'streamable_http' or 'stdio'")
	default:
		return nil, fmt.Errorf("unsupported MCP server type %q", sc.Type)
	}
	if err != nil {
		return nil, err
	}
	if err := c.Start(ctx); err != nil {
		if cerr := c.Close(); cerr != nil {
			logger.L.Warn("MCP client close error after start failure", "error", cerr)
		}
		return nil, fmt.Errorf("start transport: %w", err)
	}
	return c, nil
}

// ConnectMCP connects to every configured MCP server and registers its tools.
// Servers that fail are logged and skipped.
func ConnectMCP(ctx context.Context, servers []config.MCPServerConfig, m *ToolManager) *Remote {
	remote := &Remote{}
	for _, sc := range servers {
		c, err := newMCPClient(ctx, sc)
		if err != nil {
			logger.L.Error("failed to create MCP client", "name", sc.Name, "error", err)
			continue
		}
		if err := Discover(ctx, sc.Name, c, m, remote); err != nil {
			logger.L.Error("failed to initialize MCP client", "name", sc.Name, "error", err)
			if cerr := c.Close(); cerr != nil {
				logger.L.Warn("MCP client close error after init failure", "error", cerr)
			}
		}
	}
	if len(remote.Clients) == 0 && len(servers) > 0 {
		logger.L.Warn("no MCP clients were initialized despite servers configured", "count", len(servers))
	}
	return remote
}

// Discover initializes c, collects its system prompt and registers its tools
// in m. On success c is added to remote.
func Discover(ctx context.Context, name string, c MCPClient, m *ToolManager, remote *Remote) error {
	initResult, err := c.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			ClientInfo:      mcp.Implementation{Name: "calendar-agent", Version: "1.0.0"},
		},
	})
	if err != nil {
		return err
	}
	logger.L.Info("MCP server initialized", "name", name)
	remote.Clients = append(remote.Clients, c)

	if initResult != nil && initResult.Capabilities.Prompts != nil {
		if p := firstSystemPrompt(ctx, name, c); p != "" {
			remote.Prompts = append(remote.Prompts, p)
			logger.L.Info("discovered system prompt from MCP server", "name", name)
		}
	}

	listed, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		logger.L.Warn("failed to list tools for MCP client", "name", name, "error", err)
		return nil
	}
	for _, t := range listed.Tools {
		if m.RegisterTool(NewRemoteTool(c, t)) {
			logger.L.Info("registered tool from MCP server", "tool", t.Name, "name", name)
		}
	}
	return nil
}

// firstSystemPrompt returns the assistant text of the first argument-less prompt.
func firstSystemPrompt(ctx context.Context, name string, c MCPClient) string {
	prompts, err := c.ListPrompts(ctx, mcp.ListPromptsRequest{})
	if err != nil || prompts == nil {
		logger.L.Warn("failed to list prompts", "name", name, "error", err)
		return ""
	}
	i := slices.IndexFunc(prompts.Prompts, func(p mcp.Prompt) bool { return len(p.Arguments) == 0 })
	if i == -1 {
		return ""
	}
	got, err := c.GetPrompt(ctx, mcp.GetPromptRequest{Params: mcp.GetPromptParams{Name: prompts.Prompts[i].Name}})
	if err != nil || got == nil {
		logger.L.Warn("failed to get prompt", "name", name, "error", err)
		return ""
	}
	for _, msg := range got.Messages {
		if msg.Role != mcp.RoleAssistant {
			continue
		}
		if tc, ok := msg.Content.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}
