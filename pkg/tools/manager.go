package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/calendar-agent/internal/logger"
)

// UnknownTool is the payload returned for a tool name that is not registered.
const UnknownTool = "Neznáma funkcia"

// ToolManager manages the available tools
type ToolManager struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewToolManager creates a new ToolManager
func NewToolManager() *ToolManager {
	return &ToolManager{
		tools: make(map[string]Tool),
	}
}

// RegisterTool registers a new tool. The first tool registered under a name
// wins; later ones are ignored and false is returned.
func (m *ToolManager) RegisterTool(tool Tool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tools[tool.Name()]; exists {
		logger.L.Warn("tool already registered, skipping", "tool", tool.Name())
		return false
	}
	m.tools[tool.Name()] = tool
	m.order = append(m.order, tool.Name())
	return true
}

// GetTool retrieves a tool by name
func (m *ToolManager) GetTool(name string) (Tool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tool, ok := m.tools[name]
	if !ok {
		return nil, fmt.Errorf("tool not found: %s", name)
	}
	return tool, nil
}

// List returns all registered tools in registration order
func (m *ToolManager) List() []Tool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ts := make([]Tool, 0, len(m.order))
	for _, name := range m.order {
		ts = append(ts, m.tools[name])
	}
	return ts
}

// Definitions returns the tool list in the shape the chat completion API expects.
func (m *ToolManager) Definitions() []openai.Tool {
	list := m.List()
	defs := make([]openai.Tool, 0, len(list))
	for _, t := range list {
		defs = append(defs, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// Failure is the payload of a tool call that could not complete.
func Failure(err error) map[string]any {
	return map[string]any{"ok": false, "error": err.Error()}
}

// Call runs the named tool with JSON encoded arguments. It never fails: an
// unknown tool, malformed arguments, a handler error or a handler panic all
// come back as a payload the model can read.
func (m *ToolManager) Call(ctx context.Context, name, rawArgs string) (payload any) {
	tool, err := m.GetTool(name)
	if err != nil {
		logger.L.Warn("model requested unknown tool", "tool", name)
		return map[string]any{"error": UnknownTool}
	}

	args := map[string]any{}
	if rawArgs != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			logger.L.Warn("failed to parse tool arguments", "tool", name, "error", err)
			return Failure(fmt.Errorf("invalid arguments: %w", err))
		}
	}

	defer func() {
		if r := recover(); r != nil {
			logger.L.Error("tool panicked", "tool", name, "panic", r)
			payload = Failure(fmt.Errorf("tool %s failed: %v", name, r))
		}
	}()

	logger.L.Debug("running tool", "tool", name, "args", args)
	out, err := tool.Run(ctx, args)
	if err != nil {
		logger.L.Warn("tool returned error", "tool", name, "error", err)
		return Failure(err)
	}
	return out
}

// Encode marshals a tool payload for a tool message. Raw JSON is passed
// through unchanged.
func Encode(payload any) string {
	if raw, ok := payload.(json.RawMessage); ok && json.Valid(raw) {
		return string(raw)
	}
	b, err := json.Marshal(payload)
	if err != nil {
		b, _ = json.Marshal(Failure(fmt.Errorf("unencodable tool result: %w", err)))
	}
	return string(b)
}
