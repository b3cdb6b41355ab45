package tools

import "context"

// Tool is the interface for all tools
type Tool interface {
	Name() string
	Description() string
	// Parameters is the JSON schema advertised to the model. It must marshal
	// to a JSON object.
	Parameters() any
	// Run executes the tool. The returned value is marshalled to JSON and fed
	// back to the model; an error becomes an {"ok": false} payload.
	Run(ctx context.Context, args map[string]any) (any, error)
}
