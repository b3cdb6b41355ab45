package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

type sampleArgs struct {
	Query string   `json:"query" description:"what to look for" validate:"required"`
	Limit int      `json:"limit,omitempty" validate:"gte=0,lte=10"`
	Ratio float64  `json:"ratio,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

func TestFunc_Schema(t *testing.T) {
	f := NewFunc("sample", "a sample", func(context.Context, sampleArgs) (any, error) { return nil, nil })

	b, err := json.Marshal(f.Parameters())
	require.NoError(t, err)
	var schema struct {
		Type       string                    `json:"type"`
		Properties map[string]map[string]any `json:"properties"`
		Required   []string                  `json:"required"`
	}
	require.NoError(t, json.Unmarshal(b, &schema))

	require.Equal(t, "object", schema.Type)
	require.Equal(t, []string{"query"}, schema.Required)
	require.Equal(t, "string", schema.Properties["query"]["type"])
	require.Equal(t, "what to look for", schema.Properties["query"]["description"])
	require.Equal(t, "integer", schema.Properties["limit"]["type"])
	require.Equal(t, "array", schema.Properties["tags"]["type"])
}

func TestFunc_EmptyArgsSchema(t *testing.T) {
	f := NewFunc("none", "no args", func(context.Context, noArgs) (any, error) { return "ok", nil })
	b, err := json.Marshal(f.Parameters())
	require.NoError(t, err)
	require.Contains(t, string(b), `"type":"object"`)
	require.Contains(t, string(b), `"properties":{}`)

	out, err := f.Run(context.Background(), map[string]any{"ignored": true})
	require.NoError(t, err)
	require.Equal(t, "ok", out)
}

func TestFunc_WeakDecoding(t *testing.T) {
	var got sampleArgs
	f := NewFunc("sample", "", func(_ context.Context, a sampleArgs) (any, error) {
		got = a
		return nil, nil
	})

	_, err := f.Run(context.Background(), map[string]any{
		"query": "počasie",
		"limit": "7",
		"ratio": float64(2),
		"tags":  []any{"a", "b"},
	})
	require.NoError(t, err)
	require.Equal(t, sampleArgs{Query: "počasie", Limit: 7, Ratio: 2, Tags: []string{"a", "b"}}, got)

	_, err = f.Run(context.Background(), map[string]any{"query": "x", "limit": float64(3)})
	require.NoError(t, err)
	require.Equal(t, 3, got.Limit)
}

func TestFunc_Validation(t *testing.T) {
	called := false
	f := NewFunc("sample", "", func(context.Context, sampleArgs) (any, error) {
		called = true
		return nil, nil
	})

	_, err := f.Run(context.Background(), map[string]any{})
	require.EqualError(t, err, "invalid arguments: query is required")

	_, err = f.Run(context.Background(), map[string]any{"query": "x", "limit": 50})
	require.EqualError(t, err, "invalid arguments: limit failed lte=10")

	_, err = f.Run(context.Background(), map[string]any{"query": "x", "limit": "many"})
	require.ErrorContains(t, err, "invalid arguments")

	require.False(t, called)
}
