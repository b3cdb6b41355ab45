package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comigor/calendar-agent/internal/search"
)

type fakeSearcher struct {
	results []search.Result
	limits  []int
}

func (f *fakeSearcher) Search(_ context.Context, _ string, limit int) ([]search.Result, error) {
	f.limits = append(f.limits, limit)
	return f.results, nil
}

func TestWebSearch(t *testing.T) {
	f := &fakeSearcher{results: []search.Result{{Position: 1, Title: "Montáž okien", URL: "https://example.sk/okna"}}}
	m := NewToolManager()
	RegisterBuiltins(m, Deps{Search: f})

	got := decode(t, m.Call(context.Background(), "web_search", `{"query":"montáž okien"}`))
	require.Equal(t, true, got["ok"])
	require.Equal(t, "montáž okien", got["query"])
	require.EqualValues(t, 1, got["count"])

	m.Call(context.Background(), "web_search", `{"query":"x","maxResults":25}`)
	require.Equal(t, []int{5, search.HardMaxResults}, f.limits)
}

func TestWebSearch_NoResults(t *testing.T) {
	m := NewToolManager()
	RegisterBuiltins(m, Deps{Search: &fakeSearcher{}})

	got := decode(t, m.Call(context.Background(), "web_search", `{"query":"qwzx"}`))
	require.Equal(t, map[string]any{"ok": false, "error": "Nenašli sa žiadne výsledky"}, got)
}
