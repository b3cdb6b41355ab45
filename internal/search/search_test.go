package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comigor/calendar-agent/internal/config"
)

func searxServer(t *testing.T, n int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)
		require.Equal(t, "json", r.URL.Query().Get("format"))
		results := make([]map[string]string, 0, n)
		for i := 0; i < n; i++ {
			results = append(results, map[string]string{
				"url":     fmt.Sprintf("https://example.com/%d", i),
				"title":   fmt.Sprintf("Výsledok %d", i),
				"content": "úryvok",
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"query": r.URL.Query().Get("q"), "results": results})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSearch(t *testing.T) {
	srv := searxServer(t, 8)
	c := NewClient(WithBaseURL(srv.URL))

	res, err := c.Search(context.Background(), "teplota lepenia polepu", 0)
	require.NoError(t, err)
	require.Len(t, res, 5)
	require.Equal(t, Result{Position: 1, Title: "Výsledok 0", Snippet: "úryvok", URL: "https://example.com/0"}, res[0])
	require.Equal(t, 5, res[4].Position)

	res, err = c.Search(context.Background(), "q", 3)
	require.NoError(t, err)
	require.Len(t, res, 3)
}

func TestSearch_ClampsToHardMax(t *testing.T) {
	srv := searxServer(t, 20)
	c := FromConfig(config.SearchConfig{BaseURL: srv.URL + "/", Language: "sk"})

	res, err := c.Search(context.Background(), "q", 50)
	require.NoError(t, err)
	require.Len(t, res, HardMaxResults)
}

func TestSearch_Empty(t *testing.T) {
	srv := searxServer(t, 0)
	res, err := NewClient(WithBaseURL(srv.URL)).Search(context.Background(), "nič", 5)
	require.NoError(t, err)
	require.Empty(t, res)
}

func TestSearch_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).Search(context.Background(), "q", 1)
	require.ErrorContains(t, err, "429")
}
