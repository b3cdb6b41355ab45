package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/comigor/calendar-agent/internal/config"
)

// HardMaxResults caps how many results a single query may return.
const HardMaxResults = 10

// Result is one ranked hit.
type Result struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Snippet  string `json:"snippet"`
	URL      string `json:"url"`
}

type searxResponse struct {
	Query   string `json:"query"`
	Results []struct {
		URL     string `json:"url"`
		Title   string `json:"title"`
		Content string `json:"content"`
	} `json:"results"`
}

// Client queries a SearxNG instance through its JSON API.
type Client struct {
	baseURL    string
	language   string
	maxResults int
	httpClient *http.Client
}

func NewClient(opts ...Option) *Client {
	c := new(Client)
	for _, opt := range opts {
		opt(c)
	}
	if c.maxResults <= 0 {
		c.maxResults = 5
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	return c
}

// FromConfig builds a Client from the search section of the configuration.
func FromConfig(cfg config.SearchConfig) *Client {
	return NewClient(
		WithBaseURL(cfg.BaseURL),
		WithLanguage(cfg.Language),
		WithMaxResults(cfg.MaxResults),
		WithHttpClient(&http.Client{Timeout: cfg.Timeout}),
	)
}

// Search runs query and returns at most limit results, numbered from 1. limit <= 0
// uses the client default; anything above HardMaxResults is clamped.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = c.maxResults
	}
	if limit > HardMaxResults {
		limit = HardMaxResults
	}

	values := url.Values{}
	values.Set("q", query)
	values.Set("format", "json")
	values.Set("safesearch", "1")
	if c.language != "" {
		values.Set("language", c.language)
	}
	searchURL := fmt.Sprintf("%s/search?%s", strings.TrimRight(c.baseURL, "/"), values.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error querying search engine: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("non-200 response from search engine: %d", resp.StatusCode)
	}

	var sr searxResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("malformed search response: %w", err)
	}

	out := make([]Result, 0, limit)
	for _, r := range sr.Results {
		if len(out) == limit {
			break
		}
		out = append(out, Result{
			Position: len(out) + 1,
			Title:    r.Title,
			Snippet:  r.Content,
			URL:      r.URL,
		})
	}
	return out, nil
}
