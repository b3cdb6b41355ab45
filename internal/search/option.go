package search

import "net/http"

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

func WithLanguage(lang string) Option {
	return func(c *Client) {
		c.language = lang
	}
}

func WithMaxResults(n int) Option {
	return func(c *Client) {
		c.maxResults = n
	}
}

func WithHttpClient(clt *http.Client) Option {
	return func(c *Client) {
		c.httpClient = clt
	}
}
