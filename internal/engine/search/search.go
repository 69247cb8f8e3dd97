package search

import (
	"context"
	"fmt"
	"net/http"
)

// Result is one organic search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher discovers candidate sources for a query.
type Searcher interface {
	Discover(ctx context.Context, q string, k int) ([]Result, error)
}

type Provider string

const (
	SerperProvider Provider = "serper"
	BraveProvider  Provider = "brave"
)

// NewSearcher returns the searcher for provider.
func NewSearcher(provider Provider, apiKey string) (Searcher, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s api key not configured", provider)
	}
	switch provider {
	case SerperProvider:
		return Serper{APIKey: apiKey}, nil
	case BraveProvider:
		return Brave{APIKey: apiKey}, nil
	default:
		return nil, fmt.Errorf("unsupported search provider %q", provider)
	}
}

func httpClient(c *http.Client) *http.Client {
	if c == nil {
		return http.DefaultClient
	}
	return c
}
