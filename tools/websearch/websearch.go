package websearch

import (
	"context"
	"errors"

	"github.com/guardline/guardline/tools/websearch/brave"
	"github.com/guardline/guardline/tools/websearch/models"
	"github.com/guardline/guardline/tools/websearch/serper"
)

// Searcher finds current web results for a query.
type Searcher interface {
	Search(ctx context.Context, q string, k int) ([]models.Result, error)
}

type Provider string

const (
	BraveProvider  Provider = "brave"
	SerperProvider Provider = "serper"
)

var ErrUnsupportedProvider = errors.New("unsupported web search provider")

// NewSearcher builds a searcher for the configured provider.
func NewSearcher(provider Provider, apiKey string) (Searcher, error) {
	switch provider {
	case BraveProvider:
		return brave.Search{APIKey: apiKey}, nil
	case SerperProvider:
		return serper.Search{APIKey: apiKey}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}
