package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/comigor/calendar-agent/internal/search"
)

// Searcher is the search client surface used by web_search.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]search.Result, error)
}

var _ Searcher = (*search.Client)(nil)

type webSearchArgs struct {
	Query      string `json:"query" description:"Vyhľadávací dotaz v slovenčine alebo angličtine" validate:"required"`
	MaxResults int    `json:"maxResults,omitempty" description:"Maximálny počet výsledkov (default 5, max 10)" validate:"gte=0"`
}

func WebSearchTool(s Searcher) Tool {
	return NewFunc("web_search",
		"Vyhľadáva informácie na internete. Použi pre otázky o návodoch, best practices, technických informáciách, inštalačných postupoch atď. V odpovedi vždy uveď zdroj (URL).",
		func(ctx context.Context, a webSearchArgs) (any, error) {
			if a.MaxResults == 0 {
				a.MaxResults = 5
			}
			if a.MaxResults > search.HardMaxResults {
				a.MaxResults = search.HardMaxResults
			}
			results, err := s.Search(ctx, a.Query, a.MaxResults)
			if err != nil {
				return nil, fmt.Errorf("Chyba pri vyhľadávaní: %w", err)
			}
			if len(results) == 0 {
				return nil, errors.New("Nenašli sa žiadne výsledky")
			}
			return map[string]any{
				"ok":      true,
				"query":   a.Query,
				"results": results,
				"count":   len(results),
			}, nil
		})
}
