package fetch

import (
	"context"

	"github.com/quotedeck/quotedeck/internal/cachestore"
)

// News fetches recent headlines for symbol. News is supplementary, so every
// failure degrades to an empty list instead of propagating.
func (s *Service) News(ctx context.Context, symbol string) []NewsItem {
	var hit []NewsItem
	if s.cached("news", symbol, &hit) {
		return hit
	}

	doc, err := s.fetchJSON(ctx, "news", symbol, "/v1/finance/search", map[string]string{
		"q":           symbol,
		"newsCount":   "10",
		"quotesCount": "0",
	}, nil)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("News fetch failed")
		return []NewsItem{}
	}

	items := parseNews(doc)
	s.store("news", symbol, items, cachestore.TTLNews)

	return items
}

func parseNews(doc map[string]interface{}) []NewsItem {
	entries := getList(doc, "news")
	items := make([]NewsItem, 0, len(entries))
	for _, entry := range entries {
		title := getString(entry, "title")
		if title == nil {
			continue
		}
		items = append(items, NewsItem{
			Title:       *title,
			Publisher:   getString(entry, "publisher"),
			Link:        getString(entry, "link"),
			PublishedAt: getInt64(entry, "providerPublishTime"),
		})
	}
	return items
}
