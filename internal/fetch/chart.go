package fetch

import (
	"context"
	"fmt"
	"net/url"

	"github.com/quotedeck/quotedeck/internal/cachestore"
	"github.com/quotedeck/quotedeck/internal/upstream"
)

const (
	DefaultChartRange    = "1mo"
	DefaultChartInterval = "1d"
)

// Chart fetches historical OHLCV bars. The chart endpoint is the one
// upstream resource that requires no crumb, so no auth bundle is attached.
func (s *Service) Chart(ctx context.Context, symbol, rng, interval string) (*Chart, error) {
	if rng == "" {
		rng = DefaultChartRange
	}
	if interval == "" {
		interval = DefaultChartInterval
	}

	key := fmt.Sprintf("%s:%s:%s", symbol, rng, interval)

	var hit Chart
	if s.cached("chart", key, &hit) {
		return &hit, nil
	}

	path := "/v8/finance/chart/" + url.PathEscape(symbol)
	doc, err := s.fetchJSON(ctx, "chart", symbol, path, map[string]string{
		"range":    rng,
		"interval": interval,
	}, nil)
	if err != nil {
		return nil, err
	}

	results := getList(getSection(doc, "chart"), "result")
	if len(results) == 0 {
		return nil, &upstream.NotFoundError{Kind: "chart", Symbol: symbol}
	}

	chart := parseChart(symbol, rng, interval, results[0])
	s.store("chart", key, chart, cachestore.TTLChart)

	return chart, nil
}

func parseChart(symbol, rng, interval string, result map[string]interface{}) *Chart {
	chart := &Chart{
		Symbol:   symbol,
		Range:    rng,
		Interval: interval,
		Candles:  []Candle{},
	}

	timestamps, _ := result["timestamp"].([]interface{})
	quotes := getList(getSection(result, "indicators"), "quote")
	if len(timestamps) == 0 || len(quotes) == 0 {
		return chart
	}

	opens, _ := quotes[0]["open"].([]interface{})
	highs, _ := quotes[0]["high"].([]interface{})
	lows, _ := quotes[0]["low"].([]interface{})
	closes, _ := quotes[0]["close"].([]interface{})
	volumes, _ := quotes[0]["volume"].([]interface{})

	for i, ts := range timestamps {
		t := unwrapNumber(ts)
		o := indexedNumber(opens, i)
		h := indexedNumber(highs, i)
		l := indexedNumber(lows, i)
		c := indexedNumber(closes, i)
		if t == nil || o == nil || h == nil || l == nil || c == nil {
			// Upstream pads incomplete bars with nulls
			continue
		}

		var volume int64
		if v := indexedNumber(volumes, i); v != nil {
			volume = int64(*v)
		}

		chart.Candles = append(chart.Candles, Candle{
			Timestamp: int64(*t),
			Open:      *o,
			High:      *h,
			Low:       *l,
			Close:     *c,
			Volume:    volume,
		})
	}

	return chart
}

func indexedNumber(items []interface{}, i int) *float64 {
	if i < 0 || i >= len(items) {
		return nil
	}
	return unwrapNumber(items[i])
}
