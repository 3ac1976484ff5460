package fetch

import (
	"context"
	"strings"

	"github.com/quotedeck/quotedeck/internal/cachestore"
	"github.com/quotedeck/quotedeck/internal/upstream"
)

// Quote fetches the realtime quote for symbol.
// An empty result set for the symbol maps to NotFoundError.
func (s *Service) Quote(ctx context.Context, symbol string) (*Quote, error) {
	var hit Quote
	if s.cached("quote", symbol, &hit) {
		return &hit, nil
	}

	bundle, err := s.auth.Get(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := s.fetchJSON(ctx, "quote", symbol, "/v7/finance/quote", map[string]string{
		"symbols": symbol,
	}, bundle)
	if err != nil {
		return nil, err
	}

	results := getList(getSection(doc, "quoteResponse"), "result")
	if len(results) == 0 {
		return nil, &upstream.NotFoundError{Kind: "quote", Symbol: symbol}
	}

	quote := parseQuote(symbol, results[0])
	s.store("quote", symbol, quote, cachestore.TTLQuote)

	return quote, nil
}

// Quotes fetches quotes for several symbols, cache-first per symbol.
// Failures are collected per symbol rather than aborting the batch.
func (s *Service) Quotes(ctx context.Context, symbols []string) ([]*Quote, []string) {
	quotes := make([]*Quote, 0, len(symbols))
	var errs []string

	for _, symbol := range symbols {
		quote, err := s.Quote(ctx, symbol)
		if err != nil {
			errs = append(errs, symbol+": "+err.Error())
			continue
		}
		quotes = append(quotes, quote)
	}

	return quotes, errs
}

func parseQuote(symbol string, info map[string]interface{}) *Quote {
	name := getString(info, "longName")
	if name == nil {
		name = getString(info, "shortName")
	}

	return &Quote{
		Symbol:           strings.ToUpper(symbol),
		Name:             name,
		Exchange:         getString(info, "fullExchangeName"),
		Price:            getFloat64(info, "regularMarketPrice"),
		Change:           getFloat64(info, "regularMarketChange"),
		ChangePercent:    getFloat64(info, "regularMarketChangePercent"),
		MarketCap:        getFloat64(info, "marketCap"),
		PE:               getFloat64(info, "trailingPE"),
		ForwardPE:        getFloat64(info, "forwardPE"),
		EPS:              getFloat64(info, "epsTrailingTwelveMonths"),
		Beta:             getFloat64(info, "beta"),
		DividendYield:    getFloat64(info, "dividendYield"),
		Volume:           getInt64(info, "regularMarketVolume"),
		AvgVolume:        getInt64(info, "averageDailyVolume3Month"),
		DayLow:           getFloat64(info, "regularMarketDayLow"),
		DayHigh:          getFloat64(info, "regularMarketDayHigh"),
		FiftyTwoWeekLow:  getFloat64(info, "fiftyTwoWeekLow"),
		FiftyTwoWeekHigh: getFloat64(info, "fiftyTwoWeekHigh"),
	}
}
