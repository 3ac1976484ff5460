// Package aggregate sequences the per-kind fetchers for one symbol and
// assembles the merged response, tolerating partial upstream failure.
package aggregate

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/quotedeck/quotedeck/internal/fetch"
	"github.com/quotedeck/quotedeck/internal/upstream"
)

// Response is the merged per-symbol payload. Every resource field is
// independently nullable and independently sourced; errors is present only
// when at least one sub-fetch failed.
type Response struct {
	Symbol          string                  `json:"symbol"`
	Timestamp       int64                   `json:"timestamp"`
	ElapsedMs       int64                   `json:"elapsedMs"`
	Quote           *fetch.Quote            `json:"quote"`
	Chart           *fetch.Chart            `json:"chart"`
	Earnings        *fetch.Earnings         `json:"earnings"`
	Analysts        *fetch.Analysts         `json:"analysts"`
	ShortInterest   *fetch.ShortInterest    `json:"shortInterest"`
	Fundamentals    *fetch.Fundamentals     `json:"fundamentals,omitempty"`
	EPSTrend        *fetch.EPSTrend         `json:"epsTrend,omitempty"`
	EarningsHistory []fetch.EarningsQuarter `json:"earningsHistory,omitempty"`
	InsiderActivity *fetch.InsiderActivity  `json:"insiderActivity,omitempty"`
	Profile         *fetch.Profile          `json:"profile,omitempty"`
	Options         *fetch.OptionsSummary   `json:"options"`
	News            []fetch.NewsItem        `json:"news"`
	Errors          []string                `json:"errors,omitempty"`
}

// Orchestrator runs the sequential fetch pipeline for one symbol.
type Orchestrator struct {
	fetcher *fetch.Service
	auth    *upstream.AuthManager
	log     zerolog.Logger
}

// NewOrchestrator creates the aggregation orchestrator.
func NewOrchestrator(fetcher *fetch.Service, auth *upstream.AuthManager, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		fetcher: fetcher,
		auth:    auth,
		log:     log.With().Str("component", "aggregate").Logger(),
	}
}

// Aggregate fetches quote, chart, summary, options, and news for symbol in
// sequence. Each stage has its own failure boundary: a failure is recorded
// and the pipeline continues, so assembly is always reached. The only error
// returned is an auth failure, which makes every stage impossible.
func (o *Orchestrator) Aggregate(ctx context.Context, symbol, rng, interval string) (*Response, error) {
	start := time.Now()

	// Warm the session up front so a handshake failure aborts before any
	// per-resource work.
	if _, err := o.auth.Get(ctx); err != nil {
		return nil, err
	}

	resp := &Response{
		Symbol:    strings.ToUpper(symbol),
		Timestamp: time.Now().Unix(),
		News:      []fetch.NewsItem{},
	}
	var errs []string

	quote, err := o.fetcher.Quote(ctx, symbol)
	if err != nil {
		errs = append(errs, "quote: "+err.Error())
	} else {
		resp.Quote = quote
	}

	chart, err := o.fetcher.Chart(ctx, symbol, rng, interval)
	if err != nil {
		errs = append(errs, "chart: "+err.Error())
	} else {
		resp.Chart = chart
	}

	summary, err := o.fetcher.Summary(ctx, symbol)
	if err != nil {
		errs = append(errs, "summary: "+err.Error())
	} else {
		resp.Earnings = summary.Earnings
		resp.Analysts = summary.Analysts
		resp.ShortInterest = summary.ShortInterest
		resp.Fundamentals = summary.Fundamentals
		resp.EPSTrend = summary.EPSTrend
		resp.EarningsHistory = summary.EarningsHistory
		resp.InsiderActivity = summary.InsiderActivity
		resp.Profile = summary.Profile

		CrossFill(resp.Quote, summary.Fundamentals)
	}

	options, err := o.fetcher.Options(ctx, symbol)
	if err != nil {
		errs = append(errs, "options: "+err.Error())
	} else {
		resp.Options = options
	}

	// News never fails; it degrades to an empty list internally
	resp.News = o.fetcher.News(ctx, symbol)

	resp.ElapsedMs = time.Since(start).Milliseconds()
	if len(errs) > 0 {
		resp.Errors = errs
	}

	o.log.Info().
		Str("symbol", resp.Symbol).
		Int64("elapsed_ms", resp.ElapsedMs).
		Int("errors", len(errs)).
		Msg("Aggregation completed")

	return resp, nil
}
