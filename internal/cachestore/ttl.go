package cachestore

import "time"

// TTL constants for the cached upstream resource kinds.
// These are added to time.Now() when storing to calculate expires_at.
// The table is fixed at process start and never mutated at runtime.
const (
	// Fast-moving market data
	TTLQuote = 60 * time.Second // Current price moves constantly

	// Intraday data that tolerates a few minutes of staleness
	TTLOptions      = 2 * time.Minute // Contract volume/IV drift slowly enough
	TTLOptionsChain = 2 * time.Minute // Raw chains, keyed per requested expiration
	TTLChart        = 5 * time.Minute // Historical candles barely change intraday
	TTLSummary      = 5 * time.Minute // Fundamentals/analyst modules

	// Supplementary data
	TTLNews = 10 * time.Minute // Headlines refresh slowly

	// Slow-moving statements and ownership data
	TTLFinancials = time.Hour // Quarterly statements
	TTLHoldings   = time.Hour // Institutional ownership

	// Session credentials
	TTLAuth = time.Hour // Cookie+crumb bundle, replaced wholesale on expiry
)

// TTLFor maps a cache table name to its TTL. Unknown tables get the
// shortest TTL so a miscategorized entry can never outlive real data.
func TTLFor(table string) time.Duration {
	switch table {
	case "quote":
		return TTLQuote
	case "chart":
		return TTLChart
	case "options":
		return TTLOptions
	case "options_chain":
		return TTLOptionsChain
	case "summary":
		return TTLSummary
	case "news":
		return TTLNews
	case "financials":
		return TTLFinancials
	case "holdings":
		return TTLHoldings
	case "auth":
		return TTLAuth
	default:
		return TTLQuote
	}
}
