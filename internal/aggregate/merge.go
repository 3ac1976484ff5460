package aggregate

import "github.com/quotedeck/quotedeck/internal/fetch"

// CrossFill backfills quote.Beta and quote.EPS from the summary's key
// statistics. The fill is one-directional: a quote value is replaced only
// when it is missing or exactly zero, never when a non-zero value is
// already present.
func CrossFill(quote *fetch.Quote, fundamentals *fetch.Fundamentals) {
	if quote == nil || fundamentals == nil {
		return
	}

	if missingOrZero(quote.Beta) && fundamentals.Beta != nil {
		quote.Beta = fundamentals.Beta
	}
	if missingOrZero(quote.EPS) && fundamentals.TrailingEPS != nil {
		quote.EPS = fundamentals.TrailingEPS
	}
}

func missingOrZero(v *float64) bool {
	return v == nil || *v == 0
}
