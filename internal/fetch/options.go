package fetch

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/quotedeck/quotedeck/internal/cachestore"
	"github.com/quotedeck/quotedeck/internal/upstream"
)

const (
	// atmWindow bounds a contract's strike distance from the underlying
	// price, as a fraction of that price, for ATM classification.
	atmWindow = 0.05

	// atmMinIV filters out junk quotes reporting near-zero volatility.
	atmMinIV = 0.01

	// atmSampleSize caps how many qualifying contracts feed the IV average.
	// Contracts are taken in response order, not re-sorted by proximity.
	atmSampleSize = 3
)

// Options fetches the nearest-expiration chain and derives the options
// overview: ATM implied volatility, total volume/open-interest, and
// put/call ratios.
func (s *Service) Options(ctx context.Context, symbol string) (*OptionsSummary, error) {
	var hit OptionsSummary
	if s.cached("options", symbol, &hit) {
		return &hit, nil
	}

	chain, err := s.fetchChain(ctx, "options", symbol, 0)
	if err != nil {
		return nil, err
	}

	summary := summarizeChain(symbol, chain)
	s.store("options", symbol, summary, cachestore.TTLOptions)

	return summary, nil
}

// OptionsChain fetches the raw contract table. A requested expiration of 0
// means "nearest"; otherwise it resolves to the closest available
// expiration before fetching.
func (s *Service) OptionsChain(ctx context.Context, symbol string, requested int64) (*OptionsChain, error) {
	key := symbol + ":nearest"
	if requested > 0 {
		key = fmt.Sprintf("%s:%d", symbol, requested)
	}

	var hit OptionsChain
	if s.cached("options_chain", key, &hit) {
		return &hit, nil
	}

	chain, err := s.fetchChain(ctx, "options_chain", symbol, 0)
	if err != nil {
		return nil, err
	}

	if requested > 0 && len(chain.Expirations) > 0 {
		resolved := resolveExpiration(chain.Expirations, requested)
		if resolved != chain.Expiration {
			chain, err = s.fetchChain(ctx, "options_chain", symbol, resolved)
			if err != nil {
				return nil, err
			}
		}
	}

	s.store("options_chain", key, chain, cachestore.TTLOptionsChain)

	return chain, nil
}

// fetchChain pulls one expiration's chain from the upstream.
// date == 0 requests the nearest expiration.
func (s *Service) fetchChain(ctx context.Context, kind, symbol string, date int64) (*OptionsChain, error) {
	bundle, err := s.auth.Get(ctx)
	if err != nil {
		return nil, err
	}

	params := map[string]string{}
	if date > 0 {
		params["date"] = strconv.FormatInt(date, 10)
	}

	path := "/v7/finance/options/" + url.PathEscape(symbol)
	doc, err := s.fetchJSON(ctx, kind, symbol, path, params, bundle)
	if err != nil {
		return nil, err
	}

	results := getList(getSection(doc, "optionChain"), "result")
	if len(results) == 0 {
		return nil, &upstream.NotFoundError{Kind: "options", Symbol: symbol}
	}

	return parseChain(symbol, results[0]), nil
}

func parseChain(symbol string, result map[string]interface{}) *OptionsChain {
	chain := &OptionsChain{
		Symbol:          symbol,
		UnderlyingPrice: getFloat64(getSection(result, "quote"), "regularMarketPrice"),
		Calls:           []OptionContract{},
		Puts:            []OptionContract{},
	}

	if exps, ok := result["expirationDates"].([]interface{}); ok {
		for _, e := range exps {
			if n := unwrapNumber(e); n != nil {
				chain.Expirations = append(chain.Expirations, int64(*n))
			}
		}
	}

	blocks := getList(result, "options")
	if len(blocks) == 0 {
		return chain
	}
	block := blocks[0]

	if exp := getInt64(block, "expirationDate"); exp != nil {
		chain.Expiration = *exp
	}

	for _, c := range getList(block, "calls") {
		chain.Calls = append(chain.Calls, parseContract(c))
	}
	for _, p := range getList(block, "puts") {
		chain.Puts = append(chain.Puts, parseContract(p))
	}

	return chain
}

func parseContract(m map[string]interface{}) OptionContract {
	contract := OptionContract{
		LastPrice:         getFloat64(m, "lastPrice"),
		Bid:               getFloat64(m, "bid"),
		Ask:               getFloat64(m, "ask"),
		Volume:            getInt64(m, "volume"),
		OpenInterest:      getInt64(m, "openInterest"),
		ImpliedVolatility: getFloat64(m, "impliedVolatility"),
	}
	if cs := getString(m, "contractSymbol"); cs != nil {
		contract.ContractSymbol = *cs
	}
	if strike := getFloat64(m, "strike"); strike != nil {
		contract.Strike = *strike
	}
	if itm, ok := m["inTheMoney"].(bool); ok {
		contract.InTheMoney = itm
	}
	if exp := getInt64(m, "expiration"); exp != nil {
		contract.Expiration = *exp
	}
	return contract
}

// summarizeChain derives the overview figures from one expiration's chain.
func summarizeChain(symbol string, chain *OptionsChain) *OptionsSummary {
	summary := &OptionsSummary{
		Symbol:          symbol,
		UnderlyingPrice: chain.UnderlyingPrice,
	}
	if chain.Expiration > 0 {
		exp := chain.Expiration
		summary.Expiration = &exp
	}

	for _, c := range chain.Calls {
		if c.Volume != nil {
			summary.TotalCallVolume += *c.Volume
		}
		if c.OpenInterest != nil {
			summary.TotalCallOI += *c.OpenInterest
		}
	}
	for _, p := range chain.Puts {
		if p.Volume != nil {
			summary.TotalPutVolume += *p.Volume
		}
		if p.OpenInterest != nil {
			summary.TotalPutOI += *p.OpenInterest
		}
	}

	// Ratios stay null on a zero denominator, never Inf or NaN
	if summary.TotalCallVolume > 0 {
		r := round2(float64(summary.TotalPutVolume) / float64(summary.TotalCallVolume))
		summary.PCRatioVolume = &r
	}
	if summary.TotalCallOI > 0 {
		r := round2(float64(summary.TotalPutOI) / float64(summary.TotalCallOI))
		summary.PCRatioOI = &r
	}

	summary.ATMIV = atmImpliedVolatility(chain)

	return summary
}

// atmImpliedVolatility averages the implied volatility of the first
// qualifying near-the-money contracts, in response order, as a percentage
// rounded to two decimals. Returns nil when no contract qualifies.
func atmImpliedVolatility(chain *OptionsChain) *float64 {
	if chain.UnderlyingPrice == nil || *chain.UnderlyingPrice <= 0 {
		return nil
	}
	price := *chain.UnderlyingPrice

	var ivs []float64
	contracts := append(append([]OptionContract{}, chain.Calls...), chain.Puts...)
	for _, c := range contracts {
		if len(ivs) >= atmSampleSize {
			break
		}
		if c.ImpliedVolatility == nil || *c.ImpliedVolatility < atmMinIV {
			continue
		}
		if math.Abs(c.Strike-price)/price > atmWindow {
			continue
		}
		ivs = append(ivs, *c.ImpliedVolatility)
	}

	if len(ivs) == 0 {
		return nil
	}

	pct := round2(stat.Mean(ivs, nil) * 100)
	return &pct
}

// resolveExpiration picks the available expiration closest to the requested
// timestamp by absolute difference.
func resolveExpiration(available []int64, requested int64) int64 {
	best := available[0]
	bestDiff := absDiff(best, requested)
	for _, exp := range available[1:] {
		if d := absDiff(exp, requested); d < bestDiff {
			best = exp
			bestDiff = d
		}
	}
	return best
}

func absDiff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
