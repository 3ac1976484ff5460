package fetch

import (
	"context"
	"net/url"

	"github.com/quotedeck/quotedeck/internal/cachestore"
	"github.com/quotedeck/quotedeck/internal/upstream"
)

// summaryModules are the quoteSummary modules backing the aggregated view.
const summaryModules = "earnings,calendarEvents,financialData,defaultKeyStatistics,earningsTrend,earningsHistory,netSharePurchaseActivity,assetProfile"

// Summary fetches the fundamentals/analyst quoteSummary modules.
func (s *Service) Summary(ctx context.Context, symbol string) (*Summary, error) {
	var hit Summary
	if s.cached("summary", symbol, &hit) {
		return &hit, nil
	}

	result, err := s.quoteSummary(ctx, "summary", symbol, summaryModules)
	if err != nil {
		return nil, err
	}

	summary := parseSummary(result)
	s.store("summary", symbol, summary, cachestore.TTLSummary)

	return summary, nil
}

// quoteSummary runs an authenticated quoteSummary call and returns the
// first result object.
func (s *Service) quoteSummary(ctx context.Context, kind, symbol, modules string) (map[string]interface{}, error) {
	bundle, err := s.auth.Get(ctx)
	if err != nil {
		return nil, err
	}

	path := "/v10/finance/quoteSummary/" + url.PathEscape(symbol)
	doc, err := s.fetchJSON(ctx, kind, symbol, path, map[string]string{
		"modules": modules,
	}, bundle)
	if err != nil {
		return nil, err
	}

	results := getList(getSection(doc, "quoteSummary"), "result")
	if len(results) == 0 {
		return nil, &upstream.NotFoundError{Kind: kind, Symbol: symbol}
	}

	return results[0], nil
}

func parseSummary(result map[string]interface{}) *Summary {
	return &Summary{
		Earnings:        parseEarnings(result),
		Analysts:        parseAnalysts(getSection(result, "financialData")),
		ShortInterest:   parseShortInterest(getSection(result, "defaultKeyStatistics")),
		Fundamentals:    parseFundamentals(getSection(result, "defaultKeyStatistics")),
		EPSTrend:        parseEPSTrend(getSection(result, "earningsTrend")),
		EarningsHistory: parseEarningsHistory(getSection(result, "earningsHistory")),
		InsiderActivity: parseInsiderActivity(getSection(result, "netSharePurchaseActivity")),
		Profile:         parseProfile(getSection(result, "assetProfile")),
	}
}

func parseEarnings(result map[string]interface{}) *Earnings {
	calendar := getSection(getSection(result, "calendarEvents"), "earnings")
	chart := getSection(getSection(result, "earnings"), "earningsChart")
	if calendar == nil && chart == nil {
		return nil
	}

	earnings := &Earnings{
		EPSEstimate:     getFloat64(calendar, "earningsAverage"),
		RevenueEstimate: getFloat64(calendar, "revenueAverage"),
	}

	// earningsDate is a list; the first entry is the next report
	if dates := getList(calendar, "earningsDate"); len(dates) > 0 {
		earnings.NextDate = getInt64(dates[0], "raw")
	} else if dates, ok := calendar["earningsDate"].([]interface{}); ok && len(dates) > 0 {
		if n := unwrapNumber(dates[0]); n != nil {
			d := int64(*n)
			earnings.NextDate = &d
		}
	}

	if earnings.EPSEstimate == nil && chart != nil {
		earnings.EPSEstimate = getFloat64(chart, "currentQuarterEstimate")
	}

	return earnings
}

func parseAnalysts(financial map[string]interface{}) *Analysts {
	if financial == nil {
		return nil
	}
	return &Analysts{
		Recommendation: getString(financial, "recommendationKey"),
		TargetMean:     getFloat64(financial, "targetMeanPrice"),
		TargetHigh:     getFloat64(financial, "targetHighPrice"),
		TargetLow:      getFloat64(financial, "targetLowPrice"),
		NumAnalysts:    getInt64(financial, "numberOfAnalystOpinions"),
	}
}

func parseShortInterest(stats map[string]interface{}) *ShortInterest {
	if stats == nil {
		return nil
	}
	return &ShortInterest{
		SharesShort:         getInt64(stats, "sharesShort"),
		ShortRatio:          getFloat64(stats, "shortRatio"),
		ShortPercentOfFloat: getFloat64(stats, "shortPercentOfFloat"),
	}
}

func parseFundamentals(stats map[string]interface{}) *Fundamentals {
	if stats == nil {
		return nil
	}
	return &Fundamentals{
		Beta:         getFloat64(stats, "beta"),
		TrailingEPS:  getFloat64(stats, "trailingEps"),
		ForwardEPS:   getFloat64(stats, "forwardEps"),
		PriceToBook:  getFloat64(stats, "priceToBook"),
		BookValue:    getFloat64(stats, "bookValue"),
		PEGRatio:     getFloat64(stats, "pegRatio"),
		ProfitMargin: getFloat64(stats, "profitMargins"),
	}
}

func parseEPSTrend(trend map[string]interface{}) *EPSTrend {
	// The current-quarter entry is the one with period "0q"
	for _, entry := range getList(trend, "trend") {
		period := getString(entry, "period")
		if period == nil || *period != "0q" {
			continue
		}
		eps := getSection(entry, "epsTrend")
		if eps == nil {
			return nil
		}
		return &EPSTrend{
			Current:      getFloat64(eps, "current"),
			SevenDaysAgo: getFloat64(eps, "7daysAgo"),
			ThirtyDays:   getFloat64(eps, "30daysAgo"),
			SixtyDays:    getFloat64(eps, "60daysAgo"),
			NinetyDays:   getFloat64(eps, "90daysAgo"),
		}
	}
	return nil
}

func parseEarningsHistory(history map[string]interface{}) []EarningsQuarter {
	entries := getList(history, "history")
	if len(entries) == 0 {
		return nil
	}

	quarters := make([]EarningsQuarter, 0, len(entries))
	for _, entry := range entries {
		quarters = append(quarters, EarningsQuarter{
			Quarter:     getString(entry, "period"),
			EPSActual:   getFloat64(entry, "epsActual"),
			EPSEstimate: getFloat64(entry, "epsEstimate"),
			SurprisePct: getFloat64(entry, "surprisePercent"),
		})
	}
	return quarters
}

func parseInsiderActivity(activity map[string]interface{}) *InsiderActivity {
	if activity == nil {
		return nil
	}
	return &InsiderActivity{
		BuyShares:  getInt64(activity, "buyShares"),
		SellShares: getInt64(activity, "sellShares"),
		NetShares:  getInt64(activity, "netShares"),
	}
}

func parseProfile(profile map[string]interface{}) *Profile {
	if profile == nil {
		return nil
	}
	return &Profile{
		Sector:    getString(profile, "sector"),
		Industry:  getString(profile, "industry"),
		Employees: getInt64(profile, "fullTimeEmployees"),
		Website:   getString(profile, "website"),
		Summary:   getString(profile, "longBusinessSummary"),
	}
}
