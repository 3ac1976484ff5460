package fetch

import (
	"context"

	"github.com/quotedeck/quotedeck/internal/cachestore"
)

const (
	financialsModules = "incomeStatementHistory,balanceSheetHistory,cashflowStatementHistory"
	holdingsModules   = "majorHoldersBreakdown,institutionOwnership,fundOwnership"
)

// Financials fetches the deep statement histories.
func (s *Service) Financials(ctx context.Context, symbol string) (*Financials, error) {
	var hit Financials
	if s.cached("financials", symbol, &hit) {
		return &hit, nil
	}

	result, err := s.quoteSummary(ctx, "financials", symbol, financialsModules)
	if err != nil {
		return nil, err
	}

	financials := &Financials{
		Symbol:   symbol,
		Income:   parseStatements(result, "incomeStatementHistory", "incomeStatementHistory"),
		Balance:  parseStatements(result, "balanceSheetHistory", "balanceSheetStatements"),
		Cashflow: parseStatements(result, "cashflowStatementHistory", "cashflowStatements"),
	}
	s.store("financials", symbol, financials, cachestore.TTLFinancials)

	return financials, nil
}

// Holdings fetches the ownership breakdown and largest holders.
func (s *Service) Holdings(ctx context.Context, symbol string) (*Holdings, error) {
	var hit Holdings
	if s.cached("holdings", symbol, &hit) {
		return &hit, nil
	}

	result, err := s.quoteSummary(ctx, "holdings", symbol, holdingsModules)
	if err != nil {
		return nil, err
	}

	breakdown := getSection(result, "majorHoldersBreakdown")
	holdings := &Holdings{
		Symbol:                  symbol,
		InsidersPercentHeld:     getFloat64(breakdown, "insidersPercentHeld"),
		InstitutionsPercentHeld: getFloat64(breakdown, "institutionsPercentHeld"),
		InstitutionsCount:       getInt64(breakdown, "institutionsCount"),
		Institutions:            parseHolders(getSection(result, "institutionOwnership")),
		Funds:                   parseHolders(getSection(result, "fundOwnership")),
	}
	s.store("holdings", symbol, holdings, cachestore.TTLHoldings)

	return holdings, nil
}

// parseStatements extracts one statement history. The module object and its
// inner list carry different keys per statement kind.
func parseStatements(result map[string]interface{}, module, listKey string) []StatementRow {
	entries := getList(getSection(result, module), listKey)
	if len(entries) == 0 {
		return nil
	}

	rows := make([]StatementRow, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, StatementRow{
			EndDate:           getInt64(entry, "endDate"),
			TotalRevenue:      getFloat64(entry, "totalRevenue"),
			GrossProfit:       getFloat64(entry, "grossProfit"),
			OperatingIncome:   getFloat64(entry, "operatingIncome"),
			NetIncome:         getFloat64(entry, "netIncome"),
			TotalAssets:       getFloat64(entry, "totalAssets"),
			TotalLiabilities:  getFloat64(entry, "totalLiab"),
			TotalEquity:       getFloat64(entry, "totalStockholderEquity"),
			OperatingCashflow: getFloat64(entry, "totalCashFromOperatingActivities"),
			FreeCashflow:      getFloat64(entry, "freeCashflow"),
		})
	}
	return rows
}

func parseHolders(ownership map[string]interface{}) []Holder {
	entries := getList(ownership, "ownershipList")
	if len(entries) == 0 {
		return nil
	}

	holders := make([]Holder, 0, len(entries))
	for _, entry := range entries {
		holder := Holder{
			PctHeld:    getFloat64(entry, "pctHeld"),
			Position:   getInt64(entry, "position"),
			Value:      getFloat64(entry, "value"),
			ReportDate: getInt64(entry, "reportDate"),
		}
		if org := getString(entry, "organization"); org != nil {
			holder.Organization = *org
		}
		holders = append(holders, holder)
	}
	return holders
}
