package fetch

// Output shapes for the resource fetchers. Absent upstream fields are
// explicit nulls (pointer fields), never omitted keys, so consumers always
// see a stable shape.

// Quote is the realtime quote for one symbol.
type Quote struct {
	Symbol           string   `json:"symbol"`
	Name             *string  `json:"name"`
	Exchange         *string  `json:"exchange"`
	Price            *float64 `json:"price"`
	Change           *float64 `json:"change"`
	ChangePercent    *float64 `json:"changePercent"`
	MarketCap        *float64 `json:"marketCap"`
	PE               *float64 `json:"pe"`
	ForwardPE        *float64 `json:"forwardPE"`
	EPS              *float64 `json:"eps"`
	Beta             *float64 `json:"beta"`
	DividendYield    *float64 `json:"dividendYield"`
	Volume           *int64   `json:"volume"`
	AvgVolume        *int64   `json:"avgVolume"`
	DayLow           *float64 `json:"dayLow"`
	DayHigh          *float64 `json:"dayHigh"`
	FiftyTwoWeekLow  *float64 `json:"fiftyTwoWeekLow"`
	FiftyTwoWeekHigh *float64 `json:"fiftyTwoWeekHigh"`
}

// Candle is one OHLCV bar.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
}

// Chart is a historical OHLCV series.
type Chart struct {
	Symbol   string   `json:"symbol"`
	Range    string   `json:"range"`
	Interval string   `json:"interval"`
	Candles  []Candle `json:"candles"`
}

// Earnings holds the next earnings date and consensus estimates.
type Earnings struct {
	NextDate        *int64   `json:"nextDate"`
	EPSEstimate     *float64 `json:"epsEstimate"`
	RevenueEstimate *float64 `json:"revenueEstimate"`
}

// Analysts holds price targets and the consensus recommendation.
type Analysts struct {
	Recommendation *string  `json:"recommendation"`
	TargetMean     *float64 `json:"targetMean"`
	TargetHigh     *float64 `json:"targetHigh"`
	TargetLow      *float64 `json:"targetLow"`
	NumAnalysts    *int64   `json:"numAnalysts"`
}

// ShortInterest holds short-position statistics.
type ShortInterest struct {
	SharesShort         *int64   `json:"sharesShort"`
	ShortRatio          *float64 `json:"shortRatio"`
	ShortPercentOfFloat *float64 `json:"shortPercentOfFloat"`
}

// Fundamentals holds key statistics used for the quote cross-fill.
type Fundamentals struct {
	Beta         *float64 `json:"beta"`
	TrailingEPS  *float64 `json:"trailingEps"`
	ForwardEPS   *float64 `json:"forwardEps"`
	PriceToBook  *float64 `json:"priceToBook"`
	BookValue    *float64 `json:"bookValue"`
	PEGRatio     *float64 `json:"pegRatio"`
	ProfitMargin *float64 `json:"profitMargin"`
}

// EPSTrend tracks consensus EPS estimate revisions for the current quarter.
type EPSTrend struct {
	Current      *float64 `json:"current"`
	SevenDaysAgo *float64 `json:"sevenDaysAgo"`
	ThirtyDays   *float64 `json:"thirtyDaysAgo"`
	SixtyDays    *float64 `json:"sixtyDaysAgo"`
	NinetyDays   *float64 `json:"ninetyDaysAgo"`
}

// EarningsQuarter is one historical earnings report.
type EarningsQuarter struct {
	Quarter     *string  `json:"quarter"`
	EPSActual   *float64 `json:"epsActual"`
	EPSEstimate *float64 `json:"epsEstimate"`
	SurprisePct *float64 `json:"surprisePct"`
}

// InsiderActivity summarizes recent insider transactions.
type InsiderActivity struct {
	BuyShares  *int64 `json:"buyShares"`
	SellShares *int64 `json:"sellShares"`
	NetShares  *int64 `json:"netShares"`
}

// Profile is the company description block.
type Profile struct {
	Sector    *string `json:"sector"`
	Industry  *string `json:"industry"`
	Employees *int64  `json:"employees"`
	Website   *string `json:"website"`
	Summary   *string `json:"summary"`
}

// Summary is the parsed quoteSummary payload. Every section is independently
// nullable; a section the upstream omits stays nil.
type Summary struct {
	Earnings        *Earnings         `json:"earnings"`
	Analysts        *Analysts         `json:"analysts"`
	ShortInterest   *ShortInterest    `json:"shortInterest"`
	Fundamentals    *Fundamentals     `json:"fundamentals"`
	EPSTrend        *EPSTrend         `json:"epsTrend"`
	EarningsHistory []EarningsQuarter `json:"earningsHistory"`
	InsiderActivity *InsiderActivity  `json:"insiderActivity"`
	Profile         *Profile          `json:"profile"`
}

// OptionContract is one contract row from the options chain.
type OptionContract struct {
	ContractSymbol    string   `json:"contractSymbol"`
	Strike            float64  `json:"strike"`
	LastPrice         *float64 `json:"lastPrice"`
	Bid               *float64 `json:"bid"`
	Ask               *float64 `json:"ask"`
	Volume            *int64   `json:"volume"`
	OpenInterest      *int64   `json:"openInterest"`
	ImpliedVolatility *float64 `json:"impliedVolatility"`
	InTheMoney        bool     `json:"inTheMoney"`
	Expiration        int64    `json:"expiration"`
}

// OptionsSummary is the derived options overview for the nearest expiration.
type OptionsSummary struct {
	Symbol          string   `json:"symbol"`
	Expiration      *int64   `json:"expiration"`
	UnderlyingPrice *float64 `json:"underlyingPrice"`
	ATMIV           *float64 `json:"atmIV"`
	TotalCallVolume int64    `json:"totalCallVolume"`
	TotalPutVolume  int64    `json:"totalPutVolume"`
	TotalCallOI     int64    `json:"totalCallOI"`
	TotalPutOI      int64    `json:"totalPutOI"`
	PCRatioVolume   *float64 `json:"pcRatioVolume"`
	PCRatioOI       *float64 `json:"pcRatioOI"`
}

// OptionsChain is the raw contract table for one expiration.
type OptionsChain struct {
	Symbol          string           `json:"symbol"`
	Expiration      int64            `json:"expiration"`
	Expirations     []int64          `json:"expirations"`
	UnderlyingPrice *float64         `json:"underlyingPrice"`
	Calls           []OptionContract `json:"calls"`
	Puts            []OptionContract `json:"puts"`
}

// NewsItem is one headline.
type NewsItem struct {
	Title       string  `json:"title"`
	Publisher   *string `json:"publisher"`
	Link        *string `json:"link"`
	PublishedAt *int64  `json:"publishedAt"`
}

// StatementRow is one reporting period from a financial statement history.
type StatementRow struct {
	EndDate           *int64   `json:"endDate"`
	TotalRevenue      *float64 `json:"totalRevenue"`
	GrossProfit       *float64 `json:"grossProfit"`
	OperatingIncome   *float64 `json:"operatingIncome"`
	NetIncome         *float64 `json:"netIncome"`
	TotalAssets       *float64 `json:"totalAssets"`
	TotalLiabilities  *float64 `json:"totalLiabilities"`
	TotalEquity       *float64 `json:"totalEquity"`
	OperatingCashflow *float64 `json:"operatingCashflow"`
	FreeCashflow      *float64 `json:"freeCashflow"`
}

// Financials holds the deep statement histories.
type Financials struct {
	Symbol   string         `json:"symbol"`
	Income   []StatementRow `json:"income"`
	Balance  []StatementRow `json:"balance"`
	Cashflow []StatementRow `json:"cashflow"`
}

// Holder is one institutional or fund position.
type Holder struct {
	Organization string   `json:"organization"`
	PctHeld      *float64 `json:"pctHeld"`
	Position     *int64   `json:"position"`
	Value        *float64 `json:"value"`
	ReportDate   *int64   `json:"reportDate"`
}

// Holdings holds ownership breakdown and the largest holders.
type Holdings struct {
	Symbol                  string   `json:"symbol"`
	InsidersPercentHeld     *float64 `json:"insidersPercentHeld"`
	InstitutionsPercentHeld *float64 `json:"institutionsPercentHeld"`
	InstitutionsCount       *int64   `json:"institutionsCount"`
	Institutions            []Holder `json:"institutions"`
	Funds                   []Holder `json:"funds"`
}
