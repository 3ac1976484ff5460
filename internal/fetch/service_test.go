package fetch

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotedeck/quotedeck/internal/cachestore"
	"github.com/quotedeck/quotedeck/internal/upstream"
)

// addAuthStubs registers working handshake endpoints on mux.
func addAuthStubs(mux *http.ServeMux) {
	mux.HandleFunc("/bootstrap", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Set-Cookie", "A1=test")
	})
	mux.HandleFunc("/crumb", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("testcrumb")) //nolint:errcheck
	})
}

func newTestService(t *testing.T, mux *http.ServeMux) *Service {
	t.Helper()

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, cachestore.Migrate(db))
	repo := cachestore.NewRepository(db)

	gate := upstream.NewRateGate(time.Millisecond)
	auth := upstream.NewAuthManager(repo, gate, srv.URL+"/bootstrap", srv.URL+"/crumb", "quotedeck-test", zerolog.Nop())
	client := upstream.NewClient(srv.URL, "quotedeck-test", gate, zerolog.Nop())
	retrier := upstream.NewRetrier(upstream.RetryPolicy{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
	}, zerolog.Nop())

	return NewService(repo, client, auth, retrier, zerolog.Nop())
}

func TestQuoteFetchAndCache(t *testing.T) {
	var hits int64
	mux := http.NewServeMux()
	addAuthStubs(mux)
	mux.HandleFunc("/v7/finance/quote", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		assert.Equal(t, "testcrumb", r.URL.Query().Get("crumb"))
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbols"))
		w.Write([]byte(`{"quoteResponse":{"result":[{
			"longName":"Apple Inc.","fullExchangeName":"NasdaqGS",
			"regularMarketPrice":188.61,"regularMarketChange":1.5,
			"regularMarketChangePercent":0.8,"marketCap":2900000000000,
			"trailingPE":31.2,"epsTrailingTwelveMonths":6.05,
			"regularMarketVolume":52000000
		}],"error":null}}`)) //nolint:errcheck
	})

	s := newTestService(t, mux)

	quote, err := s.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	require.NotNil(t, quote.Price)
	assert.Equal(t, 188.61, *quote.Price)
	assert.Equal(t, "AAPL", quote.Symbol)
	require.NotNil(t, quote.Name)
	assert.Equal(t, "Apple Inc.", *quote.Name)
	assert.Nil(t, quote.Beta, "absent upstream fields stay null")
	require.NotNil(t, quote.Volume)
	assert.Equal(t, int64(52000000), *quote.Volume)

	// Second call is served from cache, no upstream hit
	again, err := s.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, quote.Price, again.Price)
	assert.Equal(t, int64(1), atomic.LoadInt64(&hits))
}

func TestQuoteNotFound(t *testing.T) {
	mux := http.NewServeMux()
	addAuthStubs(mux)
	mux.HandleFunc("/v7/finance/quote", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quoteResponse":{"result":[],"error":null}}`)) //nolint:errcheck
	})

	s := newTestService(t, mux)

	_, err := s.Quote(context.Background(), "NOPE")
	assert.True(t, upstream.IsNotFound(err))
}

func TestUpstream404MapsToNotFound(t *testing.T) {
	mux := http.NewServeMux()
	addAuthStubs(mux)
	mux.HandleFunc("/v8/finance/chart/NOPE", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/v10/finance/quoteSummary/NOPE", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	s := newTestService(t, mux)

	_, err := s.Chart(context.Background(), "NOPE", "1mo", "1d")
	assert.True(t, upstream.IsNotFound(err))
	assert.EqualError(t, err, "no chart data for NOPE")

	_, err = s.Financials(context.Background(), "NOPE")
	assert.True(t, upstream.IsNotFound(err))
	assert.EqualError(t, err, "no financials data for NOPE")
}

func TestChartSendsNoCrumb(t *testing.T) {
	mux := http.NewServeMux()
	addAuthStubs(mux)
	mux.HandleFunc("/v8/finance/chart/AAPL", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("crumb"), "chart endpoint is unauthenticated")
		assert.Empty(t, r.Header.Get("Cookie"))
		assert.Equal(t, "5d", r.URL.Query().Get("range"))
		w.Write([]byte(`{"chart":{"result":[{
			"timestamp":[1000,2000,3000],
			"indicators":{"quote":[{
				"open":[10,null,12],"high":[11,null,13],
				"low":[9,null,11],"close":[10.5,null,12.5],
				"volume":[100,null,300]
			}]}
		}],"error":null}}`)) //nolint:errcheck
	})

	s := newTestService(t, mux)

	chart, err := s.Chart(context.Background(), "AAPL", "5d", "1d")
	require.NoError(t, err)

	// The null-padded middle bar is dropped
	require.Len(t, chart.Candles, 2)
	assert.Equal(t, int64(1000), chart.Candles[0].Timestamp)
	assert.Equal(t, 12.5, chart.Candles[1].Close)
	assert.Equal(t, int64(300), chart.Candles[1].Volume)
}

func TestChartCacheKeyIncludesRangeAndInterval(t *testing.T) {
	var hits int64
	mux := http.NewServeMux()
	addAuthStubs(mux)
	mux.HandleFunc("/v8/finance/chart/AAPL", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.Write([]byte(`{"chart":{"result":[{"timestamp":[],"indicators":{"quote":[{}]}}],"error":null}}`)) //nolint:errcheck
	})

	s := newTestService(t, mux)

	_, err := s.Chart(context.Background(), "AAPL", "1mo", "1d")
	require.NoError(t, err)
	_, err = s.Chart(context.Background(), "AAPL", "5d", "1d")
	require.NoError(t, err)
	_, err = s.Chart(context.Background(), "AAPL", "1mo", "1d")
	require.NoError(t, err)

	assert.Equal(t, int64(2), atomic.LoadInt64(&hits), "distinct range/interval pairs hit upstream once each")
}

func TestSummaryParsesModules(t *testing.T) {
	mux := http.NewServeMux()
	addAuthStubs(mux)
	mux.HandleFunc("/v10/finance/quoteSummary/AAPL", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quoteSummary":{"result":[{
			"financialData":{
				"recommendationKey":"buy",
				"targetMeanPrice":{"raw":210.5,"fmt":"210.50"},
				"numberOfAnalystOpinions":{"raw":40}
			},
			"defaultKeyStatistics":{
				"beta":{"raw":1.25},
				"trailingEps":{"raw":6.05},
				"sharesShort":{"raw":120000000},
				"shortRatio":{"raw":2.1}
			},
			"calendarEvents":{"earnings":{
				"earningsDate":[{"raw":1760000000}],
				"earningsAverage":{"raw":1.6}
			}}
		}],"error":null}}`)) //nolint:errcheck
	})

	s := newTestService(t, mux)

	summary, err := s.Summary(context.Background(), "AAPL")
	require.NoError(t, err)

	require.NotNil(t, summary.Analysts)
	require.NotNil(t, summary.Analysts.Recommendation)
	assert.Equal(t, "buy", *summary.Analysts.Recommendation)
	require.NotNil(t, summary.Analysts.TargetMean)
	assert.Equal(t, 210.5, *summary.Analysts.TargetMean, "raw-wrapped numbers unwrap")

	require.NotNil(t, summary.Fundamentals)
	require.NotNil(t, summary.Fundamentals.Beta)
	assert.Equal(t, 1.25, *summary.Fundamentals.Beta)

	require.NotNil(t, summary.ShortInterest)
	require.NotNil(t, summary.ShortInterest.SharesShort)
	assert.Equal(t, int64(120000000), *summary.ShortInterest.SharesShort)

	require.NotNil(t, summary.Earnings)
	require.NotNil(t, summary.Earnings.NextDate)
	assert.Equal(t, int64(1760000000), *summary.Earnings.NextDate)

	assert.Nil(t, summary.Profile, "absent modules stay null")
}

func TestNewsFailureYieldsEmptyList(t *testing.T) {
	mux := http.NewServeMux()
	addAuthStubs(mux)
	mux.HandleFunc("/v1/finance/search", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	s := newTestService(t, mux)

	items := s.News(context.Background(), "AAPL")
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestNewsParsesHeadlines(t *testing.T) {
	mux := http.NewServeMux()
	addAuthStubs(mux)
	mux.HandleFunc("/v1/finance/search", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"news":[
			{"title":"Apple ships new chip","publisher":"Newswire","providerPublishTime":1755000000},
			{"publisher":"NoTitle Inc"}
		]}`)) //nolint:errcheck
	})

	s := newTestService(t, mux)

	items := s.News(context.Background(), "AAPL")
	require.Len(t, items, 1, "entries without a title are dropped")
	assert.Equal(t, "Apple ships new chip", items[0].Title)
	require.NotNil(t, items[0].PublishedAt)
	assert.Equal(t, int64(1755000000), *items[0].PublishedAt)
}

func TestOptionsSummaryFromUpstream(t *testing.T) {
	mux := http.NewServeMux()
	addAuthStubs(mux)
	mux.HandleFunc("/v7/finance/options/AAPL", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"optionChain":{"result":[{
			"quote":{"regularMarketPrice":100},
			"expirationDates":[1700000000,1700600000],
			"options":[{
				"expirationDate":1700000000,
				"calls":[
					{"contractSymbol":"AAPL1","strike":100,"volume":10,"openInterest":50,"impliedVolatility":0.30},
					{"contractSymbol":"AAPL2","strike":102,"volume":5,"openInterest":20,"impliedVolatility":0.40}
				],
				"puts":[
					{"contractSymbol":"AAPL3","strike":98,"volume":6,"openInterest":25,"impliedVolatility":0.50}
				]
			}]
		}],"error":null}}`)) //nolint:errcheck
	})

	s := newTestService(t, mux)

	summary, err := s.Options(context.Background(), "AAPL")
	require.NoError(t, err)

	require.NotNil(t, summary.ATMIV)
	assert.InDelta(t, 40.0, *summary.ATMIV, 0.001)
	assert.Equal(t, int64(15), summary.TotalCallVolume)
	assert.Equal(t, int64(6), summary.TotalPutVolume)
	require.NotNil(t, summary.PCRatioVolume)
	assert.InDelta(t, 0.4, *summary.PCRatioVolume, 0.001)
}

func TestOptionsChainResolvesRequestedExpiration(t *testing.T) {
	var dates []string
	mux := http.NewServeMux()
	addAuthStubs(mux)
	mux.HandleFunc("/v7/finance/options/AAPL", func(w http.ResponseWriter, r *http.Request) {
		dates = append(dates, r.URL.Query().Get("date"))
		w.Write([]byte(`{"optionChain":{"result":[{
			"quote":{"regularMarketPrice":100},
			"expirationDates":[100,200,500],
			"options":[{"expirationDate":100,"calls":[],"puts":[]}]
		}],"error":null}}`)) //nolint:errcheck
	})

	s := newTestService(t, mux)

	_, err := s.OptionsChain(context.Background(), "AAPL", 210)
	require.NoError(t, err)

	// First call discovers the expiration list, second targets the closest one
	require.Len(t, dates, 2)
	assert.Equal(t, "", dates[0])
	assert.Equal(t, "200", dates[1])
}

func TestOptionsChainCacheKeyPerExpiration(t *testing.T) {
	var hits int64
	mux := http.NewServeMux()
	addAuthStubs(mux)
	mux.HandleFunc("/v7/finance/options/AAPL", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.Write([]byte(`{"optionChain":{"result":[{
			"quote":{"regularMarketPrice":100},
			"expirationDates":[100],
			"options":[{"expirationDate":100,"calls":[],"puts":[]}]
		}],"error":null}}`)) //nolint:errcheck
	})

	s := newTestService(t, mux)

	_, err := s.OptionsChain(context.Background(), "AAPL", 0)
	require.NoError(t, err)
	before := atomic.LoadInt64(&hits)

	// Same nearest request is a cache hit
	_, err = s.OptionsChain(context.Background(), "AAPL", 0)
	require.NoError(t, err)
	assert.Equal(t, before, atomic.LoadInt64(&hits))

	// A specific expiration is a different cache key
	_, err = s.OptionsChain(context.Background(), "AAPL", 100)
	require.NoError(t, err)
	assert.Greater(t, atomic.LoadInt64(&hits), before)
}

func TestFinancialsParsesStatements(t *testing.T) {
	mux := http.NewServeMux()
	addAuthStubs(mux)
	mux.HandleFunc("/v10/finance/quoteSummary/AAPL", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quoteSummary":{"result":[{
			"incomeStatementHistory":{"incomeStatementHistory":[
				{"endDate":{"raw":1690000000},"totalRevenue":{"raw":383000000000},"netIncome":{"raw":97000000000}}
			]},
			"balanceSheetHistory":{"balanceSheetStatements":[
				{"endDate":{"raw":1690000000},"totalAssets":{"raw":352000000000}}
			]}
		}],"error":null}}`)) //nolint:errcheck
	})

	s := newTestService(t, mux)

	financials, err := s.Financials(context.Background(), "AAPL")
	require.NoError(t, err)

	require.Len(t, financials.Income, 1)
	require.NotNil(t, financials.Income[0].TotalRevenue)
	assert.Equal(t, 383000000000.0, *financials.Income[0].TotalRevenue)

	require.Len(t, financials.Balance, 1)
	require.NotNil(t, financials.Balance[0].TotalAssets)

	assert.Empty(t, financials.Cashflow, "absent module yields an empty history")
}

func TestHoldingsParsesOwnership(t *testing.T) {
	mux := http.NewServeMux()
	addAuthStubs(mux)
	mux.HandleFunc("/v10/finance/quoteSummary/AAPL", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quoteSummary":{"result":[{
			"majorHoldersBreakdown":{
				"insidersPercentHeld":{"raw":0.0007},
				"institutionsPercentHeld":{"raw":0.61},
				"institutionsCount":{"raw":5000}
			},
			"institutionOwnership":{"ownershipList":[
				{"organization":"Vanguard Group","pctHeld":{"raw":0.08},"position":{"raw":1300000000}}
			]}
		}],"error":null}}`)) //nolint:errcheck
	})

	s := newTestService(t, mux)

	holdings, err := s.Holdings(context.Background(), "AAPL")
	require.NoError(t, err)

	require.NotNil(t, holdings.InstitutionsPercentHeld)
	assert.Equal(t, 0.61, *holdings.InstitutionsPercentHeld)
	require.Len(t, holdings.Institutions, 1)
	assert.Equal(t, "Vanguard Group", holdings.Institutions[0].Organization)
	assert.Empty(t, holdings.Funds)
}

func TestQuotesBatchCollectsPerSymbolErrors(t *testing.T) {
	mux := http.NewServeMux()
	addAuthStubs(mux)
	mux.HandleFunc("/v7/finance/quote", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbols") == "GOOD" {
			w.Write([]byte(`{"quoteResponse":{"result":[{"regularMarketPrice":42.0}],"error":null}}`)) //nolint:errcheck
			return
		}
		w.Write([]byte(`{"quoteResponse":{"result":[],"error":null}}`)) //nolint:errcheck
	})

	s := newTestService(t, mux)

	quotes, errs := s.Quotes(context.Background(), []string{"GOOD", "BAD"})

	require.Len(t, quotes, 1)
	assert.Equal(t, "GOOD", quotes[0].Symbol)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "BAD")
}
