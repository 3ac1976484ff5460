package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/quotedeck/quotedeck/internal/cachestore"
	"github.com/quotedeck/quotedeck/internal/upstream"
)

// maxBatchSymbols bounds the /quotes batch size.
const maxBatchSymbols = 25

// handleTicker serves the full aggregation for one symbol.
func (s *Server) handleTicker(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	resp, err := s.orchestrator.Aggregate(r.Context(), symbol, r.URL.Query().Get("range"), r.URL.Query().Get("interval"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	// The merged payload is only as fresh as its fastest-moving part
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(cachestore.TTLQuote.Seconds())))

	// Partial data is fine; a missing quote is not
	status := http.StatusOK
	if resp.Quote == nil {
		status = http.StatusInternalServerError
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	quote, err := s.fetcher.Quote(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, quote)
}

// handleQuotes serves a comma-separated batch of quotes.
func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) {
	symbols, err := parseSymbolList(chi.URLParam(r, "symbols"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	quotes, errs := s.fetcher.Quotes(r.Context(), symbols)

	resp := map[string]interface{}{
		"quotes": quotes,
	}
	if len(errs) > 0 {
		resp["errors"] = errs
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	chart, err := s.fetcher.Chart(r.Context(), chi.URLParam(r, "symbol"),
		r.URL.Query().Get("range"), r.URL.Query().Get("interval"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, chart)
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	options, err := s.fetcher.Options(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, options)
}

func (s *Server) handleOptionsChain(w http.ResponseWriter, r *http.Request) {
	var requested int64
	if date := r.URL.Query().Get("date"); date != "" {
		parsed, err := strconv.ParseInt(date, 10, 64)
		if err != nil || parsed < 0 {
			s.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error": "date must be a unix timestamp in seconds",
			})
			return
		}
		requested = parsed
	}

	chain, err := s.fetcher.OptionsChain(r.Context(), chi.URLParam(r, "symbol"), requested)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, chain)
}

func (s *Server) handleFinancials(w http.ResponseWriter, r *http.Request) {
	financials, err := s.fetcher.Financials(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, financials)
}

func (s *Server) handleHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := s.fetcher.Holdings(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, holdings)
}

// parseSymbolList validates a comma-separated symbol list.
func parseSymbolList(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("empty symbol list")
	}

	parts := strings.Split(raw, ",")
	if len(parts) > maxBatchSymbols {
		return nil, fmt.Errorf("too many symbols: %d (max %d)", len(parts), maxBatchSymbols)
	}

	symbols := make([]string, 0, len(parts))
	for _, part := range parts {
		symbol := strings.ToUpper(strings.TrimSpace(part))
		if symbol == "" {
			return nil, fmt.Errorf("malformed symbol list")
		}
		if !validSymbol(symbol) {
			return nil, fmt.Errorf("invalid symbol: %s", symbol)
		}
		symbols = append(symbols, symbol)
	}
	return symbols, nil
}

// validSymbol allows ticker characters including index (^GSPC), futures
// (GC=F), and class-share (BRK-B, BRK.B) notation.
func validSymbol(symbol string) bool {
	if len(symbol) > 12 {
		return false
	}
	for _, c := range symbol {
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '.' || c == '-' || c == '^' || c == '=':
		default:
			return false
		}
	}
	return true
}

// writeError maps the error taxonomy to HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if upstream.IsNotFound(err) {
		status = http.StatusNotFound
	}

	s.writeJSON(w, status, map[string]interface{}{
		"error": err.Error(),
	})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
