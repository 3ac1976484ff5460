package server

import (
	"net/http"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/quotedeck/quotedeck/internal/cachestore"
)

// handleHealth reports liveness plus a static-config echo so operators can
// verify what a running instance was started with.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":         "healthy",
		"service":        "quotedeck",
		"instance_id":    s.instanceID,
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
		"config": map[string]interface{}{
			"retry_max_attempts":   s.cfg.RetryMaxAttempts,
			"retry_base_delay_ms":  s.cfg.RetryBaseDelay.Milliseconds(),
			"retry_max_delay_ms":   s.cfg.RetryMaxDelay.Milliseconds(),
			"rate_min_interval_ms": s.cfg.RateMinInterval.Milliseconds(),
			"ttl_seconds": map[string]interface{}{
				"quote":         int(cachestore.TTLQuote.Seconds()),
				"chart":         int(cachestore.TTLChart.Seconds()),
				"options":       int(cachestore.TTLOptions.Seconds()),
				"options_chain": int(cachestore.TTLOptionsChain.Seconds()),
				"summary":       int(cachestore.TTLSummary.Seconds()),
				"news":          int(cachestore.TTLNews.Seconds()),
				"financials":    int(cachestore.TTLFinancials.Seconds()),
				"holdings":      int(cachestore.TTLHoldings.Seconds()),
				"auth":          int(cachestore.TTLAuth.Seconds()),
			},
		},
	}

	if stats := s.processStats(); stats != nil {
		response["process"] = stats
	}

	if s.cacheDB != nil {
		if err := s.cacheDB.QuickCheck(r.Context()); err != nil {
			response["status"] = "degraded"
			response["cache_error"] = err.Error()
		} else if stats, err := s.cacheDB.GetStats(); err == nil {
			response["cache"] = map[string]interface{}{
				"size_bytes":     stats.SizeBytes,
				"wal_size_bytes": stats.WALSizeBytes,
				"page_count":     stats.PageCount,
			}
		}
	}

	s.writeJSON(w, http.StatusOK, response)
}

// processStats reports this process's memory footprint. Best-effort; any
// failure just drops the section.
func (s *Server) processStats() map[string]interface{} {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil
	}

	memInfo, err := proc.MemoryInfo()
	if err != nil || memInfo == nil {
		return nil
	}

	stats := map[string]interface{}{
		"memory_rss_bytes": memInfo.RSS,
	}
	if cpuPct, err := proc.CPUPercent(); err == nil {
		stats["cpu_percent"] = cpuPct
	}
	return stats
}
