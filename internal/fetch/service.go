// Package fetch implements the per-kind resource fetchers. Every fetcher
// follows the same skeleton: cache lookup, on miss an authenticated,
// rate-gated, retried upstream call, parse into a stable shape, cache the
// result with the kind's TTL.
package fetch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/quotedeck/quotedeck/internal/cachestore"
	"github.com/quotedeck/quotedeck/internal/upstream"
)

// Service bundles the shared fetcher dependencies.
type Service struct {
	cache   *cachestore.Repository
	client  *upstream.Client
	auth    *upstream.AuthManager
	retrier *upstream.Retrier
	log     zerolog.Logger
}

// NewService creates the fetcher service.
func NewService(cache *cachestore.Repository, client *upstream.Client, auth *upstream.AuthManager, retrier *upstream.Retrier, log zerolog.Logger) *Service {
	return &Service{
		cache:   cache,
		client:  client,
		auth:    auth,
		retrier: retrier,
		log:     log.With().Str("component", "fetch").Logger(),
	}
}

// cached loads a fresh cache entry into dest. A hit is a hard bypass of the
// rest of the pipeline. Cache errors degrade to a miss.
func (s *Service) cached(table, key string, dest interface{}) bool {
	raw, age, err := s.cache.GetFresh(table, key)
	if err != nil {
		s.log.Warn().Err(err).Str("table", table).Msg("Cache read failed")
		return false
	}
	if raw == nil {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		s.log.Warn().Err(err).Str("table", table).Msg("Cache entry unreadable")
		return false
	}
	s.log.Debug().Str("table", table).Str("key", key).Int64("age_seconds", age).Msg("Cache hit")
	return true
}

// store writes a parsed result to the cache. Store failures are logged and
// swallowed; caching is an optimization, not a correctness dependency.
func (s *Service) store(table, key string, value interface{}, ttl time.Duration) {
	if err := s.cache.Store(table, key, value, ttl); err != nil {
		s.log.Warn().Err(err).Str("table", table).Str("key", key).Msg("Cache write failed")
	}
}

// fetchJSON runs one retried upstream GET and decodes the body into a
// generic JSON document. An upstream 404 comes back as a NotFoundError
// naming this fetcher's kind and symbol.
func (s *Service) fetchJSON(ctx context.Context, kind, symbol, path string, params map[string]string, bundle *upstream.AuthBundle) (map[string]interface{}, error) {
	label := kind + " " + symbol

	var body []byte
	err := s.retrier.Do(ctx, label, func() error {
		var err error
		body, err = s.client.Get(ctx, path, toValues(params), bundle)
		return err
	})
	if err != nil {
		if upstream.IsNotFound(err) {
			return nil, &upstream.NotFoundError{Kind: kind, Symbol: symbol}
		}
		return nil, err
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &upstream.UpstreamError{Op: label, Err: err}
	}
	return doc, nil
}
