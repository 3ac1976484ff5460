package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/quotedeck/quotedeck/internal/cachestore"
)

// authCacheKey is the singleton key for the cached session bundle.
const authCacheKey = "session"

// AuthBundle carries the session cookies and the short-lived crumb required
// by authenticated upstream endpoints. Immutable once created; replaced
// wholesale when it ages out of the cache.
type AuthBundle struct {
	Cookies string `json:"cookies"`
	Crumb   string `json:"crumb"`
}

// AuthManager performs the two-step session handshake and caches the result.
type AuthManager struct {
	cache        *cachestore.Repository
	http         *http.Client
	gate         *RateGate
	bootstrapURL string
	crumbURL     string
	userAgent    string
	log          zerolog.Logger
}

// NewAuthManager creates an auth manager.
// cache is optional - if nil, every call performs a fresh handshake.
func NewAuthManager(cache *cachestore.Repository, gate *RateGate, bootstrapURL, crumbURL, userAgent string, log zerolog.Logger) *AuthManager {
	return &AuthManager{
		cache: cache,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
		gate:         gate,
		bootstrapURL: bootstrapURL,
		crumbURL:     crumbURL,
		userAgent:    userAgent,
		log:          log.With().Str("component", "auth").Logger(),
	}
}

// Get returns a valid session bundle, cache-first. On a miss it performs the
// handshake: bootstrap the session to collect cookies, then exchange the
// cookies for a crumb. Either step failing yields an AuthError.
func (m *AuthManager) Get(ctx context.Context) (*AuthBundle, error) {
	if m.cache != nil {
		raw, age, err := m.cache.GetFresh("auth", authCacheKey)
		if err == nil && raw != nil {
			var bundle AuthBundle
			if err := json.Unmarshal(raw, &bundle); err == nil && bundle.Crumb != "" {
				m.log.Debug().Int64("age_seconds", age).Msg("Auth cache hit")
				return &bundle, nil
			}
		}
	}

	cookies, err := m.bootstrapSession(ctx)
	if err != nil {
		return nil, err
	}

	crumb, err := m.fetchCrumb(ctx, cookies)
	if err != nil {
		return nil, err
	}

	bundle := &AuthBundle{Cookies: cookies, Crumb: crumb}

	if m.cache != nil {
		if err := m.cache.Store("auth", authCacheKey, bundle, cachestore.TTLAuth); err != nil {
			m.log.Warn().Err(err).Msg("Failed to cache auth bundle")
		}
	}

	m.log.Info().Msg("Session handshake completed")

	return bundle, nil
}

// bootstrapSession issues the unauthenticated request that seeds session
// cookies. The endpoint's status code is irrelevant - only cookies matter.
func (m *AuthManager) bootstrapSession(ctx context.Context) (string, error) {
	if err := m.gate.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.bootstrapURL, nil)
	if err != nil {
		return "", &AuthError{Reason: "session bootstrap failed", Err: err}
	}
	req.Header.Set("User-Agent", m.userAgent)

	resp, err := m.http.Do(req)
	if err != nil {
		return "", &AuthError{Reason: "session bootstrap failed", Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	// A response may carry multiple cookie headers; keep each cookie's
	// name=value prefix and join them into one Cookie header value.
	var parts []string
	for _, sc := range resp.Header.Values("Set-Cookie") {
		if idx := strings.Index(sc, ";"); idx >= 0 {
			sc = sc[:idx]
		}
		sc = strings.TrimSpace(sc)
		if sc != "" && strings.Contains(sc, "=") {
			parts = append(parts, sc)
		}
	}

	if len(parts) == 0 {
		return "", &AuthError{Reason: "no cookies"}
	}

	return strings.Join(parts, "; "), nil
}

// fetchCrumb exchanges session cookies for the short-lived crumb.
func (m *AuthManager) fetchCrumb(ctx context.Context, cookies string) (string, error) {
	if err := m.gate.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.crumbURL, nil)
	if err != nil {
		return "", &AuthError{Reason: "token request failed", Err: err}
	}
	req.Header.Set("User-Agent", m.userAgent)
	req.Header.Set("Cookie", cookies)

	resp, err := m.http.Do(req)
	if err != nil {
		return "", &AuthError{Reason: "token request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &AuthError{Reason: "token request failed", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &AuthError{Reason: fmt.Sprintf("token request failed: %d", resp.StatusCode)}
	}

	if bodyThrottled(body) {
		return "", &AuthError{Reason: "throttled", Err: &ThrottledError{Op: "crumb"}}
	}

	crumb := strings.TrimSpace(string(body))
	if crumb == "" || strings.Contains(crumb, "<html") {
		return "", &AuthError{Reason: "invalid token response"}
	}

	return crumb, nil
}
