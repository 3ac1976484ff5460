package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Client performs rate-gated GET requests against the upstream data API and
// classifies responses into the error taxonomy.
type Client struct {
	http      *http.Client
	queryBase string
	userAgent string
	gate      *RateGate
	log       zerolog.Logger
}

// NewClient creates an upstream data client rooted at queryBase.
func NewClient(queryBase, userAgent string, gate *RateGate, log zerolog.Logger) *Client {
	return &Client{
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		queryBase: strings.TrimRight(queryBase, "/"),
		userAgent: userAgent,
		gate:      gate,
		log:       log.With().Str("client", "upstream").Logger(),
	}
}

// Get issues one gated request for path and returns the raw body.
// When bundle is non-nil the session cookies ride the Cookie header and the
// crumb is appended as a query parameter.
//
// Classification: transport failures and non-2xx statuses become
// UpstreamError, 429 and in-body throttle notices become ThrottledError,
// and a 404 becomes NotFoundError. The client only knows the request path,
// so fetchers replace the NotFoundError with one naming their kind and
// symbol before it surfaces.
func (c *Client) Get(ctx context.Context, path string, params url.Values, bundle *AuthBundle) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	if bundle != nil {
		params.Set("crumb", bundle.Crumb)
	}

	reqURL := c.queryBase + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	if err := c.gate.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if bundle != nil {
		req.Header.Set("Cookie", bundle.Cookies)
	}

	c.log.Debug().Str("path", path).Msg("Upstream request")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &UpstreamError{Op: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil, &ThrottledError{Op: path}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Op: path, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{Kind: "upstream", Symbol: path}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Op: path, Status: resp.StatusCode}
	}

	// The upstream can deliver a throttling notice inside a 200 response
	if bodyThrottled(body) {
		return nil, &ThrottledError{Op: path}
	}

	return body, nil
}

// bodyThrottled detects the in-body "too many requests" marker the upstream
// uses even on success statuses.
func bodyThrottled(body []byte) bool {
	return strings.Contains(strings.ToLower(string(body)), "too many requests")
}
