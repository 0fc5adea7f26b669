package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"gitstore/internal/log"
	"gitstore/internal/model"
	"gitstore/internal/ratelimit"
)

const (
	defaultMaxAttempts = 3
	retryBaseDelay     = 500 * time.Millisecond
	retryMaxDelay      = 4 * time.Second
	defaultUserAgent   = "gitstore"
)

// Client issues API requests to one provider. Every response's
// rate-limit headers are recorded in the shared tracker, including
// responses that end up being retried.
type Client struct {
	provider    model.Provider
	baseURL     string
	http        *http.Client
	tokens      oauth2.TokenSource
	tracker     *ratelimit.Tracker
	limiter     *rate.Limiter
	maxAttempts int
	userAgent   string
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTokenSource attaches credentials. A source that returns an error
// is treated as anonymous, so a signed-out client still works within
// the anonymous quota.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithPacing applies a client-side request limiter on top of the
// server-side quota, smoothing out bursts from the discovery pipeline.
func WithPacing(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient builds a client for the provider rooted at baseURL
// (e.g. https://api.github.com or https://gitlab.com/api/v4).
func NewClient(provider model.Provider, baseURL string, tracker *ratelimit.Tracker, opts ...Option) *Client {
	c := &Client{
		provider:    provider,
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        &http.Client{Timeout: 30 * time.Second},
		tracker:     tracker,
		maxAttempts: defaultMaxAttempts,
		userAgent:   defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Provider() model.Provider {
	return c.provider
}

func (c *Client) Tracker() *ratelimit.Tracker {
	return c.tracker
}

// Blocked reports whether the provider quota is currently exhausted.
func (c *Client) Blocked() bool {
	return c.tracker.IsBlocked(c.provider)
}

func (c *Client) requestURL(path string, query url.Values) string {
	// Absolute URLs pass through untouched; raw readme downloads use
	// hosts outside the API root.
	u := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		u = c.baseURL + "/" + strings.TrimLeft(path, "/")
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.requestURL(path, query), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	if c.provider == model.ProviderGitHub {
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	} else {
		req.Header.Set("Accept", "application/json")
	}
	if c.tokens != nil {
		if tok, err := c.tokens.Token(); err == nil && tok.AccessToken != "" {
			req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
		}
		// Token errors fall through to an anonymous request.
	}
	return req, nil
}

// Get performs a GET with per-provider retries. The caller owns the
// returned response body. Requests are rebuilt on every attempt so the
// freshest token is always used.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	delay := retryBaseDelay
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			log.Debug("retrying request", "provider", c.provider, "path", path, "attempt", attempt)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			delay *= 2
			if delay > retryMaxDelay {
				delay = retryMaxDelay
			}
		}

		req, err := c.newRequest(ctx, http.MethodGet, path, query)
		if err != nil {
			return nil, err
		}

		res, err := c.http.Do(req)
		if err != nil {
			if !retryableError(err) {
				return nil, err
			}
			lastErr = err
			continue
		}

		// Record before deciding anything, so even a retried response
		// updates the quota picture.
		c.tracker.RecordHeaders(c.provider, res.Header)

		if c.shouldRetry(res) && attempt < c.maxAttempts {
			lastErr = fmt.Errorf("status %d", res.StatusCode)
			drain(res)
			continue
		}
		return res, nil
	}
	return nil, fmt.Errorf("request to %s failed after %d attempts: %w", path, c.maxAttempts, lastErr)
}

// shouldRetry implements each provider's transient-failure policy. A
// GitHub 403 is only retried while the rate-limit headers say quota
// remains; a 403 with remaining==0 is genuine exhaustion and must
// surface immediately. GitLab signals throttling with 429 instead.
func (c *Client) shouldRetry(res *http.Response) bool {
	if res.StatusCode >= 500 {
		return true
	}
	switch c.provider {
	case model.ProviderGitHub:
		if res.StatusCode != http.StatusForbidden {
			return false
		}
		s, ok := ratelimit.FromHeaders(res.Header, c.provider)
		return !ok || s.Remaining > 0
	case model.ProviderGitLab:
		return res.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// retryableError reports whether a transport-level error is worth
// retrying. Context cancellation never is.
func retryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}

func drain(res *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
	_ = res.Body.Close()
}
