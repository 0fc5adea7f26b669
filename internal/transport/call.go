package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"gitstore/internal/log"
	"gitstore/internal/model"
	"gitstore/internal/ratelimit"
)

// CallOptions adjust how Do and DoText behave when the quota is spent.
type CallOptions struct {
	// AutoRetry sleeps until the quota resets instead of failing fast
	// when the provider is already known to be exhausted.
	AutoRetry bool
}

// Do performs a GET and decodes the JSON body into T. It never panics:
// every failure mode comes back as a typed error. When the tracker
// already knows the quota is exhausted the call short-circuits without
// touching the network, unless opts.AutoRetry asks to wait it out.
func Do[T any](ctx context.Context, c *Client, path string, query url.Values, opts CallOptions) (T, error) {
	var zero T

	res, err := execute(ctx, c, path, query, opts)
	if err != nil {
		return zero, err
	}
	defer res.Body.Close()

	var out T
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return zero, &DecodeError{Err: err}
	}
	return out, nil
}

// DoText is Do for plain-text bodies, used for raw readme content.
func DoText(ctx context.Context, c *Client, path string, query url.Values, opts CallOptions) (string, error) {
	res, err := execute(ctx, c, path, query, opts)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", &DecodeError{Err: err}
	}
	return string(body), nil
}

func execute(ctx context.Context, c *Client, path string, query url.Values, opts CallOptions) (*http.Response, error) {
	if c.Blocked() {
		if !opts.AutoRetry {
			s, _ := c.tracker.Current(c.provider)
			return nil, &RateLimitError{Snapshot: s}
		}
		wait := c.tracker.TimeUntilReset(c.provider) + time.Second
		log.Info("waiting for rate limit reset", "provider", c.provider, "wait", wait)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	res, err := c.Get(ctx, path, query)
	if err != nil {
		return nil, err
	}

	if err := checkResponse(c, res); err != nil {
		drain(res)
		return nil, err
	}
	return res, nil
}

// checkResponse maps non-2xx statuses to typed errors. Rate-limit
// exhaustion is a 403 (GitHub) or 429 with remaining quota zero; a
// GitLab 401 means the instance requires sign-in.
func checkResponse(c *Client, res *http.Response) error {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}

	if res.StatusCode == http.StatusForbidden || res.StatusCode == http.StatusTooManyRequests {
		if s, ok := ratelimit.FromHeaders(res.Header, c.provider); ok && s.Remaining == 0 {
			return &RateLimitError{Snapshot: s}
		}
		if res.StatusCode == http.StatusTooManyRequests {
			// Throttled without headers; report it as rate limiting
			// with whatever state we last saw.
			s, _ := c.tracker.Current(c.provider)
			s.Provider = c.provider
			return &RateLimitError{Snapshot: s}
		}
	}

	if res.StatusCode == http.StatusUnauthorized && c.provider == model.ProviderGitLab {
		return fmt.Errorf("%s: %w", c.provider, ErrAuthRequired)
	}

	return &HTTPError{StatusCode: res.StatusCode, Status: res.Status}
}
