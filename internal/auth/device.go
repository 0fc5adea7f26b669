package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gitstore/internal/log"
	"gitstore/internal/model"
)

// Sentinel polling states of the device authorization grant.
var (
	// ErrAuthorizationPending means the user has not approved yet; poll
	// again after the interval.
	ErrAuthorizationPending = errors.New("authorization pending")
	// ErrSlowDown means the provider wants a longer polling interval.
	ErrSlowDown = errors.New("slow down")
	// ErrFlowExpired means the device code lapsed before approval.
	ErrFlowExpired = errors.New("device flow expired")
)

const (
	githubDeviceCodeURL  = "https://github.com/login/device/code"
	githubAccessTokenURL = "https://github.com/login/oauth/access_token"

	startMaxAttempts = 3
	startBaseDelay   = time.Second
	startMaxDelay    = 5 * time.Second
)

// DeviceFlow drives the OAuth device authorization grant for one
// provider. GitHub uses its fixed login endpoints; GitLab uses the
// /oauth endpoints of the configured instance and additionally needs a
// client secret for the token exchange.
type DeviceFlow struct {
	provider     model.Provider
	clientID     string
	clientSecret string
	baseURL      string
	http         *http.Client
	scope        string
}

type DeviceFlowOption func(*DeviceFlow)

// WithBaseURL overrides the provider endpoints. For GitLab this selects
// the instance; tests point it at a local server for either provider.
func WithBaseURL(u string) DeviceFlowOption {
	return func(d *DeviceFlow) { d.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(c *http.Client) DeviceFlowOption {
	return func(d *DeviceFlow) { d.http = c }
}

func WithScope(scope string) DeviceFlowOption {
	return func(d *DeviceFlow) { d.scope = scope }
}

func NewDeviceFlow(provider model.Provider, clientID, clientSecret string, opts ...DeviceFlowOption) *DeviceFlow {
	d := &DeviceFlow{
		provider:     provider,
		clientID:     clientID,
		clientSecret: clientSecret,
		http:         &http.Client{Timeout: 30 * time.Second},
	}
	switch provider {
	case model.ProviderGitLab:
		d.baseURL = "https://gitlab.com"
		d.scope = "read_api"
	default:
		d.scope = "read:user"
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *DeviceFlow) startURL() string {
	if d.provider == model.ProviderGitLab {
		return d.baseURL + "/oauth/authorize_device"
	}
	if d.baseURL != "" {
		return d.baseURL + "/login/device/code"
	}
	return githubDeviceCodeURL
}

func (d *DeviceFlow) tokenURL() string {
	if d.provider == model.ProviderGitLab {
		return d.baseURL + "/oauth/token"
	}
	if d.baseURL != "" {
		return d.baseURL + "/login/oauth/access_token"
	}
	return githubAccessTokenURL
}

type deviceCodeResponse struct {
	DeviceCode              string `json:"device_code"`
	UserCode                string `json:"user_code"`
	VerificationURI         string `json:"verification_uri"`
	VerificationURIComplete string `json:"verification_uri_complete"`
	ExpiresIn               int    `json:"expires_in"`
	Interval                int    `json:"interval"`
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int    `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Start requests a device and user code. Transient failures (network
// errors, 5xx) are retried with exponential backoff; client errors are
// returned immediately.
func (d *DeviceFlow) Start(ctx context.Context) (*model.DeviceFlowStart, error) {
	form := url.Values{
		"client_id": {d.clientID},
		"scope":     {d.scope},
	}

	delay := startBaseDelay
	var lastErr error
	for attempt := 1; attempt <= startMaxAttempts; attempt++ {
		if attempt > 1 {
			log.Debug("retrying device code request", "provider", d.provider, "attempt", attempt)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			delay *= 2
			if delay > startMaxDelay {
				delay = startMaxDelay
			}
		}

		var resp deviceCodeResponse
		status, err := d.postForm(ctx, d.startURL(), form, &resp)
		switch {
		case err != nil:
			if !transientNetErr(err) {
				return nil, fmt.Errorf("requesting device code: %w", err)
			}
			lastErr = err
			continue
		case status >= 500:
			lastErr = fmt.Errorf("device code endpoint returned %d", status)
			continue
		case status >= 400:
			return nil, fmt.Errorf("device code endpoint returned %d", status)
		}

		if resp.DeviceCode == "" || resp.UserCode == "" {
			return nil, errors.New("device code response missing codes")
		}
		interval := resp.Interval
		if interval <= 0 {
			interval = 5
		}
		return &model.DeviceFlowStart{
			UserCode:        resp.UserCode,
			VerificationURI: resp.VerificationURI,
			DeviceCode:      resp.DeviceCode,
			ExpiresIn:       time.Duration(resp.ExpiresIn) * time.Second,
			PollInterval:    time.Duration(interval) * time.Second,
		}, nil
	}
	return nil, fmt.Errorf("requesting device code: %w", lastErr)
}

// Poll performs a single token poll. It returns ErrAuthorizationPending
// or ErrSlowDown while the user has not finished, the token on success,
// and a terminal error otherwise.
func (d *DeviceFlow) Poll(ctx context.Context, deviceCode string) (*model.Token, error) {
	form := url.Values{
		"client_id":   {d.clientID},
		"device_code": {deviceCode},
		"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
	}
	if d.provider == model.ProviderGitLab {
		form.Set("client_secret", d.clientSecret)
	}

	var resp tokenResponse
	if _, err := d.postForm(ctx, d.tokenURL(), form, &resp); err != nil {
		return nil, fmt.Errorf("polling for token: %w", err)
	}

	switch resp.Error {
	case "":
	case "authorization_pending":
		return nil, ErrAuthorizationPending
	case "slow_down":
		return nil, ErrSlowDown
	case "expired_token":
		return nil, ErrFlowExpired
	default:
		if resp.ErrorDescription != "" {
			return nil, fmt.Errorf("%s: %s", resp.Error, resp.ErrorDescription)
		}
		return nil, fmt.Errorf("token endpoint returned error %q", resp.Error)
	}

	if resp.AccessToken == "" {
		return nil, errors.New("token response missing access token")
	}
	return d.buildToken(&resp), nil
}

// Authorize polls until the user approves, the flow expires, or the
// context is cancelled.
func (d *DeviceFlow) Authorize(ctx context.Context, start *model.DeviceFlowStart) (*model.Token, error) {
	interval := start.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	deadline := time.Now().Add(start.ExpiresIn)

	for {
		if start.ExpiresIn > 0 && time.Now().After(deadline) {
			return nil, ErrFlowExpired
		}
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		tok, err := d.Poll(ctx, start.DeviceCode)
		switch {
		case err == nil:
			return tok, nil
		case errors.Is(err, ErrAuthorizationPending):
			continue
		case errors.Is(err, ErrSlowDown):
			interval += 5 * time.Second
			log.Debug("provider requested slower polling", "provider", d.provider, "interval", interval)
			continue
		default:
			return nil, err
		}
	}
}

func (d *DeviceFlow) buildToken(resp *tokenResponse) *model.Token {
	tok := &model.Token{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		Provider:     d.provider,
		CreatedAt:    time.Now(),
	}
	if resp.ExpiresIn > 0 {
		exp := time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
		tok.ExpiresAt = &exp
	}
	return tok
}

func (d *DeviceFlow) postForm(ctx context.Context, endpoint string, form url.Values, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	res, err := d.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return res.StatusCode, err
	}
	if res.StatusCode < 500 {
		if err := json.Unmarshal(body, out); err != nil {
			return res.StatusCode, fmt.Errorf("decoding response: %w", err)
		}
	}
	return res.StatusCode, nil
}

func transientNetErr(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}

// OAuthRefresher implements Refresher with the refresh_token grant
// against a GitLab instance.
type OAuthRefresher struct {
	clientID     string
	clientSecret string
	baseURL      string
	http         *http.Client
}

func NewOAuthRefresher(clientID, clientSecret, baseURL string) *OAuthRefresher {
	return &OAuthRefresher{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         &http.Client{Timeout: 30 * time.Second},
	}
}

func (r *OAuthRefresher) Refresh(ctx context.Context, tok *model.Token) (*model.Token, error) {
	if tok.RefreshToken == "" {
		return nil, errors.New("no refresh token")
	}

	form := url.Values{
		"client_id":     {r.clientID},
		"client_secret": {r.clientSecret},
		"refresh_token": {tok.RefreshToken},
		"grant_type":    {"refresh_token"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	res, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("refresh endpoint returned %d", res.StatusCode)
	}

	var resp tokenResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decoding refresh response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("refresh rejected: %s", resp.Error)
	}
	if resp.AccessToken == "" {
		return nil, errors.New("refresh response missing access token")
	}

	fresh := &model.Token{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		Provider:     tok.Provider,
		CreatedAt:    time.Now(),
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = tok.RefreshToken
	}
	if resp.ExpiresIn > 0 {
		exp := time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
		fresh.ExpiresAt = &exp
	}
	return fresh, nil
}
