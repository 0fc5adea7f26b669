package model

import "time"

// ExpiryLeeway is how close to expiry a token may get before it is
// refreshed proactively.
const ExpiryLeeway = 5 * time.Minute

// Token is an OAuth access token for one provider. GitHub tokens obtained
// via the device flow do not expire, so ExpiresAt is nil for them; GitLab
// tokens carry both an expiry and a refresh token.
type Token struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Provider     Provider   `json:"provider"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ExpiringSoon reports whether the token is expired or will expire within
// the leeway window. Tokens without an expiry never expire.
func (t *Token) ExpiringSoon(now time.Time) bool {
	if t.ExpiresAt == nil {
		return false
	}
	return t.ExpiresAt.Sub(now) < ExpiryLeeway
}
