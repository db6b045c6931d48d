package model

import "time"

// Credentials holds the OAuth token set for one account. A value is in
// exactly one of three states: valid (unexpired, usable), expired (has a
// refresh token, must be refreshed before use), or absent (interactive
// authorization required). Refresh and re-authorization replace the
// whole value atomically; it is never partially updated.
type Credentials struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ClientID     string    `json:"client_id,omitempty"`
	ClientSecret string    `json:"client_secret,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	Scopes       []string  `json:"scopes,omitempty"`
}

// expirySkew guards against using a token that expires mid-request.
const expirySkew = 30 * time.Second

// Valid reports whether the access token is present and unexpired.
func (c *Credentials) Valid() bool {
	if c == nil || c.AccessToken == "" {
		return false
	}
	if c.Expiry.IsZero() {
		return true
	}
	return time.Now().Add(expirySkew).Before(c.Expiry)
}

// CanRefresh reports whether an expired value carries a refresh token.
func (c *Credentials) CanRefresh() bool {
	return c != nil && c.RefreshToken != ""
}
