package auth

import (
	"net/http"
	"time"
)

const (
	// RefreshCookieName is the cookie carrying the refresh token.
	RefreshCookieName = "refresh_token"

	// RefreshCookiePath scopes the cookie to the auth endpoints; the browser
	// never attaches the refresh token to ordinary API calls.
	RefreshCookiePath = "/api/auth"
)

// CookiePolicy derives refresh cookie transport attributes from the deployment
// environment. Secure is gated explicitly on the production flag: inferring it
// either breaks non-TLS local development or ships the cookie over plaintext.
type CookiePolicy struct {
	Production bool
	MaxAge     time.Duration
}

// NewCookiePolicy builds the policy for a 7-day refresh window.
func NewCookiePolicy(production bool, maxAge time.Duration) CookiePolicy {
	if maxAge <= 0 {
		maxAge = defaultRefreshTTL
	}
	return CookiePolicy{Production: production, MaxAge: maxAge}
}

// RefreshCookie returns the Set-Cookie value delivering a refresh token.
// Always built through http.Cookie so attribute serialization and escaping are
// handled by the standard library, not by string assembly.
func (p CookiePolicy) RefreshCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     RefreshCookiePath,
		MaxAge:   int(p.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   p.Production,
		SameSite: http.SameSiteStrictMode,
	}
}

// ClearRefreshCookie returns the Set-Cookie value that expires the refresh
// cookie immediately (logout).
func (p CookiePolicy) ClearRefreshCookie() *http.Cookie {
	return &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     RefreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   p.Production,
		SameSite: http.SameSiteStrictMode,
	}
}
