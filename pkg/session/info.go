package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Info describes the configured session for display.
type Info struct {
	Mode         string
	Source       string
	CookieNames  []string
	TokenPreview string
	Token        *TokenInfo
	Warnings     []string
}

// TokenInfo holds the claims read from a JWT bearer token.
type TokenInfo struct {
	Subject   string
	ExpiresAt *time.Time
}

// Expired reports whether the token carries an expiry in the past.
func (t TokenInfo) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && t.ExpiresAt.Before(now)
}

// Info summarises the session without contacting the target.
func (m *Manager) Info() Info {
	if !m.src.UseExisting {
		return Info{Mode: "login", Warnings: m.warnings}
	}

	info := Info{Mode: "existing", Warnings: m.warnings}
	if cookies := m.jar.Cookies(m.target); len(cookies) > 0 {
		info.Source = m.cookieSrc
		for _, c := range cookies {
			info.CookieNames = append(info.CookieNames, c.Name)
		}
		return info
	}
	if m.src.APIToken != "" {
		info.Source = "API_TOKEN"
		info.TokenPreview = preview(m.src.APIToken)
		if ti, ok := InspectToken(m.src.APIToken); ok {
			info.Token = &ti
		}
		return info
	}
	info.Source = "none"
	return info
}

// InspectToken decodes a JWT without verifying its signature. Opaque tokens
// such as Sanctum personal access tokens report false.
func InspectToken(token string) (TokenInfo, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenInfo{}, false
	}
	var ti TokenInfo
	if sub, err := claims.GetSubject(); err == nil {
		ti.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		ti.ExpiresAt = &t
	}
	return ti, true
}

func (m *Manager) checkExpiry(token string) {
	ti, ok := InspectToken(token)
	if ok && ti.Expired(time.Now()) {
		m.log.Warn("bearer token already expired", zap.Time("expires_at", *ti.ExpiresAt))
	}
}

func preview(token string) string {
	if len(token) <= 20 {
		return token
	}
	return token[:20] + "..."
}

// Instructions explains how to supply an existing browser session.
const Instructions = `Using an existing account session

1. Log in to the target in your browser.
2. Open the developer tools, Application/Storage tab, Cookies.
3. Copy the value of laravel_session (and XSRF-TOKEN if present).
4. Add to .env:

     ACCOUNT_EXISTING=true
     LARAVEL_SESSION=<laravel_session value>
     XSRF_TOKEN=<XSRF-TOKEN value>

   or supply every cookie at once:

     SESSION_COOKIES={"laravel_session":"...","XSRF-TOKEN":"..."}

   or an API token:

     API_TOKEN=<token>

Without ACCOUNT_EXISTING, set TEST_EMAIL and TEST_PASSWORD to let
secprobe log in through the login route.
`
