// AngelaMos | 2026
// cookies.go

package auth

import (
	"net/http"
	"time"

	"github.com/carterperez-dev/storefront/backend/internal/config"
	"github.com/carterperez-dev/storefront/backend/internal/core"
	"github.com/carterperez-dev/storefront/backend/internal/middleware"
)

const (
	AccessTokenCookie  = middleware.AccessTokenCookie
	RefreshTokenCookie = "refresh_token"
)

// CookieWriter sets the HttpOnly session cookies. All of them live on
// path "/" with SameSite=Lax.
type CookieWriter struct {
	secure bool
	domain string
	clock  core.Clock
}

func NewCookieWriter(cfg config.CookieConfig, clock core.Clock) *CookieWriter {
	if clock == nil {
		clock = core.RealClock{}
	}
	return &CookieWriter{
		secure: cfg.Secure,
		domain: cfg.Domain,
		clock:  clock,
	}
}

func (c *CookieWriter) SetAccessToken(
	w http.ResponseWriter,
	token string,
	expiresAt time.Time,
) {
	http.SetCookie(w, c.cookie(AccessTokenCookie, token, expiresAt))
}

func (c *CookieWriter) SetRefreshToken(
	w http.ResponseWriter,
	token string,
	expiresAt time.Time,
) {
	http.SetCookie(w, c.cookie(RefreshTokenCookie, token, expiresAt))
}

func (c *CookieWriter) SetSession(w http.ResponseWriter, s *Session) {
	c.SetAccessToken(w, s.AccessToken, s.AccessExpiresAt)
	c.SetRefreshToken(w, s.RefreshToken, s.RefreshExpiresAt)
}

// Clear expires the access and refresh cookies. The CSRF cookie is left
// alone so the next login can reuse it.
func (c *CookieWriter) Clear(w http.ResponseWriter) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   c.domain,
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
			Secure:   c.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func (c *CookieWriter) cookie(
	name, value string,
	expiresAt time.Time,
) *http.Cookie {
	maxAge := int(expiresAt.Sub(c.clock.Now()).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}

	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.domain,
		Expires:  expiresAt,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func RefreshTokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(RefreshTokenCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}
