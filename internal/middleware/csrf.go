// AngelaMos | 2026
// csrf.go

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/carterperez-dev/storefront/backend/internal/config"
	"github.com/carterperez-dev/storefront/backend/internal/core"
)

const (
	csrfTokenKey      contextKey = "csrf_token"
	defaultCSRFHeader            = "x-csrf-token"
)

type CSRFConfig struct {
	CookieName string
	HeaderName string
	Domain     string
	Secure     bool
	MaxAge     time.Duration
}

func NewCSRFConfig(csrf config.CSRFConfig, cookie config.CookieConfig) CSRFConfig {
	return CSRFConfig{
		CookieName: csrf.CookieName,
		HeaderName: csrf.HeaderName,
		Domain:     cookie.Domain,
		Secure:     cookie.Secure,
		MaxAge:     csrf.MaxAge,
	}
}

func (c *CSRFConfig) withDefaults() {
	if c.CookieName == "" {
		c.CookieName = "csrf_token"
	}
	if c.HeaderName == "" {
		c.HeaderName = defaultCSRFHeader
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 7 * 24 * time.Hour
	}
}

// CSRF enforces the double-submit contract: unsafe methods must echo the
// readable cookie value in the header.
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	cfg.withDefaults()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if cookie, err := r.Cookie(cfg.CookieName); err == nil {
				token = cookie.Value
			}

			if token == "" {
				minted, err := core.GenerateCSRFToken()
				if err != nil {
					core.InternalServerError(w, err)
					return
				}
				token = minted
				setCSRFCookie(w, cfg, token)
			}

			if !isSafeMethod(r.Method) {
				provided := r.Header.Get(cfg.HeaderName)
				if !core.ConstantTimeEqual(token, provided) {
					slog.DebugContext(r.Context(), "csrf check failed",
						"method", r.Method,
						"path", r.URL.Path,
						"header_present", provided != "",
					)
					core.JSONError(w, core.ErrCsrfMismatch)
					return
				}
			} else {
				w.Header().Set(cfg.HeaderName, token)
			}

			ctx := context.WithValue(r.Context(), csrfTokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func CSRFToken(ctx context.Context) string {
	if token, ok := ctx.Value(csrfTokenKey).(string); ok {
		return token
	}
	return ""
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}

func setCSRFCookie(w http.ResponseWriter, cfg CSRFConfig, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    token,
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   int(cfg.MaxAge.Seconds()),
		HttpOnly: false,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
