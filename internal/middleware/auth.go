// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/carterperez-dev/storefront/backend/internal/core"
	"github.com/carterperez-dev/storefront/backend/internal/identity"
)

const AccessTokenCookie = "access_token"

type TokenVerifier interface {
	VerifyAccessToken(
		ctx context.Context,
		token string,
	) (*AccessTokenClaims, error)
}

type AccessTokenClaims struct {
	PrincipalID int64
	Kind        identity.Kind
}

// PrincipalResolver loads the full principal named by a verified token.
type PrincipalResolver interface {
	ResolvePrincipal(
		ctx context.Context,
		kind identity.Kind,
		id int64,
	) (*identity.Principal, error)
}

type Guard struct {
	verifier TokenVerifier
	resolver PrincipalResolver
}

func NewGuard(verifier TokenVerifier, resolver PrincipalResolver) *Guard {
	return &Guard{verifier: verifier, resolver: resolver}
}

// Authenticate extracts, verifies and resolves the caller for kind.
func (g *Guard) Authenticate(
	r *http.Request,
	kind identity.Kind,
) (*identity.Principal, error) {
	token := ExtractToken(r)
	if token == "" {
		return nil, core.ErrTokenRequired
	}

	claims, err := g.verifier.VerifyAccessToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, core.ErrInvalidToken) {
			return nil, err
		}
		return nil, fmt.Errorf("verify access token: %w: %w", core.ErrInvalidToken, err)
	}

	if claims.Kind != kind {
		return nil, fmt.Errorf(
			"%s token on %s route: %w",
			claims.Kind,
			kind,
			core.ErrInvalidTokenType,
		)
	}

	principal, err := g.resolver.ResolvePrincipal(
		r.Context(),
		kind,
		claims.PrincipalID,
	)
	if err != nil {
		return nil, err
	}

	if principal.Kind != kind {
		return nil, fmt.Errorf("resolved principal kind: %w", core.ErrInvalidTokenType)
	}

	if !principal.Active {
		return nil, core.ErrAccountDeactivated
	}

	return principal, nil
}

func (g *Guard) Require(kind identity.Kind) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := g.Authenticate(r, kind)
			if err != nil {
				slog.DebugContext(r.Context(), "authorization rejected",
					"kind", kind,
					"path", r.URL.Path,
					"error", err,
				)
				core.JSONError(w, err)
				return
			}

			ctx := identity.WithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (g *Guard) RequireAdmin(next http.Handler) http.Handler {
	return g.Require(identity.KindAdmin)(next)
}

func (g *Guard) RequireCustomer(next http.Handler) http.Handler {
	return g.Require(identity.KindCustomer)(next)
}

// Optional never rejects; the principal is set only when every check
// passes.
func (g *Guard) Optional(kind identity.Kind) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := g.Authenticate(r, kind)
			if err == nil {
				r = r.WithContext(identity.WithPrincipal(r.Context(), principal))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ExtractToken prefers the Authorization header over the cookie.
func ExtractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			if token := strings.TrimSpace(parts[1]); token != "" {
				return token
			}
		}
	}

	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return cookie.Value
	}

	return ""
}
