// AngelaMos | 2026
// jwt.go

package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/carterperez-dev/storefront/backend/internal/config"
	"github.com/carterperez-dev/storefront/backend/internal/core"
	"github.com/carterperez-dev/storefront/backend/internal/identity"
	"github.com/carterperez-dev/storefront/backend/internal/middleware"
)

const (
	claimKind       = "kind"
	claimType       = "typ"
	tokenTypeAccess = "access"
)

type JWTManager struct {
	key      jwk.Key
	issuer   string
	audience string
	ttl      time.Duration
	clock    core.Clock
}

func NewJWTManager(cfg config.JWTConfig, clock core.Clock) (*JWTManager, error) {
	if len(cfg.Secret) < config.MinJWTSecretLength {
		return nil, fmt.Errorf(
			"jwt secret must be at least %d bytes, got %d",
			config.MinJWTSecretLength,
			len(cfg.Secret),
		)
	}

	key, err := jwk.Import([]byte(cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("import signing key: %w", err)
	}

	if clock == nil {
		clock = core.RealClock{}
	}

	ttl := cfg.AccessTTL()
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	return &JWTManager{
		key:      key,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      ttl,
		clock:    clock,
	}, nil
}

func (m *JWTManager) AccessTTL() time.Duration {
	return m.ttl
}

type AccessClaims struct {
	PrincipalID int64
	Kind        identity.Kind
	TokenID     string
	ExpiresAt   time.Time
}

// Issue signs an access token; a non-positive ttl falls back to the
// configured one.
func (m *JWTManager) Issue(
	principalID int64,
	kind identity.Kind,
	ttl time.Duration,
) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = m.ttl
	}

	now := m.clock.Now()
	expiresAt := now.Add(ttl)

	token, err := jwt.NewBuilder().
		JwtID(uuid.New().String()).
		Issuer(m.issuer).
		Audience([]string{m.audience}).
		Subject(strconv.FormatInt(principalID, 10)).
		IssuedAt(now).
		NotBefore(now).
		Expiration(expiresAt).
		Claim(claimKind, string(kind)).
		Claim(claimType, tokenTypeAccess).
		Build()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), m.key))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return string(signed), expiresAt, nil
}

// Verify fails with core.ErrInvalidToken for any signature, expiry or
// shape problem.
func (m *JWTManager) Verify(tokenString string) (*AccessClaims, error) {
	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(jwa.HS256(), m.key),
		jwt.WithValidate(true),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithClock(m.clock),
	)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w: %w", core.ErrInvalidToken, err)
	}

	var tokenType string
	if err := token.Get(claimType, &tokenType); err != nil ||
		tokenType != tokenTypeAccess {
		return nil, fmt.Errorf(
			"verify token: unexpected token type: %w",
			core.ErrInvalidToken,
		)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf(
			"verify token: missing subject: %w",
			core.ErrInvalidToken,
		)
	}

	principalID, err := strconv.ParseInt(subject, 10, 64)
	if err != nil || principalID < 0 {
		return nil, fmt.Errorf(
			"verify token: malformed subject: %w",
			core.ErrInvalidToken,
		)
	}

	var kindStr string
	if err := token.Get(claimKind, &kindStr); err != nil {
		return nil, fmt.Errorf(
			"verify token: missing kind claim: %w",
			core.ErrInvalidToken,
		)
	}

	kind, err := identity.ParseKind(kindStr)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w: %w", core.ErrInvalidToken, err)
	}

	claims := &AccessClaims{PrincipalID: principalID, Kind: kind}
	if jti, ok := token.JwtID(); ok {
		claims.TokenID = jti
	}
	if exp, ok := token.Expiration(); ok {
		claims.ExpiresAt = exp
	}

	return claims, nil
}

func (m *JWTManager) VerifyAccessToken(
	_ context.Context,
	tokenString string,
) (*middleware.AccessTokenClaims, error) {
	claims, err := m.Verify(tokenString)
	if err != nil {
		return nil, err
	}

	return &middleware.AccessTokenClaims{
		PrincipalID: claims.PrincipalID,
		Kind:        claims.Kind,
	}, nil
}

var _ middleware.TokenVerifier = (*JWTManager)(nil)
