// AngelaMos | 2026
// jwt_test.go

package auth_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/storefront/backend/internal/auth"
	"github.com/carterperez-dev/storefront/backend/internal/config"
	"github.com/carterperez-dev/storefront/backend/internal/core"
	"github.com/carterperez-dev/storefront/backend/internal/core/coretest"
	"github.com/carterperez-dev/storefront/backend/internal/identity"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            testSecret,
		AccessTokenExpire: 15 * time.Minute,
		Issuer:            "storefront",
		Audience:          "storefront-api",
	}
}

func newJWT(t *testing.T, clock core.Clock) *auth.JWTManager {
	t.Helper()
	m, err := auth.NewJWTManager(testJWTConfig(), clock)
	require.NoError(t, err)
	return m
}

func TestJWTRoundTrip(t *testing.T) {
	clock := coretest.NewFakeClock(epoch)
	m := newJWT(t, clock)

	token, expiresAt, err := m.Issue(7, identity.KindAdmin, 0)
	require.NoError(t, err)
	assert.Equal(t, epoch.Add(15*time.Minute), expiresAt)
	assert.Len(t, strings.Split(token, "."), 3)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.PrincipalID)
	assert.Equal(t, identity.KindAdmin, claims.Kind)
	assert.NotEmpty(t, claims.TokenID)
	assert.True(t, expiresAt.Equal(claims.ExpiresAt))
}

func TestJWTVerifyAccessTokenAdaptsClaims(t *testing.T) {
	m := newJWT(t, coretest.NewFakeClock(epoch))

	token, _, err := m.Issue(99, identity.KindCustomer, time.Minute)
	require.NoError(t, err)

	claims, err := m.VerifyAccessToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, int64(99), claims.PrincipalID)
	assert.Equal(t, identity.KindCustomer, claims.Kind)
}

func TestJWTExpiredTokenRejected(t *testing.T) {
	clock := coretest.NewFakeClock(epoch)
	m := newJWT(t, clock)

	token, _, err := m.Issue(7, identity.KindCustomer, time.Minute)
	require.NoError(t, err)

	clock.Advance(time.Minute + time.Second)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestJWTRejectsShortSecret(t *testing.T) {
	cfg := testJWTConfig()
	cfg.Secret = "too-short"

	_, err := auth.NewJWTManager(cfg, nil)
	assert.Error(t, err)
}

func TestJWTRejectsTamperedToken(t *testing.T) {
	m := newJWT(t, coretest.NewFakeClock(epoch))

	token, _, err := m.Issue(7, identity.KindAdmin, 0)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = m.Verify(tampered)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestJWTRejectsOtherSecret(t *testing.T) {
	clock := coretest.NewFakeClock(epoch)
	m := newJWT(t, clock)

	cfg := testJWTConfig()
	cfg.Secret = strings.Repeat("z", 32)
	other, err := auth.NewJWTManager(cfg, clock)
	require.NoError(t, err)

	token, _, err := other.Issue(7, identity.KindAdmin, 0)
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestJWTRejectsMalformedInput(t *testing.T) {
	m := newJWT(t, coretest.NewFakeClock(epoch))

	for _, input := range []string{"", "garbage", "a.b.c"} {
		_, err := m.Verify(input)
		assert.ErrorIs(t, err, core.ErrInvalidToken, "input %q", input)
	}
}

func TestJWTRejectsWrongTokenType(t *testing.T) {
	m := newJWT(t, coretest.NewFakeClock(epoch))

	signWith := func(t *testing.T, typ, kind string) string {
		t.Helper()
		token, err := jwt.NewBuilder().
			Issuer("storefront").
			Audience([]string{"storefront-api"}).
			Subject("7").
			IssuedAt(epoch).
			Expiration(epoch.Add(time.Minute)).
			Claim("typ", typ).
			Claim("kind", kind).
			Build()
		require.NoError(t, err)

		signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), []byte(testSecret)))
		require.NoError(t, err)
		return string(signed)
	}

	_, err := m.Verify(signWith(t, "refresh", "admin"))
	assert.ErrorIs(t, err, core.ErrInvalidToken)

	_, err = m.Verify(signWith(t, "access", "superuser"))
	assert.ErrorIs(t, err, core.ErrInvalidToken)

	_, err = m.Verify(signWith(t, "access", "admin"))
	assert.NoError(t, err)
}
