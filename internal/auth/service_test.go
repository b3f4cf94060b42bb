// AngelaMos | 2026
// service_test.go

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/carterperez-dev/storefront/backend/internal/audit"
	"github.com/carterperez-dev/storefront/backend/internal/auth"
	"github.com/carterperez-dev/storefront/backend/internal/auth/authtest"
	"github.com/carterperez-dev/storefront/backend/internal/core"
	"github.com/carterperez-dev/storefront/backend/internal/core/coretest"
	"github.com/carterperez-dev/storefront/backend/internal/identity"
)

type fixture struct {
	svc       *auth.Service
	jwt       *auth.JWTManager
	refresh   *auth.RefreshManager
	store     *authtest.MemoryRefreshStore
	admins    *authtest.MemoryPrincipals
	customers *authtest.MemoryPrincipals
	events    *authtest.RecordingPublisher
	clock     *coretest.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := coretest.NewFakeClock(epoch)
	hasher, err := core.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)

	jwtManager := newJWT(t, clock)
	store := authtest.NewMemoryRefreshStore()
	refresh := auth.NewRefreshManager(store, clock, 7*24*time.Hour)
	admins := authtest.NewMemoryPrincipals(identity.KindAdmin)
	customers := authtest.NewMemoryPrincipals(identity.KindCustomer)
	events := &authtest.RecordingPublisher{}

	return &fixture{
		svc: auth.NewService(
			jwtManager,
			refresh,
			hasher,
			events,
			clock,
			admins,
			customers,
		),
		jwt:       jwtManager,
		refresh:   refresh,
		store:     store,
		admins:    admins,
		customers: customers,
		events:    events,
		clock:     clock,
	}
}

func (f *fixture) register(
	t *testing.T,
	kind identity.Kind,
	email string,
) *auth.Session {
	t.Helper()
	session, err := f.svc.Register(context.Background(), kind, auth.RegisterInput{
		Email:    email,
		Password: "Abcdefg1",
	}, meta)
	require.NoError(t, err)
	return session
}

func TestRegisterStartsSession(t *testing.T) {
	f := newFixture(t)

	session := f.register(t, identity.KindAdmin, "  A@X.com ")

	assert.Equal(t, "a@x.com", session.Principal.Email)
	assert.Equal(t, "a", session.Principal.Name)
	assert.Equal(t, identity.KindAdmin, session.Principal.Kind)
	assert.NotEqual(t, "Abcdefg1", session.Principal.PasswordHash)

	claims, err := f.jwt.Verify(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.Principal.ID, claims.PrincipalID)
	assert.Equal(t, identity.KindAdmin, claims.Kind)

	assert.NotEmpty(t, session.RefreshToken)
	assert.Len(t, f.store.Family(session.FamilyID), 1)

	stored, err := f.admins.GetByID(context.Background(), session.Principal.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLogin)
	assert.Equal(t, epoch, *stored.LastLogin)

	assert.Equal(t, []audit.EventType{audit.EventRegister}, f.events.Types())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, identity.KindCustomer, "c@x.com")

	_, err := f.svc.Register(context.Background(), identity.KindCustomer, auth.RegisterInput{
		Name:     "Other",
		Email:    "C@X.COM",
		Password: "Abcdefg1",
	}, meta)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDuplicateKey)
	assert.Equal(t, "DUPLICATE", core.FromError(err).Code)
}

func TestSameEmailAcrossKindsIsIndependent(t *testing.T) {
	f := newFixture(t)

	a := f.register(t, identity.KindAdmin, "same@x.com")
	c := f.register(t, identity.KindCustomer, "same@x.com")

	assert.Equal(t, identity.KindAdmin, a.Principal.Kind)
	assert.Equal(t, identity.KindCustomer, c.Principal.Kind)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	f.register(t, identity.KindCustomer, "c@x.com")
	ctx := context.Background()

	_, unknownErr := f.svc.Login(ctx, identity.KindCustomer, "nobody@x.com", "Abcdefg1", meta)
	_, wrongErr := f.svc.Login(ctx, identity.KindCustomer, "c@x.com", "wrong-password", meta)

	assert.ErrorIs(t, unknownErr, core.ErrCredentialsInvalid)
	assert.ErrorIs(t, wrongErr, core.ErrCredentialsInvalid)
	assert.Equal(t, core.FromError(unknownErr), core.FromError(wrongErr))
}

func TestLoginWrongKindIsUnknownAccount(t *testing.T) {
	f := newFixture(t)
	f.register(t, identity.KindCustomer, "c@x.com")

	_, err := f.svc.Login(context.Background(), identity.KindAdmin, "c@x.com", "Abcdefg1", meta)
	assert.ErrorIs(t, err, core.ErrCredentialsInvalid)
}

func TestLoginDeactivatedAfterCorrectPassword(t *testing.T) {
	f := newFixture(t)
	s := f.register(t, identity.KindCustomer, "c@x.com")
	ctx := context.Background()

	require.NoError(t, f.customers.SetActive(ctx, s.Principal.ID, false))

	_, err := f.svc.Login(ctx, identity.KindCustomer, "c@x.com", "Abcdefg1", meta)
	assert.ErrorIs(t, err, core.ErrAccountDeactivated)

	_, err = f.svc.Login(ctx, identity.KindCustomer, "c@x.com", "nope-nope", meta)
	assert.ErrorIs(t, err, core.ErrCredentialsInvalid)
}

func TestLoginUpdatesLastLogin(t *testing.T) {
	f := newFixture(t)
	s := f.register(t, identity.KindCustomer, "c@x.com")
	ctx := context.Background()

	f.clock.Advance(time.Hour)
	session, err := f.svc.Login(ctx, identity.KindCustomer, "c@x.com", "Abcdefg1", meta)
	require.NoError(t, err)
	assert.NotEqual(t, s.FamilyID, session.FamilyID)

	stored, err := f.customers.GetByID(ctx, s.Principal.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLogin)
	assert.Equal(t, epoch.Add(time.Hour), *stored.LastLogin)
}

func TestRefreshRotatesAndIssuesAccessToken(t *testing.T) {
	f := newFixture(t)
	s := f.register(t, identity.KindAdmin, "a@x.com")
	ctx := context.Background()

	f.clock.Advance(time.Minute)
	next, err := f.svc.Refresh(ctx, s.RefreshToken, meta)
	require.NoError(t, err)

	assert.Equal(t, s.FamilyID, next.FamilyID)
	assert.NotEqual(t, s.RefreshToken, next.RefreshToken)
	assert.Equal(t, epoch.Add(time.Minute+15*time.Minute), next.AccessExpiresAt)

	claims, err := f.jwt.Verify(next.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, s.Principal.ID, claims.PrincipalID)

	_, err = f.svc.Refresh(ctx, s.RefreshToken, meta)
	assert.ErrorIs(t, err, core.ErrRefreshTokenReuse)

	_, err = f.svc.Refresh(ctx, next.RefreshToken, meta)
	assert.ErrorIs(t, err, core.ErrRefreshTokenReuse)

	assert.Contains(t, f.events.Types(), audit.EventRefreshReuseDetected)
}

func TestRefreshDeactivatedOwnerBurnsFamily(t *testing.T) {
	f := newFixture(t)
	s := f.register(t, identity.KindCustomer, "c@x.com")
	ctx := context.Background()

	require.NoError(t, f.customers.SetActive(ctx, s.Principal.ID, false))

	_, err := f.svc.Refresh(ctx, s.RefreshToken, meta)
	assert.ErrorIs(t, err, core.ErrAccountDeactivated)

	for _, row := range f.store.Family(s.FamilyID) {
		assert.True(t, row.IsRevoked())
	}
}

func TestRefreshMissingOwnerBurnsFamily(t *testing.T) {
	f := newFixture(t)
	s := f.register(t, identity.KindCustomer, "c@x.com")
	ctx := context.Background()

	f.customers.Delete(s.Principal.ID)

	_, err := f.svc.Refresh(ctx, s.RefreshToken, meta)
	assert.ErrorIs(t, err, core.ErrNotFound)

	for _, row := range f.store.Family(s.FamilyID) {
		assert.True(t, row.IsRevoked())
	}
}

func TestLogoutRevokesFamilyAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	s := f.register(t, identity.KindCustomer, "c@x.com")
	ctx := context.Background()

	require.NoError(t, f.svc.Logout(ctx, s.RefreshToken, meta))
	require.NoError(t, f.svc.Logout(ctx, s.RefreshToken, meta))
	require.NoError(t, f.svc.Logout(ctx, "never-issued", meta))

	_, err := f.svc.Refresh(ctx, s.RefreshToken, meta)
	assert.ErrorIs(t, err, core.ErrRefreshTokenReuse)
}

func TestSessionsFlagsCurrent(t *testing.T) {
	f := newFixture(t)
	first := f.register(t, identity.KindCustomer, "c@x.com")
	ctx := context.Background()

	f.clock.Advance(time.Second)
	second, err := f.svc.Login(ctx, identity.KindCustomer, "c@x.com", "Abcdefg1", meta)
	require.NoError(t, err)

	sessions, err := f.svc.Sessions(ctx, first.Principal, second.RefreshToken)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	current := 0
	for _, s := range sessions {
		if s.Current {
			current++
			assert.Equal(t, second.FamilyID, s.FamilyID)
		}
	}
	assert.Equal(t, 1, current)
}

func TestLogoutAllRevokesEveryFamily(t *testing.T) {
	f := newFixture(t)
	first := f.register(t, identity.KindCustomer, "c@x.com")
	ctx := context.Background()

	second, err := f.svc.Login(ctx, identity.KindCustomer, "c@x.com", "Abcdefg1", meta)
	require.NoError(t, err)

	n, err := f.svc.LogoutAll(ctx, first.Principal, meta)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = f.svc.Refresh(ctx, second.RefreshToken, meta)
	assert.ErrorIs(t, err, core.ErrRefreshTokenReuse)
}

func TestSetActiveFalseRevokesTokens(t *testing.T) {
	f := newFixture(t)
	s := f.register(t, identity.KindCustomer, "c@x.com")
	ctx := context.Background()

	principal, err := f.svc.SetActive(ctx, identity.KindCustomer, s.Principal.ID, false)
	require.NoError(t, err)
	assert.False(t, principal.Active)

	for _, row := range f.store.Family(s.FamilyID) {
		assert.True(t, row.IsRevoked())
	}
	assert.Contains(t, f.events.Types(), audit.EventPrincipalDeactivated)

	principal, err = f.svc.SetActive(ctx, identity.KindCustomer, s.Principal.ID, true)
	require.NoError(t, err)
	assert.True(t, principal.Active)
}

func TestResolvePrincipal(t *testing.T) {
	f := newFixture(t)
	s := f.register(t, identity.KindAdmin, "a@x.com")
	ctx := context.Background()

	p, err := f.svc.ResolvePrincipal(ctx, identity.KindAdmin, s.Principal.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", p.Email)

	_, err = f.svc.ResolvePrincipal(ctx, identity.KindCustomer, s.Principal.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
