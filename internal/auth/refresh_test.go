// AngelaMos | 2026
// refresh_test.go

package auth_test

import (
	"context"
	"encoding/base64"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/storefront/backend/internal/auth"
	"github.com/carterperez-dev/storefront/backend/internal/auth/authtest"
	"github.com/carterperez-dev/storefront/backend/internal/core"
	"github.com/carterperez-dev/storefront/backend/internal/core/coretest"
	"github.com/carterperez-dev/storefront/backend/internal/identity"
)

var (
	epoch    = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	customer = auth.Owner{Kind: identity.KindCustomer, ID: 42}
	meta     = auth.ClientMeta{UserAgent: "test-agent", IPAddress: "203.0.113.7"}
)

func newManager(t *testing.T) (
	*auth.RefreshManager,
	*authtest.MemoryRefreshStore,
	*coretest.FakeClock,
) {
	t.Helper()
	store := authtest.NewMemoryRefreshStore()
	clock := coretest.NewFakeClock(epoch)
	return auth.NewRefreshManager(store, clock, 7*24*time.Hour), store, clock
}

func TestIssueStoresDigestOnly(t *testing.T) {
	mgr, store, _ := newManager(t)
	ctx := context.Background()

	issued, err := mgr.Issue(ctx, customer, meta)
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(issued.Token)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(raw), 48)

	assert.Equal(t, epoch.Add(7*24*time.Hour), issued.ExpiresAt)
	assert.Equal(t, 7*24*time.Hour, issued.TTL)

	rows := store.Family(issued.FamilyID)
	require.Len(t, rows, 1)
	assert.Equal(t, core.HashToken(issued.Token), rows[0].TokenHash)
	assert.NotEqual(t, issued.Token, rows[0].TokenHash)
	assert.Equal(t, "test-agent", rows[0].UserAgent)

	owner, err := rows[0].Owner()
	require.NoError(t, err)
	assert.Equal(t, customer, owner)
}

func TestIssueStartsNewFamilyEachTime(t *testing.T) {
	mgr, _, _ := newManager(t)
	ctx := context.Background()

	a, err := mgr.Issue(ctx, customer, meta)
	require.NoError(t, err)
	b, err := mgr.Issue(ctx, customer, meta)
	require.NoError(t, err)

	assert.NotEqual(t, a.FamilyID, b.FamilyID)
	assert.NotEqual(t, a.Token, b.Token)
}

func TestRotateSucceedsExactlyOnce(t *testing.T) {
	mgr, store, clock := newManager(t)
	ctx := context.Background()

	issued, err := mgr.Issue(ctx, customer, meta)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	rotated, err := mgr.Rotate(ctx, issued.Token, meta)
	require.NoError(t, err)
	assert.NotEqual(t, issued.Token, rotated.Token)
	assert.Equal(t, issued.FamilyID, rotated.FamilyID)
	assert.Equal(t, customer, rotated.Owner)

	clock.Advance(time.Minute)
	_, err = mgr.Rotate(ctx, issued.Token, meta)
	require.ErrorIs(t, err, core.ErrRefreshTokenReuse)

	for _, row := range store.Family(issued.FamilyID) {
		assert.True(t, row.IsRevoked(), "row %s should be revoked", row.ID)
	}

	_, err = mgr.Rotate(ctx, rotated.Token, meta)
	require.ErrorIs(t, err, core.ErrRefreshTokenReuse)
}

func TestRotateLinksSuccessorInSameFamily(t *testing.T) {
	mgr, store, clock := newManager(t)
	ctx := context.Background()

	issued, err := mgr.Issue(ctx, customer, meta)
	require.NoError(t, err)

	clock.Advance(time.Second)
	rotated, err := mgr.Rotate(ctx, issued.Token, auth.ClientMeta{UserAgent: "next"})
	require.NoError(t, err)

	old, err := mgr.FindByPlaintext(ctx, issued.Token)
	require.NoError(t, err)
	next, err := mgr.FindByPlaintext(ctx, rotated.Token)
	require.NoError(t, err)

	require.NotNil(t, old.ReplacedByID)
	assert.Equal(t, next.ID, *old.ReplacedByID)
	require.NotNil(t, old.RevokedAt)
	assert.Equal(t, clock.Now(), *old.RevokedAt)

	assert.Equal(t, old.FamilyID, next.FamilyID)
	assert.False(t, next.IsRevoked())
	assert.Nil(t, next.ReplacedByID)
	assert.Equal(t, "next", next.UserAgent)
	assert.Equal(t, 2, store.Len())
}

func TestReuseContainmentAcrossChain(t *testing.T) {
	mgr, store, clock := newManager(t)
	ctx := context.Background()

	a, err := mgr.Issue(ctx, customer, meta)
	require.NoError(t, err)

	clock.Advance(time.Second)
	b, err := mgr.Rotate(ctx, a.Token, meta)
	require.NoError(t, err)

	clock.Advance(time.Second)
	c, err := mgr.Rotate(ctx, b.Token, meta)
	require.NoError(t, err)

	clock.Advance(time.Second)
	_, err = mgr.Rotate(ctx, a.Token, meta)
	require.ErrorIs(t, err, core.ErrRefreshTokenReuse)

	family := store.Family(a.FamilyID)
	require.Len(t, family, 3)
	for _, row := range family {
		assert.True(t, row.IsRevoked())
	}

	for _, plaintext := range []string{b.Token, c.Token} {
		_, err = mgr.Rotate(ctx, plaintext, meta)
		assert.ErrorIs(t, err, core.ErrRefreshTokenReuse)
	}
}

func TestReuseLeavesOtherFamiliesAlone(t *testing.T) {
	mgr, store, clock := newManager(t)
	ctx := context.Background()

	victim, err := mgr.Issue(ctx, customer, meta)
	require.NoError(t, err)
	other, err := mgr.Issue(ctx, customer, meta)
	require.NoError(t, err)

	clock.Advance(time.Second)
	_, err = mgr.Rotate(ctx, victim.Token, meta)
	require.NoError(t, err)
	_, err = mgr.Rotate(ctx, victim.Token, meta)
	require.ErrorIs(t, err, core.ErrRefreshTokenReuse)

	for _, row := range store.Family(other.FamilyID) {
		assert.False(t, row.IsRevoked())
	}
}

func TestRotateUnknownToken(t *testing.T) {
	mgr, store, _ := newManager(t)
	ctx := context.Background()

	for _, plaintext := range []string{"", "not-a-real-token"} {
		_, err := mgr.Rotate(ctx, plaintext, meta)
		assert.ErrorIs(t, err, core.ErrInvalidRefreshToken)
	}
	assert.Zero(t, store.Len())
}

func TestRotateExpiryBoundary(t *testing.T) {
	tests := []struct {
		name    string
		offset  time.Duration
		wantErr error
	}{
		{"one second before expiry", -time.Second, nil},
		{"exactly at expiry", 0, core.ErrRefreshTokenExpired},
		{"after expiry", time.Hour, core.ErrRefreshTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr, store, clock := newManager(t)
			ctx := context.Background()

			issued, err := mgr.Issue(ctx, customer, meta)
			require.NoError(t, err)

			clock.Set(issued.ExpiresAt.Add(tt.offset))
			_, err = mgr.Rotate(ctx, issued.Token, meta)

			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, tt.wantErr)
			assert.NotErrorIs(t, err, core.ErrRefreshTokenReuse)
			for _, row := range store.Family(issued.FamilyID) {
				assert.False(t, row.IsRevoked())
			}
		})
	}
}

func TestRotateLosingRaceIsReuse(t *testing.T) {
	mgr, store, clock := newManager(t)
	ctx := context.Background()

	issued, err := mgr.Issue(ctx, customer, meta)
	require.NoError(t, err)
	clock.Advance(time.Second)

	// a competing rotation commits between our read and our update
	store.BeforeConditionalRevoke = func(id string) {
		store.BeforeConditionalRevoke = nil
		ok, err := store.ConditionalRevoke(ctx, id, clock.Now())
		require.NoError(t, err)
		require.True(t, ok)
	}

	_, err = mgr.Rotate(ctx, issued.Token, meta)
	require.ErrorIs(t, err, core.ErrRefreshTokenReuse)

	family := store.Family(issued.FamilyID)
	require.Len(t, family, 1, "no successor may be created")
	assert.True(t, family[0].IsRevoked())
	assert.Nil(t, family[0].ReplacedByID)
}

func TestRevokeFamilyIdempotent(t *testing.T) {
	mgr, store, clock := newManager(t)
	ctx := context.Background()

	issued, err := mgr.Issue(ctx, customer, meta)
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = mgr.Rotate(ctx, issued.Token, meta)
	require.NoError(t, err)

	clock.Advance(time.Second)
	n, err := mgr.RevokeFamily(ctx, issued.FamilyID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	first := store.Family(issued.FamilyID)

	clock.Advance(time.Minute)
	n, err = mgr.RevokeFamily(ctx, issued.FamilyID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, first, store.Family(issued.FamilyID))
}

func TestActiveSessionsAndRevokeAll(t *testing.T) {
	mgr, _, clock := newManager(t)
	ctx := context.Background()
	admin := auth.Owner{Kind: identity.KindAdmin, ID: 42}

	_, err := mgr.Issue(ctx, customer, meta)
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = mgr.Issue(ctx, customer, meta)
	require.NoError(t, err)
	_, err = mgr.Issue(ctx, admin, meta)
	require.NoError(t, err)

	sessions, err := mgr.ActiveSessions(ctx, customer)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	n, err := mgr.RevokeAllForPrincipal(ctx, customer)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	sessions, err = mgr.ActiveSessions(ctx, customer)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	sessions, err = mgr.ActiveSessions(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, sessions, 1, "same numeric id of another kind is a different owner")
}

func TestPruneExpired(t *testing.T) {
	mgr, store, clock := newManager(t)
	ctx := context.Background()

	_, err := mgr.Issue(ctx, customer, meta)
	require.NoError(t, err)

	clock.Advance(8 * 24 * time.Hour)
	_, err = mgr.Issue(ctx, customer, meta)
	require.NoError(t, err)

	n, err := mgr.PruneExpired(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	clock.Advance(24 * time.Hour)
	n, err = mgr.PruneExpired(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, store.Len())
}

func TestRunPrunerStopsWithContext(t *testing.T) {
	mgr, store, clock := newManager(t)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := mgr.Issue(ctx, customer, meta)
	require.NoError(t, err)
	clock.Advance(30 * 24 * time.Hour)

	done := make(chan struct{})
	go func() {
		defer close(done)
		mgr.RunPruner(ctx, 5*time.Millisecond, time.Hour, slog.New(slog.DiscardHandler))
	}()

	require.Eventually(t, func() bool { return store.Len() == 0 },
		time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pruner did not stop after cancel")
	}
}
