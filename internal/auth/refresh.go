// AngelaMos | 2026
// refresh.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/carterperez-dev/storefront/backend/internal/core"
)

const DefaultRefreshTTL = 7 * 24 * time.Hour

type IssuedRefresh struct {
	Token     string
	FamilyID  string
	ExpiresAt time.Time
	TTL       time.Duration
}

type Rotation struct {
	Token     string
	FamilyID  string
	ExpiresAt time.Time
	TTL       time.Duration
	Owner     Owner
}

// RefreshManager issues, rotates and revokes families of refresh tokens.
// It holds no mutable state of its own.
type RefreshManager struct {
	store RefreshStore
	clock core.Clock
	ttl   time.Duration
}

func NewRefreshManager(
	store RefreshStore,
	clock core.Clock,
	ttl time.Duration,
) *RefreshManager {
	if clock == nil {
		clock = core.RealClock{}
	}
	if ttl <= 0 {
		ttl = DefaultRefreshTTL
	}
	return &RefreshManager{store: store, clock: clock, ttl: ttl}
}

func (m *RefreshManager) TTL() time.Duration {
	return m.ttl
}

func (m *RefreshManager) Issue(
	ctx context.Context,
	owner Owner,
	meta ClientMeta,
) (*IssuedRefresh, error) {
	ctx, span := tracer.Start(ctx, "auth.refresh.issue",
		trace.WithAttributes(attribute.String("principal.kind", string(owner.Kind))))
	defer span.End()

	familyID := uuid.New().String()

	plaintext, token, err := m.mint(owner, familyID, meta)
	if err != nil {
		core.FailSpan(span, err)
		return nil, err
	}

	if err := m.store.Create(ctx, token); err != nil {
		core.FailSpan(span, err)
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	span.SetAttributes(attribute.String("refresh.family_id", familyID))

	return &IssuedRefresh{
		Token:     plaintext,
		FamilyID:  familyID,
		ExpiresAt: token.ExpiresAt,
		TTL:       m.ttl,
	}, nil
}

// Rotate spends the presented token and returns its successor. A token
// that was already spent burns its whole family before the error returns.
func (m *RefreshManager) Rotate(
	ctx context.Context,
	plaintext string,
	meta ClientMeta,
) (*Rotation, error) {
	ctx, span := tracer.Start(ctx, "auth.refresh.rotate")
	defer span.End()

	current, err := m.FindByPlaintext(ctx, plaintext)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			recordFailure(ctx, "invalid_refresh_token")
			span.SetStatus(codes.Error, "refresh token not found")
			return nil, core.ErrInvalidRefreshToken
		}
		core.FailSpan(span, err)
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	span.SetAttributes(attribute.String("refresh.family_id", current.FamilyID))

	owner, err := current.Owner()
	if err != nil {
		core.FailSpan(span, err)
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	if current.IsRevoked() {
		return nil, m.reuseDetected(ctx, span, current.FamilyID)
	}

	now := m.clock.Now()
	if current.ExpiredAt(now) {
		recordFailure(ctx, "refresh_token_expired")
		span.SetStatus(codes.Error, "refresh token expired")
		return nil, core.ErrRefreshTokenExpired
	}

	newPlaintext, successor, err := m.mint(owner, current.FamilyID, meta)
	if err != nil {
		core.FailSpan(span, err)
		return nil, err
	}

	lostRace := false
	err = m.store.InTx(ctx, func(tx RefreshStore) error {
		revoked, err := tx.ConditionalRevoke(ctx, current.ID, now)
		if err != nil {
			return err
		}
		if !revoked {
			lostRace = true
			return core.ErrRefreshTokenReuse
		}

		if err := tx.Create(ctx, successor); err != nil {
			return err
		}

		return tx.LinkSuccessor(ctx, current.ID, successor.ID)
	})
	if lostRace {
		return nil, m.reuseDetected(ctx, span, current.FamilyID)
	}
	if err != nil {
		core.FailSpan(span, err)
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	refreshRotationsTotal.Add(ctx, 1)

	return &Rotation{
		Token:     newPlaintext,
		FamilyID:  current.FamilyID,
		ExpiresAt: successor.ExpiresAt,
		TTL:       m.ttl,
		Owner:     owner,
	}, nil
}

func (m *RefreshManager) reuseDetected(
	ctx context.Context,
	span trace.Span,
	familyID string,
) error {
	refreshReuseTotal.Add(ctx, 1)
	recordFailure(ctx, "refresh_token_reuse")
	span.SetStatus(codes.Error, "refresh token reuse detected")

	if _, err := m.RevokeFamily(ctx, familyID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: revoke family: %w", core.ErrRefreshTokenReuse, err)
	}

	return core.ErrRefreshTokenReuse
}

// RevokeFamily revokes every live token in the family and reports how many
// rows changed. Calling it again is a no-op.
func (m *RefreshManager) RevokeFamily(
	ctx context.Context,
	familyID string,
) (int64, error) {
	ctx, span := tracer.Start(ctx, "auth.refresh.revoke_family",
		trace.WithAttributes(attribute.String("refresh.family_id", familyID)))
	defer span.End()

	n, err := m.store.RevokeFamily(ctx, familyID, m.clock.Now())
	if err != nil {
		core.FailSpan(span, err)
		return 0, fmt.Errorf("revoke refresh family: %w", err)
	}

	span.SetAttributes(attribute.Int64("refresh.revoked", n))
	return n, nil
}

func (m *RefreshManager) FindByPlaintext(
	ctx context.Context,
	plaintext string,
) (*RefreshToken, error) {
	if plaintext == "" {
		return nil, core.ErrNotFound
	}
	return m.store.FindByTokenHash(ctx, core.HashToken(plaintext))
}

func (m *RefreshManager) RevokeAllForPrincipal(
	ctx context.Context,
	owner Owner,
) (int64, error) {
	n, err := m.store.RevokeAllForPrincipal(ctx, owner, m.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("revoke principal sessions: %w", err)
	}
	return n, nil
}

func (m *RefreshManager) ActiveSessions(
	ctx context.Context,
	owner Owner,
) ([]RefreshToken, error) {
	return m.store.ActiveSessions(ctx, owner, m.clock.Now())
}

// PruneExpired deletes rows that expired more than grace ago.
func (m *RefreshManager) PruneExpired(
	ctx context.Context,
	grace time.Duration,
) (int64, error) {
	return m.store.DeleteExpired(ctx, m.clock.Now().Add(-grace))
}

// RunPruner calls PruneExpired every interval until ctx is done.
func (m *RefreshManager) RunPruner(
	ctx context.Context,
	every time.Duration,
	grace time.Duration,
	logger *slog.Logger,
) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.PruneExpired(ctx, grace)
			if err != nil {
				if ctx.Err() == nil {
					logger.WarnContext(ctx, "prune expired refresh tokens", "error", err)
				}
				continue
			}
			if n > 0 {
				logger.InfoContext(ctx, "pruned expired refresh tokens", "count", n)
			}
		}
	}
}

func (m *RefreshManager) mint(
	owner Owner,
	familyID string,
	meta ClientMeta,
) (string, *RefreshToken, error) {
	plaintext, err := core.GenerateRefreshToken()
	if err != nil {
		return "", nil, fmt.Errorf("generate refresh token: %w", err)
	}

	now := m.clock.Now()
	token, err := newRefreshToken(
		uuid.New().String(),
		owner,
		familyID,
		core.HashToken(plaintext),
		meta,
		now,
		now.Add(m.ttl),
	)
	if err != nil {
		return "", nil, err
	}

	return plaintext, token, nil
}
