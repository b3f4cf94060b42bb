// AngelaMos | 2026
// repository.go

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/storefront/backend/internal/core"
	"github.com/carterperez-dev/storefront/backend/internal/identity"
)

// RefreshStore persists refresh token records. All mutual exclusion for
// rotation is pushed into ConditionalRevoke.
type RefreshStore interface {
	FindByTokenHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	Create(ctx context.Context, token *RefreshToken) error
	// ConditionalRevoke reports false when the row was already revoked.
	ConditionalRevoke(ctx context.Context, id string, now time.Time) (bool, error)
	LinkSuccessor(ctx context.Context, id, successorID string) error
	RevokeFamily(ctx context.Context, familyID string, now time.Time) (int64, error)
	RevokeAllForPrincipal(
		ctx context.Context,
		owner Owner,
		now time.Time,
	) (int64, error)
	ActiveSessions(
		ctx context.Context,
		owner Owner,
		now time.Time,
	) ([]RefreshToken, error)
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
	InTx(ctx context.Context, fn func(tx RefreshStore) error) error
}

const refreshColumns = `
	id, admin_id, customer_id, family_id, token_hash, user_agent, ip_address,
	created_at, expires_at, revoked_at, replaced_by_id`

type repository struct {
	db *sqlx.DB
	q  core.DBTX
}

func NewRepository(db *sqlx.DB) RefreshStore {
	return &repository{db: db, q: db}
}

func (r *repository) InTx(
	ctx context.Context,
	fn func(tx RefreshStore) error,
) error {
	if r.db == nil {
		return fn(r)
	}

	return core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return fn(&repository{q: tx})
	})
}

func (r *repository) FindByTokenHash(
	ctx context.Context,
	tokenHash string,
) (*RefreshToken, error) {
	query := `SELECT ` + refreshColumns + `
		FROM refresh_tokens
		WHERE token_hash = $1`

	var token RefreshToken
	err := r.q.GetContext(ctx, &token, query, tokenHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find refresh token: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}

	return &token, nil
}

func (r *repository) Create(ctx context.Context, token *RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (
			id, admin_id, customer_id, family_id, token_hash,
			user_agent, ip_address, created_at, expires_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)`

	_, err := r.q.ExecContext(ctx, query,
		token.ID,
		token.AdminID,
		token.CustomerID,
		token.FamilyID,
		token.TokenHash,
		token.UserAgent,
		token.IPAddress,
		token.CreatedAt,
		token.ExpiresAt,
	)
	if err != nil {
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("create refresh token: token hash collision: %w", err)
		}
		if core.IsForeignKeyViolation(err) {
			return fmt.Errorf("create refresh token: owner missing: %w", core.ErrNotFound)
		}
		return fmt.Errorf("create refresh token: %w", err)
	}

	return nil
}

func (r *repository) ConditionalRevoke(
	ctx context.Context,
	id string,
	now time.Time,
) (bool, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $2
		WHERE id = $1 AND revoked_at IS NULL`

	result, err := r.q.ExecContext(ctx, query, id, now)
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}

	return rows == 1, nil
}

func (r *repository) LinkSuccessor(
	ctx context.Context,
	id, successorID string,
) error {
	query := `
		UPDATE refresh_tokens
		SET replaced_by_id = $2
		WHERE id = $1 AND replaced_by_id IS NULL`

	result, err := r.q.ExecContext(ctx, query, id, successorID)
	if err != nil {
		return fmt.Errorf("link refresh successor: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("link refresh successor: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("link refresh successor: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) RevokeFamily(
	ctx context.Context,
	familyID string,
	now time.Time,
) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $2
		WHERE family_id = $1 AND revoked_at IS NULL`

	result, err := r.q.ExecContext(ctx, query, familyID, now)
	if err != nil {
		return 0, fmt.Errorf("revoke token family: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("revoke token family: %w", err)
	}

	return rows, nil
}

func ownerColumn(kind identity.Kind) (string, error) {
	switch kind {
	case identity.KindAdmin:
		return "admin_id", nil
	case identity.KindCustomer:
		return "customer_id", nil
	default:
		return "", fmt.Errorf("unknown principal kind %q", kind)
	}
}

func (r *repository) RevokeAllForPrincipal(
	ctx context.Context,
	owner Owner,
	now time.Time,
) (int64, error) {
	column, err := ownerColumn(owner.Kind)
	if err != nil {
		return 0, fmt.Errorf("revoke principal tokens: %w", err)
	}

	query := `
		UPDATE refresh_tokens
		SET revoked_at = $2
		WHERE ` + column + ` = $1 AND revoked_at IS NULL`

	result, err := r.q.ExecContext(ctx, query, owner.ID, now)
	if err != nil {
		return 0, fmt.Errorf("revoke principal tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("revoke principal tokens: %w", err)
	}

	return rows, nil
}

func (r *repository) ActiveSessions(
	ctx context.Context,
	owner Owner,
	now time.Time,
) ([]RefreshToken, error) {
	column, err := ownerColumn(owner.Kind)
	if err != nil {
		return nil, fmt.Errorf("get active sessions: %w", err)
	}

	query := `SELECT ` + refreshColumns + `
		FROM refresh_tokens
		WHERE ` + column + ` = $1
			AND revoked_at IS NULL
			AND expires_at > $2
		ORDER BY created_at DESC`

	var tokens []RefreshToken
	if err := r.q.SelectContext(ctx, &tokens, query, owner.ID, now); err != nil {
		return nil, fmt.Errorf("get active sessions: %w", err)
	}

	return tokens, nil
}

func (r *repository) DeleteExpired(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE expires_at < $1`

	result, err := r.q.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}

	return rows, nil
}
