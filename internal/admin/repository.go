// AngelaMos | 2026
// repository.go

package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carterperez-dev/storefront/backend/internal/core"
)

type Repository interface {
	Create(ctx context.Context, admin *Admin) error
	GetByID(ctx context.Context, id int64) (*Admin, error)
	GetByEmail(ctx context.Context, email string) (*Admin, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	SetActive(ctx context.Context, id int64, active bool) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, admin *Admin) error {
	query := `
		INSERT INTO admins (name, email, password_hash, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		admin.Name,
		admin.Email,
		admin.PasswordHash,
		admin.Active,
	).Scan(&admin.ID, &admin.CreatedAt, &admin.UpdatedAt)
	if err != nil {
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("create admin: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create admin: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Admin, error) {
	query := `
		SELECT id, name, email, password_hash, active,
		       created_at, updated_at, last_login
		FROM admins
		WHERE id = $1`

	var admin Admin
	err := r.db.GetContext(ctx, &admin, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get admin: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get admin: %w", err)
	}

	return &admin, nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*Admin, error) {
	query := `
		SELECT id, name, email, password_hash, active,
		       created_at, updated_at, last_login
		FROM admins
		WHERE email = $1`

	var admin Admin
	err := r.db.GetContext(ctx, &admin, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get admin by email: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get admin by email: %w", err)
	}

	return &admin, nil
}

func (r *repository) UpdatePassword(
	ctx context.Context,
	id int64,
	passwordHash string,
) error {
	query := `
		UPDATE admins
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update admin password: %w", err)
	}

	return requireRow(result, "update admin password")
}

func (r *repository) UpdateLastLogin(
	ctx context.Context,
	id int64,
	at time.Time,
) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE admins SET last_login = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("update admin last login: %w", err)
	}

	return requireRow(result, "update admin last login")
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	query := `
		UPDATE admins
		SET active = $2, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, active)
	if err != nil {
		return fmt.Errorf("set admin active: %w", err)
	}

	return requireRow(result, "set admin active")
}

func requireRow(result sql.Result, op string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return nil
}
