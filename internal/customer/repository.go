// AngelaMos | 2026
// repository.go

package customer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carterperez-dev/storefront/backend/internal/core"
)

type Repository interface {
	Create(ctx context.Context, customer *Customer) error
	GetByID(ctx context.Context, id int64) (*Customer, error)
	GetByEmail(ctx context.Context, email string) (*Customer, error)
	Update(ctx context.Context, customer *Customer) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	SetActive(ctx context.Context, id int64, active bool) error
	List(ctx context.Context, params ListCustomersParams) ([]Customer, int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const customerColumns = `id, name, email, password_hash, active,
		       created_at, updated_at, last_login`

func (r *repository) Create(ctx context.Context, customer *Customer) error {
	query := `
		INSERT INTO customers (name, email, password_hash, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		customer.Name,
		customer.Email,
		customer.PasswordHash,
		customer.Active,
	).Scan(&customer.ID, &customer.CreatedAt, &customer.UpdatedAt)
	if err != nil {
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("create customer: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create customer: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Customer, error) {
	query := `SELECT ` + customerColumns + `
		FROM customers
		WHERE id = $1`

	var customer Customer
	err := r.db.GetContext(ctx, &customer, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get customer: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}

	return &customer, nil
}

func (r *repository) GetByEmail(
	ctx context.Context,
	email string,
) (*Customer, error) {
	query := `SELECT ` + customerColumns + `
		FROM customers
		WHERE email = $1`

	var customer Customer
	err := r.db.GetContext(ctx, &customer, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get customer by email: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get customer by email: %w", err)
	}

	return &customer, nil
}

func (r *repository) Update(ctx context.Context, customer *Customer) error {
	query := `
		UPDATE customers
		SET name = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &customer.UpdatedAt, query,
		customer.ID,
		customer.Name,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update customer: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}

	return nil
}

func (r *repository) UpdatePassword(
	ctx context.Context,
	id int64,
	passwordHash string,
) error {
	query := `
		UPDATE customers
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1`

	return r.execOne(ctx, "update password", query, id, passwordHash)
}

func (r *repository) UpdateLastLogin(
	ctx context.Context,
	id int64,
	at time.Time,
) error {
	query := `UPDATE customers SET last_login = $2 WHERE id = $1`

	return r.execOne(ctx, "update last login", query, id, at)
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	query := `
		UPDATE customers
		SET active = $2, updated_at = NOW()
		WHERE id = $1`

	return r.execOne(ctx, "set customer active", query, id, active)
}

func (r *repository) List(
	ctx context.Context,
	params ListCustomersParams,
) ([]Customer, int, error) {
	params.Normalize()

	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(email ILIKE $%d OR name ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIdx++
	}

	if params.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", argIdx))
		args = append(args, *params.Active)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf(
		"SELECT COUNT(*) FROM customers WHERE %s",
		whereClause,
	)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM customers
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		customerColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var customers []Customer
	if err := r.db.SelectContext(ctx, &customers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}

	return customers, total, nil
}

func (r *repository) execOne(
	ctx context.Context,
	op, query string,
	args ...any,
) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}

	return nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
