// AngelaMos | 2026
// repository_test.go

package customer

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/storefront/backend/internal/core"
)

var created = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})

	return NewRepository(sqlx.NewDb(db, "pgx")), mock
}

func customerRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "email", "password_hash", "active",
		"created_at", "updated_at", "last_login",
	})
}

func TestCreateAssignsID(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO customers")).
		WithArgs("Cee", "c@x.com", "digest", true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(11), created, created))

	c := &Customer{Name: "Cee", Email: "c@x.com", PasswordHash: "digest", Active: true}
	require.NoError(t, repo.Create(context.Background(), c))
	assert.Equal(t, int64(11), c.ID)
	assert.Equal(t, created, c.CreatedAt)
}

func TestCreateDuplicateEmail(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO customers")).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &Customer{Email: "c@x.com"})
	assert.ErrorIs(t, err, core.ErrDuplicateKey)
}

func TestGetByEmail(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE email = $1")).
		WithArgs("c@x.com").
		WillReturnRows(customerRows().
			AddRow(int64(11), "Cee", "c@x.com", "digest", true, created, created, nil))

	c, err := repo.GetByEmail(context.Background(), "c@x.com")
	require.NoError(t, err)
	assert.Equal(t, int64(11), c.ID)
	assert.Nil(t, c.LastLogin)
	assert.Equal(t, int64(11), c.Principal().ID)
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1")).
		WithArgs(int64(404)).
		WillReturnRows(customerRows())

	_, err := repo.GetByID(context.Background(), 404)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSetActiveMissingRow(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("SET active = $2")).
		WithArgs(int64(404), false).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetActive(context.Background(), 404, false)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestUpdateLastLogin(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("SET last_login = $2")).
		WithArgs(int64(11), created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.UpdateLastLogin(context.Background(), 11, created))
}

func TestListFiltersAndPaginates(t *testing.T) {
	repo, mock := newMockRepo(t)
	active := true

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM customers")).
		WithArgs(`%50\%%`, true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("LIMIT $3 OFFSET $4")).
		WithArgs(`%50\%%`, true, 10, 10).
		WillReturnRows(customerRows().
			AddRow(int64(11), "Cee", "c@x.com", "digest", true, created, created, nil))

	customers, total, err := repo.List(context.Background(), ListCustomersParams{
		Page:     2,
		PageSize: 10,
		Search:   "50%",
		Active:   &active,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, customers, 1)
	assert.Equal(t, "c@x.com", customers[0].Email)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `a\%b\_c\\d`, escapeLike(`a%b_c\d`))
}
