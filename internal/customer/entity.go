// AngelaMos | 2026
// entity.go

package customer

import (
	"time"

	"github.com/carterperez-dev/storefront/backend/internal/identity"
)

type Customer struct {
	ID           int64      `db:"id"`
	Name         string     `db:"name"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"`
	Active       bool       `db:"active"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	LastLogin    *time.Time `db:"last_login"`
}

func (c *Customer) Principal() *identity.Principal {
	return &identity.Principal{
		Kind:         identity.KindCustomer,
		ID:           c.ID,
		Name:         c.Name,
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		Active:       c.Active,
		CreatedAt:    c.CreatedAt,
		LastLogin:    c.LastLogin,
	}
}
