// AngelaMos | 2026
// entity.go

package admin

import (
	"time"

	"github.com/carterperez-dev/storefront/backend/internal/identity"
)

type Admin struct {
	ID           int64      `db:"id"`
	Name         string     `db:"name"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"`
	Active       bool       `db:"active"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	LastLogin    *time.Time `db:"last_login"`
}

func (a *Admin) Principal() *identity.Principal {
	return &identity.Principal{
		Kind:         identity.KindAdmin,
		ID:           a.ID,
		Name:         a.Name,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		Active:       a.Active,
		CreatedAt:    a.CreatedAt,
		LastLogin:    a.LastLogin,
	}
}
