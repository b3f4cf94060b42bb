// AngelaMos | 2026
// entity.go

package auth

import (
	"fmt"
	"time"

	"github.com/carterperez-dev/storefront/backend/internal/identity"
)

// Owner identifies the principal a refresh token belongs to.
type Owner struct {
	Kind identity.Kind
	ID   int64
}

func (o Owner) String() string {
	return fmt.Sprintf("%s:%d", o.Kind, o.ID)
}

// ClientMeta is recorded on each refresh token for forensics only.
type ClientMeta struct {
	UserAgent string
	IPAddress string
}

type RefreshToken struct {
	ID           string     `db:"id"`
	AdminID      *int64     `db:"admin_id"`
	CustomerID   *int64     `db:"customer_id"`
	FamilyID     string     `db:"family_id"`
	TokenHash    string     `db:"token_hash"`
	UserAgent    string     `db:"user_agent"`
	IPAddress    string     `db:"ip_address"`
	CreatedAt    time.Time  `db:"created_at"`
	ExpiresAt    time.Time  `db:"expires_at"`
	RevokedAt    *time.Time `db:"revoked_at"`
	ReplacedByID *string    `db:"replaced_by_id"`
}

func newRefreshToken(
	id string,
	owner Owner,
	familyID, tokenHash string,
	meta ClientMeta,
	createdAt, expiresAt time.Time,
) (*RefreshToken, error) {
	t := &RefreshToken{
		ID:        id,
		FamilyID:  familyID,
		TokenHash: tokenHash,
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}

	ownerID := owner.ID
	switch owner.Kind {
	case identity.KindAdmin:
		t.AdminID = &ownerID
	case identity.KindCustomer:
		t.CustomerID = &ownerID
	default:
		return nil, fmt.Errorf("refresh token owner: unknown kind %q", owner.Kind)
	}

	return t, nil
}

// Owner fails when the row breaks the admin XOR customer rule.
func (t *RefreshToken) Owner() (Owner, error) {
	switch {
	case t.AdminID != nil && t.CustomerID == nil:
		return Owner{Kind: identity.KindAdmin, ID: *t.AdminID}, nil
	case t.CustomerID != nil && t.AdminID == nil:
		return Owner{Kind: identity.KindCustomer, ID: *t.CustomerID}, nil
	default:
		return Owner{}, fmt.Errorf(
			"refresh token %s: exactly one owner must be set",
			t.ID,
		)
	}
}

func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// ExpiredAt treats the expiry instant itself as expired.
func (t *RefreshToken) ExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func (t *RefreshToken) ActiveAt(now time.Time) bool {
	return !t.IsRevoked() && !t.ExpiredAt(now)
}
