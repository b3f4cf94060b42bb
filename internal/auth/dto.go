// AngelaMos | 2026
// dto.go

package auth

import (
	"time"

	"github.com/carterperez-dev/storefront/backend/internal/identity"
)

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type CustomerRegisterRequest struct {
	Name     string `json:"name"     validate:"required,min=1,max=100"`
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72,bcryptlen"`
}

type AdminRegisterRequest struct {
	Name     string `json:"name"     validate:"omitempty,max=100"`
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72,bcryptlen"`
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type PrincipalResponse struct {
	ID        int64         `json:"id"`
	Kind      identity.Kind `json:"kind"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Active    bool          `json:"active"`
	CreatedAt time.Time     `json:"created_at"`
	LastLogin *time.Time    `json:"last_login,omitempty"`
}

func ToPrincipalResponse(p *identity.Principal) PrincipalResponse {
	return PrincipalResponse{
		ID:        p.ID,
		Kind:      p.Kind,
		Name:      p.Name,
		Email:     p.Email,
		Active:    p.Active,
		CreatedAt: p.CreatedAt,
		LastLogin: p.LastLogin,
	}
}

// Session is the result of a successful login, register or refresh. The
// refresh secret travels only in its cookie.
type Session struct {
	Principal        *identity.Principal
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	FamilyID         string
}

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type AuthResponse struct {
	Principal PrincipalResponse `json:"principal"`
	Tokens    TokenResponse     `json:"tokens"`
}

type SessionInfo struct {
	ID        string    `json:"id"`
	FamilyID  string    `json:"family_id"`
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Current   bool      `json:"current"`
}

type SessionsResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}

type CSRFResponse struct {
	Token string `json:"csrf_token"`
}
