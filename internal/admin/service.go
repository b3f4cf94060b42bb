// AngelaMos | 2026
// service.go

package admin

import (
	"context"
	"strings"
	"time"

	"github.com/carterperez-dev/storefront/backend/internal/auth"
	"github.com/carterperez-dev/storefront/backend/internal/identity"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

var _ auth.PrincipalProvider = (*Service)(nil)

func (s *Service) Kind() identity.Kind {
	return identity.KindAdmin
}

func (s *Service) GetByID(
	ctx context.Context,
	id int64,
) (*identity.Principal, error) {
	admin, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return admin.Principal(), nil
}

func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*identity.Principal, error) {
	admin, err := s.repo.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, err
	}

	return admin.Principal(), nil
}

func (s *Service) Create(
	ctx context.Context,
	name, email, passwordHash string,
) (*identity.Principal, error) {
	admin := &Admin{
		Name:         name,
		Email:        strings.ToLower(email),
		PasswordHash: passwordHash,
		Active:       true,
	}

	if err := s.repo.Create(ctx, admin); err != nil {
		return nil, err
	}

	return admin.Principal(), nil
}

func (s *Service) TouchLastLogin(
	ctx context.Context,
	id int64,
	at time.Time,
) error {
	return s.repo.UpdateLastLogin(ctx, id, at)
}

func (s *Service) UpdatePasswordHash(
	ctx context.Context,
	id int64,
	passwordHash string,
) error {
	return s.repo.UpdatePassword(ctx, id, passwordHash)
}

func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}

func (s *Service) GetAdmin(ctx context.Context, id int64) (*Admin, error) {
	return s.repo.GetByID(ctx, id)
}
