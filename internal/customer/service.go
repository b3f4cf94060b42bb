// AngelaMos | 2026
// service.go

package customer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/carterperez-dev/storefront/backend/internal/auth"
	"github.com/carterperez-dev/storefront/backend/internal/core"
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
	return identity.KindCustomer
}

func (s *Service) GetByID(
	ctx context.Context,
	id int64,
) (*identity.Principal, error) {
	customer, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return customer.Principal(), nil
}

func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*identity.Principal, error) {
	customer, err := s.repo.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, err
	}

	return customer.Principal(), nil
}

func (s *Service) Create(
	ctx context.Context,
	name, email, passwordHash string,
) (*identity.Principal, error) {
	customer := &Customer{
		Name:         name,
		Email:        strings.ToLower(email),
		PasswordHash: passwordHash,
		Active:       true,
	}

	if err := s.repo.Create(ctx, customer); err != nil {
		return nil, err
	}

	return customer.Principal(), nil
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

func (s *Service) GetCustomer(ctx context.Context, id int64) (*Customer, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateCustomer(
	ctx context.Context,
	id int64,
	req UpdateCustomerRequest,
) (*Customer, error) {
	customer, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		customer.Name = strings.TrimSpace(*req.Name)
	}

	if err := s.repo.Update(ctx, customer); err != nil {
		return nil, err
	}

	return customer, nil
}

func (s *Service) ListCustomers(
	ctx context.Context,
	params ListCustomersParams,
) ([]Customer, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) GetMe(ctx context.Context, customerID int64) (*Customer, error) {
	if customerID <= 0 {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	return s.repo.GetByID(ctx, customerID)
}

func (s *Service) UpdateMe(
	ctx context.Context,
	customerID int64,
	req UpdateCustomerRequest,
) (*Customer, error) {
	if customerID <= 0 {
		return nil, fmt.Errorf("update me: %w", core.ErrUnauthorized)
	}

	return s.UpdateCustomer(ctx, customerID, req)
}
