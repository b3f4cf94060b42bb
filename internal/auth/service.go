// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/carterperez-dev/storefront/backend/internal/audit"
	"github.com/carterperez-dev/storefront/backend/internal/core"
	"github.com/carterperez-dev/storefront/backend/internal/identity"
	"github.com/carterperez-dev/storefront/backend/internal/middleware"
)

// PrincipalProvider is implemented once per principal kind.
type PrincipalProvider interface {
	Kind() identity.Kind
	GetByEmail(ctx context.Context, email string) (*identity.Principal, error)
	GetByID(ctx context.Context, id int64) (*identity.Principal, error)
	Create(
		ctx context.Context,
		name, email, passwordHash string,
	) (*identity.Principal, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error
	SetActive(ctx context.Context, id int64, active bool) error
}

type Service struct {
	jwt       *JWTManager
	refresh   *RefreshManager
	hasher    *core.PasswordHasher
	events    audit.Publisher
	clock     core.Clock
	providers map[identity.Kind]PrincipalProvider
}

func NewService(
	jwt *JWTManager,
	refresh *RefreshManager,
	hasher *core.PasswordHasher,
	events audit.Publisher,
	clock core.Clock,
	providers ...PrincipalProvider,
) *Service {
	if clock == nil {
		clock = core.RealClock{}
	}
	if events == nil {
		events = audit.NewLogPublisher(nil)
	}

	byKind := make(map[identity.Kind]PrincipalProvider, len(providers))
	for _, p := range providers {
		byKind[p.Kind()] = p
	}

	return &Service{
		jwt:       jwt,
		refresh:   refresh,
		hasher:    hasher,
		events:    events,
		clock:     clock,
		providers: byKind,
	}
}

func (s *Service) provider(kind identity.Kind) (PrincipalProvider, error) {
	p, ok := s.providers[kind]
	if !ok {
		return nil, fmt.Errorf("no principal provider for kind %q", kind)
	}
	return p, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(
	ctx context.Context,
	kind identity.Kind,
	in RegisterInput,
	meta ClientMeta,
) (*Session, error) {
	provider, err := s.provider(kind)
	if err != nil {
		return nil, err
	}

	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	principal, err := provider.Create(ctx, name, email, passwordHash)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, core.DuplicateError("email")
		}
		return nil, fmt.Errorf("create %s: %w", kind, err)
	}

	s.touchLastLogin(ctx, provider, principal)

	session, err := s.startSession(ctx, principal, meta)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "principal registered",
		"kind", kind,
		"principal_id", principal.ID,
	)
	s.publish(ctx, audit.EventRegister, principal, session.FamilyID, meta)

	return session, nil
}

// Login answers CredentialsInvalid for unknown email and wrong password
// alike. Deactivation is only revealed after a correct password.
func (s *Service) Login(
	ctx context.Context,
	kind identity.Kind,
	email, password string,
	meta ClientMeta,
) (*Session, error) {
	provider, err := s.provider(kind)
	if err != nil {
		return nil, err
	}

	principal, err := provider.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			s.hasher.VerifyTimingSafe(password, nil)
			s.loginFailed(ctx, kind, 0, meta)
			return nil, core.ErrCredentialsInvalid
		}
		return nil, fmt.Errorf("get %s: %w", kind, err)
	}

	if !s.hasher.VerifyTimingSafe(password, &principal.PasswordHash) {
		s.loginFailed(ctx, kind, principal.ID, meta)
		return nil, core.ErrCredentialsInvalid
	}

	if !principal.Active {
		recordFailure(ctx, "account_deactivated")
		return nil, core.ErrAccountDeactivated
	}

	if s.hasher.NeedsRehash(principal.PasswordHash) {
		if newHash, err := s.hasher.Hash(password); err == nil {
			if err := provider.UpdatePasswordHash(ctx, principal.ID, newHash); err != nil {
				slog.WarnContext(ctx, "password rehash failed",
					"kind", kind,
					"principal_id", principal.ID,
					"error", err,
				)
			}
		}
	}

	s.touchLastLogin(ctx, provider, principal)

	session, err := s.startSession(ctx, principal, meta)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, audit.EventLogin, principal, session.FamilyID, meta)
	return session, nil
}

// Refresh rotates the presented refresh token and mints a new access token
// for its owner. An owner that vanished or was deactivated loses the
// whole family.
func (s *Service) Refresh(
	ctx context.Context,
	plaintext string,
	meta ClientMeta,
) (*Session, error) {
	rotation, err := s.refresh.Rotate(ctx, plaintext, meta)
	if err != nil {
		if errors.Is(err, core.ErrRefreshTokenReuse) {
			slog.WarnContext(ctx, "refresh token reuse detected",
				"ip_address", meta.IPAddress,
				"user_agent", meta.UserAgent,
			)
			s.publishEvent(ctx, audit.Event{
				Type:      audit.EventRefreshReuseDetected,
				IPAddress: meta.IPAddress,
				UserAgent: meta.UserAgent,
			})
		}
		return nil, err
	}

	provider, err := s.provider(rotation.Owner.Kind)
	if err != nil {
		return nil, err
	}

	principal, err := provider.GetByID(ctx, rotation.Owner.ID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			s.burnFamily(ctx, rotation.FamilyID)
		}
		return nil, fmt.Errorf("resolve refresh owner: %w", err)
	}

	if !principal.Active {
		s.burnFamily(ctx, rotation.FamilyID)
		return nil, core.ErrAccountDeactivated
	}

	s.touchLastLogin(ctx, provider, principal)

	accessToken, accessExpiresAt, err := s.jwt.Issue(
		principal.ID,
		principal.Kind,
		s.jwt.AccessTTL(),
	)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	s.publish(ctx, audit.EventRefresh, principal, rotation.FamilyID, meta)

	return &Session{
		Principal:        principal,
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiresAt,
		RefreshToken:     rotation.Token,
		RefreshExpiresAt: rotation.ExpiresAt,
		FamilyID:         rotation.FamilyID,
	}, nil
}

// Logout revokes the family of the presented token. Unknown tokens are
// ignored so logout is always safe to repeat.
func (s *Service) Logout(
	ctx context.Context,
	plaintext string,
	meta ClientMeta,
) error {
	token, err := s.refresh.FindByPlaintext(ctx, plaintext)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("find refresh token: %w", err)
	}

	if _, err := s.refresh.RevokeFamily(ctx, token.FamilyID); err != nil {
		return err
	}

	event := audit.Event{
		Type:      audit.EventLogout,
		FamilyID:  token.FamilyID,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	if owner, err := token.Owner(); err == nil {
		event.PrincipalKind = owner.Kind
		event.PrincipalID = owner.ID
	}
	s.publishEvent(ctx, event)

	return nil
}

func (s *Service) LogoutAll(
	ctx context.Context,
	principal *identity.Principal,
	meta ClientMeta,
) (int64, error) {
	n, err := s.refresh.RevokeAllForPrincipal(ctx, ownerOf(principal))
	if err != nil {
		return 0, err
	}

	s.publish(ctx, audit.EventLogoutAll, principal, "", meta)
	return n, nil
}

// Sessions lists live refresh tokens; the one matching currentPlaintext is
// flagged as the caller's own.
func (s *Service) Sessions(
	ctx context.Context,
	principal *identity.Principal,
	currentPlaintext string,
) ([]SessionInfo, error) {
	tokens, err := s.refresh.ActiveSessions(ctx, ownerOf(principal))
	if err != nil {
		return nil, fmt.Errorf("get sessions: %w", err)
	}

	currentHash := ""
	if currentPlaintext != "" {
		currentHash = core.HashToken(currentPlaintext)
	}

	sessions := make([]SessionInfo, 0, len(tokens))
	for _, t := range tokens {
		sessions = append(sessions, SessionInfo{
			ID:        t.ID,
			FamilyID:  t.FamilyID,
			UserAgent: t.UserAgent,
			IPAddress: t.IPAddress,
			CreatedAt: t.CreatedAt,
			ExpiresAt: t.ExpiresAt,
			Current:   core.ConstantTimeEqual(t.TokenHash, currentHash),
		})
	}

	return sessions, nil
}

// SetActive flips the active flag. Deactivation also revokes every refresh
// token the principal holds.
func (s *Service) SetActive(
	ctx context.Context,
	kind identity.Kind,
	id int64,
	active bool,
) (*identity.Principal, error) {
	provider, err := s.provider(kind)
	if err != nil {
		return nil, err
	}

	if err := provider.SetActive(ctx, id, active); err != nil {
		return nil, fmt.Errorf("set %s active: %w", kind, err)
	}

	principal, err := provider.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", kind, err)
	}

	if !active {
		n, err := s.refresh.RevokeAllForPrincipal(ctx, ownerOf(principal))
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "principal deactivated",
			"kind", kind,
			"principal_id", id,
			"revoked_tokens", n,
		)
		s.publish(ctx, audit.EventPrincipalDeactivated, principal, "", ClientMeta{})
	}

	return principal, nil
}

func (s *Service) ResolvePrincipal(
	ctx context.Context,
	kind identity.Kind,
	id int64,
) (*identity.Principal, error) {
	provider, err := s.provider(kind)
	if err != nil {
		return nil, err
	}
	return provider.GetByID(ctx, id)
}

func (s *Service) startSession(
	ctx context.Context,
	principal *identity.Principal,
	meta ClientMeta,
) (*Session, error) {
	accessToken, accessExpiresAt, err := s.jwt.Issue(
		principal.ID,
		principal.Kind,
		s.jwt.AccessTTL(),
	)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	issued, err := s.refresh.Issue(ctx, ownerOf(principal), meta)
	if err != nil {
		return nil, err
	}

	return &Session{
		Principal:        principal,
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiresAt,
		RefreshToken:     issued.Token,
		RefreshExpiresAt: issued.ExpiresAt,
		FamilyID:         issued.FamilyID,
	}, nil
}

func (s *Service) touchLastLogin(
	ctx context.Context,
	provider PrincipalProvider,
	principal *identity.Principal,
) {
	now := s.clock.Now()
	if err := provider.TouchLastLogin(ctx, principal.ID, now); err != nil {
		slog.WarnContext(ctx, "update last login failed",
			"kind", principal.Kind,
			"principal_id", principal.ID,
			"error", err,
		)
		return
	}
	principal.LastLogin = &now
}

func (s *Service) burnFamily(ctx context.Context, familyID string) {
	if _, err := s.refresh.RevokeFamily(ctx, familyID); err != nil {
		slog.ErrorContext(ctx, "revoke refresh family failed",
			"family_id", familyID,
			"error", err,
		)
	}
}

func (s *Service) loginFailed(
	ctx context.Context,
	kind identity.Kind,
	id int64,
	meta ClientMeta,
) {
	recordFailure(ctx, "credentials_invalid")
	s.publishEvent(ctx, audit.Event{
		Type:          audit.EventLoginFailed,
		PrincipalKind: kind,
		PrincipalID:   id,
		IPAddress:     meta.IPAddress,
		UserAgent:     meta.UserAgent,
	})
}

func (s *Service) publish(
	ctx context.Context,
	eventType audit.EventType,
	principal *identity.Principal,
	familyID string,
	meta ClientMeta,
) {
	s.publishEvent(ctx, audit.Event{
		Type:          eventType,
		PrincipalKind: principal.Kind,
		PrincipalID:   principal.ID,
		FamilyID:      familyID,
		IPAddress:     meta.IPAddress,
		UserAgent:     meta.UserAgent,
	})
}

func (s *Service) publishEvent(ctx context.Context, event audit.Event) {
	event.OccurredAt = s.clock.Now()
	if err := s.events.Publish(ctx, event); err != nil {
		slog.ErrorContext(ctx, "publish audit event failed",
			"type", event.Type,
			"error", err,
		)
	}
}

func ownerOf(p *identity.Principal) Owner {
	return Owner{Kind: p.Kind, ID: p.ID}
}

var _ middleware.PrincipalResolver = (*Service)(nil)
