// AngelaMos | 2026
// principals.go

package authtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/carterperez-dev/storefront/backend/internal/audit"
	"github.com/carterperez-dev/storefront/backend/internal/auth"
	"github.com/carterperez-dev/storefront/backend/internal/core"
	"github.com/carterperez-dev/storefront/backend/internal/identity"
)

// MemoryPrincipals is an in-memory PrincipalProvider for one kind.
type MemoryPrincipals struct {
	kind   identity.Kind
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*identity.Principal
}

func NewMemoryPrincipals(kind identity.Kind) *MemoryPrincipals {
	return &MemoryPrincipals{
		kind: kind,
		byID: make(map[int64]*identity.Principal),
	}
}

var _ auth.PrincipalProvider = (*MemoryPrincipals)(nil)

func (p *MemoryPrincipals) Kind() identity.Kind {
	return p.kind
}

func (p *MemoryPrincipals) GetByEmail(
	_ context.Context,
	email string,
) (*identity.Principal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, principal := range p.byID {
		if principal.Email == strings.ToLower(email) {
			c := *principal
			return &c, nil
		}
	}
	return nil, fmt.Errorf("get %s by email: %w", p.kind, core.ErrNotFound)
}

func (p *MemoryPrincipals) GetByID(
	_ context.Context,
	id int64,
) (*identity.Principal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	principal, ok := p.byID[id]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", p.kind, core.ErrNotFound)
	}
	c := *principal
	return &c, nil
}

func (p *MemoryPrincipals) Create(
	_ context.Context,
	name, email, passwordHash string,
) (*identity.Principal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	email = strings.ToLower(email)
	for _, existing := range p.byID {
		if existing.Email == email {
			return nil, fmt.Errorf("create %s: %w", p.kind, core.ErrDuplicateKey)
		}
	}

	p.nextID++
	principal := &identity.Principal{
		Kind:         p.kind,
		ID:           p.nextID,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	p.byID[principal.ID] = principal

	c := *principal
	return &c, nil
}

func (p *MemoryPrincipals) TouchLastLogin(
	_ context.Context,
	id int64,
	at time.Time,
) error {
	return p.update(id, func(principal *identity.Principal) {
		principal.LastLogin = &at
	})
}

func (p *MemoryPrincipals) UpdatePasswordHash(
	_ context.Context,
	id int64,
	passwordHash string,
) error {
	return p.update(id, func(principal *identity.Principal) {
		principal.PasswordHash = passwordHash
	})
}

func (p *MemoryPrincipals) SetActive(_ context.Context, id int64, active bool) error {
	return p.update(id, func(principal *identity.Principal) {
		principal.Active = active
	})
}

// Delete removes a principal outright, as if the row vanished.
func (p *MemoryPrincipals) Delete(id int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.byID, id)
}

func (p *MemoryPrincipals) update(id int64, fn func(*identity.Principal)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	principal, ok := p.byID[id]
	if !ok {
		return fmt.Errorf("update %s: %w", p.kind, core.ErrNotFound)
	}
	fn(principal)
	return nil
}

// RecordingPublisher keeps every published audit event.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *RecordingPublisher) Publish(_ context.Context, event audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *RecordingPublisher) Close() error {
	return nil
}

func (r *RecordingPublisher) Types() []audit.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()

	types := make([]audit.EventType, 0, len(r.events))
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}
