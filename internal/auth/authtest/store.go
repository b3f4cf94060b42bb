// AngelaMos | 2026
// store.go

// Package authtest provides an in-memory RefreshStore for tests.
package authtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/carterperez-dev/storefront/backend/internal/auth"
	"github.com/carterperez-dev/storefront/backend/internal/core"
)

type MemoryRefreshStore struct {
	txMu sync.Mutex
	mu   sync.Mutex
	rows map[string]*auth.RefreshToken

	// BeforeConditionalRevoke runs ahead of the conditional update so a
	// test can interleave a competing writer.
	BeforeConditionalRevoke func(id string)
}

func NewMemoryRefreshStore() *MemoryRefreshStore {
	return &MemoryRefreshStore{rows: make(map[string]*auth.RefreshToken)}
}

func clone(t *auth.RefreshToken) *auth.RefreshToken {
	c := *t
	if t.RevokedAt != nil {
		at := *t.RevokedAt
		c.RevokedAt = &at
	}
	if t.ReplacedByID != nil {
		id := *t.ReplacedByID
		c.ReplacedByID = &id
	}
	return &c
}

func (s *MemoryRefreshStore) FindByTokenHash(
	_ context.Context,
	tokenHash string,
) (*auth.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.rows {
		if row.TokenHash == tokenHash {
			return clone(row), nil
		}
	}
	return nil, fmt.Errorf("find refresh token: %w", core.ErrNotFound)
}

func (s *MemoryRefreshStore) Create(
	_ context.Context,
	token *auth.RefreshToken,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.rows {
		if row.TokenHash == token.TokenHash {
			return fmt.Errorf("create refresh token: token hash collision")
		}
	}
	if _, exists := s.rows[token.ID]; exists {
		return fmt.Errorf("create refresh token: %w", core.ErrDuplicateKey)
	}

	s.rows[token.ID] = clone(token)
	return nil
}

func (s *MemoryRefreshStore) ConditionalRevoke(
	_ context.Context,
	id string,
	now time.Time,
) (bool, error) {
	if s.BeforeConditionalRevoke != nil {
		s.BeforeConditionalRevoke(id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok || row.RevokedAt != nil {
		return false, nil
	}
	row.RevokedAt = &now
	return true, nil
}

func (s *MemoryRefreshStore) LinkSuccessor(
	_ context.Context,
	id, successorID string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok || row.ReplacedByID != nil {
		return fmt.Errorf("link refresh successor: %w", core.ErrNotFound)
	}
	row.ReplacedByID = &successorID
	return nil
}

func (s *MemoryRefreshStore) RevokeFamily(
	_ context.Context,
	familyID string,
	now time.Time,
) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, row := range s.rows {
		if row.FamilyID == familyID && row.RevokedAt == nil {
			at := now
			row.RevokedAt = &at
			n++
		}
	}
	return n, nil
}

func owns(row *auth.RefreshToken, owner auth.Owner) bool {
	o, err := row.Owner()
	return err == nil && o == owner
}

func (s *MemoryRefreshStore) RevokeAllForPrincipal(
	_ context.Context,
	owner auth.Owner,
	now time.Time,
) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, row := range s.rows {
		if owns(row, owner) && row.RevokedAt == nil {
			at := now
			row.RevokedAt = &at
			n++
		}
	}
	return n, nil
}

func (s *MemoryRefreshStore) ActiveSessions(
	_ context.Context,
	owner auth.Owner,
	now time.Time,
) ([]auth.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []auth.RefreshToken
	for _, row := range s.rows {
		if owns(row, owner) && row.ActiveAt(now) {
			out = append(out, *clone(row))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryRefreshStore) DeleteExpired(
	_ context.Context,
	cutoff time.Time,
) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, row := range s.rows {
		if row.ExpiresAt.Before(cutoff) {
			delete(s.rows, id)
			n++
		}
	}
	return n, nil
}

// InTx serialises transactions and restores the previous rows when fn
// fails.
func (s *MemoryRefreshStore) InTx(
	_ context.Context,
	fn func(tx auth.RefreshStore) error,
) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snapshot := s.snapshot()
	if err := fn(s); err != nil {
		s.mu.Lock()
		s.rows = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *MemoryRefreshStore) snapshot() map[string]*auth.RefreshToken {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]*auth.RefreshToken, len(s.rows))
	for id, row := range s.rows {
		out[id] = clone(row)
	}
	return out
}

// Get returns a copy of the row with id.
func (s *MemoryRefreshStore) Get(id string) (*auth.RefreshToken, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return nil, false
	}
	return clone(row), true
}

func (s *MemoryRefreshStore) Family(familyID string) []auth.RefreshToken {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []auth.RefreshToken
	for _, row := range s.rows {
		if row.FamilyID == familyID {
			out = append(out, *clone(row))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *MemoryRefreshStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

var _ auth.RefreshStore = (*MemoryRefreshStore)(nil)
