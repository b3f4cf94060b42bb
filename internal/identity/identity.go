// AngelaMos | 2026
// identity.go

// Package identity holds the principal model shared by the auth core and
// the handlers that consume it.
package identity

import (
	"context"
	"fmt"
	"time"
)

type Kind string

const (
	KindAdmin    Kind = "admin"
	KindCustomer Kind = "customer"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindAdmin:
		return KindAdmin, nil
	case KindCustomer:
		return KindCustomer, nil
	default:
		return "", fmt.Errorf("unknown principal kind %q", s)
	}
}

func (k Kind) String() string {
	return string(k)
}

// Principal is an admin or a customer, discriminated by Kind.
type Principal struct {
	Kind         Kind
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	LastLogin    *time.Time
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Kind == KindAdmin
}

func (p *Principal) IsCustomer() bool {
	return p != nil && p.Kind == KindCustomer
}

type contextKey string

const principalKey contextKey = "principal"

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}

func AdminFrom(ctx context.Context) (*Principal, bool) {
	p, ok := FromContext(ctx)
	if !ok || !p.IsAdmin() {
		return nil, false
	}
	return p, true
}

func CustomerFrom(ctx context.Context) (*Principal, bool) {
	p, ok := FromContext(ctx)
	if !ok || !p.IsCustomer() {
		return nil, false
	}
	return p, true
}
