// AngelaMos | 2026
// clock.go

// Package coretest provides test doubles for the core package.
package coretest

import (
	"sync"
	"time"

	"github.com/carterperez-dev/storefront/backend/internal/core"
)

// FakeClock is a deterministic, advanceable clock.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{current: t}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}

var _ core.Clock = (*FakeClock)(nil)
