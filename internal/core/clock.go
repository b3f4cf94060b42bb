// AngelaMos | 2026
// clock.go

package core

import "time"

// Clock is injected wherever expiry is compared so tests can pin time.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now().UTC()
}

var _ Clock = RealClock{}
