// Package clock abstracts time so expiry boundaries are testable.
package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// Module provides the system clock.
var Module = fx.Module("clock",
	fx.Provide(NewSystemClock),
)

type systemClock struct{}

// NewSystemClock returns a Clock backed by time.Now in UTC.
func NewSystemClock() Clock {
	return &systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}
