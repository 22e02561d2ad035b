package clock

import "time"

//go:generate mockgen -package=mocks -destination=mocks/mock_clock.go github.com/dropspot/dropspot-api/internal/pkg/clock Clock
type Clock interface {
	Now() time.Time
}

// DefaultClock implements the Clock interface using the system clock in UTC.
type DefaultClock struct{}

func New() *DefaultClock {
	return &DefaultClock{}
}

func (c *DefaultClock) Now() time.Time {
	return time.Now().UTC()
}
