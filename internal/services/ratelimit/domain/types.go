// Package domain defines platform rate limiting types and ports
package domain

import (
	"context"
	"time"
)

// Rule is the delivery ceiling for one platform. Zero values disable the
// corresponding check
type Rule struct {
	PerMinute   int
	PerHour     int
	MinInterval time.Duration
}

// Decision is the outcome of TryAcquire. RetryAt is only meaningful when
// Allowed is false: the earliest instant a retry could succeed
type Decision struct {
	Allowed bool
	RetryAt time.Time
}

// Window is the persisted counter state for one platform+account pair
type Window struct {
	Platform    string
	Account     string
	MinuteStart time.Time
	MinuteCount int
	HourStart   time.Time
	HourCount   int
	LastSentAt  time.Time
}

// LimiterPort decides whether one delivery may go out right now. An allowed
// acquire consumes budget immediately; a denied one consumes nothing
type LimiterPort interface {
	TryAcquire(ctx context.Context, platform, account string, now time.Time) (Decision, error)
}
