// Package domain defines the delivery queue types and ports
package domain

import "time"

// Status is the queue item lifecycle state.
// pending -> processing -> {sent | pending(retry) | failed}; failed is terminal
type Status string

const (
	// StatusPending means the item waits for its scheduled time
	StatusPending Status = "pending"
	// StatusProcessing means a dispatcher holds the claim
	StatusProcessing Status = "processing"
	// StatusSent means delivery was confirmed
	StatusSent Status = "sent"
	// StatusFailed means the retry budget is exhausted or the error was permanent
	StatusFailed Status = "failed"
)

// Item is one pending delivery action
type Item struct {
	ID            string
	InteractionID string
	AutomationID  string // empty when no automation owns the item
	Platform      string
	Account       string
	ExternalID    string // platform-side id of the target interaction
	ContentID     string // optional content scope, used for per-content limits
	Action        string // reply | moderate | archive
	Payload       string // rendered response or action payload
	Priority      int
	ScheduledFor  time.Time
	Status        Status
	RetryCount    int
	LastErrorCode int
	LastError     string
	BatchID       string // items dispatched together share one, observability only
	LeasedBy      string
	LeaseExpires  time.Time
	SentAt        time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewItem is the enqueue input
type NewItem struct {
	InteractionID string
	AutomationID  string
	Platform      string
	Account       string
	ExternalID    string
	ContentID     string
	Action        string
	Payload       string
	Priority      int
	ScheduledFor  time.Time
}

// DeadLetter mirrors a terminally failed item for operator visibility
type DeadLetter struct {
	ID            string
	QueueItemID   string
	Platform      string
	ExternalID    string
	Reason        string
	ErrorCode     int
	CreatedAt     time.Time
}

// DeadLetterFilter narrows the operator listing
type DeadLetterFilter struct {
	Platform string `json:"platform,omitempty"`
	Limit    int    `json:"limit,omitempty" validate:"omitempty,min=1,max=500"`
}

// Stats are per-status counts, optionally scoped to one platform
type Stats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
}

// RetryPolicy controls the failure lifecycle
type RetryPolicy struct {
	MaxRetries int
	Base       time.Duration
	Cap        time.Duration
}

// NextBackoff doubles the base per attempt and caps the result
func (p RetryPolicy) NextBackoff(attempt int) time.Duration {
	base := p.Base
	if base <= 0 {
		base = time.Second
	}
	capAt := p.Cap
	if capAt <= 0 {
		capAt = 30 * time.Minute
	}
	d := base << uint(attempt)
	if d <= 0 || d > capAt { // shift overflow guard
		return capAt
	}
	return d
}
