// Package domain defines the interaction engine types and ports
package domain

import "time"

// InteractionStatus is the interaction lifecycle state
type InteractionStatus string

const (
	// StatusNew means classified but not matched by any automation
	StatusNew InteractionStatus = "new"
	// StatusQueued means a queue item exists for it
	StatusQueued InteractionStatus = "queued"
	// StatusAnswered means a reply was confirmed sent
	StatusAnswered InteractionStatus = "answered"
	// StatusIgnored means an automation decided no reply is warranted
	StatusIgnored InteractionStatus = "ignored"
)

// Interaction is one inbound social event after classification
type Interaction struct {
	ID            string
	Platform      string
	Account       string
	ExternalID    string // platform-side id of the comment/dm/mention
	ContentID     string // video/post the interaction belongs to, optional
	Kind          string // comment | dm | mention
	AuthorID      string
	AuthorIsOwner bool
	Text          string
	Category      string
	Priority      int
	Fingerprint   string
	Status        InteractionStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SubmitInput is one raw inbound interaction
type SubmitInput struct {
	Platform      string `json:"platform" validate:"required"`
	Account       string `json:"account" validate:"required"`
	ExternalID    string `json:"external_id" validate:"required"`
	ContentID     string `json:"content_id,omitempty"`
	Kind          string `json:"kind" validate:"required,oneof=comment dm mention"`
	AuthorID      string `json:"author_id,omitempty"`
	AuthorIsOwner bool   `json:"author_is_owner,omitempty"`
	Text          string `json:"text" validate:"required"`
}

// SubmitResult reports what the pipeline did with one interaction
type SubmitResult struct {
	InteractionID string    `json:"interaction_id"`
	Category      string    `json:"category"`
	Priority      int       `json:"priority"`
	Fingerprint   string    `json:"fingerprint"`
	Matched       bool      `json:"matched"`
	AutomationID  string    `json:"automation_id,omitempty"`
	QueueItemID   string    `json:"queue_item_id,omitempty"`
	ScheduledFor  time.Time `json:"scheduled_for,omitempty"`
}

// GenerateInput is the context handed to the response generator
type GenerateInput struct {
	Platform string
	Kind     string
	Text     string
	Category string
	Template string // optional template from the automation's action config
}
