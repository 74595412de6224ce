// Package domain defines automation types and the ports the matcher and
// schedule evaluator depend on
package domain

import "fanflow/internal/core/classify"

// System automations occupy the reserved priority band [1,2] and always sort
// ahead of custom automations (priority >= 3)
const (
	SystemPriorityMin = 1
	SystemPriorityMax = 2
	CustomPriorityMin = 3
)

// InteractionKind is the inbound event type an automation can scope to
type InteractionKind string

const (
	// KindComment is a public comment on content
	KindComment InteractionKind = "comment"
	// KindDM is a direct message
	KindDM InteractionKind = "dm"
	// KindMention is a mention of the account elsewhere
	KindMention InteractionKind = "mention"
)

// ActionType is the action family an automation delivers
type ActionType string

const (
	// ActionReply posts a generated reply to the interaction
	ActionReply ActionType = "reply"
	// ActionModerate hides or removes the interaction
	ActionModerate ActionType = "moderate"
	// ActionArchive moves the interaction out of the active inbox
	ActionArchive ActionType = "archive"
)

// ConditionKind tags the condition variant
type ConditionKind string

const (
	// CondCategoryIs matches the classifier category against Value
	CondCategoryIs ConditionKind = "category_is"
	// CondKeywordContains matches when the text contains Value (case folded)
	CondKeywordContains ConditionKind = "keyword_contains"
	// CondAuthorIsOwner matches interactions authored by the channel owner
	CondAuthorIsOwner ConditionKind = "author_is_owner"
	// CondPriorityAtLeast matches when the priority score is >= Value
	CondPriorityAtLeast ConditionKind = "priority_at_least"
	// CondAI delegates Value as an opaque prompt to the external evaluator
	CondAI ConditionKind = "ai"
)

// Condition is a tagged variant: structured predicates carry a machine value,
// AI conditions carry opaque prompt text in Value
type Condition struct {
	Kind  ConditionKind `json:"kind"`
	Value string        `json:"value,omitempty"`
}

// Action describes what a winning automation does
type Action struct {
	Type   ActionType     `json:"type"`
	Config map[string]any `json:"config,omitempty"`
}

// HourRange is a local-time hour window; From inclusive, To exclusive,
// fractional hours allowed (9.5 = 09:30)
type HourRange struct {
	From float64 `json:"from"`
	To   float64 `json:"to"`
}

// Limits maps a window name to its integer ceiling; absent keys impose no
// constraint
type Limits map[string]int

// Window names recognized in Limits
const (
	LimitPerMinute  = "per_minute"
	LimitPerHour    = "per_hour"
	LimitPerDay     = "per_day"
	LimitPerContent = "per_video"
	LimitConcurrent = "concurrent"
)

// Timing is the embedded timing/limits block
type Timing struct {
	Timezone    string      `json:"timezone,omitempty"` // IANA name, default UTC
	Weekdays    []int       `json:"weekdays,omitempty"` // Monday=0 .. Sunday=6; empty = all
	Hours       []HourRange `json:"hours,omitempty"`    // empty = all hours
	DelayMinSec int         `json:"delay_min_sec,omitempty"`
	DelayMaxSec int         `json:"delay_max_sec,omitempty"`
	Limits      Limits      `json:"limits,omitempty"`
}

// Automation is a configured rule, system or custom; the reserved priority
// band is the only thing distinguishing the two
type Automation struct {
	ID         string            `json:"id,omitempty"`
	Name       string            `json:"name" validate:"required"`
	Enabled    bool              `json:"enabled"`
	Paused     bool              `json:"paused"`
	Priority   int               `json:"priority" validate:"min=1"`
	Platforms  []string          `json:"platforms,omitempty"`
	Kinds      []InteractionKind `json:"kinds,omitempty"`
	ContentID  string            `json:"content_id,omitempty"` // optional per-content scope
	Conditions []Condition       `json:"conditions,omitempty"`
	Action     Action            `json:"action"`
	Timing     Timing            `json:"timing"`
}

// IsSystem reports whether the automation sits in the reserved band
func (a Automation) IsSystem() bool {
	return a.Priority >= SystemPriorityMin && a.Priority <= SystemPriorityMax
}

// Active reports whether the automation participates in matching at all
func (a Automation) Active() bool { return a.Enabled && !a.Paused }

// MatchInput is the interaction view the matcher evaluates against; the
// engine flattens its Interaction into this to keep the dependency one-way
type MatchInput struct {
	Platform      string
	Kind          InteractionKind
	ContentID     string
	Text          string
	AuthorIsOwner bool
	Category      classify.Category
	Priority      int
}
