package domain

import "context"

// ConditionEvaluator is the external capability that decides opaque AI
// conditions. Failure means "does not match" for this cycle; the matcher
// never retries or caches the call itself.
type ConditionEvaluator interface {
	Evaluate(ctx context.Context, condition string, in MatchInput) (bool, error)
}

// ReaderPort lists automations for matching
type ReaderPort interface {
	ListActive(ctx context.Context) ([]Automation, error)
}

// WriterPort manages automation definitions
type WriterPort interface {
	Upsert(ctx context.Context, a Automation) (string, error)
}

// MatcherPort selects at most one winning automation for an interaction
type MatcherPort interface {
	Match(ctx context.Context, in MatchInput, automations []Automation) (*Automation, error)
}
