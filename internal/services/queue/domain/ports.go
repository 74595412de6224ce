package domain

import (
	"context"
	"time"
)

// WriterPort enqueues delivery actions
type WriterPort interface {
	Enqueue(ctx context.Context, in NewItem) (string, error)
}

// ReaderPort serves queue observability
type ReaderPort interface {
	Stats(ctx context.Context, platform string) (Stats, error)
	DeadLetters(ctx context.Context, f DeadLetterFilter) ([]DeadLetter, error)
}

// LifecyclePort is the dispatcher-facing surface. MarkFailed owns the
// retry/backoff/dead-letter decision; Defer pushes an item without touching
// its retry budget (rate-limit denials).
type LifecyclePort interface {
	PeekReady(ctx context.Context, limit int) ([]Item, error)
	Claim(ctx context.Context, itemID, workerID, batchID string, leaseFor time.Duration) (bool, error)
	MarkSent(ctx context.Context, itemID string) error
	MarkFailed(ctx context.Context, item Item, cause error) (Status, error)
	Defer(ctx context.Context, itemID string, until time.Time) error
	ReapExpiredLeases(ctx context.Context) (int64, error)
}

// UsagePort reports current per-automation window counts for limit checks.
// tz is the automation's IANA timezone; the per-day window rolls over at its
// local midnight so counts agree with the scheduler's release times
type UsagePort interface {
	AutomationCounts(ctx context.Context, automationID, contentID string, now time.Time, tz string) (map[string]int, error)
}
