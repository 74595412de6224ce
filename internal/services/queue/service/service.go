// Package service implements the delivery queue lifecycle and retry policy
package service

import (
	"context"
	"time"

	"fanflow/internal/modkit"
	"fanflow/internal/modkit/repokit"
	perr "fanflow/internal/platform/errors"
	"fanflow/internal/platform/logger"

	dom "fanflow/internal/services/queue/domain"
	qrepo "fanflow/internal/services/queue/repo"
)

// Service is the full queue surface: enqueue, observability, and the
// dispatcher lifecycle
type Service interface {
	dom.WriterPort
	dom.ReaderPort
	dom.LifecyclePort
	dom.UsagePort
}

// Config controls the failure lifecycle
type Config struct {
	Retry dom.RetryPolicy
}

func (c Config) withDefaults() Config {
	if c.Retry.MaxRetries <= 0 {
		c.Retry.MaxRetries = 3
	}
	if c.Retry.Base <= 0 {
		c.Retry.Base = 30 * time.Second
	}
	if c.Retry.Cap <= 0 {
		c.Retry.Cap = 30 * time.Minute
	}
	return c
}

// Svc implements Service on the Postgres queue repo
type Svc struct {
	db     repokit.TxRunner
	binder repokit.Binder[qrepo.Repo]
	repo   qrepo.Repo

	cfg  Config
	deps modkit.Deps
	now  func() time.Time
}

// New constructs the service
func New(deps modkit.Deps, cfg Config) *Svc {
	b := qrepo.NewPG()
	return &Svc{
		db:     deps.PG,
		binder: b,
		repo:   b.Bind(deps.PG),
		cfg:    cfg.withDefaults(),
		deps:   deps,
		now:    time.Now,
	}
}

// Enqueue inserts a pending item. A zero ScheduledFor means "ready now"
func (s *Svc) Enqueue(ctx context.Context, in dom.NewItem) (string, error) {
	if in.Platform == "" || in.Action == "" {
		return "", perr.Newf(perr.ErrorCodeInvalidArgument, "queue: platform and action are required")
	}
	if in.ScheduledFor.IsZero() {
		in.ScheduledFor = s.now().UTC()
	}
	return s.repo.Insert(ctx, in)
}

// Stats returns per-status counts, optionally scoped to one platform
func (s *Svc) Stats(ctx context.Context, platform string) (dom.Stats, error) {
	return s.repo.Stats(ctx, platform)
}

// DeadLetters lists terminally failed items, newest first
func (s *Svc) DeadLetters(ctx context.Context, f dom.DeadLetterFilter) ([]dom.DeadLetter, error) {
	return s.repo.DeadLetters(ctx, f)
}

// PeekReady returns due pending items in dispatch order
func (s *Svc) PeekReady(ctx context.Context, limit int) ([]dom.Item, error) {
	return s.repo.PeekReady(ctx, limit)
}

// Claim attempts to move one due pending item to processing for this worker
func (s *Svc) Claim(ctx context.Context, itemID, workerID, batchID string, leaseFor time.Duration) (bool, error) {
	return s.repo.Claim(ctx, itemID, workerID, batchID, leaseFor)
}

// MarkSent confirms delivery of a processing item
func (s *Svc) MarkSent(ctx context.Context, itemID string) error {
	return s.repo.MarkSent(ctx, itemID)
}

// MarkFailed applies the retry policy to a failed delivery attempt. The
// decision runs in one transaction against the row's stored attempt counter:
// transient causes below the ceiling are requeued with exponential backoff,
// everything else goes terminal and lands in dead letters. Returns the
// status the item ended up in
func (s *Svc) MarkFailed(ctx context.Context, item dom.Item, cause error) (dom.Status, error) {
	msg := "delivery failed"
	if cause != nil {
		msg = cause.Error()
	}
	code := int(perr.CodeOf(cause))

	var status dom.Status
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)

		// decide on the row's own counter, not the caller's snapshot; a
		// reaped lease may already have spent attempts on this item
		count, err := r.RetryCount(ctx, item.ID)
		if err != nil {
			return err
		}

		if perr.Transient(cause) && count+1 < s.cfg.Retry.MaxRetries {
			next := s.now().UTC().Add(s.cfg.Retry.NextBackoff(count))
			if err := r.RequeueRetry(ctx, item.ID, next, code, msg); err != nil {
				return err
			}
			status = dom.StatusPending
			return nil
		}

		logger.C(ctx).Warn().
			Str("item_id", item.ID).
			Str("platform", item.Platform).
			Int("attempts", count+1).
			Str("cause", msg).
			Msg("queue item failed terminally")

		if err := r.MarkFailedTerminal(ctx, item.ID, code, msg); err != nil {
			return err
		}
		if err := r.InsertDeadLetter(ctx, dom.DeadLetter{
			QueueItemID: item.ID,
			Platform:    item.Platform,
			ExternalID:  item.ExternalID,
			Reason:      msg,
			ErrorCode:   code,
		}); err != nil {
			return err
		}
		status = dom.StatusFailed
		return nil
	})
	if err != nil {
		return "", err
	}
	return status, nil
}

// Defer pushes an item's scheduled time without consuming its retry budget
func (s *Svc) Defer(ctx context.Context, itemID string, until time.Time) error {
	return s.repo.Defer(ctx, itemID, until)
}

// ReapExpiredLeases returns timed-out processing items to pending
func (s *Svc) ReapExpiredLeases(ctx context.Context) (int64, error) {
	return s.repo.ReapExpiredLeases(ctx)
}

// AutomationCounts reports current limit-window usage for one automation.
// The per-day window starts at local midnight in tz (IANA name, empty or
// unknown falls back to UTC) so usage accounting matches the scheduler's
// per-day release boundary
func (s *Svc) AutomationCounts(ctx context.Context, automationID, contentID string, now time.Time, tz string) (map[string]int, error) {
	loc := time.UTC
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}
	local := now.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return s.repo.AutomationCounts(ctx, automationID, contentID, now, dayStart)
}

var _ Service = (*Svc)(nil)
