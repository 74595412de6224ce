// Package service implements the per-platform delivery rate limiter
package service

import (
	"context"
	"strings"
	"time"

	"fanflow/internal/modkit"
	"fanflow/internal/modkit/repokit"

	dom "fanflow/internal/services/ratelimit/domain"
	rrepo "fanflow/internal/services/ratelimit/repo"
)

// Service is the limiter surface
type Service interface {
	dom.LimiterPort
}

// Config holds the default rule plus per-platform overrides
type Config struct {
	Default dom.Rule
	Rules   map[string]dom.Rule
}

// Svc implements the limiter on the Postgres rate window repo.
// Counter windows are fixed (truncated to the minute/hour), not sliding;
// the row lock held across the decision makes acquires atomic per account
type Svc struct {
	db     repokit.TxRunner
	binder repokit.Binder[rrepo.Repo]
	cfg    Config
}

// New constructs the service
func New(deps modkit.Deps, cfg Config) *Svc {
	return &Svc{
		db:     deps.PG,
		binder: rrepo.NewPG(),
		cfg:    cfg,
	}
}

// RuleFor returns the rule for a platform, falling back to the default
func (s *Svc) RuleFor(platform string) dom.Rule {
	if r, ok := s.cfg.Rules[strings.ToLower(platform)]; ok {
		return r
	}
	return s.cfg.Default
}

// TryAcquire consumes one delivery slot for (platform, account), or reports
// when the caller should try again. Counter resets happen lazily on access
func (s *Svc) TryAcquire(ctx context.Context, platform, account string, now time.Time) (dom.Decision, error) {
	rule := s.RuleFor(platform)
	now = now.UTC()

	var d dom.Decision
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)

		w, err := r.LockWindow(ctx, platform, account)
		if err != nil {
			return err
		}

		minStart := now.Truncate(time.Minute)
		hourStart := now.Truncate(time.Hour)
		if !w.MinuteStart.Equal(minStart) {
			w.MinuteStart, w.MinuteCount = minStart, 0
		}
		if !w.HourStart.Equal(hourStart) {
			w.HourStart, w.HourCount = hourStart, 0
		}

		// Collect every violated ceiling; the retry hint is the latest one
		var retryAt time.Time
		if rule.MinInterval > 0 && !w.LastSentAt.IsZero() {
			if at := w.LastSentAt.Add(rule.MinInterval); at.After(now) && at.After(retryAt) {
				retryAt = at
			}
		}
		if rule.PerMinute > 0 && w.MinuteCount >= rule.PerMinute {
			if at := minStart.Add(time.Minute); at.After(retryAt) {
				retryAt = at
			}
		}
		if rule.PerHour > 0 && w.HourCount >= rule.PerHour {
			if at := hourStart.Add(time.Hour); at.After(retryAt) {
				retryAt = at
			}
		}
		if !retryAt.IsZero() {
			d = dom.Decision{Allowed: false, RetryAt: retryAt}
			return nil
		}

		w.MinuteCount++
		w.HourCount++
		w.LastSentAt = now
		if err := r.SaveWindow(ctx, w); err != nil {
			return err
		}
		d = dom.Decision{Allowed: true}
		return nil
	})
	if err != nil {
		return dom.Decision{}, err
	}
	return d, nil
}

var _ Service = (*Svc)(nil)
