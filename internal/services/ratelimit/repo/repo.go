// Package repo provides the Postgres rate window repository
package repo

import (
	"context"

	"fanflow/internal/modkit/repokit"
	perr "fanflow/internal/platform/errors"
	"fanflow/internal/services/ratelimit/domain"
)

// Repo is the rate window persistence surface. LockWindow must be called
// inside a transaction; it holds a row lock until commit
type Repo interface {
	LockWindow(ctx context.Context, platform, account string) (domain.Window, error)
	SaveWindow(ctx context.Context, w domain.Window) error
}

type (
	// PG is the Postgres implementation of the rate window repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder for the Postgres implementation
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind attaches a Queryer to the Postgres implementation
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

// LockWindow upserts the (platform, account) row and returns it locked.
// The no-op conflict update is what takes the row lock for existing pairs
func (r *queries) LockWindow(ctx context.Context, platform, account string) (domain.Window, error) {
	const q = `
		INSERT INTO rate_windows (platform, account, minute_start, minute_count, hour_start, hour_count, last_sent_at)
		VALUES ($1, $2, 'epoch', 0, 'epoch', 0, 'epoch')
		ON CONFLICT (platform, account)
		DO UPDATE SET platform = EXCLUDED.platform
		RETURNING minute_start, minute_count, hour_start, hour_count, last_sent_at
	`
	w := domain.Window{Platform: platform, Account: account}
	row := r.q.QueryRow(ctx, q, platform, account)
	if err := row.Scan(&w.MinuteStart, &w.MinuteCount, &w.HourStart, &w.HourCount, &w.LastSentAt); err != nil {
		return domain.Window{}, perr.FromPostgres(err, "ratelimit: lock window")
	}
	return w, nil
}

// SaveWindow writes the counter state back
func (r *queries) SaveWindow(ctx context.Context, w domain.Window) error {
	const q = `
		UPDATE rate_windows
		   SET minute_start = $3, minute_count = $4,
		       hour_start = $5, hour_count = $6,
		       last_sent_at = $7
		 WHERE platform = $1 AND account = $2
	`
	_, err := r.q.Exec(ctx, q,
		w.Platform, w.Account,
		w.MinuteStart, w.MinuteCount,
		w.HourStart, w.HourCount,
		w.LastSentAt,
	)
	if err != nil {
		return perr.FromPostgres(err, "ratelimit: save window")
	}
	return nil
}
