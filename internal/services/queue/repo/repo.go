// Package repo provides the Postgres delivery queue repository
package repo

import (
	"context"
	"time"

	"fanflow/internal/modkit/repokit"
	"fanflow/internal/services/queue/domain"
)

// Repo is the queue persistence surface used by the service layers
type Repo interface {
	Insert(ctx context.Context, in domain.NewItem) (string, error)
	PeekReady(ctx context.Context, limit int) ([]domain.Item, error)
	Claim(ctx context.Context, itemID, workerID, batchID string, leaseFor time.Duration) (bool, error)
	MarkSent(ctx context.Context, itemID string) error
	RetryCount(ctx context.Context, itemID string) (int, error)
	RequeueRetry(ctx context.Context, itemID string, nextAt time.Time, errCode int, errMsg string) error
	MarkFailedTerminal(ctx context.Context, itemID string, errCode int, errMsg string) error
	InsertDeadLetter(ctx context.Context, d domain.DeadLetter) error
	Defer(ctx context.Context, itemID string, until time.Time) error
	ReapExpiredLeases(ctx context.Context) (int64, error)
	Stats(ctx context.Context, platform string) (domain.Stats, error)
	DeadLetters(ctx context.Context, f domain.DeadLetterFilter) ([]domain.DeadLetter, error)
	AutomationCounts(ctx context.Context, automationID, contentID string, now, dayStart time.Time) (map[string]int, error)
}

type (
	// PG is the Postgres implementation of the queue repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder for the Postgres implementation
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind attaches a Queryer to the Postgres implementation
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

// Insert enqueues a new pending item and returns its id
func (r *queries) Insert(ctx context.Context, in domain.NewItem) (string, error) {
	const sqlq = `
		INSERT INTO queue_items (
			interaction_id, automation_id, platform, account, external_id,
			content_id, action, payload, priority, scheduled_for, status
		) VALUES (
			$1, NULLIF($2, '')::uuid, $3, $4, $5,
			NULLIF($6, ''), $7, $8, $9, $10, 'pending'
		)
		RETURNING id::text
	`
	var id string
	err := r.q.QueryRow(ctx, sqlq,
		in.InteractionID, in.AutomationID, in.Platform, in.Account, in.ExternalID,
		in.ContentID, in.Action, in.Payload, in.Priority, in.ScheduledFor.UTC(),
	).Scan(&id)
	return id, err
}

const itemColumns = `
	id::text, interaction_id::text, COALESCE(automation_id::text, ''),
	platform, account, external_id, COALESCE(content_id, ''),
	action, payload, priority, scheduled_for, status,
	retry_count, COALESCE(last_error_code, 0), COALESCE(last_error, ''),
	COALESCE(batch_id::text, ''), COALESCE(leased_by, ''),
	COALESCE(lease_expires_at, to_timestamp(0)),
	COALESCE(sent_at, to_timestamp(0)), created_at, updated_at`

// PeekReady lists due pending items, highest priority first then oldest
// schedule. Ordering is a scheduling hint; the claim is what prevents
// double-dispatch.
func (r *queries) PeekReady(ctx context.Context, limit int) ([]domain.Item, error) {
	sqlq := `
		SELECT ` + itemColumns + `
		  FROM queue_items
		 WHERE status = 'pending'
		   AND scheduled_for <= now()
		 ORDER BY priority DESC, scheduled_for ASC
		 LIMIT $1
	`
	rows, err := r.q.Query(ctx, sqlq, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

// Claim atomically moves one pending due item to processing for this worker.
// A second dispatcher racing on the same item loses the conditional update.
func (r *queries) Claim(
	ctx context.Context,
	itemID, workerID, batchID string,
	leaseFor time.Duration,
) (bool, error) {
	const sqlq = `
		UPDATE queue_items
		   SET status = 'processing',
		       leased_by = $2,
		       batch_id = NULLIF($3, '')::uuid,
		       lease_expires_at = now() + $4::interval,
		       updated_at = now()
		 WHERE id = $1
		   AND status = 'pending'
		   AND scheduled_for <= now()
	`
	tag, err := r.q.Exec(ctx, sqlq, itemID, workerID, batchID, leaseFor.String())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkSent finishes a processing item
func (r *queries) MarkSent(ctx context.Context, itemID string) error {
	const sqlq = `
		UPDATE queue_items
		   SET status = 'sent',
		       sent_at = now(),
		       leased_by = NULL,
		       lease_expires_at = NULL,
		       updated_at = now()
		 WHERE id = $1 AND status = 'processing'
	`
	_, err := r.q.Exec(ctx, sqlq, itemID)
	return err
}

// RetryCount reads the item's attempt counter under a row lock. Inside a
// transaction this pins the row so the retry decision and the status update
// see the same count
func (r *queries) RetryCount(ctx context.Context, itemID string) (int, error) {
	const sqlq = `SELECT retry_count FROM queue_items WHERE id = $1 FOR UPDATE`
	var n int
	err := r.q.QueryRow(ctx, sqlq, itemID).Scan(&n)
	return n, err
}

// RequeueRetry returns a failed attempt to pending with backoff applied
func (r *queries) RequeueRetry(
	ctx context.Context,
	itemID string,
	nextAt time.Time,
	errCode int,
	errMsg string,
) error {
	const sqlq = `
		UPDATE queue_items
		   SET status = 'pending',
		       retry_count = retry_count + 1,
		       scheduled_for = $2,
		       last_error_code = $3,
		       last_error = NULLIF($4, ''),
		       leased_by = NULL,
		       lease_expires_at = NULL,
		       updated_at = now()
		 WHERE id = $1 AND status = 'processing'
	`
	_, err := r.q.Exec(ctx, sqlq, itemID, nextAt.UTC(), errCode, errMsg)
	return err
}

// MarkFailedTerminal parks an item in the terminal failed state.
// failed never transitions back to pending.
func (r *queries) MarkFailedTerminal(ctx context.Context, itemID string, errCode int, errMsg string) error {
	const sqlq = `
		UPDATE queue_items
		   SET status = 'failed',
		       retry_count = retry_count + 1,
		       last_error_code = $2,
		       last_error = NULLIF($3, ''),
		       leased_by = NULL,
		       lease_expires_at = NULL,
		       updated_at = now()
		 WHERE id = $1 AND status = 'processing'
	`
	_, err := r.q.Exec(ctx, sqlq, itemID, errCode, errMsg)
	return err
}

// InsertDeadLetter mirrors a terminal failure for operators
func (r *queries) InsertDeadLetter(ctx context.Context, d domain.DeadLetter) error {
	const sqlq = `
		INSERT INTO dead_letters (queue_item_id, platform, external_id, reason, error_code)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.q.Exec(ctx, sqlq, d.QueueItemID, d.Platform, d.ExternalID, d.Reason, d.ErrorCode)
	return err
}

// Defer pushes an item forward without spending retry budget
func (r *queries) Defer(ctx context.Context, itemID string, until time.Time) error {
	const sqlq = `
		UPDATE queue_items
		   SET status = 'pending',
		       scheduled_for = $2,
		       leased_by = NULL,
		       lease_expires_at = NULL,
		       updated_at = now()
		 WHERE id = $1 AND status IN ('pending', 'processing')
	`
	_, err := r.q.Exec(ctx, sqlq, itemID, until.UTC())
	return err
}

// ReapExpiredLeases returns crashed workers' claims to the pool
func (r *queries) ReapExpiredLeases(ctx context.Context) (int64, error) {
	const sqlq = `
		UPDATE queue_items
		   SET status = 'pending',
		       leased_by = NULL,
		       lease_expires_at = NULL,
		       updated_at = now()
		 WHERE status = 'processing'
		   AND lease_expires_at < now()
	`
	tag, err := r.q.Exec(ctx, sqlq)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Stats counts items by status, optionally for one platform
func (r *queries) Stats(ctx context.Context, platform string) (domain.Stats, error) {
	const sqlq = `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'processing'),
			COUNT(*) FILTER (WHERE status = 'sent'),
			COUNT(*) FILTER (WHERE status = 'failed')
		  FROM queue_items
		 WHERE ($1 = '' OR platform = $1)
	`
	var s domain.Stats
	err := r.q.QueryRow(ctx, sqlq, platform).Scan(&s.Pending, &s.Processing, &s.Sent, &s.Failed)
	return s, err
}

// DeadLetters lists recent dead letters, newest first
func (r *queries) DeadLetters(ctx context.Context, f domain.DeadLetterFilter) ([]domain.DeadLetter, error) {
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const sqlq = `
		SELECT id::text, queue_item_id::text, platform, external_id, reason, error_code, created_at
		  FROM dead_letters
		 WHERE ($1 = '' OR platform = $1)
		 ORDER BY created_at DESC
		 LIMIT $2
	`
	rows, err := r.q.Query(ctx, sqlq, f.Platform, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DeadLetter
	for rows.Next() {
		var d domain.DeadLetter
		if err := rows.Scan(
			&d.ID, &d.QueueItemID, &d.Platform, &d.ExternalID,
			&d.Reason, &d.ErrorCode, &d.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// AutomationCounts returns the current usage for every limit window an
// automation can configure. concurrent counts in-flight items. dayStart is
// local midnight in the automation's timezone, resolved by the service
func (r *queries) AutomationCounts(
	ctx context.Context,
	automationID, contentID string,
	now, dayStart time.Time,
) (map[string]int, error) {
	const sqlq = `
		SELECT
			COUNT(*) FILTER (WHERE status = 'sent' AND sent_at >= date_trunc('minute', $2::timestamptz)),
			COUNT(*) FILTER (WHERE status = 'sent' AND sent_at >= date_trunc('hour', $2::timestamptz)),
			COUNT(*) FILTER (WHERE status = 'sent' AND sent_at >= $4::timestamptz),
			COUNT(*) FILTER (WHERE status = 'sent' AND content_id IS NOT DISTINCT FROM NULLIF($3, '')),
			COUNT(*) FILTER (WHERE status IN ('pending', 'processing'))
		  FROM queue_items
		 WHERE automation_id = $1::uuid
	`
	var perMinute, perHour, perDay, perContent, concurrent int
	err := r.q.QueryRow(ctx, sqlq, automationID, now.UTC(), contentID, dayStart.UTC()).
		Scan(&perMinute, &perHour, &perDay, &perContent, &concurrent)
	if err != nil {
		return nil, err
	}
	return map[string]int{
		"per_minute": perMinute,
		"per_hour":   perHour,
		"per_day":    perDay,
		"per_video":  perContent,
		"concurrent": concurrent,
	}, nil
}

func scanItems(rows repokit.Rows) ([]domain.Item, error) {
	var out []domain.Item
	for rows.Next() {
		var it domain.Item
		if err := rows.Scan(
			&it.ID, &it.InteractionID, &it.AutomationID,
			&it.Platform, &it.Account, &it.ExternalID, &it.ContentID,
			&it.Action, &it.Payload, &it.Priority, &it.ScheduledFor, &it.Status,
			&it.RetryCount, &it.LastErrorCode, &it.LastError,
			&it.BatchID, &it.LeasedBy, &it.LeaseExpires,
			&it.SentAt, &it.CreatedAt, &it.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
