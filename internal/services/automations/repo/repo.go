// Package repo provides the Postgres automations repository
package repo

import (
	"context"
	"encoding/json"

	"fanflow/internal/modkit/repokit"
	perr "fanflow/internal/platform/errors"
	"fanflow/internal/services/automations/domain"
)

// Repo is the automations persistence surface
type Repo interface {
	ListActive(ctx context.Context) ([]domain.Automation, error)
	Upsert(ctx context.Context, a domain.Automation) (string, error)
}

type (
	// PG is the Postgres implementation of the automations repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder for the Postgres implementation
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind attaches a Queryer to the Postgres implementation
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

// ListActive returns enabled, unpaused automations ordered by priority.
// Matching re-sorts defensively; the ORDER BY keeps listings stable
func (r *queries) ListActive(ctx context.Context) ([]domain.Automation, error) {
	const q = `
		SELECT id::text, name, enabled, paused, priority,
		       COALESCE(platforms, '{}'), COALESCE(kinds, '{}'),
		       COALESCE(content_id, ''),
		       conditions, action, timing
		  FROM automations
		 WHERE enabled AND NOT paused
		 ORDER BY priority ASC, created_at ASC
	`
	rows, err := r.q.Query(ctx, q)
	if err != nil {
		return nil, perr.FromPostgres(err, "automations: list active")
	}
	defer rows.Close()

	var out []domain.Automation
	for rows.Next() {
		var (
			a          domain.Automation
			kinds      []string
			conditions []byte
			action     []byte
			timing     []byte
		)
		if err := rows.Scan(
			&a.ID, &a.Name, &a.Enabled, &a.Paused, &a.Priority,
			&a.Platforms, &kinds, &a.ContentID,
			&conditions, &action, &timing,
		); err != nil {
			return nil, perr.FromPostgres(err, "automations: scan")
		}
		for _, k := range kinds {
			a.Kinds = append(a.Kinds, domain.InteractionKind(k))
		}
		if err := json.Unmarshal(conditions, &a.Conditions); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeJSON, "automations: conditions for %s", a.ID)
		}
		if err := json.Unmarshal(action, &a.Action); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeJSON, "automations: action for %s", a.ID)
		}
		if err := json.Unmarshal(timing, &a.Timing); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeJSON, "automations: timing for %s", a.ID)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.FromPostgres(err, "automations: rows")
	}
	return out, nil
}

// Upsert writes an automation (insert on empty id) and returns its id
func (r *queries) Upsert(ctx context.Context, a domain.Automation) (string, error) {
	conditions, err := json.Marshal(a.Conditions)
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeJSON, "automations: encode conditions")
	}
	action, err := json.Marshal(a.Action)
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeJSON, "automations: encode action")
	}
	timing, err := json.Marshal(a.Timing)
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeJSON, "automations: encode timing")
	}

	kinds := make([]string, 0, len(a.Kinds))
	for _, k := range a.Kinds {
		kinds = append(kinds, string(k))
	}

	const q = `
		INSERT INTO automations
			(id, name, enabled, paused, priority, platforms, kinds, content_id, conditions, action, timing)
		VALUES
			(COALESCE(NULLIF($1,'')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, NULLIF($8,''), $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			enabled = EXCLUDED.enabled,
			paused = EXCLUDED.paused,
			priority = EXCLUDED.priority,
			platforms = EXCLUDED.platforms,
			kinds = EXCLUDED.kinds,
			content_id = EXCLUDED.content_id,
			conditions = EXCLUDED.conditions,
			action = EXCLUDED.action,
			timing = EXCLUDED.timing,
			updated_at = now()
		RETURNING id::text
	`
	var id string
	row := r.q.QueryRow(ctx, q,
		a.ID, a.Name, a.Enabled, a.Paused, a.Priority,
		a.Platforms, kinds, a.ContentID,
		conditions, action, timing,
	)
	if err := row.Scan(&id); err != nil {
		return "", perr.FromPostgres(err, "automations: upsert")
	}
	return id, nil
}
