// Package repo provides the Postgres interactions repository
package repo

import (
	"context"

	"fanflow/internal/modkit/repokit"
	perr "fanflow/internal/platform/errors"
	"fanflow/internal/services/engine/domain"
)

// Repo is the interactions persistence surface
type Repo interface {
	Insert(ctx context.Context, in domain.Interaction) (string, error)
	Get(ctx context.Context, id string) (domain.Interaction, error)
	MarkStatus(ctx context.Context, id string, status domain.InteractionStatus) error
}

type (
	// PG is the Postgres implementation of the interactions repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder for the Postgres implementation
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind attaches a Queryer to the Postgres implementation
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

// Insert stores a classified interaction and returns its id
func (r *queries) Insert(ctx context.Context, in domain.Interaction) (string, error) {
	const q = `
		INSERT INTO interactions
			(platform, account, external_id, content_id, kind, author_id, author_is_owner,
			 text, category, priority, fingerprint, status)
		VALUES ($1, $2, $3, NULLIF($4,''), $5, NULLIF($6,''), $7, $8, $9, $10, $11, $12)
		RETURNING id::text
	`
	var id string
	row := r.q.QueryRow(ctx, q,
		in.Platform, in.Account, in.ExternalID, in.ContentID, in.Kind,
		in.AuthorID, in.AuthorIsOwner,
		in.Text, in.Category, in.Priority, in.Fingerprint, string(in.Status),
	)
	if err := row.Scan(&id); err != nil {
		return "", perr.FromPostgres(err, "interactions: insert")
	}
	return id, nil
}

// Get fetches one interaction by id
func (r *queries) Get(ctx context.Context, id string) (domain.Interaction, error) {
	const q = `
		SELECT id::text, platform, account, external_id,
		       COALESCE(content_id, ''), kind, COALESCE(author_id, ''), author_is_owner,
		       text, category, priority, fingerprint, status, created_at, updated_at
		  FROM interactions
		 WHERE id = $1::uuid
	`
	var in domain.Interaction
	var status string
	row := r.q.QueryRow(ctx, q, id)
	if err := row.Scan(
		&in.ID, &in.Platform, &in.Account, &in.ExternalID,
		&in.ContentID, &in.Kind, &in.AuthorID, &in.AuthorIsOwner,
		&in.Text, &in.Category, &in.Priority, &in.Fingerprint, &status,
		&in.CreatedAt, &in.UpdatedAt,
	); err != nil {
		return domain.Interaction{}, perr.FromPostgres(err, "interactions: get")
	}
	in.Status = domain.InteractionStatus(status)
	return in, nil
}

// MarkStatus moves an interaction to a new lifecycle state
func (r *queries) MarkStatus(ctx context.Context, id string, status domain.InteractionStatus) error {
	const q = `
		UPDATE interactions
		   SET status = $2, updated_at = now()
		 WHERE id = $1::uuid
	`
	_, err := r.q.Exec(ctx, q, id, string(status))
	if err != nil {
		return perr.FromPostgres(err, "interactions: mark status")
	}
	return nil
}
