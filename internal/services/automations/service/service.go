package service

import (
	"context"

	"fanflow/internal/modkit"
	"fanflow/internal/modkit/repokit"
	perr "fanflow/internal/platform/errors"

	dom "fanflow/internal/services/automations/domain"
	arepo "fanflow/internal/services/automations/repo"
)

// Svc is the persistence-facing half of the automations service; matching
// and scheduling are stateless and live beside it
type Svc struct {
	db     repokit.TxRunner
	binder repokit.Binder[arepo.Repo]
	repo   arepo.Repo
}

// New constructs the service
func New(deps modkit.Deps) *Svc {
	b := arepo.NewPG()
	return &Svc{
		db:     deps.PG,
		binder: b,
		repo:   b.Bind(deps.PG),
	}
}

// ListActive returns enabled, unpaused automations in priority order
func (s *Svc) ListActive(ctx context.Context) ([]dom.Automation, error) {
	return s.repo.ListActive(ctx)
}

// Upsert writes one automation and returns its id. Priorities 1-2 are the
// reserved system band: only moderation and archival automations may live
// there, so a reply automation can never preempt the system moderator
func (s *Svc) Upsert(ctx context.Context, a dom.Automation) (string, error) {
	if a.Priority < dom.SystemPriorityMin {
		return "", perr.Newf(perr.ErrorCodeInvalidArgument,
			"automations: priority must be >= %d", dom.SystemPriorityMin)
	}
	if a.IsSystem() && a.Action.Type != dom.ActionModerate && a.Action.Type != dom.ActionArchive {
		return "", perr.Newf(perr.ErrorCodeInvalidArgument,
			"automations: priorities %d-%d are reserved for moderation and archival automations; custom automations start at %d",
			dom.SystemPriorityMin, dom.SystemPriorityMax, dom.CustomPriorityMin)
	}
	return s.repo.Upsert(ctx, a)
}

var (
	_ dom.ReaderPort = (*Svc)(nil)
	_ dom.WriterPort = (*Svc)(nil)
)
