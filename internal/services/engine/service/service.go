// Package service implements the interaction intake pipeline
package service

import (
	"context"
	"strings"
	"time"

	"fanflow/internal/core/classify"
	"fanflow/internal/modkit"
	"fanflow/internal/modkit/repokit"
	perr "fanflow/internal/platform/errors"
	"fanflow/internal/platform/logger"

	adom "fanflow/internal/services/automations/domain"
	aservice "fanflow/internal/services/automations/service"
	dom "fanflow/internal/services/engine/domain"
	erepo "fanflow/internal/services/engine/repo"
	qdom "fanflow/internal/services/queue/domain"
)

// Service is the engine surface
type Service interface {
	dom.SubmitterPort
	dom.MarkerPort
}

// Deps are the capabilities the pipeline composes. All are required except
// Generator, which only reply actions touch
type Deps struct {
	Reader    adom.ReaderPort
	Matcher   adom.MatcherPort
	Scheduler *aservice.Scheduler
	Enqueuer  qdom.WriterPort
	Usage     qdom.UsagePort
	Generator dom.ResponseGenerator
}

// Svc runs classify, match, schedule, and enqueue for each inbound
// interaction
type Svc struct {
	db     repokit.TxRunner
	binder repokit.Binder[erepo.Repo]
	repo   erepo.Repo

	p   Deps
	now func() time.Time
}

// New constructs the service
func New(deps modkit.Deps, p Deps) *Svc {
	b := erepo.NewPG()
	return &Svc{
		db:     deps.PG,
		binder: b,
		repo:   b.Bind(deps.PG),
		p:      p,
		now:    time.Now,
	}
}

// Submit runs the full pipeline for one inbound interaction. The
// interaction row is always written; enqueueing only happens for a matched,
// schedulable automation
func (s *Svc) Submit(ctx context.Context, in dom.SubmitInput) (dom.SubmitResult, error) {
	log := logger.C(ctx)
	now := s.now().UTC()

	platform := strings.ToLower(strings.TrimSpace(in.Platform))
	category, priority := classify.Classify(in.Text)
	fp := classify.Fingerprint(in.Text)

	interactionID, err := s.repo.Insert(ctx, dom.Interaction{
		Platform:      platform,
		Account:       in.Account,
		ExternalID:    in.ExternalID,
		ContentID:     in.ContentID,
		Kind:          in.Kind,
		AuthorID:      in.AuthorID,
		AuthorIsOwner: in.AuthorIsOwner,
		Text:          in.Text,
		Category:      string(category),
		Priority:      priority,
		Fingerprint:   fp,
		Status:        dom.StatusNew,
	})
	if err != nil {
		return dom.SubmitResult{}, err
	}

	res := dom.SubmitResult{
		InteractionID: interactionID,
		Category:      string(category),
		Priority:      priority,
		Fingerprint:   fp,
	}

	automations, err := s.p.Reader.ListActive(ctx)
	if err != nil {
		return res, err
	}

	win, err := s.p.Matcher.Match(ctx, adom.MatchInput{
		Platform:      platform,
		Kind:          adom.InteractionKind(in.Kind),
		ContentID:     in.ContentID,
		Text:          in.Text,
		AuthorIsOwner: in.AuthorIsOwner,
		Category:      category,
		Priority:      priority,
	}, automations)
	if err != nil {
		return res, err
	}
	if win == nil {
		return res, nil
	}
	res.Matched = true
	res.AutomationID = win.ID

	counts, err := s.p.Usage.AutomationCounts(ctx, win.ID, in.ContentID, now, win.Timing.Timezone)
	if err != nil {
		return res, err
	}

	scheduledFor := s.p.Scheduler.NextEligible(*win, now, counts)
	if !s.p.Scheduler.IsActiveNow(*win, scheduledFor) {
		// the search horizon ran out without finding an open window
		log.Warn().
			Str("automation_id", win.ID).
			Str("interaction_id", interactionID).
			Msg("automation has no eligible slot within the search horizon")
		return res, nil
	}

	payload, err := s.renderPayload(ctx, *win, platform, in, string(category))
	if err != nil {
		return res, err
	}

	queueID, err := s.p.Enqueuer.Enqueue(ctx, qdom.NewItem{
		InteractionID: interactionID,
		AutomationID:  win.ID,
		Platform:      platform,
		Account:       in.Account,
		ExternalID:    in.ExternalID,
		ContentID:     in.ContentID,
		Action:        string(win.Action.Type),
		Payload:       payload,
		Priority:      priority,
		ScheduledFor:  scheduledFor,
	})
	if err != nil {
		return res, err
	}
	if err := s.repo.MarkStatus(ctx, interactionID, dom.StatusQueued); err != nil {
		return res, err
	}

	res.QueueItemID = queueID
	res.ScheduledFor = scheduledFor
	return res, nil
}

// renderPayload produces the action payload. Only replies carry one;
// moderation and archival are instructions to the gateway
func (s *Svc) renderPayload(ctx context.Context, a adom.Automation, platform string, in dom.SubmitInput, category string) (string, error) {
	if a.Action.Type != adom.ActionReply {
		return "", nil
	}
	template, _ := a.Action.Config["template"].(string)
	if s.p.Generator == nil {
		if template == "" {
			return "", perr.Newf(perr.ErrorCodeInvalidArgument,
				"engine: reply automation %s has no template and no generator", a.ID)
		}
		return template, nil
	}
	return s.p.Generator.Generate(ctx, dom.GenerateInput{
		Platform: platform,
		Kind:     in.Kind,
		Text:     in.Text,
		Category: category,
		Template: template,
	})
}

// MarkStatus exposes interaction lifecycle updates to the dispatcher
func (s *Svc) MarkStatus(ctx context.Context, interactionID string, status dom.InteractionStatus) error {
	return s.repo.MarkStatus(ctx, interactionID, status)
}

var _ Service = (*Svc)(nil)
