package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fanflow/internal/modkit/scope"
	perr "fanflow/internal/platform/errors"
	"fanflow/internal/platform/logger"

	adom "fanflow/internal/services/automations/domain"
	dom "fanflow/internal/services/dispatch/domain"
	edom "fanflow/internal/services/engine/domain"
	qdom "fanflow/internal/services/queue/domain"
)

// Run starts the drain loop and blocks until the context ends
func (s *Svc) Run(ctx context.Context) error {
	log := logger.Named("dispatch-worker")
	sem := make(chan struct{}, s.cfg.Concurrency)
	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n, err := s.p.Queue.ReapExpiredLeases(ctx); err != nil {
				log.Error().Err(err).Msg("reap expired leases failed")
			} else if n > 0 {
				log.Info().Int64("reclaimed", n).Msg("expired leases returned to pending")
			}

			items, err := s.p.Queue.PeekReady(ctx, s.cfg.BatchSize)
			if err != nil {
				log.Error().Err(err).Msg("peek ready failed")
				continue
			}
			if len(items) == 0 {
				continue
			}

			// items claimed this cycle share one batch id for traceability
			batchID := uuid.NewString()
			bctx := scope.With(ctx, map[string]string{
				"worker": s.cfg.WorkerID,
				"batch":  batchID,
			})
			for i := range items {
				sem <- struct{}{}
				item := items[i]
				go func() {
					defer func() { <-sem }()
					if err := s.handleItem(bctx, item, batchID); err != nil {
						log.Warn().Err(err).Str("item_id", item.ID).Msg("dispatch item failed")
					}
				}()
			}
		}
	}
}

// handleItem performs at most one delivery attempt for a peeked item.
// Losing the claim race is not an error; another worker owns it
func (s *Svc) handleItem(ctx context.Context, item qdom.Item, batchID string) error {
	claimed, err := s.p.Queue.Claim(ctx, item.ID, s.cfg.WorkerID, batchID, s.cfg.LeaseFor)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	now := s.now().UTC()
	dec, err := s.p.Limiter.TryAcquire(ctx, item.Platform, item.Account, now)
	if err != nil {
		// limiter trouble is not the item's fault; release without cost
		if derr := s.p.Queue.Defer(ctx, item.ID, now.Add(s.cfg.Tick)); derr != nil {
			return derr
		}
		return err
	}
	if !dec.Allowed {
		s.writeEvent(ctx, item, "throttled", 0, 0)
		return s.p.Queue.Defer(ctx, item.ID, dec.RetryAt)
	}

	dctx, cancel := context.WithTimeout(ctx, s.cfg.DeliverTimeout)
	defer cancel()

	start := s.now()
	_, derr := s.p.Deliverer.Deliver(dctx, dom.Delivery{
		ItemID:     item.ID,
		Platform:   item.Platform,
		Account:    item.Account,
		ExternalID: item.ExternalID,
		ContentID:  item.ContentID,
		Action:     item.Action,
		Payload:    item.Payload,
	})
	latency := s.now().Sub(start)

	if derr == nil {
		if err := s.p.Queue.MarkSent(ctx, item.ID); err != nil {
			return err
		}
		s.markInteraction(ctx, item)
		s.writeEvent(ctx, item, "sent", 0, latency)
		return nil
	}

	status, err := s.p.Queue.MarkFailed(ctx, item, derr)
	if err != nil {
		return err
	}
	outcome := "retried"
	if status == qdom.StatusFailed {
		outcome = "failed"
	}
	s.writeEvent(ctx, item, outcome, int(perr.CodeOf(derr)), latency)
	return nil
}

// markInteraction reflects a confirmed delivery on the interaction row.
// Replies count as answered; moderation and archival leave it ignored
func (s *Svc) markInteraction(ctx context.Context, item qdom.Item) {
	if item.InteractionID == "" || s.p.Marker == nil {
		return
	}
	status := edom.StatusIgnored
	if item.Action == string(adom.ActionReply) {
		status = edom.StatusAnswered
	}
	if err := s.p.Marker.MarkStatus(ctx, item.InteractionID, status); err != nil {
		logger.C(ctx).Warn().Err(err).
			Str("interaction_id", item.InteractionID).
			Msg("mark interaction status failed")
	}
}

// writeEvent records one delivery event in ClickHouse, best effort
func (s *Svc) writeEvent(ctx context.Context, item qdom.Item, outcome string, errCode int, latency time.Duration) {
	if s.ch == nil {
		return
	}
	row := []any{
		s.now().UTC(),
		item.Platform,
		item.Account,
		item.ID,
		item.AutomationID,
		outcome,
		int32(errCode),
		int32(item.RetryCount + 1),
		int64(latency / time.Millisecond),
	}
	if err := s.ch.Insert(ctx, "delivery_events", [][]any{row}); err != nil {
		ev := logger.C(ctx).Warn().Err(err).Str("outcome", outcome)
		if b, ok := scope.Get(ctx, "batch"); ok {
			ev = ev.Str("batch_id", b)
		}
		ev.Msg("delivery event write failed")
	}
}
