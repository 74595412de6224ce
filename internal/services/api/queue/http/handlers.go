// Package http provides http transport for queue observability
package http

import (
	stdhttp "net/http"

	"fanflow/internal/modkit/httpkit"
	"fanflow/internal/platform/net/middleware"
	dom "fanflow/internal/services/queue/domain"
)

// Register mounts queue endpoints on the given router. Dead letters carry
// raw upstream error text, so the listing sits behind bearer auth; a nil
// port leaves it open for local development
func Register(r httpkit.Router, svc dom.ReaderPort, auth middleware.AuthPort) {
	h := &handlers{svc: svc}

	// per-status counts, optionally scoped by ?platform=
	httpkit.Get(r, "/stats", h.stats)

	// filtered dead-letter listing
	httpkit.Protected(r, auth, func(pr httpkit.Router) {
		httpkit.PostJSON[dom.DeadLetterFilter](pr, "/dead-letters", h.deadLetters)
	})
}

type handlers struct{ svc dom.ReaderPort }

// swagger:route GET /queue/stats Queue queueStats
// @Summary Queue counts by status
// @Tags Queue
// @Produce json
// @Param platform query string false "Platform filter"
// @Success 200 {object} domain.Stats "ok"
// @Router /queue/stats [get]
func (h *handlers) stats(r *stdhttp.Request) (any, error) {
	return h.svc.Stats(r.Context(), r.URL.Query().Get("platform"))
}

// swagger:route POST /queue/dead-letters Queue queueDeadLetters
// @Summary List dead letters, newest first
// @Tags Queue
// @Accept json
// @Produce json
// @Param payload body domain.DeadLetterFilter true "Filter"
// @Success 200 {array} domain.DeadLetter "ok"
// @Router /queue/dead-letters [post]
func (h *handlers) deadLetters(r *stdhttp.Request, in dom.DeadLetterFilter) (any, error) {
	return h.svc.DeadLetters(r.Context(), in)
}
