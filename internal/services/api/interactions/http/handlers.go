// Package http provides http transport for interaction intake
package http

import (
	stdhttp "net/http"

	"fanflow/internal/modkit/httpkit"
	dom "fanflow/internal/services/engine/domain"
)

// Register mounts interaction endpoints on the given router
func Register(r httpkit.Router, submit dom.SubmitterPort) {
	h := &handlers{svc: submit}

	// intake: classify, match, schedule, enqueue
	httpkit.PostJSON[dom.SubmitInput](r, "/", h.submit)
}

type handlers struct{ svc dom.SubmitterPort }

// swagger:route POST /interactions Interactions interactionsSubmit
// @Summary Submit an inbound interaction for processing
// @Tags Interactions
// @Accept json
// @Produce json
// @Param payload body domain.SubmitInput true "Interaction"
// @Success 200 {object} domain.SubmitResult "ok"
// @Router /interactions [post]
func (h *handlers) submit(r *stdhttp.Request, in dom.SubmitInput) (any, error) {
	return h.svc.Submit(r.Context(), in)
}
