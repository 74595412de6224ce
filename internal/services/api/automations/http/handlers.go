// Package http provides http transport for automation management
package http

import (
	stdhttp "net/http"

	"fanflow/internal/modkit/httpkit"
	"fanflow/internal/platform/net/middleware"
	dom "fanflow/internal/services/automations/domain"
)

// Register mounts automation endpoints on the given router. Mutations sit
// behind bearer auth; a nil port leaves them open for local development
func Register(r httpkit.Router, reader dom.ReaderPort, writer dom.WriterPort, auth middleware.AuthPort) {
	h := &handlers{reader: reader, writer: writer}

	httpkit.Get(r, "/", h.list)

	httpkit.Protected(r, auth, func(pr httpkit.Router) {
		httpkit.PostJSON[dom.Automation](pr, "/", h.upsert)
	})
}

type handlers struct {
	reader dom.ReaderPort
	writer dom.WriterPort
}

// UpsertResponse carries the id of the written automation
type UpsertResponse struct {
	ID string `json:"id" example:"7b0fbd3e-9c36-4f0e-8f1e-2d41a1a7b5aa"`
}

// swagger:route GET /automations Automations automationsList
// @Summary List active automations in match order
// @Tags Automations
// @Produce json
// @Success 200 {array} domain.Automation "ok"
// @Router /automations [get]
func (h *handlers) list(r *stdhttp.Request) (any, error) {
	return h.reader.ListActive(r.Context())
}

// swagger:route POST /automations Automations automationsUpsert
// @Summary Create or update an automation
// @Tags Automations
// @Accept json
// @Produce json
// @Param payload body domain.Automation true "Automation"
// @Success 200 {object} UpsertResponse "ok"
// @Router /automations [post]
func (h *handlers) upsert(r *stdhttp.Request, in dom.Automation) (any, error) {
	id, err := h.writer.Upsert(r.Context(), in)
	if err != nil {
		return nil, err
	}
	return UpsertResponse{ID: id}, nil
}
