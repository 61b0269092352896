package audit

import (
	"context"
	"net/http"

	"github.com/frahmantamala/oneaccess/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context, limit int) ([]*Event, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// ListEvents handles GET /audit?limit=50
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Service.List(r.Context(), transport.ParseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, events)
}
