package visitor

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/oneaccess/internal/auth"
	"github.com/frahmantamala/oneaccess/internal/directory"
	"github.com/frahmantamala/oneaccess/internal/transport"
)

type ServiceAPI interface {
	Create(ctx context.Context, creator *directory.User, dto CreatePassDTO) (*Pass, error)
	List(ctx context.Context, user *directory.User) (*ListResponse, error)
	Revoke(ctx context.Context, user *directory.User, id string) error
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

// CreatePass handles POST /visitor/create
func (h *Handler) CreatePass(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "Missing Bearer token")
		return
	}

	var dto CreatePassDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	p, err := h.Service.Create(r.Context(), user, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, CreatePassResponse{
		PassID:     p.ID,
		Status:     "created",
		ValidUntil: p.ValidUntil,
		MaxUses:    p.MaxUses,
	})
}

// ListPasses handles GET /visitor/list
func (h *Handler) ListPasses(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "Missing Bearer token")
		return
	}

	resp, err := h.Service.List(r.Context(), user)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

// RevokePass handles POST /visitor/{id}/revoke
func (h *Handler) RevokePass(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "Missing Bearer token")
		return
	}

	if err := h.Service.Revoke(r.Context(), user, chi.URLParam(r, "id")); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}
