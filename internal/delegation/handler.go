package delegation

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/oneaccess/internal/auth"
	"github.com/frahmantamala/oneaccess/internal/directory"
	"github.com/frahmantamala/oneaccess/internal/transport"
)

type ServiceAPI interface {
	Create(ctx context.Context, delegator *directory.User, dto CreateDelegationDTO) (*Delegation, error)
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

// CreateDelegation handles POST /delegation/create
func (h *Handler) CreateDelegation(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "Missing Bearer token")
		return
	}

	var dto CreateDelegationDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	d, err := h.Service.Create(r.Context(), user, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, CreateDelegationResponse{
		DelegationID: d.ID,
		Status:       "created",
		ValidUntil:   d.ValidUntil,
	})
}

// ListDelegations handles GET /delegation/list
func (h *Handler) ListDelegations(w http.ResponseWriter, r *http.Request) {
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

// RevokeDelegation handles POST /delegation/{id}/revoke
func (h *Handler) RevokeDelegation(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "Missing Bearer token")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.Service.Revoke(r.Context(), user, id); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}
