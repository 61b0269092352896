package access

import (
	"context"
	"net/http"

	"github.com/go-jose/go-jose/v4"

	"github.com/frahmantamala/oneaccess/internal/auth"
	"github.com/frahmantamala/oneaccess/internal/directory"
	"github.com/frahmantamala/oneaccess/internal/transport"
)

type ServiceAPI interface {
	IssueQRToken(ctx context.Context, user *directory.User, dto QRTokenDTO) (*TokenResponse, error)
	IssueVisitorToken(ctx context.Context, dto VisitorTokenDTO) (*VisitorTokenResponse, error)
	Verify(ctx context.Context, req VerifyRequest) (*VerifyResponse, error)
}

// KeySet publishes the verifying keys.
type KeySet interface {
	JWKS() jose.JSONWebKeySet
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Keys    KeySet
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, keys KeySet) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
		Keys:        keys,
	}
}

// JWKS handles GET /.well-known/jwks.json
func (h *Handler) JWKS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=300")
	h.WriteJSON(w, http.StatusOK, h.Keys.JWKS())
}

// IssueQRToken handles POST /qr/token
func (h *Handler) IssueQRToken(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "Missing Bearer token")
		return
	}

	var dto QRTokenDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	resp, err := h.Service.IssueQRToken(r.Context(), user, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

// IssueVisitorToken handles POST /visitor/token
func (h *Handler) IssueVisitorToken(w http.ResponseWriter, r *http.Request) {
	var dto VisitorTokenDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	resp, err := h.Service.IssueVisitorToken(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

// Verify handles POST /access/verify. Readers are not authenticated.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, err)
		return
	}

	resp, err := h.Service.Verify(r.Context(), req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}
