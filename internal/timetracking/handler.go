package timetracking

import (
	"context"
	"net/http"

	"github.com/frahmantamala/oneaccess/internal"
	"github.com/frahmantamala/oneaccess/internal/transport"
)

type ServiceAPI interface {
	Current(ctx context.Context, userID string) (*Session, error)
	List(ctx context.Context, userID string, limit int) ([]*Session, error)
	Summary(ctx context.Context, userID string) (*Summary, error)
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

// ListSessions handles GET /time/sessions?limit=50
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	sessions, err := h.Service.List(r.Context(), userID, transport.ParseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, SessionsResponse{Sessions: sessions})
}

// CurrentSession handles GET /time/current
func (h *Handler) CurrentSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	s, err := h.Service.Current(r.Context(), userID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, CurrentResponse{Session: s})
}

// GetSummary handles GET /time/summary
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	summary, err := h.Service.Summary(r.Context(), userID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, summary)
}

// userID reads the caller set by the bearer middleware chain. Sessions are
// keyed by user id alone.
func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := internal.UserIDFromContext(r.Context())
	if id == "" {
		h.WriteError(w, http.StatusUnauthorized, "Missing Bearer token")
		return "", false
	}
	return id, true
}
