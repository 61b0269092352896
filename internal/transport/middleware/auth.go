package middleware

import (
	"net/http"

	"github.com/frahmantamala/oneaccess/internal"
	"github.com/frahmantamala/oneaccess/internal/auth"
	"github.com/frahmantamala/oneaccess/pkg/logger"
)

// UserContext copies the authenticated user's ids into the request context
// and its logger. It must run after the bearer auth middleware.
func UserContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := internal.ContextWithUserID(r.Context(), user.ID)
		ctx = internal.ContextWithCompanyID(ctx, user.CompanyID)
		ctx = logger.With(ctx, "company_id", user.CompanyID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
