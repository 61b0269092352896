package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/oneaccess/api"
	"github.com/frahmantamala/oneaccess/internal/access"
	"github.com/frahmantamala/oneaccess/internal/audit"
	"github.com/frahmantamala/oneaccess/internal/auth"
	"github.com/frahmantamala/oneaccess/internal/delegation"
	"github.com/frahmantamala/oneaccess/internal/timetracking"
	"github.com/frahmantamala/oneaccess/internal/transport/middleware"
	"github.com/frahmantamala/oneaccess/internal/transport/swagger"
	"github.com/frahmantamala/oneaccess/internal/visitor"
	"github.com/go-chi/chi"
)

// Handlers groups the domain handlers mounted by RegisterAllRoutes.
type Handlers struct {
	Auth         *auth.Handler
	Access       *access.Handler
	Delegation   *delegation.Handler
	Visitor      *visitor.Handler
	Audit        *audit.Handler
	TimeTracking *timetracking.Handler
}

type RouterOptions struct {
	AllowedOrigins string
	Logger         *slog.Logger
}

func RegisterAllRoutes(router *chi.Mux, health *HealthHandler, handlers Handlers, opts RouterOptions) {
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(opts.Logger))
	router.Use(middleware.LoggingMiddleware(opts.Logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(api.Spec())
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Get("/health", health.healthCheckHandler)
	router.Get("/ping", health.pingHandler)

	// The reader and app clients call the root paths; /api/v1 carries the same
	// routes.
	mountAPI(router, handlers)
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", health.healthCheckHandler)
		r.Get("/ping", health.pingHandler)
		mountAPI(r, handlers)
	})
}

func mountAPI(r chi.Router, h Handlers) {
	if h.Access != nil {
		r.Get("/.well-known/jwks.json", h.Access.JWKS)
		r.Post("/visitor/token", h.Access.IssueVisitorToken)
		r.Post("/access/verify", h.Access.Verify)
	}

	if h.Auth == nil {
		return
	}
	r.Post("/auth/login", h.Auth.Login)

	r.Group(func(pr chi.Router) {
		pr.Use(h.Auth.AuthMiddleware)
		pr.Use(middleware.UserContext)

		if h.Access != nil {
			pr.Post("/qr/token", h.Access.IssueQRToken)
		}

		if h.Delegation != nil {
			pr.Route("/delegation", func(dr chi.Router) {
				dr.Post("/create", h.Delegation.CreateDelegation)
				dr.Get("/list", h.Delegation.ListDelegations)
				dr.Post("/{id}/revoke", h.Delegation.RevokeDelegation)
			})
		}

		if h.Visitor != nil {
			pr.Post("/visitor/create", h.Visitor.CreatePass)
			pr.Get("/visitor/list", h.Visitor.ListPasses)
			pr.Post("/visitor/{id}/revoke", h.Visitor.RevokePass)
		}

		if h.Audit != nil {
			pr.Get("/audit", h.Audit.ListEvents)
		}

		if h.TimeTracking != nil {
			pr.Route("/time", func(tr chi.Router) {
				tr.Get("/sessions", h.TimeTracking.ListSessions)
				tr.Get("/current", h.TimeTracking.CurrentSession)
				tr.Get("/summary", h.TimeTracking.GetSummary)
			})
		}
	})
}
