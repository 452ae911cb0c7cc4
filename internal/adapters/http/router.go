package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/citadelle/account-security-service/internal/application"
)

// Handler is the HTTP adapter entrypoint for policy administration.
type Handler struct {
	service *application.Service
}

// NewHandler constructs an HTTP handler bound to the application service.
func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

// NewRouter registers the administrative HTTP routes and middleware stack.
// Authentication wire formats belong to the identity edge, not here; this
// surface covers policy management and operational visibility.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/admin/v1", func(r chi.Router) {
		r.Use(handler.authMiddleware)

		r.Get("/policies", handler.listPolicies)
		r.Put("/policies", handler.upsertPolicy)
		r.Delete("/policies/{policy_id}", handler.deactivatePolicy)
		r.Get("/tenants/{tenant_id}/config", handler.effectiveConfig)

		r.Get("/lockouts", handler.listLockouts)
		r.Delete("/lockouts/{user_id}", handler.unlockAccount)

		r.Get("/users/{user_id}/sessions", handler.listUserSessions)
		r.Delete("/users/{user_id}/sessions", handler.revokeUserSessions)
		r.Delete("/sessions/{jti}", handler.revokeSession)
	})

	return r
}
