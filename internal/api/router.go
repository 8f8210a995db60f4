package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/kiranshivaraju/faultline/internal/api/middleware"
	"github.com/kiranshivaraju/faultline/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	IngestEvent http.HandlerFunc

	ListGroups        http.HandlerFunc
	GetGroup          http.HandlerFunc
	UpdateGroupStatus http.HandlerFunc

	ListRules  http.HandlerFunc
	CreateRule http.HandlerFunc
	GetRule    http.HandlerFunc
	UpdateRule http.HandlerFunc
	DeleteRule http.HandlerFunc

	ListAlerts http.HandlerFunc
	Evaluate   http.HandlerFunc

	CreateKeyHandler http.HandlerFunc
	ListKeysHandler  http.HandlerFunc
	RevokeKeyHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope("ingest"))
			r.Post("/api/v1/events", orNotImplemented(deps.IngestEvent))
		})

		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope("read"))

			r.Get("/api/v1/groups", orNotImplemented(deps.ListGroups))
			r.Get("/api/v1/groups/{groupID}", orNotImplemented(deps.GetGroup))

			r.Get("/api/v1/rules", orNotImplemented(deps.ListRules))
			r.Get("/api/v1/rules/{ruleID}", orNotImplemented(deps.GetRule))

			r.Get("/api/v1/alerts", orNotImplemented(deps.ListAlerts))
		})

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope("admin"))

			r.Patch("/api/v1/groups/{groupID}/status", orNotImplemented(deps.UpdateGroupStatus))

			r.Post("/api/v1/rules", orNotImplemented(deps.CreateRule))
			r.Patch("/api/v1/rules/{ruleID}", orNotImplemented(deps.UpdateRule))
			r.Delete("/api/v1/rules/{ruleID}", orNotImplemented(deps.DeleteRule))

			r.Post("/api/v1/evaluate", orNotImplemented(deps.Evaluate))

			r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeysHandler))
			r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
