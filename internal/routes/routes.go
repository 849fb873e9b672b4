package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brindlehq/talentbase/internal/auth"
	"github.com/brindlehq/talentbase/internal/handlers"
	"github.com/brindlehq/talentbase/internal/middleware"
)

// Handlers bundles the HTTP handlers wired into the router
type Handlers struct {
	Auth     *handlers.AuthHandler
	MFA      *handlers.MFAHandler
	Sessions *handlers.SessionHandler
	Policy   *handlers.PolicyHandler
	Audit    *handlers.AuditHandler
}

// RegisterRoutes registers all application routes. sessionAuth is the
// session-resolving middleware applied to every protected route.
func RegisterRoutes(
	router chi.Router,
	h Handlers,
	sessionAuth func(http.Handler) http.Handler,
) {
	loginRateLimit := middleware.RateLimitByIP(middleware.DefaultAuthRateLimit())

	// Public routes - no authentication required
	router.With(loginRateLimit).Post("/auth/login", h.Auth.Login)
	router.With(loginRateLimit).Post("/auth/login/mfa", h.Auth.VerifyMFA)

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(sessionAuth)
		r.Use(middleware.RateLimitBySession(middleware.DefaultSessionRateLimit()))

		r.Post("/auth/logout", h.Auth.Logout)
		r.Post("/auth/password", h.Auth.ChangePassword)

		r.Get("/mfa", h.MFA.Status)
		r.Post("/mfa/enroll", h.MFA.StartEnrollment)
		r.Post("/mfa/enroll/confirm", h.MFA.ConfirmEnrollment)
		r.Delete("/mfa", h.MFA.Disable)
		r.Post("/mfa/backup-codes", h.MFA.RegenerateBackupCodes)

		r.Get("/sessions", h.Sessions.List)
		r.Delete("/sessions", h.Sessions.TerminateOthers)
		r.Delete("/sessions/{deviceID}", h.Sessions.Terminate)

		r.With(auth.RequireCapability(auth.CapViewSecurityPolicy)).
			Get("/policy", h.Policy.Get)
		r.With(auth.RequireCapability(auth.CapManageSecurityPolicy)).
			Patch("/policy", h.Policy.Update)

		r.With(auth.RequireCapability(auth.CapViewAuditLog)).
			Get("/audit-events", h.Audit.List)
	})
}
