package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/brindlehq/talentbase/internal/models"
	pkghttp "github.com/brindlehq/talentbase/pkg/http"
)

// SessionCookieName is the cookie used by browser clients; API clients send
// the session id as a bearer token instead.
const SessionCookieName = "talentbase_session"

type contextKey string

const sessionContextKey contextKey = "session"

// SessionFetcher reads and refreshes session payloads from the session store
type SessionFetcher interface {
	Get(ctx context.Context, sessionID string) (*models.Session, error)
	Refresh(ctx context.Context, sessionID string, ttl time.Duration) error
}

// DeviceToucher stamps activity on the device record behind a session
type DeviceToucher interface {
	TouchBySessionID(ctx context.Context, sessionID string) error
}

// PolicyProvider resolves the tenant policy for the sliding session timeout
type PolicyProvider interface {
	Get(ctx context.Context, tenantID string) (*models.TenantSecurityPolicy, error)
}

// SessionAuth authenticates requests by resolving the presented session id
// against the session store. The session payload is fetched fresh on every
// request; nothing is cached in-process. Each authenticated request slides
// the session expiry forward by the tenant's idle timeout and stamps the
// device record's last_active, both best-effort.
func SessionAuth(sessions SessionFetcher, devices DeviceToucher, policies PolicyProvider, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := extractSessionID(r)
			if sessionID == "" {
				pkghttp.WriteUnauthorized(w, "Authentication required")
				return
			}

			session, err := sessions.Get(r.Context(), sessionID)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					pkghttp.WriteUnauthorized(w, "Session expired or invalid")
					return
				}
				logger.Error("session lookup failed", slog.Any("error", err))
				pkghttp.WriteInternalError(w, "Internal server error")
				return
			}

			if policy, perr := policies.Get(r.Context(), session.TenantID); perr == nil {
				if rerr := sessions.Refresh(r.Context(), sessionID, policy.SessionTimeout()); rerr != nil {
					logger.Warn("failed to refresh session expiry",
						slog.String("session_id", sessionID), slog.Any("error", rerr))
				}
			}

			if terr := devices.TouchBySessionID(r.Context(), sessionID); terr != nil && !errors.Is(terr, models.ErrNotFound) {
				logger.Warn("failed to touch session device",
					slog.String("session_id", sessionID), slog.Any("error", terr))
			}

			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), session)))
		})
	}
}

// RequireCapability rejects requests whose session role lacks the
// capability. Must run after SessionAuth.
func RequireCapability(capability Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := SessionFromContext(r.Context())
			if session == nil {
				pkghttp.WriteUnauthorized(w, "Authentication required")
				return
			}
			if !Can(session.Role, capability) {
				pkghttp.WriteForbidden(w, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ContextWithSession attaches an authenticated session to the context.
func ContextWithSession(ctx context.Context, session *models.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// SessionFromContext returns the authenticated session, or nil when the
// request did not pass SessionAuth.
func SessionFromContext(ctx context.Context) *models.Session {
	session, _ := ctx.Value(sessionContextKey).(*models.Session)
	return session
}

func extractSessionID(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
