package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/brindlehq/talentbase/internal/auth"
	"github.com/brindlehq/talentbase/internal/models"
	"github.com/brindlehq/talentbase/internal/services"
	pkghttp "github.com/brindlehq/talentbase/pkg/http"
)

// TenantHeader carries the tenant on unauthenticated requests. Authenticated
// requests get the tenant from their session instead.
const TenantHeader = "X-Tenant-ID"

// AuthServiceInterface defines the login orchestration the handler needs
type AuthServiceInterface interface {
	Login(ctx context.Context, tenantID, email, password string, meta services.RequestMeta) (*services.LoginResponse, error)
	VerifyLoginMFA(ctx context.Context, challengeToken, code string, meta services.RequestMeta) (*services.LoginResponse, error)
	Logout(ctx context.Context, session *models.Session, meta services.RequestMeta) error
	ChangePassword(ctx context.Context, session *models.Session, currentPassword, newPassword string, meta services.RequestMeta) error
}

// AuthHandler handles authentication HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	ipConfig *pkghttp.IPConfig
}

func NewAuthHandler(service AuthServiceInterface, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		ipConfig: ipConfig,
	}
}

// Request DTOs

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// VerifyMFARequest represents the request body for the MFA login step
type VerifyMFARequest struct {
	ChallengeToken string `json:"challenge_token" validate:"required"`
	Code           string `json:"code" validate:"required"`
}

// ChangePasswordRequest represents the request body for a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

func (h *AuthHandler) requestMeta(r *http.Request) services.RequestMeta {
	return services.RequestMeta{
		IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: r.Header.Get("User-Agent"),
	}
}

// setSessionCookie mirrors the session token into a cookie for browser
// clients. API clients use the token from the response body as a bearer token.
func setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Login handles the credential step. Accounts with MFA enabled receive a
// challenge token instead of a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	tenantID := strings.TrimSpace(r.Header.Get(TenantHeader))
	if tenantID == "" {
		pkghttp.WriteBadRequest(w, "Missing tenant header")
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	resp, err := h.service.Login(r.Context(), tenantID, req.Email, req.Password, h.requestMeta(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if !resp.MFARequired && resp.ExpiresAt != nil {
		setSessionCookie(w, resp.SessionToken, *resp.ExpiresAt)
	}
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// VerifyMFA handles the challenge step of an MFA login.
func (h *AuthHandler) VerifyMFA(w http.ResponseWriter, r *http.Request) {
	var req VerifyMFARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	resp, err := h.service.VerifyLoginMFA(r.Context(), req.ChallengeToken, req.Code, h.requestMeta(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if resp.ExpiresAt != nil {
		setSessionCookie(w, resp.SessionToken, *resp.ExpiresAt)
	}
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// Logout ends the calling session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := h.service.Logout(r.Context(), session, h.requestMeta(r)); err != nil {
		writeServiceError(w, err)
		return
	}

	clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// ChangePassword updates the caller's password after re-verifying the
// current one.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.ChangePassword(r.Context(), session, req.CurrentPassword, req.NewPassword, h.requestMeta(r)); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
