package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/brindlehq/talentbase/internal/auth"
	"github.com/brindlehq/talentbase/internal/models"
	"github.com/brindlehq/talentbase/internal/services"
	pkghttp "github.com/brindlehq/talentbase/pkg/http"
)

// MFAServiceInterface defines the MFA lifecycle operations the handler needs
type MFAServiceInterface interface {
	Status(ctx context.Context, session *models.Session) (*services.MFAStatusResponse, error)
	StartEnrollment(ctx context.Context, session *models.Session, meta services.RequestMeta) (*services.EnrollmentResponse, error)
	ConfirmEnrollment(ctx context.Context, session *models.Session, code string, meta services.RequestMeta) (*services.BackupCodesResponse, error)
	Disable(ctx context.Context, session *models.Session, code string, meta services.RequestMeta) error
	RegenerateBackupCodes(ctx context.Context, session *models.Session, code string, meta services.RequestMeta) (*services.BackupCodesResponse, error)
}

// MFAHandler handles MFA enrollment HTTP requests
type MFAHandler struct {
	service  MFAServiceInterface
	ipConfig *pkghttp.IPConfig
}

func NewMFAHandler(service MFAServiceInterface, ipConfig *pkghttp.IPConfig) *MFAHandler {
	return &MFAHandler{
		service:  service,
		ipConfig: ipConfig,
	}
}

// ConfirmEnrollmentRequest represents the request body for confirming enrollment
type ConfirmEnrollmentRequest struct {
	Code string `json:"code" validate:"required"`
}

// MFACodeRequest carries the possession-proving code required by disable
// and backup-code regeneration
type MFACodeRequest struct {
	Code string `json:"code" validate:"required"`
}

func (h *MFAHandler) requestMeta(r *http.Request) services.RequestMeta {
	return services.RequestMeta{
		IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: r.Header.Get("User-Agent"),
	}
}

// Status reports whether MFA is enabled and how many backup codes remain.
func (h *MFAHandler) Status(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	resp, err := h.service.Status(r.Context(), session)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// StartEnrollment generates a provisional TOTP secret for the caller.
func (h *MFAHandler) StartEnrollment(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	resp, err := h.service.StartEnrollment(r.Context(), session, h.requestMeta(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// ConfirmEnrollment activates MFA once the caller proves possession of the
// secret. Backup codes are returned exactly once.
func (h *MFAHandler) ConfirmEnrollment(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req ConfirmEnrollmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	resp, err := h.service.ConfirmEnrollment(r.Context(), session, req.Code, h.requestMeta(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// Disable turns MFA off for the caller after verifying a current code,
// unless tenant policy requires MFA.
func (h *MFAHandler) Disable(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req MFACodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.Disable(r.Context(), session, req.Code, h.requestMeta(r)); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RegenerateBackupCodes replaces the caller's backup codes with a fresh set
// after verifying a current code.
func (h *MFAHandler) RegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req MFACodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	resp, err := h.service.RegenerateBackupCodes(r.Context(), session, req.Code, h.requestMeta(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}
