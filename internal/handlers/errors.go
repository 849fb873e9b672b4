package handlers

import (
	"errors"
	"net/http"

	"github.com/brindlehq/talentbase/internal/models"
	pkghttp "github.com/brindlehq/talentbase/pkg/http"
)

// writeServiceError maps service-layer errors onto HTTP responses. Credential
// failures stay deliberately vague; only an active lockout gets its own status.
func writeServiceError(w http.ResponseWriter, err error) {
	var lockedErr *models.AccountLockedError
	var violationErr *models.PolicyViolationError

	switch {
	case errors.As(err, &lockedErr):
		pkghttp.WriteLocked(w, lockedErr.Until)
	case errors.As(err, &violationErr):
		pkghttp.WritePolicyViolations(w, violationErr.Violations)
	case errors.Is(err, models.ErrInvalidCredentials):
		pkghttp.WriteUnauthorized(w, "Invalid email or password")
	case errors.Is(err, models.ErrInvalidMFACode):
		pkghttp.WriteUnauthorized(w, "Invalid verification code")
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Authentication failed")
	case errors.Is(err, models.ErrMFADisabledByPolicy):
		pkghttp.WriteForbidden(w, "MFA is disabled by your organization's policy")
	case errors.Is(err, models.ErrMFARequiredByPolicy):
		pkghttp.WriteForbidden(w, "MFA is required by your organization's policy")
	case errors.Is(err, models.ErrMFAAlreadyEnabled):
		pkghttp.WriteConflict(w, "MFA is already enabled")
	case errors.Is(err, models.ErrMFANotEnabled):
		pkghttp.WriteConflict(w, "MFA is not enabled")
	case errors.Is(err, models.ErrNoPendingEnrollment):
		pkghttp.WriteConflict(w, "No MFA enrollment in progress")
	case errors.Is(err, models.ErrCurrentSessionTarget):
		pkghttp.WriteConflict(w, "Cannot terminate the current session; log out instead")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Resource not found")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "Insufficient permissions")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
