package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// StoreUnavailable signals an infrastructure failure talking to the
	// credential or session store. Surfaced to callers as a generic 5xx.
	ErrStoreUnavailable = errors.New("store unavailable")

	// Authentication errors. ErrInvalidCredentials deliberately covers
	// unknown email, wrong password, and inactive accounts so responses
	// cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account is temporarily locked")

	// MFA state errors
	ErrInvalidMFACode       = errors.New("invalid mfa code")
	ErrMFANotEnabled        = errors.New("mfa is not enabled")
	ErrMFAAlreadyEnabled    = errors.New("mfa is already enabled")
	ErrMFADisabledByPolicy  = errors.New("mfa is disabled by tenant policy")
	ErrMFARequiredByPolicy  = errors.New("mfa is required by tenant policy")
	ErrNoPendingEnrollment  = errors.New("no pending mfa enrollment")
	ErrCurrentSessionTarget = errors.New("cannot terminate the current session")
)

// AccountLockedError carries the lockout expiry alongside the sentinel so
// callers can tell the user when to retry.
type AccountLockedError struct {
	Until time.Time
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account is temporarily locked until %s", e.Until.UTC().Format(time.RFC3339))
}

func (e *AccountLockedError) Is(target error) bool {
	return target == ErrAccountLocked
}

// PolicyViolationError reports every unmet rule at once, not just the first,
// so callers can present the full list.
type PolicyViolationError struct {
	Violations []string
}

func (e *PolicyViolationError) Error() string {
	if len(e.Violations) == 0 {
		return "policy violation"
	}
	return "policy violation: " + strings.Join(e.Violations, "; ")
}
