package http

import (
	"encoding/json"
	"net/http"
	"time"
)

// ErrorResponse represents a standard API error response
type ErrorResponse struct {
	Error       string     `json:"error"`                  // Machine-readable error code
	Message     string     `json:"message"`                // Human-readable message
	Details     string     `json:"details,omitempty"`      // Optional additional context
	Violations  []string   `json:"violations,omitempty"`   // Unmet rules for policy errors
	LockedUntil *time.Time `json:"locked_until,omitempty"` // Lockout expiry for locked responses
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	WriteErrorWithDetails(w, statusCode, errorCode, message, "")
}

// WriteErrorWithDetails writes a JSON error response with additional details
func WriteErrorWithDetails(w http.ResponseWriter, statusCode int, errorCode, message, details string) {
	resp := ErrorResponse{
		Error:   errorCode,
		Message: message,
		Details: details,
	}

	// Log encoding errors but don't expose them to client
	WriteJSON(w, statusCode, resp)
}

// Common error writers for consistency
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", message)
}

func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, "forbidden", message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message)
}

func WriteConflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, "conflict", message)
}

func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message)
}

// WriteLocked writes the distinct account-locked response. This is the one
// authentication failure allowed to differ observably from invalid
// credentials, and it carries the lockout expiry.
func WriteLocked(w http.ResponseWriter, until time.Time) {
	retryAfter := time.Until(until)
	if retryAfter > 0 {
		w.Header().Set("Retry-After", until.UTC().Format(http.TimeFormat))
	}
	WriteJSON(w, http.StatusLocked, ErrorResponse{
		Error:       "account_locked",
		Message:     "Account is temporarily locked due to repeated failed login attempts",
		LockedUntil: &until,
	})
}

// WritePolicyViolations writes a validation failure listing every unmet rule
func WritePolicyViolations(w http.ResponseWriter, violations []string) {
	WriteJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
		Error:      "policy_violation",
		Message:    "One or more policy rules were not met",
		Violations: violations,
	})
}
