package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Security audit event types
const (
	AuditLoginSuccess            = "login_success"
	AuditLoginFailed             = "login_failed"
	AuditLoginFailedLocked       = "login_failed_locked"
	AuditAccountLocked           = "account_locked"
	AuditLogout                  = "logout"
	AuditMFAChallengeSent        = "mfa_challenge_sent"
	AuditMFAFailed               = "mfa_failed"
	AuditMFAEnrollStarted        = "mfa_enroll_started"
	AuditMFAEnabled              = "mfa_enabled"
	AuditMFADisabled             = "mfa_disabled"
	AuditBackupCodeUsed          = "backup_code_used"
	AuditBackupCodesRegenerated  = "backup_codes_regenerated"
	AuditPasswordChanged         = "password_changed"
	AuditPasswordChangeFailed    = "password_change_failed"
	AuditSessionTerminated       = "session_terminated"
	AuditOtherSessionsTerminated = "other_sessions_terminated"
	AuditPolicyUpdated           = "security_policy_updated"
)

// SecurityAuditEvent is one append-only record in the security audit trail.
// Never updated or deleted by this service.
type SecurityAuditEvent struct {
	ID        string        `json:"id"`
	TenantID  string        `json:"tenant_id"`
	AccountID *string       `json:"account_id"` // nil when no account was identified
	EventType string        `json:"event_type"`
	IPAddress string        `json:"ip_address"`
	UserAgent string        `json:"user_agent"`
	Metadata  AuditMetadata `json:"metadata"`
	CreatedAt time.Time     `json:"created_at"`
}

// AuditMetadata holds additional context for audit events
type AuditMetadata map[string]interface{}

// Scan implements sql.Scanner for JSONB
func (am *AuditMetadata) Scan(value interface{}) error {
	if value == nil {
		*am = make(AuditMetadata)
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return ErrBadRequest
	}

	var m map[string]interface{}
	if err := json.Unmarshal(bytes, &m); err != nil {
		return err
	}
	*am = AuditMetadata(m)
	return nil
}

// Value implements driver.Valuer for JSONB
func (am AuditMetadata) Value() (driver.Value, error) {
	if am == nil {
		return nil, nil
	}
	return json.Marshal(am)
}

// AuditFilter narrows an audit listing. Zero values mean "no filter".
type AuditFilter struct {
	EventType string
	AccountID string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}
