package models

import "time"

// MFA policy values
const (
	MFAPolicyOff      = "off"
	MFAPolicyOptional = "optional"
	MFAPolicyRequired = "required"
)

// Validation bounds for tenant policy updates
const (
	PasswordMinLengthFloor   = 8
	PasswordMinLengthCeiling = 16
	SessionTimeoutFloor      = 15  // minutes
	SessionTimeoutCeiling    = 480 // minutes
)

// TenantSecurityPolicy is the per-tenant singleton of security rules.
// Read-mostly; mutated only by tenant admins through the policy service.
type TenantSecurityPolicy struct {
	TenantID                 string `json:"tenant_id"`
	MFAPolicy                string `json:"mfa_policy"`
	MFAGracePeriodDays       int    `json:"mfa_grace_period_days"`
	PasswordMinLength        int    `json:"password_min_length"`
	PasswordRequireUppercase bool   `json:"password_require_uppercase"`
	PasswordRequireNumber    bool   `json:"password_require_number"`
	PasswordRequireSpecial   bool   `json:"password_require_special"`
	SessionTimeoutMinutes    int    `json:"session_timeout_minutes"`
	UpdatedAt                time.Time `json:"updated_at"`
}

// DefaultSecurityPolicy returns the policy applied to tenants that have
// never customised theirs.
func DefaultSecurityPolicy(tenantID string) *TenantSecurityPolicy {
	return &TenantSecurityPolicy{
		TenantID:                 tenantID,
		MFAPolicy:                MFAPolicyOptional,
		MFAGracePeriodDays:       14,
		PasswordMinLength:        8,
		PasswordRequireUppercase: true,
		PasswordRequireNumber:    true,
		PasswordRequireSpecial:   false,
		SessionTimeoutMinutes:    60,
	}
}

// SessionTimeout returns the configured idle timeout as a duration.
func (p *TenantSecurityPolicy) SessionTimeout() time.Duration {
	return time.Duration(p.SessionTimeoutMinutes) * time.Minute
}

// SecurityPolicyPatch enumerates every recognised update field. Nil means
// "leave unchanged". Validation rejects the whole patch on any violation;
// no partial apply.
type SecurityPolicyPatch struct {
	MFAPolicy                *string `json:"mfa_policy"`
	MFAGracePeriodDays       *int    `json:"mfa_grace_period_days"`
	PasswordMinLength        *int    `json:"password_min_length"`
	PasswordRequireUppercase *bool   `json:"password_require_uppercase"`
	PasswordRequireNumber    *bool   `json:"password_require_number"`
	PasswordRequireSpecial   *bool   `json:"password_require_special"`
	SessionTimeoutMinutes    *int    `json:"session_timeout_minutes"`
}
