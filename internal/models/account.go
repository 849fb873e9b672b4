package models

import (
	"time"
)

// Employment statuses. Only active accounts may authenticate.
const (
	EmploymentStatusActive     = "active"
	EmploymentStatusOnLeave    = "on_leave"
	EmploymentStatusTerminated = "terminated"
)

// Roles recognised by the capability checks.
const (
	RoleEmployee = "employee"
	RoleHRAdmin  = "hr_admin"
	RoleAdmin    = "admin"
)

// Account is the credential-store record for one employee login.
// Lockout counters and MFA state are mutated only through the repository's
// atomic updates, never read-modify-write in application code.
type Account struct {
	ID                  string
	TenantID            string
	Email               string // unique case-insensitively within tenant
	PasswordHash        string
	Name                string
	Role                string
	EmploymentStatus    string
	FailedLoginAttempts int
	LockedUntil         *time.Time
	MFAEnabled          bool
	MFASecret           *string // base32 TOTP secret, present iff MFAEnabled
	MFAEnabledAt        *time.Time
	LastLoginAt         *time.Time
	PasswordChangedAt   *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsActive reports whether the account may authenticate at all.
func (a *Account) IsActive() bool {
	return a.EmploymentStatus == EmploymentStatusActive
}
