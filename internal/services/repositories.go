package services

import (
	"context"
	"time"

	"github.com/brindlehq/talentbase/internal/models"
	"github.com/brindlehq/talentbase/internal/sessionstore"
)

// AccountRepository defines the credential-store operations the services need
type AccountRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, tenantID, email string) (*models.Account, error)
	RecordLoginFailure(ctx context.Context, id string, maxAttempts int, lockUntil time.Time) (int, *time.Time, error)
	RecordLoginSuccess(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	EnableMFA(ctx context.Context, id, secret string) error
	DisableMFA(ctx context.Context, id string) error
}

// BackupCodeRepository defines backup-code persistence operations
type BackupCodeRepository interface {
	ReplaceBatch(ctx context.Context, accountID string, codeHashes []string) error
	ListUnused(ctx context.Context, accountID string) ([]*models.BackupCode, error)
	Consume(ctx context.Context, id string) error
	CountUnused(ctx context.Context, accountID string) (int, error)
	DeleteForAccount(ctx context.Context, accountID string) error
}

// SessionDeviceRepository defines device-registry persistence operations
type SessionDeviceRepository interface {
	Create(ctx context.Context, device *models.SessionDevice) (*models.SessionDevice, error)
	ListByAccount(ctx context.Context, accountID string) ([]*models.SessionDevice, error)
	GetByID(ctx context.Context, accountID, id string) (*models.SessionDevice, error)
	Delete(ctx context.Context, id string) error
	DeleteBySessionID(ctx context.Context, sessionID string) error
	DeleteOthers(ctx context.Context, accountID, keepSessionID string) ([]string, error)
	TouchBySessionID(ctx context.Context, sessionID string) error
}

// PolicyRepository defines tenant-policy persistence operations
type PolicyRepository interface {
	Get(ctx context.Context, tenantID string) (*models.TenantSecurityPolicy, error)
	Upsert(ctx context.Context, policy *models.TenantSecurityPolicy) (*models.TenantSecurityPolicy, error)
}

// AuditRepository defines audit-trail persistence operations
type AuditRepository interface {
	Insert(ctx context.Context, event *models.SecurityAuditEvent) (*models.SecurityAuditEvent, error)
	List(ctx context.Context, tenantID string, filter models.AuditFilter) ([]*models.SecurityAuditEvent, error)
	Count(ctx context.Context, tenantID string, filter models.AuditFilter) (int64, error)
}

// SessionStore defines the session payload store backing authenticated requests
type SessionStore interface {
	Save(ctx context.Context, session *models.Session, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (*models.Session, error)
	Delete(ctx context.Context, sessionID string) error
	Refresh(ctx context.Context, sessionID string, ttl time.Duration) error
}

// PendingEnrollmentStore holds the single in-flight MFA enrollment per session
type PendingEnrollmentStore interface {
	Save(ctx context.Context, pending *sessionstore.PendingEnrollment) error
	Get(ctx context.Context, accountID, sessionID string) (*sessionstore.PendingEnrollment, error)
	Delete(ctx context.Context, accountID, sessionID string) error
}

// LockoutNotifier informs the account owner that their account was locked
type LockoutNotifier interface {
	NotifyAccountLocked(ctx context.Context, account *models.Account, until time.Time) error
}

// TimingWaiter pads authentication failure paths to a uniform duration
type TimingWaiter interface {
	WaitFrom(startTime time.Time, success bool)
}

// RequestMeta carries the client attribution recorded on audit events.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}
