package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/brindlehq/talentbase/internal/models"
	"github.com/brindlehq/talentbase/internal/sessionstore"
	pkglogger "github.com/brindlehq/talentbase/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// MockAccountRepository implements AccountRepository for testing
type MockAccountRepository struct {
	GetByIDFunc            func(ctx context.Context, tenantID, id string) (*models.Account, error)
	GetByEmailFunc         func(ctx context.Context, tenantID, email string) (*models.Account, error)
	RecordLoginFailureFunc func(ctx context.Context, id string, maxAttempts int, lockUntil time.Time) (int, *time.Time, error)
	RecordLoginSuccessFunc func(ctx context.Context, id string) error
	UpdatePasswordFunc     func(ctx context.Context, id, passwordHash string) error
	EnableMFAFunc          func(ctx context.Context, id, secret string) error
	DisableMFAFunc         func(ctx context.Context, id string) error
}

func (m *MockAccountRepository) GetByID(ctx context.Context, tenantID, id string) (*models.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, tenantID, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, tenantID, email string) (*models.Account, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, tenantID, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) RecordLoginFailure(ctx context.Context, id string, maxAttempts int, lockUntil time.Time) (int, *time.Time, error) {
	if m.RecordLoginFailureFunc != nil {
		return m.RecordLoginFailureFunc(ctx, id, maxAttempts, lockUntil)
	}
	return 1, nil, nil
}

func (m *MockAccountRepository) RecordLoginSuccess(ctx context.Context, id string) error {
	if m.RecordLoginSuccessFunc != nil {
		return m.RecordLoginSuccessFunc(ctx, id)
	}
	return nil
}

func (m *MockAccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

func (m *MockAccountRepository) EnableMFA(ctx context.Context, id, secret string) error {
	if m.EnableMFAFunc != nil {
		return m.EnableMFAFunc(ctx, id, secret)
	}
	return nil
}

func (m *MockAccountRepository) DisableMFA(ctx context.Context, id string) error {
	if m.DisableMFAFunc != nil {
		return m.DisableMFAFunc(ctx, id)
	}
	return nil
}

// MockBackupCodeRepository implements BackupCodeRepository for testing
type MockBackupCodeRepository struct {
	ReplaceBatchFunc     func(ctx context.Context, accountID string, codeHashes []string) error
	ListUnusedFunc       func(ctx context.Context, accountID string) ([]*models.BackupCode, error)
	ConsumeFunc          func(ctx context.Context, id string) error
	CountUnusedFunc      func(ctx context.Context, accountID string) (int, error)
	DeleteForAccountFunc func(ctx context.Context, accountID string) error
}

func (m *MockBackupCodeRepository) ReplaceBatch(ctx context.Context, accountID string, codeHashes []string) error {
	if m.ReplaceBatchFunc != nil {
		return m.ReplaceBatchFunc(ctx, accountID, codeHashes)
	}
	return nil
}

func (m *MockBackupCodeRepository) ListUnused(ctx context.Context, accountID string) ([]*models.BackupCode, error) {
	if m.ListUnusedFunc != nil {
		return m.ListUnusedFunc(ctx, accountID)
	}
	return []*models.BackupCode{}, nil
}

func (m *MockBackupCodeRepository) Consume(ctx context.Context, id string) error {
	if m.ConsumeFunc != nil {
		return m.ConsumeFunc(ctx, id)
	}
	return nil
}

func (m *MockBackupCodeRepository) CountUnused(ctx context.Context, accountID string) (int, error) {
	if m.CountUnusedFunc != nil {
		return m.CountUnusedFunc(ctx, accountID)
	}
	return 0, nil
}

func (m *MockBackupCodeRepository) DeleteForAccount(ctx context.Context, accountID string) error {
	if m.DeleteForAccountFunc != nil {
		return m.DeleteForAccountFunc(ctx, accountID)
	}
	return nil
}

// MockSessionDeviceRepository implements SessionDeviceRepository for testing
type MockSessionDeviceRepository struct {
	CreateFunc            func(ctx context.Context, device *models.SessionDevice) (*models.SessionDevice, error)
	ListByAccountFunc     func(ctx context.Context, accountID string) ([]*models.SessionDevice, error)
	GetByIDFunc           func(ctx context.Context, accountID, id string) (*models.SessionDevice, error)
	DeleteFunc            func(ctx context.Context, id string) error
	DeleteBySessionIDFunc func(ctx context.Context, sessionID string) error
	DeleteOthersFunc      func(ctx context.Context, accountID, keepSessionID string) ([]string, error)
	TouchBySessionIDFunc  func(ctx context.Context, sessionID string) error
}

func (m *MockSessionDeviceRepository) Create(ctx context.Context, device *models.SessionDevice) (*models.SessionDevice, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, device)
	}
	device.ID = "device_" + device.AccountID + "_test"
	now := time.Now()
	device.CreatedAt = now
	device.LastActiveAt = now
	return device, nil
}

func (m *MockSessionDeviceRepository) ListByAccount(ctx context.Context, accountID string) ([]*models.SessionDevice, error) {
	if m.ListByAccountFunc != nil {
		return m.ListByAccountFunc(ctx, accountID)
	}
	return []*models.SessionDevice{}, nil
}

func (m *MockSessionDeviceRepository) GetByID(ctx context.Context, accountID, id string) (*models.SessionDevice, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, accountID, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockSessionDeviceRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockSessionDeviceRepository) DeleteBySessionID(ctx context.Context, sessionID string) error {
	if m.DeleteBySessionIDFunc != nil {
		return m.DeleteBySessionIDFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockSessionDeviceRepository) DeleteOthers(ctx context.Context, accountID, keepSessionID string) ([]string, error) {
	if m.DeleteOthersFunc != nil {
		return m.DeleteOthersFunc(ctx, accountID, keepSessionID)
	}
	return []string{}, nil
}

func (m *MockSessionDeviceRepository) TouchBySessionID(ctx context.Context, sessionID string) error {
	if m.TouchBySessionIDFunc != nil {
		return m.TouchBySessionIDFunc(ctx, sessionID)
	}
	return nil
}

// MockPolicyRepository implements PolicyRepository for testing
type MockPolicyRepository struct {
	GetFunc    func(ctx context.Context, tenantID string) (*models.TenantSecurityPolicy, error)
	UpsertFunc func(ctx context.Context, policy *models.TenantSecurityPolicy) (*models.TenantSecurityPolicy, error)
}

func (m *MockPolicyRepository) Get(ctx context.Context, tenantID string) (*models.TenantSecurityPolicy, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, tenantID)
	}
	return nil, models.ErrNotFound
}

func (m *MockPolicyRepository) Upsert(ctx context.Context, policy *models.TenantSecurityPolicy) (*models.TenantSecurityPolicy, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, policy)
	}
	return policy, nil
}

// MockAuditRepository implements AuditRepository for testing. Inserted events
// are collected so tests can assert on the trail.
type MockAuditRepository struct {
	InsertFunc func(ctx context.Context, event *models.SecurityAuditEvent) (*models.SecurityAuditEvent, error)
	ListFunc   func(ctx context.Context, tenantID string, filter models.AuditFilter) ([]*models.SecurityAuditEvent, error)
	CountFunc  func(ctx context.Context, tenantID string, filter models.AuditFilter) (int64, error)
	Inserted   []*models.SecurityAuditEvent
}

func (m *MockAuditRepository) Insert(ctx context.Context, event *models.SecurityAuditEvent) (*models.SecurityAuditEvent, error) {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, event)
	}
	m.Inserted = append(m.Inserted, event)
	return event, nil
}

func (m *MockAuditRepository) List(ctx context.Context, tenantID string, filter models.AuditFilter) ([]*models.SecurityAuditEvent, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, tenantID, filter)
	}
	return []*models.SecurityAuditEvent{}, nil
}

func (m *MockAuditRepository) Count(ctx context.Context, tenantID string, filter models.AuditFilter) (int64, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx, tenantID, filter)
	}
	return 0, nil
}

// HasEvent reports whether an event of the given type was inserted.
func (m *MockAuditRepository) HasEvent(eventType string) bool {
	for _, event := range m.Inserted {
		if event.EventType == eventType {
			return true
		}
	}
	return false
}

// CountEvents counts inserted events of the given type.
func (m *MockAuditRepository) CountEvents(eventType string) int {
	count := 0
	for _, event := range m.Inserted {
		if event.EventType == eventType {
			count++
		}
	}
	return count
}

// MockSessionStore implements SessionStore for testing
type MockSessionStore struct {
	SaveFunc    func(ctx context.Context, session *models.Session, ttl time.Duration) error
	GetFunc     func(ctx context.Context, sessionID string) (*models.Session, error)
	DeleteFunc  func(ctx context.Context, sessionID string) error
	RefreshFunc func(ctx context.Context, sessionID string, ttl time.Duration) error
	Deleted     []string
}

func (m *MockSessionStore) Save(ctx context.Context, session *models.Session, ttl time.Duration) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, session, ttl)
	}
	return nil
}

func (m *MockSessionStore) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, sessionID)
	}
	return nil, models.ErrNotFound
}

func (m *MockSessionStore) Delete(ctx context.Context, sessionID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, sessionID)
	}
	m.Deleted = append(m.Deleted, sessionID)
	return nil
}

func (m *MockSessionStore) Refresh(ctx context.Context, sessionID string, ttl time.Duration) error {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, sessionID, ttl)
	}
	return nil
}

// MockPendingStore implements PendingEnrollmentStore for testing
type MockPendingStore struct {
	SaveFunc   func(ctx context.Context, pending *sessionstore.PendingEnrollment) error
	GetFunc    func(ctx context.Context, accountID, sessionID string) (*sessionstore.PendingEnrollment, error)
	DeleteFunc func(ctx context.Context, accountID, sessionID string) error
	Saved      *sessionstore.PendingEnrollment
}

func (m *MockPendingStore) Save(ctx context.Context, pending *sessionstore.PendingEnrollment) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, pending)
	}
	m.Saved = pending
	return nil
}

func (m *MockPendingStore) Get(ctx context.Context, accountID, sessionID string) (*sessionstore.PendingEnrollment, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, accountID, sessionID)
	}
	if m.Saved != nil && m.Saved.AccountID == accountID && m.Saved.SessionID == sessionID {
		return m.Saved, nil
	}
	return nil, models.ErrNoPendingEnrollment
}

func (m *MockPendingStore) Delete(ctx context.Context, accountID, sessionID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, accountID, sessionID)
	}
	m.Saved = nil
	return nil
}

// MockLockoutNotifier implements LockoutNotifier for testing
type MockLockoutNotifier struct {
	NotifyAccountLockedFunc func(ctx context.Context, account *models.Account, until time.Time) error
	Notified                []string
}

func (m *MockLockoutNotifier) NotifyAccountLocked(ctx context.Context, account *models.Account, until time.Time) error {
	if m.NotifyAccountLockedFunc != nil {
		return m.NotifyAccountLockedFunc(ctx, account, until)
	}
	m.Notified = append(m.Notified, account.ID)
	return nil
}

// MockTimingWaiter implements TimingWaiter without actually sleeping
type MockTimingWaiter struct {
	WaitFromFunc func(startTime time.Time, success bool)
}

func (m *MockTimingWaiter) WaitFrom(startTime time.Time, success bool) {
	if m.WaitFromFunc != nil {
		m.WaitFromFunc(startTime, success)
	}
}

// discardLogger returns a logger whose output goes nowhere.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestAuditService wires an AuditService onto the given mock repository.
func newTestAuditService(repo *MockAuditRepository) *AuditService {
	logger := discardLogger()
	return NewAuditService(repo, pkglogger.NewAuditLogger(logger), logger)
}

// NewTestAccount builds an active, unlocked account without MFA.
func NewTestAccount(id, tenantID, email string) *models.Account {
	now := time.Now()
	return &models.Account{
		ID:               id,
		TenantID:         tenantID,
		Email:            email,
		Name:             "Test Employee",
		Role:             models.RoleEmployee,
		EmploymentStatus: models.EmploymentStatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// NewTestAccountWithPassword builds an account whose password hash matches
// the given plaintext. Uses the minimum bcrypt cost to keep tests fast.
func NewTestAccountWithPassword(id, tenantID, email, password string) *models.Account {
	account := NewTestAccount(id, tenantID, email)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	account.PasswordHash = string(hash)
	return account
}

// NewTestAccountWithMFA builds an MFA-enabled account with the given secret.
func NewTestAccountWithMFA(id, tenantID, email, secret string) *models.Account {
	account := NewTestAccount(id, tenantID, email)
	now := time.Now()
	account.MFAEnabled = true
	account.MFASecret = &secret
	account.MFAEnabledAt = &now
	return account
}

// NewTestSession builds a session for the given account.
func NewTestSession(id, accountID, tenantID string) *models.Session {
	return &models.Session{
		ID:        id,
		AccountID: accountID,
		TenantID:  tenantID,
		Role:      models.RoleEmployee,
		CreatedAt: time.Now(),
	}
}
