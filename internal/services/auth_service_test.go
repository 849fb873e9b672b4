package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brindlehq/talentbase/internal/auth"
	"github.com/brindlehq/talentbase/internal/models"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTenantID        = "tenant-1"
	testChallengeSecret = "test-challenge-secret-0123456789abcdef"
)

// authFixture wires an AuthService onto mocks with real collaborating
// services in between, so tests exercise the full login orchestration.
type authFixture struct {
	accounts  *MockAccountRepository
	devices   *MockSessionDeviceRepository
	sessions  *MockSessionStore
	policies  *MockPolicyRepository
	backup    *MockBackupCodeRepository
	pending   *MockPendingStore
	notifier  *MockLockoutNotifier
	auditRepo *MockAuditRepository
	challenge *auth.ChallengeTokenManager
	service   *AuthService
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		accounts:  &MockAccountRepository{},
		devices:   &MockSessionDeviceRepository{},
		sessions:  &MockSessionStore{},
		policies:  &MockPolicyRepository{},
		backup:    &MockBackupCodeRepository{},
		pending:   &MockPendingStore{},
		notifier:  &MockLockoutNotifier{},
		auditRepo: &MockAuditRepository{},
	}

	logger := discardLogger()
	audit := newTestAuditService(f.auditRepo)
	policySvc := NewPolicyService(f.policies, audit, logger)
	lockout := NewLockoutService(f.accounts, f.notifier, audit, logger)
	totpManager := auth.NewTOTPManager("Talentbase")
	mfa := NewMFAService(f.accounts, f.backup, f.pending, policySvc, totpManager, audit, logger)
	f.challenge = auth.NewChallengeTokenManager(testChallengeSecret, 5*time.Minute)
	f.service = NewAuthService(f.accounts, f.devices, f.sessions, policySvc, lockout, mfa, f.challenge, audit, &MockTimingWaiter{}, logger)

	return f
}

func testMeta() RequestMeta {
	return RequestMeta{IPAddress: "203.0.113.9", UserAgent: "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0"}
}

func TestAuthService_Login_Success(t *testing.T) {
	f := newAuthFixture()
	account := NewTestAccountWithPassword("acct-1", testTenantID, "jane@corp.test", "Correct#Horse9")

	f.accounts.GetByEmailFunc = func(ctx context.Context, tenantID, email string) (*models.Account, error) {
		assert.Equal(t, testTenantID, tenantID)
		assert.Equal(t, "jane@corp.test", email)
		return account, nil
	}

	successRecorded := false
	f.accounts.RecordLoginSuccessFunc = func(ctx context.Context, id string) error {
		successRecorded = true
		return nil
	}

	var savedTTL time.Duration
	f.sessions.SaveFunc = func(ctx context.Context, session *models.Session, ttl time.Duration) error {
		savedTTL = ttl
		return nil
	}

	resp, err := f.service.Login(context.Background(), testTenantID, "Jane@Corp.Test", "Correct#Horse9", testMeta())

	require.NoError(t, err)
	assert.False(t, resp.MFARequired)
	assert.NotEmpty(t, resp.SessionToken)
	assert.Equal(t, "jane@corp.test", resp.Account.Email)
	assert.True(t, successRecorded)
	assert.Equal(t, 60*time.Minute, savedTTL) // default policy timeout
	assert.True(t, f.auditRepo.HasEvent(models.AuditLoginSuccess))
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	f := newAuthFixture()

	resp, err := f.service.Login(context.Background(), testTenantID, "nobody@corp.test", "whatever", testMeta())

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.True(t, f.auditRepo.HasEvent(models.AuditLoginFailed))
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	f := newAuthFixture()
	account := NewTestAccountWithPassword("acct-1", testTenantID, "jane@corp.test", "Correct#Horse9")

	f.accounts.GetByEmailFunc = func(ctx context.Context, tenantID, email string) (*models.Account, error) {
		return account, nil
	}

	failureRecorded := false
	f.accounts.RecordLoginFailureFunc = func(ctx context.Context, id string, maxAttempts int, lockUntil time.Time) (int, *time.Time, error) {
		failureRecorded = true
		assert.Equal(t, MaxLoginAttempts, maxAttempts)
		return 2, nil, nil
	}

	resp, err := f.service.Login(context.Background(), testTenantID, "jane@corp.test", "wrong-password", testMeta())

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.True(t, failureRecorded)
	assert.True(t, f.auditRepo.HasEvent(models.AuditLoginFailed))
	assert.False(t, f.auditRepo.HasEvent(models.AuditAccountLocked))
}

func TestAuthService_Login_FifthFailureLocksAccount(t *testing.T) {
	f := newAuthFixture()
	account := NewTestAccountWithPassword("acct-1", testTenantID, "jane@corp.test", "Correct#Horse9")
	account.FailedLoginAttempts = 4

	f.accounts.GetByEmailFunc = func(ctx context.Context, tenantID, email string) (*models.Account, error) {
		return account, nil
	}

	until := time.Now().Add(LockoutDuration)
	f.accounts.RecordLoginFailureFunc = func(ctx context.Context, id string, maxAttempts int, lockUntil time.Time) (int, *time.Time, error) {
		return MaxLoginAttempts, &until, nil
	}

	resp, err := f.service.Login(context.Background(), testTenantID, "jane@corp.test", "wrong-password", testMeta())

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, models.ErrAccountLocked)

	var lockedErr *models.AccountLockedError
	require.True(t, errors.As(err, &lockedErr))
	assert.Equal(t, until, lockedErr.Until)

	assert.Equal(t, 1, f.auditRepo.CountEvents(models.AuditAccountLocked))
	assert.Equal(t, []string{"acct-1"}, f.notifier.Notified)
}

func TestAuthService_Login_WhileLocked(t *testing.T) {
	f := newAuthFixture()
	account := NewTestAccountWithPassword("acct-1", testTenantID, "jane@corp.test", "Correct#Horse9")
	until := time.Now().Add(10 * time.Minute)
	account.LockedUntil = &until
	account.FailedLoginAttempts = MaxLoginAttempts

	f.accounts.GetByEmailFunc = func(ctx context.Context, tenantID, email string) (*models.Account, error) {
		return account, nil
	}

	failureRecorded := false
	f.accounts.RecordLoginFailureFunc = func(ctx context.Context, id string, maxAttempts int, lockUntil time.Time) (int, *time.Time, error) {
		failureRecorded = true
		return 0, nil, nil
	}

	// Even the correct password is rejected while the lock holds.
	resp, err := f.service.Login(context.Background(), testTenantID, "jane@corp.test", "Correct#Horse9", testMeta())

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, models.ErrAccountLocked)
	assert.False(t, failureRecorded)
	assert.True(t, f.auditRepo.HasEvent(models.AuditLoginFailedLocked))
}

func TestAuthService_Login_ExpiredLockProceeds(t *testing.T) {
	f := newAuthFixture()
	account := NewTestAccountWithPassword("acct-1", testTenantID, "jane@corp.test", "Correct#Horse9")
	until := time.Now().Add(-1 * time.Minute)
	account.LockedUntil = &until
	account.FailedLoginAttempts = MaxLoginAttempts

	f.accounts.GetByEmailFunc = func(ctx context.Context, tenantID, email string) (*models.Account, error) {
		return account, nil
	}

	resp, err := f.service.Login(context.Background(), testTenantID, "jane@corp.test", "Correct#Horse9", testMeta())

	require.NoError(t, err)
	assert.NotEmpty(t, resp.SessionToken)
}

func TestAuthService_Login_InactiveAccountIndistinguishable(t *testing.T) {
	f := newAuthFixture()
	account := NewTestAccountWithPassword("acct-1", testTenantID, "gone@corp.test", "Correct#Horse9")
	account.EmploymentStatus = models.EmploymentStatusTerminated

	f.accounts.GetByEmailFunc = func(ctx context.Context, tenantID, email string) (*models.Account, error) {
		return account, nil
	}

	resp, err := f.service.Login(context.Background(), testTenantID, "gone@corp.test", "Correct#Horse9", testMeta())

	assert.Nil(t, resp)
	// Same answer as a wrong password, not a distinct status.
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestAuthService_Login_MFAEnabledReturnsChallenge(t *testing.T) {
	f := newAuthFixture()
	secret, _, err := auth.NewTOTPManager("Talentbase").GenerateSecret("jane@corp.test")
	require.NoError(t, err)

	account := NewTestAccountWithPassword("acct-1", testTenantID, "jane@corp.test", "Correct#Horse9")
	account.MFAEnabled = true
	account.MFASecret = &secret

	f.accounts.GetByEmailFunc = func(ctx context.Context, tenantID, email string) (*models.Account, error) {
		return account, nil
	}

	sessionSaved := false
	f.sessions.SaveFunc = func(ctx context.Context, session *models.Session, ttl time.Duration) error {
		sessionSaved = true
		return nil
	}

	resp, err := f.service.Login(context.Background(), testTenantID, "jane@corp.test", "Correct#Horse9", testMeta())

	require.NoError(t, err)
	assert.True(t, resp.MFARequired)
	assert.NotEmpty(t, resp.ChallengeToken)
	assert.Empty(t, resp.SessionToken)
	assert.False(t, sessionSaved)
	assert.True(t, f.auditRepo.HasEvent(models.AuditMFAChallengeSent))
}

func TestAuthService_Login_ChallengeResetsFailureCounter(t *testing.T) {
	f := newAuthFixture()
	secret, _, err := auth.NewTOTPManager("Talentbase").GenerateSecret("jane@corp.test")
	require.NoError(t, err)

	account := NewTestAccountWithPassword("acct-1", testTenantID, "jane@corp.test", "Correct#Horse9")
	account.MFAEnabled = true
	account.MFASecret = &secret
	account.FailedLoginAttempts = 3

	f.accounts.GetByEmailFunc = func(ctx context.Context, tenantID, email string) (*models.Account, error) {
		return account, nil
	}

	successRecorded := false
	f.accounts.RecordLoginSuccessFunc = func(ctx context.Context, id string) error {
		successRecorded = true
		return nil
	}

	resp, err := f.service.Login(context.Background(), testTenantID, "jane@corp.test", "Correct#Horse9", testMeta())

	require.NoError(t, err)
	assert.True(t, resp.MFARequired)
	// Proving the password clears the counter; an abandoned challenge must
	// not leave stale failures behind.
	assert.True(t, successRecorded)
}

func TestAuthService_Login_MFASetupDeadlineSurfaced(t *testing.T) {
	f := newAuthFixture()
	account := NewTestAccountWithPassword("acct-1", testTenantID, "jane@corp.test", "Correct#Horse9")

	f.accounts.GetByEmailFunc = func(ctx context.Context, tenantID, email string) (*models.Account, error) {
		return account, nil
	}

	required := models.MFAPolicyRequired
	f.policies.GetFunc = func(ctx context.Context, tenantID string) (*models.TenantSecurityPolicy, error) {
		policy := models.DefaultSecurityPolicy(tenantID)
		policy.MFAPolicy = required
		return policy, nil
	}

	resp, err := f.service.Login(context.Background(), testTenantID, "jane@corp.test", "Correct#Horse9", testMeta())

	require.NoError(t, err)
	assert.True(t, resp.MFASetupRequired)
	require.NotNil(t, resp.MFASetupDeadline)
	assert.WithinDuration(t, account.CreatedAt.AddDate(0, 0, 14), *resp.MFASetupDeadline, time.Second)
}

func mfaChallengeFixture(t *testing.T) (*authFixture, *models.Account, string, string) {
	t.Helper()

	f := newAuthFixture()
	secret, _, err := auth.NewTOTPManager("Talentbase").GenerateSecret("jane@corp.test")
	require.NoError(t, err)

	account := NewTestAccountWithMFA("acct-1", testTenantID, "jane@corp.test", secret)
	f.accounts.GetByIDFunc = func(ctx context.Context, tenantID, id string) (*models.Account, error) {
		return account, nil
	}

	token, err := f.challenge.Generate(account.ID, account.TenantID)
	require.NoError(t, err)

	return f, account, secret, token
}

func TestAuthService_VerifyLoginMFA_TOTPSuccess(t *testing.T) {
	f, _, secret, token := mfaChallengeFixture(t)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	resp, err := f.service.VerifyLoginMFA(context.Background(), token, code, testMeta())

	require.NoError(t, err)
	assert.NotEmpty(t, resp.SessionToken)
	assert.True(t, f.auditRepo.HasEvent(models.AuditLoginSuccess))
	assert.False(t, f.auditRepo.HasEvent(models.AuditBackupCodeUsed))
}

func TestAuthService_VerifyLoginMFA_WrongCodeDoesNotTouchLockout(t *testing.T) {
	f, _, _, token := mfaChallengeFixture(t)

	failureRecorded := false
	f.accounts.RecordLoginFailureFunc = func(ctx context.Context, id string, maxAttempts int, lockUntil time.Time) (int, *time.Time, error) {
		failureRecorded = true
		return 0, nil, nil
	}

	resp, err := f.service.VerifyLoginMFA(context.Background(), token, "000000", testMeta())

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, models.ErrInvalidMFACode)
	// An MFA failure never feeds the password-failure counter.
	assert.False(t, failureRecorded)
	assert.True(t, f.auditRepo.HasEvent(models.AuditMFAFailed))
}

func TestAuthService_VerifyLoginMFA_BackupCode(t *testing.T) {
	f, _, _, token := mfaChallengeFixture(t)

	codes, err := auth.GenerateBackupCodes(2)
	require.NoError(t, err)

	stored := []*models.BackupCode{
		{ID: "bc-1", AccountID: "acct-1", CodeHash: auth.HashBackupCode(codes[0])},
		{ID: "bc-2", AccountID: "acct-1", CodeHash: auth.HashBackupCode(codes[1])},
	}
	f.backup.ListUnusedFunc = func(ctx context.Context, accountID string) ([]*models.BackupCode, error) {
		return stored, nil
	}

	consumed := ""
	f.backup.ConsumeFunc = func(ctx context.Context, id string) error {
		consumed = id
		return nil
	}

	resp, err := f.service.VerifyLoginMFA(context.Background(), token, codes[0], testMeta())

	require.NoError(t, err)
	assert.NotEmpty(t, resp.SessionToken)
	assert.Equal(t, "bc-1", consumed)
	assert.True(t, f.auditRepo.HasEvent(models.AuditBackupCodeUsed))
}

func TestAuthService_VerifyLoginMFA_InvalidToken(t *testing.T) {
	f := newAuthFixture()

	resp, err := f.service.VerifyLoginMFA(context.Background(), "not-a-token", "123456", testMeta())

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestAuthService_VerifyLoginMFA_LockedBetweenSteps(t *testing.T) {
	f, account, secret, token := mfaChallengeFixture(t)
	until := time.Now().Add(5 * time.Minute)
	account.LockedUntil = &until

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	resp, err := f.service.VerifyLoginMFA(context.Background(), token, code, testMeta())

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, models.ErrAccountLocked)
}

func TestAuthService_Logout(t *testing.T) {
	f := newAuthFixture()
	session := NewTestSession("sess-1", "acct-1", testTenantID)

	deviceDeleted := false
	f.devices.DeleteBySessionIDFunc = func(ctx context.Context, sessionID string) error {
		deviceDeleted = true
		assert.Equal(t, "sess-1", sessionID)
		return nil
	}

	err := f.service.Logout(context.Background(), session, testMeta())

	require.NoError(t, err)
	assert.True(t, deviceDeleted)
	assert.Contains(t, f.sessions.Deleted, "sess-1")
	assert.True(t, f.auditRepo.HasEvent(models.AuditLogout))
}

func TestAuthService_Logout_IdempotentOnMissingDevice(t *testing.T) {
	f := newAuthFixture()
	session := NewTestSession("sess-1", "acct-1", testTenantID)

	f.devices.DeleteBySessionIDFunc = func(ctx context.Context, sessionID string) error {
		return models.ErrNotFound
	}

	err := f.service.Logout(context.Background(), session, testMeta())

	assert.NoError(t, err)
}

func TestAuthService_ChangePassword_Success(t *testing.T) {
	f := newAuthFixture()
	account := NewTestAccountWithPassword("acct-1", testTenantID, "jane@corp.test", "OldPassword9")
	session := NewTestSession("sess-1", "acct-1", testTenantID)

	f.accounts.GetByIDFunc = func(ctx context.Context, tenantID, id string) (*models.Account, error) {
		return account, nil
	}

	updatedHash := ""
	f.accounts.UpdatePasswordFunc = func(ctx context.Context, id, passwordHash string) error {
		updatedHash = passwordHash
		return nil
	}

	err := f.service.ChangePassword(context.Background(), session, "OldPassword9", "NewPassword42", testMeta())

	require.NoError(t, err)
	assert.NotEmpty(t, updatedHash)
	assert.NotEqual(t, account.PasswordHash, updatedHash)
	assert.True(t, f.auditRepo.HasEvent(models.AuditPasswordChanged))
}

func TestAuthService_ChangePassword_WrongCurrent(t *testing.T) {
	f := newAuthFixture()
	account := NewTestAccountWithPassword("acct-1", testTenantID, "jane@corp.test", "OldPassword9")
	session := NewTestSession("sess-1", "acct-1", testTenantID)

	f.accounts.GetByIDFunc = func(ctx context.Context, tenantID, id string) (*models.Account, error) {
		return account, nil
	}

	err := f.service.ChangePassword(context.Background(), session, "not-the-password", "NewPassword42", testMeta())

	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.True(t, f.auditRepo.HasEvent(models.AuditPasswordChangeFailed))
}

func TestAuthService_ChangePassword_PolicyViolations(t *testing.T) {
	f := newAuthFixture()
	account := NewTestAccountWithPassword("acct-1", testTenantID, "jane@corp.test", "OldPassword9")
	session := NewTestSession("sess-1", "acct-1", testTenantID)

	f.accounts.GetByIDFunc = func(ctx context.Context, tenantID, id string) (*models.Account, error) {
		return account, nil
	}

	updated := false
	f.accounts.UpdatePasswordFunc = func(ctx context.Context, id, passwordHash string) error {
		updated = true
		return nil
	}

	err := f.service.ChangePassword(context.Background(), session, "OldPassword9", "weak", testMeta())

	var violationErr *models.PolicyViolationError
	require.True(t, errors.As(err, &violationErr))
	assert.NotEmpty(t, violationErr.Violations)
	assert.False(t, updated)
}
