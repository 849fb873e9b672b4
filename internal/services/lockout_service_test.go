package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brindlehq/talentbase/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLockoutFixture() (*LockoutService, *MockAccountRepository, *MockLockoutNotifier, *MockAuditRepository) {
	accounts := &MockAccountRepository{}
	notifier := &MockLockoutNotifier{}
	auditRepo := &MockAuditRepository{}
	service := NewLockoutService(accounts, notifier, newTestAuditService(auditRepo), discardLogger())
	return service, accounts, notifier, auditRepo
}

func TestLockoutService_CheckLocked(t *testing.T) {
	service, _, _, _ := newLockoutFixture()

	t.Run("unlocked account", func(t *testing.T) {
		account := NewTestAccount("acct-1", testTenantID, "a@b.test")
		assert.NoError(t, service.CheckLocked(account))
	})

	t.Run("active lock", func(t *testing.T) {
		account := NewTestAccount("acct-1", testTenantID, "a@b.test")
		until := time.Now().Add(10 * time.Minute)
		account.LockedUntil = &until

		err := service.CheckLocked(account)

		assert.ErrorIs(t, err, models.ErrAccountLocked)
		var lockedErr *models.AccountLockedError
		require.True(t, errors.As(err, &lockedErr))
		assert.Equal(t, until, lockedErr.Until)
	})

	t.Run("expired lock", func(t *testing.T) {
		account := NewTestAccount("acct-1", testTenantID, "a@b.test")
		until := time.Now().Add(-1 * time.Second)
		account.LockedUntil = &until

		assert.NoError(t, service.CheckLocked(account))
	})
}

func TestLockoutService_RecordFailure_BelowThreshold(t *testing.T) {
	service, accounts, notifier, auditRepo := newLockoutFixture()

	accounts.RecordLoginFailureFunc = func(ctx context.Context, id string, maxAttempts int, lockUntil time.Time) (int, *time.Time, error) {
		return 3, nil, nil
	}

	err := service.RecordFailure(context.Background(), NewTestAccount("acct-1", testTenantID, "a@b.test"), testMeta())

	assert.NoError(t, err)
	assert.Empty(t, notifier.Notified)
	assert.False(t, auditRepo.HasEvent(models.AuditAccountLocked))
}

func TestLockoutService_RecordFailure_AtThreshold(t *testing.T) {
	service, accounts, notifier, auditRepo := newLockoutFixture()

	until := time.Now().Add(LockoutDuration)
	accounts.RecordLoginFailureFunc = func(ctx context.Context, id string, maxAttempts int, lockUntil time.Time) (int, *time.Time, error) {
		return MaxLoginAttempts, &until, nil
	}

	err := service.RecordFailure(context.Background(), NewTestAccount("acct-1", testTenantID, "a@b.test"), testMeta())

	assert.ErrorIs(t, err, models.ErrAccountLocked)
	assert.Equal(t, []string{"acct-1"}, notifier.Notified)
	assert.Equal(t, 1, auditRepo.CountEvents(models.AuditAccountLocked))
}

func TestLockoutService_RecordFailure_NotificationFailureDoesNotUnlock(t *testing.T) {
	service, accounts, notifier, _ := newLockoutFixture()

	until := time.Now().Add(LockoutDuration)
	accounts.RecordLoginFailureFunc = func(ctx context.Context, id string, maxAttempts int, lockUntil time.Time) (int, *time.Time, error) {
		return MaxLoginAttempts, &until, nil
	}
	notifier.NotifyAccountLockedFunc = func(ctx context.Context, account *models.Account, until time.Time) error {
		return errors.New("ses unavailable")
	}

	err := service.RecordFailure(context.Background(), NewTestAccount("acct-1", testTenantID, "a@b.test"), testMeta())

	// The lock stands even when the email cannot be delivered.
	assert.ErrorIs(t, err, models.ErrAccountLocked)
}

func TestLockoutService_RecordFailure_StoreError(t *testing.T) {
	service, accounts, _, _ := newLockoutFixture()

	accounts.RecordLoginFailureFunc = func(ctx context.Context, id string, maxAttempts int, lockUntil time.Time) (int, *time.Time, error) {
		return 0, nil, errors.New("connection refused")
	}

	err := service.RecordFailure(context.Background(), NewTestAccount("acct-1", testTenantID, "a@b.test"), testMeta())

	assert.ErrorIs(t, err, models.ErrInternalServer)
}

func TestLockoutService_RecordSuccess(t *testing.T) {
	service, accounts, _, _ := newLockoutFixture()

	cleared := ""
	accounts.RecordLoginSuccessFunc = func(ctx context.Context, id string) error {
		cleared = id
		return nil
	}

	require.NoError(t, service.RecordSuccess(context.Background(), "acct-1"))
	assert.Equal(t, "acct-1", cleared)
}
