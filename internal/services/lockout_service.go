package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/brindlehq/talentbase/internal/models"
)

// Brute-force lockout parameters. These are platform-wide, not tenant policy.
const (
	MaxLoginAttempts = 5
	LockoutDuration  = 15 * time.Minute
)

// LockoutService tracks consecutive password failures and locks accounts at
// the threshold. The counter lives in the credential store and is updated with
// a single atomic statement, so concurrent attempts cannot slip past the limit.
type LockoutService struct {
	accounts AccountRepository
	notifier LockoutNotifier
	audit    *AuditService
	logger   *slog.Logger
}

func NewLockoutService(accounts AccountRepository, notifier LockoutNotifier, audit *AuditService, logger *slog.Logger) *LockoutService {
	return &LockoutService{
		accounts: accounts,
		notifier: notifier,
		audit:    audit,
		logger:   logger,
	}
}

// CheckLocked returns an AccountLockedError while the account's lock is still
// in force. An expired lock is not cleared here; the next recorded attempt
// resets it in the store.
func (s *LockoutService) CheckLocked(account *models.Account) error {
	if account.LockedUntil != nil && time.Now().Before(*account.LockedUntil) {
		return &models.AccountLockedError{Until: *account.LockedUntil}
	}
	return nil
}

// RecordFailure counts one failed password attempt. When this attempt is the
// one that crosses the threshold, the lock is applied, the account_locked
// event is recorded exactly once, the owner is notified, and the returned
// error carries the lock expiry. Other failures return nil; the caller still
// answers with generic invalid credentials.
func (s *LockoutService) RecordFailure(ctx context.Context, account *models.Account, meta RequestMeta) error {
	attempts, lockedUntil, err := s.accounts.RecordLoginFailure(ctx, account.ID, MaxLoginAttempts, time.Now().Add(LockoutDuration))
	if err != nil {
		s.logger.Error("failed to record login failure",
			slog.String("account_id", account.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	// The threshold attempt is the only one where the store sets the lock.
	if lockedUntil == nil || attempts != MaxLoginAttempts {
		return nil
	}

	s.logger.Warn("account locked after repeated login failures",
		slog.String("account_id", account.ID),
		slog.Int("attempts", attempts),
		slog.Time("locked_until", *lockedUntil))

	s.audit.Record(ctx, newAuditEvent(models.AuditAccountLocked, account.TenantID, &account.ID, meta, models.AuditMetadata{
		"attempts":     attempts,
		"locked_until": lockedUntil.UTC().Format(time.RFC3339),
	}), false)

	if s.notifier != nil {
		if nerr := s.notifier.NotifyAccountLocked(ctx, account, *lockedUntil); nerr != nil {
			s.logger.Error("failed to send lockout notification",
				slog.String("account_id", account.ID), slog.Any("error", nerr))
		}
	}

	return &models.AccountLockedError{Until: *lockedUntil}
}

// RecordSuccess clears the failure counter after a fully completed login.
func (s *LockoutService) RecordSuccess(ctx context.Context, accountID string) error {
	if err := s.accounts.RecordLoginSuccess(ctx, accountID); err != nil {
		s.logger.Error("failed to record login success",
			slog.String("account_id", accountID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}
