package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/brindlehq/talentbase/internal/auth"
	"github.com/brindlehq/talentbase/internal/models"
	"github.com/brindlehq/talentbase/internal/sessionstore"
)

// BackupCodeCount is the size of every generated backup-code batch.
const BackupCodeCount = 10

// MFAService owns the TOTP enrollment state machine and challenge
// verification. Enrollment is two-step: the secret lives in a pending slot
// until the employee proves possession with a valid code; only then does the
// account flip to MFA-enabled.
type MFAService struct {
	accounts    AccountRepository
	backupCodes BackupCodeRepository
	pending     PendingEnrollmentStore
	policies    *PolicyService
	totp        *auth.TOTPManager
	audit       *AuditService
	logger      *slog.Logger
}

func NewMFAService(accounts AccountRepository, backupCodes BackupCodeRepository, pending PendingEnrollmentStore, policies *PolicyService, totp *auth.TOTPManager, audit *AuditService, logger *slog.Logger) *MFAService {
	return &MFAService{
		accounts:    accounts,
		backupCodes: backupCodes,
		pending:     pending,
		policies:    policies,
		totp:        totp,
		audit:       audit,
		logger:      logger,
	}
}

// EnrollmentResponse carries everything the client needs to provision an
// authenticator app. The secret is never returned again after this response.
type EnrollmentResponse struct {
	Secret          string `json:"secret"`
	SecretFormatted string `json:"secret_formatted"`
	ProvisioningURL string `json:"provisioning_url"`
	QRCode          string `json:"qr_code"`
}

// BackupCodesResponse is the one-time plaintext view of a fresh code batch.
type BackupCodesResponse struct {
	BackupCodes []string `json:"backup_codes"`
}

// MFAStatusResponse summarises the account's MFA state.
type MFAStatusResponse struct {
	Enabled              bool       `json:"enabled"`
	EnabledAt            *time.Time `json:"enabled_at,omitempty"`
	BackupCodesRemaining int        `json:"backup_codes_remaining"`
}

// Status reports whether MFA is on and how many backup codes remain.
func (s *MFAService) Status(ctx context.Context, session *models.Session) (*MFAStatusResponse, error) {
	account, err := s.accounts.GetByID(ctx, session.TenantID, session.AccountID)
	if err != nil {
		s.logger.Error("failed to load account for mfa status", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	status := &MFAStatusResponse{
		Enabled:   account.MFAEnabled,
		EnabledAt: account.MFAEnabledAt,
	}

	if account.MFAEnabled {
		remaining, err := s.backupCodes.CountUnused(ctx, account.ID)
		if err != nil {
			s.logger.Error("failed to count backup codes", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		status.BackupCodesRemaining = remaining
	}

	return status, nil
}

// StartEnrollment generates a fresh secret and parks it in the pending slot.
// Restarting enrollment overwrites the previous pending secret; nothing on
// the account changes until the secret is confirmed.
func (s *MFAService) StartEnrollment(ctx context.Context, session *models.Session, meta RequestMeta) (*EnrollmentResponse, error) {
	policy, err := s.policies.Get(ctx, session.TenantID)
	if err != nil {
		return nil, err
	}
	if policy.MFAPolicy == models.MFAPolicyOff {
		return nil, models.ErrMFADisabledByPolicy
	}

	account, err := s.accounts.GetByID(ctx, session.TenantID, session.AccountID)
	if err != nil {
		s.logger.Error("failed to load account for mfa enrollment", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if account.MFAEnabled {
		return nil, models.ErrMFAAlreadyEnabled
	}

	secret, provisioningURL, err := s.totp.GenerateSecret(account.Email)
	if err != nil {
		s.logger.Error("failed to generate totp secret", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	qrCode, err := s.totp.QRCodePNG(provisioningURL)
	if err != nil {
		s.logger.Error("failed to render provisioning qr code", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	err = s.pending.Save(ctx, &sessionstore.PendingEnrollment{
		AccountID: account.ID,
		SessionID: session.ID,
		Secret:    secret,
		CreatedAt: time.Now(),
	})
	if err != nil {
		s.logger.Error("failed to save pending enrollment", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("mfa enrollment started", slog.String("account_id", account.ID))
	s.audit.Record(ctx, newAuditEvent(models.AuditMFAEnrollStarted, session.TenantID, &account.ID, meta, nil), true)

	return &EnrollmentResponse{
		Secret:          secret,
		SecretFormatted: auth.FormatSecretGroups(secret),
		ProvisioningURL: provisioningURL,
		QRCode:          qrCode,
	}, nil
}

// ConfirmEnrollment verifies a code against the pending secret, activates
// MFA, and issues the backup-code batch. The plaintext codes appear only in
// this response.
func (s *MFAService) ConfirmEnrollment(ctx context.Context, session *models.Session, code string, meta RequestMeta) (*BackupCodesResponse, error) {
	account, err := s.accounts.GetByID(ctx, session.TenantID, session.AccountID)
	if err != nil {
		s.logger.Error("failed to load account for mfa confirmation", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	// A second confirmation after success finds the pending slot gone; the
	// account state is the authoritative answer.
	if account.MFAEnabled {
		return nil, models.ErrMFAAlreadyEnabled
	}

	pending, err := s.pending.Get(ctx, session.AccountID, session.ID)
	if err != nil {
		if errors.Is(err, models.ErrNoPendingEnrollment) {
			return nil, models.ErrNoPendingEnrollment
		}
		s.logger.Error("failed to load pending enrollment", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !s.totp.ValidateCode(pending.Secret, code) {
		s.audit.Record(ctx, newAuditEvent(models.AuditMFAFailed, session.TenantID, &session.AccountID, meta, models.AuditMetadata{
			"stage": "enrollment",
		}), false)
		return nil, models.ErrInvalidMFACode
	}

	if err := s.accounts.EnableMFA(ctx, session.AccountID, pending.Secret); err != nil {
		if errors.Is(err, models.ErrMFAAlreadyEnabled) {
			return nil, models.ErrMFAAlreadyEnabled
		}
		s.logger.Error("failed to enable mfa", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	codes, err := s.issueBackupCodes(ctx, session.AccountID)
	if err != nil {
		return nil, err
	}

	if derr := s.pending.Delete(ctx, session.AccountID, session.ID); derr != nil {
		s.logger.Warn("failed to clear pending enrollment", slog.Any("error", derr))
	}

	s.logger.Info("mfa enabled", slog.String("account_id", session.AccountID))
	s.audit.Record(ctx, newAuditEvent(models.AuditMFAEnabled, session.TenantID, &session.AccountID, meta, nil), true)

	return &BackupCodesResponse{BackupCodes: codes}, nil
}

// Disable turns MFA off and destroys the secret and every backup code.
// Requires a currently-valid code against the persisted secret. Tenants whose
// policy mandates MFA cannot have employees opt back out.
func (s *MFAService) Disable(ctx context.Context, session *models.Session, code string, meta RequestMeta) error {
	policy, err := s.policies.Get(ctx, session.TenantID)
	if err != nil {
		return err
	}
	if policy.MFAPolicy == models.MFAPolicyRequired {
		return models.ErrMFARequiredByPolicy
	}

	account, err := s.accounts.GetByID(ctx, session.TenantID, session.AccountID)
	if err != nil {
		s.logger.Error("failed to load account for mfa disable", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if !account.MFAEnabled || account.MFASecret == nil {
		return models.ErrMFANotEnabled
	}

	if !s.totp.ValidateCode(*account.MFASecret, code) {
		s.audit.Record(ctx, newAuditEvent(models.AuditMFAFailed, session.TenantID, &account.ID, meta, models.AuditMetadata{
			"stage": "disable",
		}), false)
		return models.ErrInvalidMFACode
	}

	if err := s.accounts.DisableMFA(ctx, account.ID); err != nil {
		s.logger.Error("failed to disable mfa", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if err := s.backupCodes.DeleteForAccount(ctx, account.ID); err != nil {
		s.logger.Error("failed to delete backup codes", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("mfa disabled", slog.String("account_id", account.ID))
	s.audit.Record(ctx, newAuditEvent(models.AuditMFADisabled, session.TenantID, &account.ID, meta, nil), true)

	return nil
}

// RegenerateBackupCodes replaces the whole batch after a valid code proves
// possession of the authenticator. Previously issued codes, used or not, stop
// working.
func (s *MFAService) RegenerateBackupCodes(ctx context.Context, session *models.Session, code string, meta RequestMeta) (*BackupCodesResponse, error) {
	account, err := s.accounts.GetByID(ctx, session.TenantID, session.AccountID)
	if err != nil {
		s.logger.Error("failed to load account for backup code regeneration", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if !account.MFAEnabled || account.MFASecret == nil {
		return nil, models.ErrMFANotEnabled
	}

	if !s.totp.ValidateCode(*account.MFASecret, code) {
		s.audit.Record(ctx, newAuditEvent(models.AuditMFAFailed, session.TenantID, &account.ID, meta, models.AuditMetadata{
			"stage": "backup_code_regeneration",
		}), false)
		return nil, models.ErrInvalidMFACode
	}

	codes, err := s.issueBackupCodes(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("backup codes regenerated", slog.String("account_id", account.ID))
	s.audit.Record(ctx, newAuditEvent(models.AuditBackupCodesRegenerated, session.TenantID, &account.ID, meta, nil), true)

	return &BackupCodesResponse{BackupCodes: codes}, nil
}

func (s *MFAService) issueBackupCodes(ctx context.Context, accountID string) ([]string, error) {
	codes, err := auth.GenerateBackupCodes(BackupCodeCount)
	if err != nil {
		s.logger.Error("failed to generate backup codes", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hashes := make([]string, len(codes))
	for i, code := range codes {
		hashes[i] = auth.HashBackupCode(code)
	}

	if err := s.backupCodes.ReplaceBatch(ctx, accountID, hashes); err != nil {
		s.logger.Error("failed to store backup codes", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return codes, nil
}

// VerifyChallengeCode checks a login-challenge code, dispatching on shape:
// six digits are tried as TOTP, eight base32-ish characters as a backup code.
// A matching backup code is consumed atomically; usedBackup reports which
// path succeeded and remaining how many codes are left after consumption.
func (s *MFAService) VerifyChallengeCode(ctx context.Context, account *models.Account, code string) (usedBackup bool, remaining int, err error) {
	switch auth.ClassifyChallengeCode(code) {
	case auth.CodeKindTOTP:
		if account.MFASecret == nil {
			return false, 0, models.ErrMFANotEnabled
		}
		if !s.totp.ValidateCode(*account.MFASecret, code) {
			return false, 0, models.ErrInvalidMFACode
		}
		return false, 0, nil

	case auth.CodeKindBackup:
		return s.verifyBackupCode(ctx, account, code)

	default:
		return false, 0, models.ErrInvalidMFACode
	}
}

func (s *MFAService) verifyBackupCode(ctx context.Context, account *models.Account, code string) (bool, int, error) {
	hash := auth.HashBackupCode(code)

	unused, err := s.backupCodes.ListUnused(ctx, account.ID)
	if err != nil {
		s.logger.Error("failed to list backup codes", slog.Any("error", err))
		return false, 0, models.ErrInternalServer
	}

	for _, candidate := range unused {
		if !auth.BackupCodeHashEqual(candidate.CodeHash, hash) {
			continue
		}
		if cerr := s.backupCodes.Consume(ctx, candidate.ID); cerr != nil {
			if errors.Is(cerr, models.ErrNotFound) {
				// Lost a race with a concurrent use of the same code.
				return false, 0, models.ErrInvalidMFACode
			}
			s.logger.Error("failed to consume backup code", slog.Any("error", cerr))
			return false, 0, models.ErrInternalServer
		}
		return true, len(unused) - 1, nil
	}

	return false, 0, models.ErrInvalidMFACode
}
