package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/brindlehq/talentbase/internal/auth"
	"github.com/brindlehq/talentbase/internal/models"
	pkgauth "github.com/brindlehq/talentbase/pkg/auth"
)

// AuthService orchestrates the login flow: credential verification, lockout,
// the MFA challenge hand-off, and session establishment.
type AuthService struct {
	accounts  AccountRepository
	devices   SessionDeviceRepository
	sessions  SessionStore
	policies  *PolicyService
	lockout   *LockoutService
	mfa       *MFAService
	challenge *auth.ChallengeTokenManager
	audit     *AuditService
	timing    TimingWaiter
	logger    *slog.Logger
}

func NewAuthService(accounts AccountRepository, devices SessionDeviceRepository, sessions SessionStore, policies *PolicyService, lockout *LockoutService, mfa *MFAService, challenge *auth.ChallengeTokenManager, audit *AuditService, timing TimingWaiter, logger *slog.Logger) *AuthService {
	return &AuthService{
		accounts:  accounts,
		devices:   devices,
		sessions:  sessions,
		policies:  policies,
		lockout:   lockout,
		mfa:       mfa,
		challenge: challenge,
		audit:     audit,
		timing:    timing,
		logger:    logger,
	}
}

// AccountResponse is the account summary returned after login.
type AccountResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	MFAEnabled  bool       `json:"mfa_enabled"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// LoginResponse is the outcome of Login or VerifyLoginMFA. When MFARequired
// is set, only ChallengeToken is populated and no session exists yet.
type LoginResponse struct {
	MFARequired      bool             `json:"mfa_required"`
	ChallengeToken   string           `json:"challenge_token,omitempty"`
	SessionToken     string           `json:"session_token,omitempty"`
	ExpiresAt        *time.Time       `json:"expires_at,omitempty"`
	MFASetupRequired bool             `json:"mfa_setup_required,omitempty"`
	MFASetupDeadline *time.Time       `json:"mfa_setup_deadline,omitempty"`
	Account          *AccountResponse `json:"account,omitempty"`
}

// Login verifies tenant-scoped credentials. Unknown email, wrong password,
// and inactive accounts all collapse into the same invalid-credentials
// answer; only an active lockout is distinguishable, and deliberately so.
func (s *AuthService) Login(ctx context.Context, tenantID, email, password string, meta RequestMeta) (*LoginResponse, error) {
	start := time.Now()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		s.timing.WaitFrom(start, false)
		return nil, models.ErrInvalidCredentials
	}

	account, err := s.accounts.GetByEmail(ctx, tenantID, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("login failed: invalid credentials")
			s.audit.Record(ctx, newAuditEvent(models.AuditLoginFailed, tenantID, nil, meta, models.AuditMetadata{
				"reason": "unknown_account",
			}), false)
			s.timing.WaitFrom(start, false)
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("failed to get account by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// Terminated and on-leave accounts answer exactly like a wrong password.
	if !account.IsActive() {
		s.logger.Info("login blocked due to employment status",
			slog.String("account_id", account.ID),
			slog.String("employment_status", account.EmploymentStatus))
		s.audit.Record(ctx, newAuditEvent(models.AuditLoginFailed, tenantID, &account.ID, meta, models.AuditMetadata{
			"reason": "inactive_account",
		}), false)
		s.timing.WaitFrom(start, false)
		return nil, models.ErrInvalidCredentials
	}

	if lockErr := s.lockout.CheckLocked(account); lockErr != nil {
		s.logger.Info("login rejected: account locked", slog.String("account_id", account.ID))
		s.audit.Record(ctx, newAuditEvent(models.AuditLoginFailedLocked, tenantID, &account.ID, meta, nil), false)
		s.timing.WaitFrom(start, false)
		return nil, lockErr
	}

	if err := pkgauth.ComparePassword(account.PasswordHash, password); err != nil {
		lockErr := s.lockout.RecordFailure(ctx, account, meta)
		s.logger.Info("login failed: invalid credentials", slog.String("account_id", account.ID))
		s.audit.Record(ctx, newAuditEvent(models.AuditLoginFailed, tenantID, &account.ID, meta, models.AuditMetadata{
			"reason": "wrong_password",
		}), false)
		s.timing.WaitFrom(start, false)
		if lockErr != nil {
			return nil, lockErr
		}
		return nil, models.ErrInvalidCredentials
	}

	// Password verified; the failure counter resets here even when an MFA
	// challenge is still ahead.
	if err := s.lockout.RecordSuccess(ctx, account.ID); err != nil {
		return nil, err
	}

	// MFA-enabled accounts get a short-lived challenge token instead of a
	// session; the login completes in VerifyLoginMFA.
	if account.MFAEnabled {
		token, err := s.challenge.Generate(account.ID, account.TenantID)
		if err != nil {
			s.logger.Error("failed to generate mfa challenge token", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}

		s.audit.Record(ctx, newAuditEvent(models.AuditMFAChallengeSent, tenantID, &account.ID, meta, nil), true)

		return &LoginResponse{
			MFARequired:    true,
			ChallengeToken: token,
		}, nil
	}

	return s.completeLogin(ctx, account, meta)
}

// VerifyLoginMFA finishes a challenged login. A wrong code never touches the
// password-failure counter; the attacker already proved the password.
func (s *AuthService) VerifyLoginMFA(ctx context.Context, challengeToken, code string, meta RequestMeta) (*LoginResponse, error) {
	start := time.Now()

	claims, err := s.challenge.Validate(challengeToken)
	if err != nil {
		s.timing.WaitFrom(start, false)
		return nil, models.ErrUnauthorized
	}

	account, err := s.accounts.GetByID(ctx, claims.TenantID, claims.AccountID)
	if err != nil {
		s.logger.Error("failed to load account for mfa verification", slog.Any("error", err))
		s.timing.WaitFrom(start, false)
		return nil, models.ErrUnauthorized
	}

	if !account.IsActive() || !account.MFAEnabled {
		s.timing.WaitFrom(start, false)
		return nil, models.ErrUnauthorized
	}

	// The account can be locked by parallel attempts between the password
	// step and the challenge step.
	if lockErr := s.lockout.CheckLocked(account); lockErr != nil {
		s.audit.Record(ctx, newAuditEvent(models.AuditLoginFailedLocked, account.TenantID, &account.ID, meta, nil), false)
		s.timing.WaitFrom(start, false)
		return nil, lockErr
	}

	usedBackup, remaining, err := s.mfa.VerifyChallengeCode(ctx, account, code)
	if err != nil {
		if errors.Is(err, models.ErrInvalidMFACode) {
			s.logger.Info("mfa verification failed", slog.String("account_id", account.ID))
			s.audit.Record(ctx, newAuditEvent(models.AuditMFAFailed, account.TenantID, &account.ID, meta, models.AuditMetadata{
				"stage": "login",
			}), false)
			s.timing.WaitFrom(start, false)
			return nil, models.ErrInvalidMFACode
		}
		return nil, err
	}

	if usedBackup {
		s.audit.Record(ctx, newAuditEvent(models.AuditBackupCodeUsed, account.TenantID, &account.ID, meta, models.AuditMetadata{
			"codes_remaining": remaining,
		}), true)
	}

	return s.completeLogin(ctx, account, meta)
}

// completeLogin establishes the session: session-store payload and the
// paired device record.
func (s *AuthService) completeLogin(ctx context.Context, account *models.Account, meta RequestMeta) (*LoginResponse, error) {
	policy, err := s.policies.Get(ctx, account.TenantID)
	if err != nil {
		return nil, err
	}

	sessionToken, err := pkgauth.GenerateSessionToken()
	if err != nil {
		s.logger.Error("failed to generate session token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	now := time.Now()
	session := &models.Session{
		ID:        sessionToken,
		AccountID: account.ID,
		TenantID:  account.TenantID,
		Role:      account.Role,
		CreatedAt: now,
	}

	if err := s.sessions.Save(ctx, session, policy.SessionTimeout()); err != nil {
		s.logger.Error("failed to save session", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	deviceName := auth.DeriveDeviceName(meta.UserAgent)
	device, err := s.devices.Create(ctx, &models.SessionDevice{
		SessionID:  session.ID,
		AccountID:  account.ID,
		TenantID:   account.TenantID,
		DeviceName: deviceName,
		IPAddress:  meta.IPAddress,
	})
	if err != nil {
		s.logger.Error("failed to create session device", slog.Any("error", err))
		// The session is unusable without its device row.
		if derr := s.sessions.Delete(ctx, session.ID); derr != nil {
			s.logger.Warn("failed to clean up orphaned session", slog.Any("error", derr))
		}
		return nil, models.ErrInternalServer
	}

	s.logger.Info("login succeeded",
		slog.String("account_id", account.ID),
		slog.String("device_name", device.DeviceName))
	s.audit.Record(ctx, newAuditEvent(models.AuditLoginSuccess, account.TenantID, &account.ID, meta, models.AuditMetadata{
		"device_name": device.DeviceName,
	}), true)

	expiresAt := now.Add(policy.SessionTimeout())
	response := &LoginResponse{
		SessionToken: sessionToken,
		ExpiresAt:    &expiresAt,
		Account: &AccountResponse{
			ID:          account.ID,
			Email:       account.Email,
			Name:        account.Name,
			Role:        account.Role,
			MFAEnabled:  account.MFAEnabled,
			LastLoginAt: account.LastLoginAt,
		},
	}

	// Tenants rolling out mandatory MFA surface the enrollment deadline to
	// accounts that have not enrolled yet.
	if policy.MFAPolicy == models.MFAPolicyRequired && !account.MFAEnabled {
		deadline := account.CreatedAt.AddDate(0, 0, policy.MFAGracePeriodDays)
		response.MFASetupRequired = true
		response.MFASetupDeadline = &deadline
	}

	return response, nil
}

// Logout tears down the session and its device record. Idempotent: logging
// out an already-dead session succeeds.
func (s *AuthService) Logout(ctx context.Context, session *models.Session, meta RequestMeta) error {
	if err := s.devices.DeleteBySessionID(ctx, session.ID); err != nil {
		s.logger.Warn("failed to delete session device on logout",
			slog.String("session_id", session.ID), slog.Any("error", err))
	}

	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		s.logger.Error("failed to delete session", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("logout", slog.String("account_id", session.AccountID))
	s.audit.Record(ctx, newAuditEvent(models.AuditLogout, session.TenantID, &session.AccountID, meta, nil), true)

	return nil
}

// ChangePassword verifies the current password, checks the candidate against
// tenant policy, and stores the new hash. Other sessions stay alive.
func (s *AuthService) ChangePassword(ctx context.Context, session *models.Session, currentPassword, newPassword string, meta RequestMeta) error {
	account, err := s.accounts.GetByID(ctx, session.TenantID, session.AccountID)
	if err != nil {
		s.logger.Error("failed to load account for password change", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(account.PasswordHash, currentPassword); err != nil {
		s.logger.Info("password change rejected: wrong current password",
			slog.String("account_id", account.ID))
		s.audit.Record(ctx, newAuditEvent(models.AuditPasswordChangeFailed, session.TenantID, &account.ID, meta, models.AuditMetadata{
			"reason": "wrong_current_password",
		}), false)
		return models.ErrInvalidCredentials
	}

	policy, err := s.policies.Get(ctx, session.TenantID)
	if err != nil {
		return err
	}

	rules := pkgauth.PasswordRules{
		MinLength:        policy.PasswordMinLength,
		RequireUppercase: policy.PasswordRequireUppercase,
		RequireNumber:    policy.PasswordRequireNumber,
		RequireSpecial:   policy.PasswordRequireSpecial,
	}
	if violations := pkgauth.ValidatePassword(newPassword, rules); len(violations) > 0 {
		return &models.PolicyViolationError{Violations: violations}
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash new password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.accounts.UpdatePassword(ctx, account.ID, hash); err != nil {
		s.logger.Error("failed to update password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("password changed", slog.String("account_id", account.ID))
	s.audit.Record(ctx, newAuditEvent(models.AuditPasswordChanged, session.TenantID, &account.ID, meta, nil), true)

	return nil
}
