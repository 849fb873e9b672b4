package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/brindlehq/talentbase/internal/models"
)

// Grace-period bounds for mandatory MFA rollout, in days.
const (
	mfaGracePeriodFloor   = 0
	mfaGracePeriodCeiling = 90
)

// PolicyService resolves and updates per-tenant security policy. Tenants that
// never customised their policy get the platform defaults.
type PolicyService struct {
	repo   PolicyRepository
	audit  *AuditService
	logger *slog.Logger
}

func NewPolicyService(repo PolicyRepository, audit *AuditService, logger *slog.Logger) *PolicyService {
	return &PolicyService{
		repo:   repo,
		audit:  audit,
		logger: logger,
	}
}

// Get returns the tenant's effective policy, falling back to the defaults.
func (s *PolicyService) Get(ctx context.Context, tenantID string) (*models.TenantSecurityPolicy, error) {
	policy, err := s.repo.Get(ctx, tenantID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.DefaultSecurityPolicy(tenantID), nil
		}
		s.logger.Error("failed to load tenant policy",
			slog.String("tenant_id", tenantID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return policy, nil
}

// Update applies a patch to the tenant's policy. Validation covers the whole
// patched result: one violation rejects the entire update, nothing is applied.
func (s *PolicyService) Update(ctx context.Context, session *models.Session, patch *models.SecurityPolicyPatch, meta RequestMeta) (*models.TenantSecurityPolicy, error) {
	current, err := s.Get(ctx, session.TenantID)
	if err != nil {
		return nil, err
	}

	updated := *current
	changed := applyPolicyPatch(&updated, patch)

	if violations := validatePolicy(&updated); len(violations) > 0 {
		return nil, &models.PolicyViolationError{Violations: violations}
	}

	saved, err := s.repo.Upsert(ctx, &updated)
	if err != nil {
		s.logger.Error("failed to save tenant policy",
			slog.String("tenant_id", session.TenantID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("tenant security policy updated",
		slog.String("tenant_id", session.TenantID),
		slog.Any("changed_fields", changed))
	s.audit.Record(ctx, newAuditEvent(models.AuditPolicyUpdated, session.TenantID, &session.AccountID, meta, models.AuditMetadata{
		"changed_fields": changed,
	}), true)

	return saved, nil
}

// applyPolicyPatch copies the patch's non-nil fields onto the policy and
// returns the names of the fields that were set.
func applyPolicyPatch(policy *models.TenantSecurityPolicy, patch *models.SecurityPolicyPatch) []string {
	changed := make([]string, 0)

	if patch.MFAPolicy != nil {
		policy.MFAPolicy = *patch.MFAPolicy
		changed = append(changed, "mfa_policy")
	}
	if patch.MFAGracePeriodDays != nil {
		policy.MFAGracePeriodDays = *patch.MFAGracePeriodDays
		changed = append(changed, "mfa_grace_period_days")
	}
	if patch.PasswordMinLength != nil {
		policy.PasswordMinLength = *patch.PasswordMinLength
		changed = append(changed, "password_min_length")
	}
	if patch.PasswordRequireUppercase != nil {
		policy.PasswordRequireUppercase = *patch.PasswordRequireUppercase
		changed = append(changed, "password_require_uppercase")
	}
	if patch.PasswordRequireNumber != nil {
		policy.PasswordRequireNumber = *patch.PasswordRequireNumber
		changed = append(changed, "password_require_number")
	}
	if patch.PasswordRequireSpecial != nil {
		policy.PasswordRequireSpecial = *patch.PasswordRequireSpecial
		changed = append(changed, "password_require_special")
	}
	if patch.SessionTimeoutMinutes != nil {
		policy.SessionTimeoutMinutes = *patch.SessionTimeoutMinutes
		changed = append(changed, "session_timeout_minutes")
	}

	return changed
}

func validatePolicy(policy *models.TenantSecurityPolicy) []string {
	violations := make([]string, 0)

	switch policy.MFAPolicy {
	case models.MFAPolicyOff, models.MFAPolicyOptional, models.MFAPolicyRequired:
	default:
		violations = append(violations, fmt.Sprintf("mfa_policy must be one of %q, %q, %q",
			models.MFAPolicyOff, models.MFAPolicyOptional, models.MFAPolicyRequired))
	}

	if policy.MFAGracePeriodDays < mfaGracePeriodFloor || policy.MFAGracePeriodDays > mfaGracePeriodCeiling {
		violations = append(violations, fmt.Sprintf("mfa_grace_period_days must be between %d and %d",
			mfaGracePeriodFloor, mfaGracePeriodCeiling))
	}

	if policy.PasswordMinLength < models.PasswordMinLengthFloor || policy.PasswordMinLength > models.PasswordMinLengthCeiling {
		violations = append(violations, fmt.Sprintf("password_min_length must be between %d and %d",
			models.PasswordMinLengthFloor, models.PasswordMinLengthCeiling))
	}

	if policy.SessionTimeoutMinutes < models.SessionTimeoutFloor || policy.SessionTimeoutMinutes > models.SessionTimeoutCeiling {
		violations = append(violations, fmt.Sprintf("session_timeout_minutes must be between %d and %d",
			models.SessionTimeoutFloor, models.SessionTimeoutCeiling))
	}

	return violations
}
