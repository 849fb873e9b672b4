package repositories

import (
	"context"
	"time"

	"github.com/brindlehq/talentbase/internal/database"
	"github.com/brindlehq/talentbase/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PolicyRepository struct {
	pool *pgxpool.Pool
}

func NewPolicyRepository(db *database.DB) *PolicyRepository {
	return &PolicyRepository{pool: db.Pool}
}

// Get returns the tenant's stored policy, or models.ErrNotFound when the
// tenant has never customised one.
func (r *PolicyRepository) Get(ctx context.Context, tenantID string) (*models.TenantSecurityPolicy, error) {
	query := `
		SELECT tenant_id, mfa_policy, mfa_grace_period_days, password_min_length,
			password_require_uppercase, password_require_number, password_require_special,
			session_timeout_minutes, updated_at
		FROM tenant_security_policies
		WHERE tenant_id = $1
	`

	var policy models.TenantSecurityPolicy
	err := r.pool.QueryRow(ctx, query, tenantID).Scan(
		&policy.TenantID, &policy.MFAPolicy, &policy.MFAGracePeriodDays, &policy.PasswordMinLength,
		&policy.PasswordRequireUppercase, &policy.PasswordRequireNumber, &policy.PasswordRequireSpecial,
		&policy.SessionTimeoutMinutes, &policy.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &policy, nil
}

// Upsert writes the full policy row, creating it on first customisation.
func (r *PolicyRepository) Upsert(ctx context.Context, policy *models.TenantSecurityPolicy) (*models.TenantSecurityPolicy, error) {
	policy.UpdatedAt = time.Now()

	query := `
		INSERT INTO tenant_security_policies (tenant_id, mfa_policy, mfa_grace_period_days, password_min_length,
			password_require_uppercase, password_require_number, password_require_special,
			session_timeout_minutes, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (tenant_id) DO UPDATE SET
			mfa_policy = EXCLUDED.mfa_policy,
			mfa_grace_period_days = EXCLUDED.mfa_grace_period_days,
			password_min_length = EXCLUDED.password_min_length,
			password_require_uppercase = EXCLUDED.password_require_uppercase,
			password_require_number = EXCLUDED.password_require_number,
			password_require_special = EXCLUDED.password_require_special,
			session_timeout_minutes = EXCLUDED.session_timeout_minutes,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query,
		policy.TenantID, policy.MFAPolicy, policy.MFAGracePeriodDays, policy.PasswordMinLength,
		policy.PasswordRequireUppercase, policy.PasswordRequireNumber, policy.PasswordRequireSpecial,
		policy.SessionTimeoutMinutes, policy.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return policy, nil
}
