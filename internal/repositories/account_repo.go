package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/brindlehq/talentbase/internal/database"
	"github.com/brindlehq/talentbase/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{pool: db.Pool}
}

// rowScanner interface for scanning account rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

const accountColumns = `id, tenant_id, email, password_hash, name, role, employment_status,
	failed_login_attempts, locked_until, mfa_enabled, mfa_secret, mfa_enabled_at,
	last_login_at, password_changed_at, created_at, updated_at`

// scanAccountRow handles nullable fields and populates an Account model from a database row
func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var account models.Account

	err := scanner.Scan(
		&account.ID, &account.TenantID, &account.Email, &account.PasswordHash,
		&account.Name, &account.Role, &account.EmploymentStatus,
		&account.FailedLoginAttempts, &account.LockedUntil,
		&account.MFAEnabled, &account.MFASecret, &account.MFAEnabledAt,
		&account.LastLoginAt, &account.PasswordChangedAt,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &account, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, tenantID, id string) (*models.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE tenant_id = $1 AND id = $2`, accountColumns)

	return scanAccountRow(r.pool.QueryRow(ctx, query, tenantID, id))
}

// GetByEmail looks an account up case-insensitively within a single tenant.
func (r *AccountRepository) GetByEmail(ctx context.Context, tenantID, email string) (*models.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE tenant_id = $1 AND lower(email) = lower($2)`, accountColumns)

	return scanAccountRow(r.pool.QueryRow(ctx, query, tenantID, email))
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	account.ID = uuid.New().String()

	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	if account.Role == "" {
		account.Role = models.RoleEmployee
	}
	if account.EmploymentStatus == "" {
		account.EmploymentStatus = models.EmploymentStatusActive
	}

	query := fmt.Sprintf(`
		INSERT INTO accounts (id, tenant_id, email, password_hash, name, role, employment_status, password_changed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING %s
	`, accountColumns)

	return scanAccountRow(r.pool.QueryRow(ctx, query,
		account.ID, account.TenantID, account.Email, account.PasswordHash,
		account.Name, account.Role, account.EmploymentStatus,
		account.PasswordChangedAt, account.CreatedAt, account.UpdatedAt,
	))
}

// RecordLoginFailure increments the failure counter and applies the lockout in a
// single statement, so concurrent failed attempts cannot race past the threshold.
// An expired lock restarts the counter at 1 instead of incrementing. The returned
// values reflect the row after the update.
func (r *AccountRepository) RecordLoginFailure(ctx context.Context, id string, maxAttempts int, lockUntil time.Time) (int, *time.Time, error) {
	query := `
		UPDATE accounts
		SET failed_login_attempts = CASE
				WHEN locked_until IS NOT NULL AND locked_until <= now() THEN 1
				ELSE failed_login_attempts + 1
			END,
			locked_until = CASE
				WHEN locked_until IS NOT NULL AND locked_until <= now() THEN NULL
				WHEN failed_login_attempts + 1 >= $2 THEN $3::timestamptz
				ELSE locked_until
			END,
			updated_at = now()
		WHERE id = $1
		RETURNING failed_login_attempts, locked_until
	`

	var attempts int
	var lockedUntil *time.Time
	err := r.pool.QueryRow(ctx, query, id, maxAttempts, lockUntil).Scan(&attempts, &lockedUntil)
	if err != nil {
		return 0, nil, database.MapPostgresError(err)
	}

	return attempts, lockedUntil, nil
}

// RecordLoginSuccess clears the failure counter and any lock, and stamps the login.
func (r *AccountRepository) RecordLoginSuccess(ctx context.Context, id string) error {
	query := `
		UPDATE accounts
		SET failed_login_attempts = 0, locked_until = NULL, last_login_at = now(), updated_at = now()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `
		UPDATE accounts
		SET password_hash = $1, password_changed_at = now(), updated_at = now()
		WHERE id = $2
	`

	result, err := r.pool.Exec(ctx, query, passwordHash, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// EnableMFA activates MFA with the confirmed secret. The guard on mfa_enabled
// makes concurrent confirmations of the same enrollment first-wins.
func (r *AccountRepository) EnableMFA(ctx context.Context, id, secret string) error {
	query := `
		UPDATE accounts
		SET mfa_enabled = TRUE, mfa_secret = $1, mfa_enabled_at = now(), updated_at = now()
		WHERE id = $2 AND mfa_enabled = FALSE
	`

	result, err := r.pool.Exec(ctx, query, secret, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrMFAAlreadyEnabled
	}

	return nil
}

func (r *AccountRepository) DisableMFA(ctx context.Context, id string) error {
	query := `
		UPDATE accounts
		SET mfa_enabled = FALSE, mfa_secret = NULL, mfa_enabled_at = NULL, updated_at = now()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
