package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/brindlehq/talentbase/internal/database"
	"github.com/brindlehq/talentbase/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type BackupCodeRepository struct {
	db *database.DB
}

func NewBackupCodeRepository(db *database.DB) *BackupCodeRepository {
	return &BackupCodeRepository{db: db}
}

// ReplaceBatch deletes any existing codes for the account and inserts the new
// batch in one transaction, so the account never holds a mix of old and new codes.
func (r *BackupCodeRepository) ReplaceBatch(ctx context.Context, accountID string, codeHashes []string) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM backup_codes WHERE account_id = $1`, accountID); err != nil {
			return fmt.Errorf("failed to delete old backup codes: %w", database.MapPostgresError(err))
		}

		now := time.Now()
		for _, hash := range codeHashes {
			_, err := tx.Exec(ctx,
				`INSERT INTO backup_codes (id, account_id, code_hash, created_at) VALUES ($1, $2, $3, $4)`,
				uuid.New().String(), accountID, hash, now,
			)
			if err != nil {
				return fmt.Errorf("failed to insert backup code: %w", database.MapPostgresError(err))
			}
		}

		return nil
	})
}

// ListUnused returns the codes still available for the account.
func (r *BackupCodeRepository) ListUnused(ctx context.Context, accountID string) ([]*models.BackupCode, error) {
	query := `
		SELECT id, account_id, code_hash, used_at, created_at
		FROM backup_codes
		WHERE account_id = $1 AND used_at IS NULL
		ORDER BY created_at
	`

	rows, err := r.db.Pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query backup codes: %w", err)
	}
	defer rows.Close()

	codes := make([]*models.BackupCode, 0)
	for rows.Next() {
		var code models.BackupCode
		if err := rows.Scan(&code.ID, &code.AccountID, &code.CodeHash, &code.UsedAt, &code.CreatedAt); err != nil {
			return nil, database.MapPostgresError(err)
		}
		codes = append(codes, &code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return codes, nil
}

// Consume marks one code as spent. The used_at guard makes the operation
// single-use even under concurrent verification of the same code.
func (r *BackupCodeRepository) Consume(ctx context.Context, id string) error {
	query := `UPDATE backup_codes SET used_at = now() WHERE id = $1 AND used_at IS NULL`

	result, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// CountUnused reports how many codes remain for the account.
func (r *BackupCodeRepository) CountUnused(ctx context.Context, accountID string) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM backup_codes WHERE account_id = $1 AND used_at IS NULL`, accountID,
	).Scan(&count)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return count, nil
}

// DeleteForAccount removes every code, used or not. Called when MFA is disabled.
func (r *BackupCodeRepository) DeleteForAccount(ctx context.Context, accountID string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM backup_codes WHERE account_id = $1`, accountID)
	if err != nil {
		return database.MapPostgresError(err)
	}

	return nil
}
