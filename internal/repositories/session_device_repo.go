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

type SessionDeviceRepository struct {
	pool *pgxpool.Pool
}

func NewSessionDeviceRepository(db *database.DB) *SessionDeviceRepository {
	return &SessionDeviceRepository{pool: db.Pool}
}

func (r *SessionDeviceRepository) Create(ctx context.Context, device *models.SessionDevice) (*models.SessionDevice, error) {
	device.ID = uuid.New().String()

	now := time.Now()
	device.CreatedAt = now
	device.LastActiveAt = now

	query := `
		INSERT INTO session_devices (id, session_id, account_id, tenant_id, device_name, ip_address, last_active_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		device.ID, device.SessionID, device.AccountID, device.TenantID,
		device.DeviceName, device.IPAddress, device.LastActiveAt, device.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return device, nil
}

// ListByAccount returns the account's devices, most recently active first.
func (r *SessionDeviceRepository) ListByAccount(ctx context.Context, accountID string) ([]*models.SessionDevice, error) {
	query := `
		SELECT id, session_id, account_id, tenant_id, device_name, ip_address, last_active_at, created_at
		FROM session_devices
		WHERE account_id = $1
		ORDER BY last_active_at DESC
	`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query session devices: %w", err)
	}
	defer rows.Close()

	devices := make([]*models.SessionDevice, 0)
	for rows.Next() {
		var device models.SessionDevice
		err := rows.Scan(
			&device.ID, &device.SessionID, &device.AccountID, &device.TenantID,
			&device.DeviceName, &device.IPAddress, &device.LastActiveAt, &device.CreatedAt,
		)
		if err != nil {
			return nil, database.MapPostgresError(err)
		}
		devices = append(devices, &device)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return devices, nil
}

// GetByID fetches one device, scoped to the owning account so one employee
// cannot address another's sessions.
func (r *SessionDeviceRepository) GetByID(ctx context.Context, accountID, id string) (*models.SessionDevice, error) {
	query := `
		SELECT id, session_id, account_id, tenant_id, device_name, ip_address, last_active_at, created_at
		FROM session_devices
		WHERE account_id = $1 AND id = $2
	`

	var device models.SessionDevice
	err := r.pool.QueryRow(ctx, query, accountID, id).Scan(
		&device.ID, &device.SessionID, &device.AccountID, &device.TenantID,
		&device.DeviceName, &device.IPAddress, &device.LastActiveAt, &device.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &device, nil
}

func (r *SessionDeviceRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM session_devices WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// DeleteBySessionID removes the device row for a session. Used on logout,
// where only the session id is known. Missing rows are not an error.
func (r *SessionDeviceRepository) DeleteBySessionID(ctx context.Context, sessionID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM session_devices WHERE session_id = $1`, sessionID)
	if err != nil {
		return database.MapPostgresError(err)
	}

	return nil
}

// DeleteOthers removes every device of the account except the one tied to
// keepSessionID, returning the session ids of the removed rows so their
// session-store entries can be deleted too.
func (r *SessionDeviceRepository) DeleteOthers(ctx context.Context, accountID, keepSessionID string) ([]string, error) {
	query := `
		DELETE FROM session_devices
		WHERE account_id = $1 AND session_id <> $2
		RETURNING session_id
	`

	rows, err := r.pool.Query(ctx, query, accountID, keepSessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete session devices: %w", err)
	}
	defer rows.Close()

	sessionIDs := make([]string, 0)
	for rows.Next() {
		var sessionID string
		if err := rows.Scan(&sessionID); err != nil {
			return nil, database.MapPostgresError(err)
		}
		sessionIDs = append(sessionIDs, sessionID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return sessionIDs, nil
}

// DeleteStale removes device rows not active since the cutoff. Their session
// store entries expired long ago; only the rows linger.
func (r *SessionDeviceRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx,
		`DELETE FROM session_devices WHERE last_active_at < $1`, cutoff)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}

// TouchBySessionID refreshes the activity timestamp. Best-effort; a missing
// row is ignored.
func (r *SessionDeviceRepository) TouchBySessionID(ctx context.Context, sessionID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE session_devices SET last_active_at = now() WHERE session_id = $1`, sessionID)
	if err != nil {
		return database.MapPostgresError(err)
	}

	return nil
}
