package repositories

import (
	"context"
	"fmt"

	"github.com/brindlehq/talentbase/internal/database"
	"github.com/brindlehq/talentbase/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepository handles the append-only security audit trail.
type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{pool: db.Pool}
}

func scanAuditEventRow(row rowScanner) (*models.SecurityAuditEvent, error) {
	var event models.SecurityAuditEvent

	err := row.Scan(
		&event.ID, &event.TenantID, &event.AccountID, &event.EventType,
		&event.IPAddress, &event.UserAgent, &event.Metadata, &event.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &event, nil
}

// Insert appends one event. The trail has no update or delete path.
func (r *AuditRepository) Insert(ctx context.Context, event *models.SecurityAuditEvent) (*models.SecurityAuditEvent, error) {
	query := `
		INSERT INTO security_audit_events (id, tenant_id, account_id, event_type, ip_address, user_agent, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, tenant_id, account_id, event_type, ip_address, user_agent, metadata, created_at
	`

	result, err := scanAuditEventRow(r.pool.QueryRow(ctx, query,
		uuid.New().String(), event.TenantID, event.AccountID, event.EventType,
		event.IPAddress, event.UserAgent, event.Metadata,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert audit event: %w", err)
	}

	return result, nil
}

// buildAuditFilter translates an AuditFilter into a WHERE clause. The tenant
// predicate is always first; event listings never cross tenants.
func buildAuditFilter(tenantID string, filter models.AuditFilter) (string, []interface{}) {
	where := "WHERE tenant_id = $1"
	args := []interface{}{tenantID}

	if filter.EventType != "" {
		args = append(args, filter.EventType)
		where += fmt.Sprintf(" AND event_type = $%d", len(args))
	}
	if filter.AccountID != "" {
		args = append(args, filter.AccountID)
		where += fmt.Sprintf(" AND account_id = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where += fmt.Sprintf(" AND created_at < $%d", len(args))
	}

	return where, args
}

// List returns matching events, newest first.
func (r *AuditRepository) List(ctx context.Context, tenantID string, filter models.AuditFilter) ([]*models.SecurityAuditEvent, error) {
	where, args := buildAuditFilter(tenantID, filter)

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT id, tenant_id, account_id, event_type, ip_address, user_agent, metadata, created_at
		FROM security_audit_events
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	events := make([]*models.SecurityAuditEvent, 0)
	for rows.Next() {
		event, err := scanAuditEventRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit event rows: %w", err)
	}

	return events, nil
}

// Count reports the total matching the filter, for pagination.
func (r *AuditRepository) Count(ctx context.Context, tenantID string, filter models.AuditFilter) (int64, error) {
	where, args := buildAuditFilter(tenantID, filter)

	var count int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM security_audit_events %s`, where)
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count audit events: %w", err)
	}

	return count, nil
}
