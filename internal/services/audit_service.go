package services

import (
	"context"
	"log/slog"

	"github.com/brindlehq/talentbase/internal/models"
	pkglogger "github.com/brindlehq/talentbase/pkg/logger"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 200
)

// AuditService appends events to the security audit trail. Every event is
// mirrored into the operational log stream first, so a trail-store outage
// never makes a security event fully invisible.
type AuditService struct {
	repo        AuditRepository
	auditLogger *pkglogger.AuditLogger
	logger      *slog.Logger
}

func NewAuditService(repo AuditRepository, auditLogger *pkglogger.AuditLogger, logger *slog.Logger) *AuditService {
	return &AuditService{
		repo:        repo,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// Record appends an event. Persistence failures are logged and swallowed:
// the security operation that produced the event must not fail because the
// trail store is down.
func (s *AuditService) Record(ctx context.Context, event *models.SecurityAuditEvent, success bool) {
	accountID := ""
	if event.AccountID != nil {
		accountID = *event.AccountID
	}

	s.auditLogger.LogSecurityEvent(pkglogger.AuditEvent{
		EventType: event.EventType,
		TenantID:  event.TenantID,
		AccountID: accountID,
		IPAddress: event.IPAddress,
		UserAgent: event.UserAgent,
		Success:   success,
		Metadata:  event.Metadata,
	})

	if _, err := s.repo.Insert(ctx, event); err != nil {
		s.logger.Error("failed to persist audit event",
			slog.String("event_type", event.EventType),
			slog.String("tenant_id", event.TenantID),
			slog.Any("error", err))
	}
}

// AuditPage is one page of the audit trail plus the total for pagination.
type AuditPage struct {
	Events []*models.SecurityAuditEvent `json:"events"`
	Total  int64                        `json:"total"`
	Limit  int                          `json:"limit"`
	Offset int                          `json:"offset"`
}

// List returns a filtered page of the tenant's trail, newest first.
func (s *AuditService) List(ctx context.Context, tenantID string, filter models.AuditFilter) (*AuditPage, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultAuditPageSize
	}
	if filter.Limit > maxAuditPageSize {
		filter.Limit = maxAuditPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	events, err := s.repo.List(ctx, tenantID, filter)
	if err != nil {
		s.logger.Error("failed to list audit events", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	total, err := s.repo.Count(ctx, tenantID, filter)
	if err != nil {
		s.logger.Error("failed to count audit events", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &AuditPage{
		Events: events,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

// newAuditEvent builds a trail event with request attribution attached.
func newAuditEvent(eventType, tenantID string, accountID *string, meta RequestMeta, metadata models.AuditMetadata) *models.SecurityAuditEvent {
	return &models.SecurityAuditEvent{
		TenantID:  tenantID,
		AccountID: accountID,
		EventType: eventType,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Metadata:  metadata,
	}
}
