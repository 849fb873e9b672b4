package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/brindlehq/talentbase/internal/models"
)

// SessionService exposes the per-account device registry: listing active
// sessions and terminating them remotely. Termination always removes the
// device row before the session payload, so a half-finished termination
// leaves a session that still expires on its own rather than a ghost device.
type SessionService struct {
	devices  SessionDeviceRepository
	sessions SessionStore
	audit    *AuditService
	logger   *slog.Logger
}

func NewSessionService(devices SessionDeviceRepository, sessions SessionStore, audit *AuditService, logger *slog.Logger) *SessionService {
	return &SessionService{
		devices:  devices,
		sessions: sessions,
		audit:    audit,
		logger:   logger,
	}
}

// List returns the account's active devices, flagging the one behind the
// calling session.
func (s *SessionService) List(ctx context.Context, session *models.Session) ([]*models.SessionDevice, error) {
	devices, err := s.devices.ListByAccount(ctx, session.AccountID)
	if err != nil {
		s.logger.Error("failed to list session devices", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	for _, device := range devices {
		device.Current = device.SessionID == session.ID
	}

	return devices, nil
}

// Terminate kills one of the account's other sessions. The calling session
// is off-limits; logging out is the way to end it.
func (s *SessionService) Terminate(ctx context.Context, session *models.Session, deviceID string, meta RequestMeta) error {
	device, err := s.devices.GetByID(ctx, session.AccountID, deviceID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to load session device", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if device.SessionID == session.ID {
		return models.ErrCurrentSessionTarget
	}

	if err := s.devices.Delete(ctx, device.ID); err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to delete session device", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if err := s.sessions.Delete(ctx, device.SessionID); err != nil {
		s.logger.Error("failed to delete session payload", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("session terminated",
		slog.String("account_id", session.AccountID),
		slog.String("device_name", device.DeviceName))
	s.audit.Record(ctx, newAuditEvent(models.AuditSessionTerminated, session.TenantID, &session.AccountID, meta, models.AuditMetadata{
		"device_name": device.DeviceName,
	}), true)

	return nil
}

// TerminateOthers kills every session of the account except the calling one
// and reports how many were removed.
func (s *SessionService) TerminateOthers(ctx context.Context, session *models.Session, meta RequestMeta) (int, error) {
	sessionIDs, err := s.devices.DeleteOthers(ctx, session.AccountID, session.ID)
	if err != nil {
		s.logger.Error("failed to delete other session devices", slog.Any("error", err))
		return 0, models.ErrInternalServer
	}

	for _, id := range sessionIDs {
		if derr := s.sessions.Delete(ctx, id); derr != nil {
			// The payload will still expire by TTL; its device row is gone.
			s.logger.Warn("failed to delete session payload",
				slog.String("session_id", id), slog.Any("error", derr))
		}
	}

	s.logger.Info("other sessions terminated",
		slog.String("account_id", session.AccountID),
		slog.Int("count", len(sessionIDs)))
	s.audit.Record(ctx, newAuditEvent(models.AuditOtherSessionsTerminated, session.TenantID, &session.AccountID, meta, models.AuditMetadata{
		"count": len(sessionIDs),
	}), true)

	return len(sessionIDs), nil
}
