package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/brindlehq/talentbase/internal/models"
)

// Session payloads expire out of the session store by TTL, but their device
// rows stay behind. Any device not touched for longer than the maximum
// configurable idle timeout plus slack is unreachable and safe to remove.
const staleDeviceAge = time.Duration(models.SessionTimeoutCeiling)*time.Minute + time.Hour

// StaleDeviceDeleter removes device rows not active since the cutoff
type StaleDeviceDeleter interface {
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupManager periodically removes device rows whose sessions have
// expired out of the session store
type CleanupManager struct {
	devices  StaleDeviceDeleter
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	devices StaleDeviceDeleter,
	logger *slog.Logger,
	interval time.Duration,
) *CleanupManager {
	return &CleanupManager{
		devices:  devices,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// runCleanup removes stale device rows from the database
func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-staleDeviceAge)
	rowsDeleted, err := cm.devices.DeleteStale(cleanupCtx, cutoff)
	if err != nil {
		cm.logger.Error("failed to cleanup stale session devices", slog.Any("error", err))
		return
	}

	if rowsDeleted > 0 {
		cm.logger.Info("stale session device cleanup completed", slog.Int64("rows_deleted", rowsDeleted))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
