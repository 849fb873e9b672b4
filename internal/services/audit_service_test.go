package services

import (
	"context"
	"errors"
	"testing"

	"github.com/brindlehq/talentbase/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditService_Record_PersistFailureSwallowed(t *testing.T) {
	repo := &MockAuditRepository{
		InsertFunc: func(ctx context.Context, event *models.SecurityAuditEvent) (*models.SecurityAuditEvent, error) {
			return nil, errors.New("trail store down")
		},
	}
	service := newTestAuditService(repo)

	// Must not panic or surface the failure to the caller.
	service.Record(context.Background(), newAuditEvent(models.AuditLoginSuccess, testTenantID, nil, testMeta(), nil), true)
}

func TestAuditService_Record_Persists(t *testing.T) {
	repo := &MockAuditRepository{}
	service := newTestAuditService(repo)
	accountID := "acct-1"

	service.Record(context.Background(), newAuditEvent(models.AuditLogout, testTenantID, &accountID, testMeta(), models.AuditMetadata{
		"extra": "detail",
	}), true)

	require.Len(t, repo.Inserted, 1)
	event := repo.Inserted[0]
	assert.Equal(t, models.AuditLogout, event.EventType)
	assert.Equal(t, testTenantID, event.TenantID)
	assert.Equal(t, "acct-1", *event.AccountID)
	assert.Equal(t, "203.0.113.9", event.IPAddress)
	assert.Equal(t, "detail", event.Metadata["extra"])
}

func TestAuditService_List_DefaultsAndCaps(t *testing.T) {
	var gotFilter models.AuditFilter
	repo := &MockAuditRepository{
		ListFunc: func(ctx context.Context, tenantID string, filter models.AuditFilter) ([]*models.SecurityAuditEvent, error) {
			gotFilter = filter
			return []*models.SecurityAuditEvent{}, nil
		},
		CountFunc: func(ctx context.Context, tenantID string, filter models.AuditFilter) (int64, error) {
			return 0, nil
		},
	}
	service := newTestAuditService(repo)

	_, err := service.List(context.Background(), testTenantID, models.AuditFilter{})
	require.NoError(t, err)
	assert.Equal(t, defaultAuditPageSize, gotFilter.Limit)

	_, err = service.List(context.Background(), testTenantID, models.AuditFilter{Limit: 10000})
	require.NoError(t, err)
	assert.Equal(t, maxAuditPageSize, gotFilter.Limit)
}

func TestAuditService_List_PassesThrough(t *testing.T) {
	events := []*models.SecurityAuditEvent{
		{ID: "ev-1", TenantID: testTenantID, EventType: models.AuditLoginFailed},
	}
	repo := &MockAuditRepository{
		ListFunc: func(ctx context.Context, tenantID string, filter models.AuditFilter) ([]*models.SecurityAuditEvent, error) {
			return events, nil
		},
		CountFunc: func(ctx context.Context, tenantID string, filter models.AuditFilter) (int64, error) {
			return 41, nil
		},
	}
	service := newTestAuditService(repo)

	page, err := service.List(context.Background(), testTenantID, models.AuditFilter{EventType: models.AuditLoginFailed})

	require.NoError(t, err)
	assert.Equal(t, events, page.Events)
	assert.Equal(t, int64(41), page.Total)
}
