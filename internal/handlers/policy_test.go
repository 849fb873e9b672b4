package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brindlehq/talentbase/internal/models"
	"github.com/brindlehq/talentbase/internal/services"
)

func TestPolicyHandler_Get(t *testing.T) {
	mock := &MockPolicyService{
		GetFunc: func(ctx context.Context, tenantID string) (*models.TenantSecurityPolicy, error) {
			assert.Equal(t, "tenant-test-1", tenantID)
			return models.DefaultSecurityPolicy(tenantID), nil
		},
	}
	handler := NewPolicyHandler(mock, testIPConfig())

	req := authenticate(httptest.NewRequest(http.MethodGet, "/api/v1/policy", nil), NewTestSession())
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.TenantSecurityPolicy
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, models.MFAPolicyOptional, resp.MFAPolicy)
	assert.Equal(t, 60, resp.SessionTimeoutMinutes)
}

func TestPolicyHandler_Update_Success(t *testing.T) {
	mock := &MockPolicyService{
		UpdateFunc: func(ctx context.Context, session *models.Session, patch *models.SecurityPolicyPatch, meta services.RequestMeta) (*models.TenantSecurityPolicy, error) {
			require.NotNil(t, patch.SessionTimeoutMinutes)
			assert.Equal(t, 120, *patch.SessionTimeoutMinutes)
			assert.Nil(t, patch.MFAPolicy)

			policy := models.DefaultSecurityPolicy(session.TenantID)
			policy.SessionTimeoutMinutes = 120
			return policy, nil
		},
	}
	handler := NewPolicyHandler(mock, testIPConfig())

	req := authenticate(newJSONRequest(http.MethodPatch, "/api/v1/policy",
		`{"session_timeout_minutes":120}`), NewTestSession())
	rec := httptest.NewRecorder()

	handler.Update(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.TenantSecurityPolicy
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 120, resp.SessionTimeoutMinutes)
}

func TestPolicyHandler_Update_ViolationsRejectWholePatch(t *testing.T) {
	mock := &MockPolicyService{
		UpdateFunc: func(ctx context.Context, session *models.Session, patch *models.SecurityPolicyPatch, meta services.RequestMeta) (*models.TenantSecurityPolicy, error) {
			return nil, &models.PolicyViolationError{Violations: []string{
				"session_timeout_minutes must be between 15 and 480",
				"mfa_policy must be one of off, optional, required",
			}}
		},
	}
	handler := NewPolicyHandler(mock, testIPConfig())

	req := authenticate(newJSONRequest(http.MethodPatch, "/api/v1/policy",
		`{"session_timeout_minutes":5,"mfa_policy":"sometimes"}`), NewTestSession())
	rec := httptest.NewRecorder()

	handler.Update(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "between 15 and 480")
	assert.Contains(t, rec.Body.String(), "off, optional, required")
}

func TestPolicyHandler_Update_InvalidBody(t *testing.T) {
	handler := NewPolicyHandler(&MockPolicyService{}, testIPConfig())

	req := authenticate(newJSONRequest(http.MethodPatch, "/api/v1/policy", `{not json`), NewTestSession())
	rec := httptest.NewRecorder()

	handler.Update(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPolicyHandler_Unauthenticated(t *testing.T) {
	handler := NewPolicyHandler(&MockPolicyService{}, testIPConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/policy", nil)
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
