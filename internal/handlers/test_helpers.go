package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/brindlehq/talentbase/internal/auth"
	"github.com/brindlehq/talentbase/internal/models"
	"github.com/brindlehq/talentbase/internal/services"
	pkghttp "github.com/brindlehq/talentbase/pkg/http"
)

// Mock services for handler tests. Each mock exposes function fields so a
// test can script exactly the behaviour it needs.

type MockAuthService struct {
	LoginFunc          func(ctx context.Context, tenantID, email, password string, meta services.RequestMeta) (*services.LoginResponse, error)
	VerifyLoginMFAFunc func(ctx context.Context, challengeToken, code string, meta services.RequestMeta) (*services.LoginResponse, error)
	LogoutFunc         func(ctx context.Context, session *models.Session, meta services.RequestMeta) error
	ChangePasswordFunc func(ctx context.Context, session *models.Session, currentPassword, newPassword string, meta services.RequestMeta) error
}

func (m *MockAuthService) Login(ctx context.Context, tenantID, email, password string, meta services.RequestMeta) (*services.LoginResponse, error) {
	return m.LoginFunc(ctx, tenantID, email, password, meta)
}

func (m *MockAuthService) VerifyLoginMFA(ctx context.Context, challengeToken, code string, meta services.RequestMeta) (*services.LoginResponse, error) {
	return m.VerifyLoginMFAFunc(ctx, challengeToken, code, meta)
}

func (m *MockAuthService) Logout(ctx context.Context, session *models.Session, meta services.RequestMeta) error {
	return m.LogoutFunc(ctx, session, meta)
}

func (m *MockAuthService) ChangePassword(ctx context.Context, session *models.Session, currentPassword, newPassword string, meta services.RequestMeta) error {
	return m.ChangePasswordFunc(ctx, session, currentPassword, newPassword, meta)
}

type MockMFAService struct {
	StatusFunc                func(ctx context.Context, session *models.Session) (*services.MFAStatusResponse, error)
	StartEnrollmentFunc       func(ctx context.Context, session *models.Session, meta services.RequestMeta) (*services.EnrollmentResponse, error)
	ConfirmEnrollmentFunc     func(ctx context.Context, session *models.Session, code string, meta services.RequestMeta) (*services.BackupCodesResponse, error)
	DisableFunc               func(ctx context.Context, session *models.Session, code string, meta services.RequestMeta) error
	RegenerateBackupCodesFunc func(ctx context.Context, session *models.Session, code string, meta services.RequestMeta) (*services.BackupCodesResponse, error)
}

func (m *MockMFAService) Status(ctx context.Context, session *models.Session) (*services.MFAStatusResponse, error) {
	return m.StatusFunc(ctx, session)
}

func (m *MockMFAService) StartEnrollment(ctx context.Context, session *models.Session, meta services.RequestMeta) (*services.EnrollmentResponse, error) {
	return m.StartEnrollmentFunc(ctx, session, meta)
}

func (m *MockMFAService) ConfirmEnrollment(ctx context.Context, session *models.Session, code string, meta services.RequestMeta) (*services.BackupCodesResponse, error) {
	return m.ConfirmEnrollmentFunc(ctx, session, code, meta)
}

func (m *MockMFAService) Disable(ctx context.Context, session *models.Session, code string, meta services.RequestMeta) error {
	return m.DisableFunc(ctx, session, code, meta)
}

func (m *MockMFAService) RegenerateBackupCodes(ctx context.Context, session *models.Session, code string, meta services.RequestMeta) (*services.BackupCodesResponse, error) {
	return m.RegenerateBackupCodesFunc(ctx, session, code, meta)
}

type MockSessionService struct {
	ListFunc            func(ctx context.Context, session *models.Session) ([]*models.SessionDevice, error)
	TerminateFunc       func(ctx context.Context, session *models.Session, deviceID string, meta services.RequestMeta) error
	TerminateOthersFunc func(ctx context.Context, session *models.Session, meta services.RequestMeta) (int, error)
}

func (m *MockSessionService) List(ctx context.Context, session *models.Session) ([]*models.SessionDevice, error) {
	return m.ListFunc(ctx, session)
}

func (m *MockSessionService) Terminate(ctx context.Context, session *models.Session, deviceID string, meta services.RequestMeta) error {
	return m.TerminateFunc(ctx, session, deviceID, meta)
}

func (m *MockSessionService) TerminateOthers(ctx context.Context, session *models.Session, meta services.RequestMeta) (int, error) {
	return m.TerminateOthersFunc(ctx, session, meta)
}

type MockPolicyService struct {
	GetFunc    func(ctx context.Context, tenantID string) (*models.TenantSecurityPolicy, error)
	UpdateFunc func(ctx context.Context, session *models.Session, patch *models.SecurityPolicyPatch, meta services.RequestMeta) (*models.TenantSecurityPolicy, error)
}

func (m *MockPolicyService) Get(ctx context.Context, tenantID string) (*models.TenantSecurityPolicy, error) {
	return m.GetFunc(ctx, tenantID)
}

func (m *MockPolicyService) Update(ctx context.Context, session *models.Session, patch *models.SecurityPolicyPatch, meta services.RequestMeta) (*models.TenantSecurityPolicy, error) {
	return m.UpdateFunc(ctx, session, patch, meta)
}

type MockAuditService struct {
	ListFunc func(ctx context.Context, tenantID string, filter models.AuditFilter) (*services.AuditPage, error)
}

func (m *MockAuditService) List(ctx context.Context, tenantID string, filter models.AuditFilter) (*services.AuditPage, error) {
	return m.ListFunc(ctx, tenantID, filter)
}

func testIPConfig() *pkghttp.IPConfig {
	return &pkghttp.IPConfig{}
}

// NewTestSession creates a session payload for handler tests
func NewTestSession() *models.Session {
	return &models.Session{
		ID:        "sess-test-1",
		AccountID: "acct-test-1",
		TenantID:  "tenant-test-1",
		Role:      models.RoleEmployee,
		CreatedAt: time.Now().Add(-time.Hour),
	}
}

// newJSONRequest builds a request carrying a JSON body
func newJSONRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// authenticate attaches a session to the request context the way the
// session middleware would
func authenticate(r *http.Request, session *models.Session) *http.Request {
	return r.WithContext(auth.ContextWithSession(r.Context(), session))
}
