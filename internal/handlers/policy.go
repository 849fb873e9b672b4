package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/brindlehq/talentbase/internal/auth"
	"github.com/brindlehq/talentbase/internal/models"
	"github.com/brindlehq/talentbase/internal/services"
	pkghttp "github.com/brindlehq/talentbase/pkg/http"
)

// PolicyServiceInterface defines the tenant policy operations the handler needs
type PolicyServiceInterface interface {
	Get(ctx context.Context, tenantID string) (*models.TenantSecurityPolicy, error)
	Update(ctx context.Context, session *models.Session, patch *models.SecurityPolicyPatch, meta services.RequestMeta) (*models.TenantSecurityPolicy, error)
}

// PolicyHandler handles tenant security policy HTTP requests
type PolicyHandler struct {
	service  PolicyServiceInterface
	ipConfig *pkghttp.IPConfig
}

func NewPolicyHandler(service PolicyServiceInterface, ipConfig *pkghttp.IPConfig) *PolicyHandler {
	return &PolicyHandler{
		service:  service,
		ipConfig: ipConfig,
	}
}

func (h *PolicyHandler) requestMeta(r *http.Request) services.RequestMeta {
	return services.RequestMeta{
		IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: r.Header.Get("User-Agent"),
	}
}

// Get returns the caller's tenant policy, falling back to defaults for
// tenants that never customised theirs.
func (h *PolicyHandler) Get(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	policy, err := h.service.Get(r.Context(), session.TenantID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, policy)
}

// Update applies a partial policy update. Any invalid field rejects the
// whole patch.
func (h *PolicyHandler) Update(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var patch models.SecurityPolicyPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	policy, err := h.service.Update(r.Context(), session, &patch, h.requestMeta(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, policy)
}
