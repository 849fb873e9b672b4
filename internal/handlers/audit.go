package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/brindlehq/talentbase/internal/auth"
	"github.com/brindlehq/talentbase/internal/models"
	"github.com/brindlehq/talentbase/internal/services"
	pkghttp "github.com/brindlehq/talentbase/pkg/http"
)

// AuditServiceInterface defines the audit trail queries the handler needs
type AuditServiceInterface interface {
	List(ctx context.Context, tenantID string, filter models.AuditFilter) (*services.AuditPage, error)
}

// AuditHandler handles audit trail HTTP requests
type AuditHandler struct {
	service AuditServiceInterface
}

func NewAuditHandler(service AuditServiceInterface) *AuditHandler {
	return &AuditHandler{service: service}
}

// List returns a page of the tenant's audit trail, newest first. Filters
// come from query parameters: event_type, account_id, from, to (RFC 3339),
// limit, offset.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	filter, err := parseAuditFilter(r)
	if err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	page, err := h.service.List(r.Context(), session.TenantID, filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, page)
}

func parseAuditFilter(r *http.Request) (models.AuditFilter, error) {
	q := r.URL.Query()
	filter := models.AuditFilter{
		EventType: q.Get("event_type"),
		AccountID: q.Get("account_id"),
	}

	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, &queryParamError{param: "from"}
		}
		filter.From = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, &queryParamError{param: "to"}
		}
		filter.To = &t
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, &queryParamError{param: "limit"}
		}
		filter.Limit = n
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, &queryParamError{param: "offset"}
		}
		filter.Offset = n
	}

	return filter, nil
}

type queryParamError struct {
	param string
}

func (e *queryParamError) Error() string {
	return "Invalid query parameter: " + e.param
}
