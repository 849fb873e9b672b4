package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brindlehq/talentbase/internal/auth"
	"github.com/brindlehq/talentbase/internal/models"
	"github.com/brindlehq/talentbase/internal/services"
	pkghttp "github.com/brindlehq/talentbase/pkg/http"
)

// SessionServiceInterface defines the session registry operations the handler needs
type SessionServiceInterface interface {
	List(ctx context.Context, session *models.Session) ([]*models.SessionDevice, error)
	Terminate(ctx context.Context, session *models.Session, deviceID string, meta services.RequestMeta) error
	TerminateOthers(ctx context.Context, session *models.Session, meta services.RequestMeta) (int, error)
}

// SessionHandler handles session registry HTTP requests
type SessionHandler struct {
	service  SessionServiceInterface
	ipConfig *pkghttp.IPConfig
}

func NewSessionHandler(service SessionServiceInterface, ipConfig *pkghttp.IPConfig) *SessionHandler {
	return &SessionHandler{
		service:  service,
		ipConfig: ipConfig,
	}
}

// SessionListResponse wraps the device list
type SessionListResponse struct {
	Sessions []*models.SessionDevice `json:"sessions"`
}

// TerminateOthersResponse reports how many sessions were ended
type TerminateOthersResponse struct {
	TerminatedCount int `json:"terminated_count"`
}

func (h *SessionHandler) requestMeta(r *http.Request) services.RequestMeta {
	return services.RequestMeta{
		IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: r.Header.Get("User-Agent"),
	}
}

// List returns every active session for the caller, flagging the current one.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	devices, err := h.service.List(r.Context(), session)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, SessionListResponse{Sessions: devices})
}

// Terminate revokes one of the caller's other sessions by device id.
func (h *SessionHandler) Terminate(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	deviceID := chi.URLParam(r, "deviceID")
	if deviceID == "" {
		pkghttp.WriteBadRequest(w, "Missing device ID")
		return
	}

	if err := h.service.Terminate(r.Context(), session, deviceID, h.requestMeta(r)); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// TerminateOthers revokes every session except the caller's current one.
func (h *SessionHandler) TerminateOthers(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	count, err := h.service.TerminateOthers(r.Context(), session, h.requestMeta(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, TerminateOthersResponse{TerminatedCount: count})
}
