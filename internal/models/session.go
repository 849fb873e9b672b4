package models

import "time"

// Session is the authenticated-session payload held in the session store,
// keyed by an opaque session id. It is fetched and persisted through the
// store on every request; no process-local session state survives a request.
type Session struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	TenantID  string    `json:"tenant_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionDevice pairs an active session with the client that created it,
// enabling visibility ("where am I logged in?") and remote termination.
// The row and its session-store entry live and die together.
type SessionDevice struct {
	ID           string     `json:"id"`
	SessionID    string     `json:"-"`
	AccountID    string     `json:"-"`
	TenantID     string     `json:"-"`
	DeviceName   string     `json:"device_name"`
	IPAddress    string     `json:"ip_address"`
	LastActiveAt time.Time  `json:"last_active_at"`
	CreatedAt    time.Time  `json:"created_at"`
	Current      bool       `json:"current"` // set at list time, not persisted
}
