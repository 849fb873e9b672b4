package models

import "time"

// BackupCode is a single-use MFA fallback credential. The plaintext exists
// only in the response that created the batch; only the hash is stored.
// A code validates at most once: UsedAt is set atomically on first match.
type BackupCode struct {
	ID        string
	AccountID string
	CodeHash  string // SHA-256 hex of the normalized code
	UsedAt    *time.Time
	CreatedAt time.Time
}

// IsUsed reports whether the code has already been consumed.
func (c *BackupCode) IsUsed() bool {
	return c.UsedAt != nil
}
