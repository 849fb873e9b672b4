package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/brindlehq/talentbase/internal/models"
	"github.com/redis/go-redis/v9"
)

const pendingKeyPrefix = "mfa_pending:"

// PendingEnrollment is the short-lived slot holding a generated TOTP secret
// between enrollment and confirmation. The secret is never written to the
// account record until the owner proves possession with a valid code. The
// slot is scoped to the session that started the enrollment, so other
// sessions of the same account never see or contend on it.
type PendingEnrollment struct {
	AccountID string    `json:"account_id"`
	SessionID string    `json:"session_id"`
	Secret    string    `json:"secret"`
	CreatedAt time.Time `json:"created_at"`
}

// PendingStore keeps pending MFA enrollments in Redis with a TTL, so
// abandoned enrollments expire on their own.
type PendingStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPendingStore creates a pending-enrollment store with the given TTL
func NewPendingStore(rdb *redis.Client, ttl time.Duration) *PendingStore {
	return &PendingStore{rdb: rdb, ttl: ttl}
}

func pendingKey(accountID, sessionID string) string {
	return pendingKeyPrefix + accountID + ":" + sessionID
}

// Save stores a pending enrollment, replacing any prior one for the same
// account and session
func (s *PendingStore) Save(ctx context.Context, pending *PendingEnrollment) error {
	payload, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("marshal pending enrollment: %w", err)
	}

	key := pendingKey(pending.AccountID, pending.SessionID)
	if err := s.rdb.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}

// Get fetches the pending enrollment for the account and session, or
// models.ErrNoPendingEnrollment when none exists (or it expired).
func (s *PendingStore) Get(ctx context.Context, accountID, sessionID string) (*PendingEnrollment, error) {
	data, err := s.rdb.Get(ctx, pendingKey(accountID, sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, models.ErrNoPendingEnrollment
		}
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}

	var pending PendingEnrollment
	if err := json.Unmarshal(data, &pending); err != nil {
		return nil, fmt.Errorf("unmarshal pending enrollment: %w", err)
	}
	return &pending, nil
}

// Delete discards the pending enrollment. Absent slots are not an error.
func (s *PendingStore) Delete(ctx context.Context, accountID, sessionID string) error {
	if err := s.rdb.Del(ctx, pendingKey(accountID, sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}
