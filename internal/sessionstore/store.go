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

const sessionKeyPrefix = "session:"

// Store persists authenticated-session payloads in Redis, keyed by opaque
// session id with a TTL equal to the tenant's idle timeout. Session state
// lives only here; nothing is held in-process across requests.
type Store struct {
	rdb *redis.Client
}

// New creates a session store backed by the given Redis client
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

// Save writes the session payload with the given TTL
func (s *Store) Save(ctx context.Context, session *models.Session, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := s.rdb.Set(ctx, sessionKey(session.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}

// Get fetches a session payload. Missing or expired sessions return
// models.ErrNotFound.
func (s *Store) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	data, err := s.rdb.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

// Delete removes a session payload. Deleting an absent session is not an
// error; logout and termination are idempotent.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}

// Refresh slides the session expiry forward by ttl. Missing sessions are
// ignored; the next Get will report them gone.
func (s *Store) Refresh(ctx context.Context, sessionID string, ttl time.Duration) error {
	if err := s.rdb.Expire(ctx, sessionKey(sessionID), ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}
