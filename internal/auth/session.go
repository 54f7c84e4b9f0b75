package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/helpdesk-kit/helpdesk-api/internal/domain"
)

const sessionKeyPrefix = "helpdesk:session:"

// ErrSessionNotFound is returned when a session id has no live record,
// either because it expired or because logout destroyed it.
var ErrSessionNotFound = errors.New("session not found")

// Session is the server-side record behind an issued token. Destroying it
// invalidates the token immediately regardless of its JWT expiry.
type Session struct {
	ID        string      `json:"id"`
	UserID    int64       `json:"user_id"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

// SessionStore keeps sessions in Redis with a rolling TTL.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore builds a store over an existing redis client.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &SessionStore{client: client, ttl: ttl}
}

// Create registers a new session for the user and returns it.
func (s *SessionStore) Create(ctx context.Context, userID int64, role domain.Role) (*Session, error) {
	session := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+session.ID, payload, s.ttl).Err(); err != nil {
		return nil, err
	}
	return session, nil
}

// Get fetches a live session by id.
func (s *SessionStore) Get(ctx context.Context, id string) (*Session, error) {
	payload, err := s.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	var session Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Destroy removes the session, invalidating any token bound to it.
func (s *SessionStore) Destroy(ctx context.Context, id string) error {
	return s.client.Del(ctx, sessionKeyPrefix+id).Err()
}
