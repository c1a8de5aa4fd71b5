// internal/db/redis.go
package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RedisDB struct {
	Client *redis.Client
	log    *zap.SugaredLogger
}

func NewRedisDB(ctx context.Context, redisURL string, log *zap.SugaredLogger) (*RedisDB, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Infow("Connected to Redis", "addr", opt.Addr)
	return &RedisDB{Client: client, log: log}, nil
}

func (r *RedisDB) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

func (r *RedisDB) Close() {
	if r.Client != nil {
		_ = r.Client.Close()
		r.log.Info("Redis connection closed")
	}
}

// ============================================
// Sessions
// ============================================

// Session is what the auth service stores under session:<id>.
type Session struct {
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// SessionStore reads and revokes sessions issued by the auth service.
// Each user's session ids are indexed in the set user_sessions:<userId>.
type SessionStore struct {
	client redis.UniversalClient
}

func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return &SessionStore{client: client}
}

func sessionKey(id string) string      { return "session:" + id }
func userSessionsKey(id string) string { return "user_sessions:" + id }

// Save stores a session and indexes it under its user.
func (s *SessionStore) Save(ctx context.Context, sessionID string, session Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(sessionID), data, ttl)
		pipe.SAdd(ctx, userSessionsKey(session.UserID), sessionID)
		return nil
	})
	return err
}

// Get returns the session or nil if it does not exist.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Active reports whether sessionID is a live session of userID.
func (s *SessionStore) Active(ctx context.Context, sessionID, userID string) (bool, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil || session == nil {
		return false, err
	}
	return session.UserID == userID, nil
}

// DeleteUserSessions revokes every session of a user.
func (s *SessionStore) DeleteUserSessions(ctx context.Context, userID string) error {
	ids, err := s.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, userSessionsKey(userID))
	return s.client.Del(ctx, keys...).Err()
}
