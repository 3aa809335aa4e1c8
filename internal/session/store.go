package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Session is a live sign-in. It exists only while its Redis key does; deleting
// the key revokes every token that carries the session id.
type Session struct {
	ID        string
	UserID    uuid.UUID
	Email     string
	ExpiresAt time.Time
}

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func sessionKey(id string) string { return "session:" + id }

func userSessionsKey(userID uuid.UUID) string { return "user_sessions:" + userID.String() }

func (s *Store) Create(ctx context.Context, userID uuid.UUID, email string) (*Session, error) {
	sess := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Email:     email,
		ExpiresAt: time.Now().Add(s.ttl).UTC().Truncate(time.Second),
	}

	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, sessionKey(sess.ID),
			"user_id", userID.String(),
			"email", email,
			"expires_at", sess.ExpiresAt.Unix(),
		)
		p.Expire(ctx, sessionKey(sess.ID), s.ttl)
		p.SAdd(ctx, userSessionsKey(userID), sess.ID)
		p.Expire(ctx, userSessionsKey(userID), s.ttl)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// Get returns nil, nil for an unknown, expired, or revoked session.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	vals, err := s.rdb.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if len(vals) == 0 {
		return nil, nil
	}

	userID, err := uuid.Parse(vals["user_id"])
	if err != nil {
		return nil, fmt.Errorf("parse session user: %w", err)
	}
	sess := &Session{ID: id, UserID: userID, Email: vals["email"]}
	if exp, err := strconv.ParseInt(vals["expires_at"], 10, 64); err == nil {
		sess.ExpiresAt = time.Unix(exp, 0).UTC()
	}
	return sess, nil
}

func (s *Store) Revoke(ctx context.Context, id string) error {
	userID, err := s.rdb.HGet(ctx, sessionKey(id), "user_id").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("lookup session: %w", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, sessionKey(id))
		if uid, perr := uuid.Parse(userID); perr == nil {
			p.SRem(ctx, userSessionsKey(uid), id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// RevokeAll signs the user out everywhere.
func (s *Store) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	ids, err := s.rdb.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range ids {
			p.Del(ctx, sessionKey(id))
		}
		p.Del(ctx, userSessionsKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return nil
}
