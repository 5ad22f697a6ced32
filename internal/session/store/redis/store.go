// Package redis stores sessions as JSON values with a sliding TTL. Saves are
// optimistic: WATCH on the key aborts the write if another kiosk saved first.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ballotgate/internal/session/models"
	"ballotgate/pkg/domain"
	"ballotgate/pkg/platform/sentinel"
)

const keyPrefix = "ballotgate:session:"

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a store. A zero ttl keeps sessions until deleted.
func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func sessionKey(id domain.SessionID) string {
	return keyPrefix + id.String()
}

func (s *Store) Create(ctx context.Context, sess *models.Session) error {
	sess.Version = 1
	body, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	set, err := s.client.SetNX(ctx, sessionKey(sess.ID), body, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if !set {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id domain.SessionID) (*models.Session, error) {
	body, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return decode(body)
}

func (s *Store) Save(ctx context.Context, sess *models.Session) error {
	key := sessionKey(sess.ID)
	next := *sess
	next.Version++
	body, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return sentinel.ErrNotFound
			}
			return err
		}
		stored, err := decode(current)
		if err != nil {
			return err
		}
		if stored.Version != sess.Version {
			return sentinel.ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, body, s.ttl)
			return nil
		})
		return err
	}, key)
	switch {
	case err == nil:
		sess.Version = next.Version
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return sentinel.ErrConflict
	case errors.Is(err, sentinel.ErrNotFound), errors.Is(err, sentinel.ErrConflict), errors.Is(err, sentinel.ErrCorrupt):
		return err
	default:
		return fmt.Errorf("save session: %w", err)
	}
}

func (s *Store) Delete(ctx context.Context, id domain.SessionID) error {
	n, err := s.client.Del(ctx, sessionKey(id)).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func decode(body []byte) (*models.Session, error) {
	var sess models.Session
	if err := json.Unmarshal(body, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w: %w", sentinel.ErrCorrupt, err)
	}
	if !sess.Stage.IsValid() {
		return nil, fmt.Errorf("session stage %q: %w", sess.Stage, sentinel.ErrCorrupt)
	}
	return &sess, nil
}
