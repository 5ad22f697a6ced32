// Package redis stores vote records as Redis keys written with SET NX, which
// is atomic per key. Durability depends on the server: it must run with
// appendonly yes and appendfsync always, which CheckDurability verifies.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"ballotgate/internal/registry/models"
	"ballotgate/pkg/platform/sentinel"
)

const keyPrefix = "ballotgate:vote:"

// ErrNotDurable means the server may acknowledge a vote it has not fsynced.
var ErrNotDurable = errors.New("redis does not fsync every write")

type Store struct {
	client *redis.Client
}

func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// CheckDurability reads the server's persistence settings and returns
// ErrNotDurable unless every write is appended and fsynced before the reply.
func (s *Store) CheckDurability(ctx context.Context) error {
	settings := map[string]string{}
	for _, param := range []string{"appendonly", "appendfsync"} {
		got, err := s.client.ConfigGet(ctx, param).Result()
		if err != nil {
			return fmt.Errorf("read redis %s: %w", param, err)
		}
		settings[param] = got[param]
	}
	if settings["appendonly"] != "yes" || settings["appendfsync"] != "always" {
		return fmt.Errorf("%w: appendonly=%q appendfsync=%q (want yes/always)",
			ErrNotDurable, settings["appendonly"], settings["appendfsync"])
	}
	return nil
}

func voteKey(identityDigest string) string {
	return keyPrefix + identityDigest
}

func (s *Store) Insert(ctx context.Context, rec *models.VoteRecord) error {
	body, err := rec.MarshalEnvelope()
	if err != nil {
		return fmt.Errorf("encode vote envelope: %w", err)
	}
	// No expiry: vote records live forever.
	set, err := s.client.SetNX(ctx, voteKey(rec.IdentityDigest), body, 0).Result()
	if err != nil {
		return fmt.Errorf("setnx vote record: %w: %w", sentinel.ErrUnavailable, err)
	}
	if !set {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *Store) Find(ctx context.Context, identityDigest string) (*models.VoteRecord, error) {
	body, err := s.client.Get(ctx, voteKey(identityDigest)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get vote record: %w: %w", sentinel.ErrUnavailable, err)
	}
	return models.UnmarshalEnvelope(identityDigest, body)
}
