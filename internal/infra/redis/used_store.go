// Package redis holds Redis-backed store implementations for deployments
// that share state across processes or survive restarts without a database.
package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const usedSetKey = "mcq:used"

// UsedStore keeps the cross-run fingerprint set in a Redis SET.
type UsedStore struct {
	client *redis.Client
}

func NewUsedStore(client *redis.Client) *UsedStore {
	return &UsedStore{client: client}
}

func (s *UsedStore) Load(ctx context.Context) (map[string]struct{}, error) {
	members, err := s.client.SMembers(ctx, usedSetKey).Result()
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(members))
	for _, fp := range members {
		set[fp] = struct{}{}
	}
	return set, nil
}

func (s *UsedStore) Add(ctx context.Context, fingerprints ...string) error {
	if len(fingerprints) == 0 {
		return nil
	}
	args := make([]interface{}, len(fingerprints))
	for i, fp := range fingerprints {
		args[i] = fp
	}
	return s.client.SAdd(ctx, usedSetKey, args...).Err()
}
