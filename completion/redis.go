package completion

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists completion sets as redis sets named
// completion:{characterID} and mirrors them into an in-memory Store that the
// renderer reads from.
type RedisStore struct {
	client redis.UniversalClient
	local  *Store
}

func NewRedisStore(client redis.UniversalClient, local *Store) *RedisStore {
	if local == nil {
		local = NewStore()
	}
	return &RedisStore{client: client, local: local}
}

func redisKey(characterID string) string {
	return "completion:" + characterID
}

func (r *RedisStore) Local() *Store {
	return r.local
}

// Completed reads from the in-memory mirror only.
func (r *RedisStore) Completed(characterID string) Set {
	return r.local.Completed(characterID)
}

// Refresh loads the character's set from redis into the mirror.
func (r *RedisStore) Refresh(ctx context.Context, characterID string) (Set, error) {
	members, err := r.client.SMembers(ctx, redisKey(characterID)).Result()
	if err != nil {
		return nil, fmt.Errorf("loading completion of %s: %w", characterID, err)
	}
	set := NewSet(members...)
	r.local.Replace(characterID, set)
	return set, nil
}

func (r *RedisStore) Mark(ctx context.Context, characterID, key string) error {
	if err := r.client.SAdd(ctx, redisKey(characterID), key).Err(); err != nil {
		return fmt.Errorf("marking %s for %s: %w", key, characterID, err)
	}
	r.local.Mark(characterID, key)
	return nil
}

func (r *RedisStore) Unmark(ctx context.Context, characterID, key string) error {
	if err := r.client.SRem(ctx, redisKey(characterID), key).Err(); err != nil {
		return fmt.Errorf("unmarking %s for %s: %w", key, characterID, err)
	}
	r.local.Unmark(characterID, key)
	return nil
}
