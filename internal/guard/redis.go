package guard

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// redisStore shares guard state across instances so a block installed on one
// node holds everywhere.
type redisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore returns a Store backed by redis. Entries expire ttl after
// their last write, mirroring the in-memory store.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) Store {
	return &redisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *redisStore) failureKey(key string) string { return s.prefix + ":failures:" + key }
func (s *redisStore) blockKey(key string) string   { return s.prefix + ":block:" + key }

func (s *redisStore) Failures(ctx context.Context, key string) (int, error) {
	count, err := s.client.Get(ctx, s.failureKey(key)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *redisStore) SetFailures(ctx context.Context, key string, count int) error {
	return s.client.Set(ctx, s.failureKey(key), count, s.ttl).Err()
}

func (s *redisStore) BlockedUntil(ctx context.Context, key string) (time.Time, bool, error) {
	raw, err := s.client.Get(ctx, s.blockKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return time.UnixMilli(raw).UTC(), true, nil
}

func (s *redisStore) Block(ctx context.Context, key string, until time.Time) error {
	return s.client.Set(ctx, s.blockKey(key), until.UnixMilli(), s.ttl).Err()
}

func (s *redisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.failureKey(key), s.blockKey(key)).Err()
}
