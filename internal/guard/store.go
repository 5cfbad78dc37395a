package guard

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

const cacheSize = 5000

// memoryStore keeps counters and blocks in capped, expiring in-process LRU
// caches. State is instance-local; multi-instance deployments should use the
// redis store so blocking holds globally.
type memoryStore struct {
	failures *lru.LRU[string, int]
	blocks   *lru.LRU[string, time.Time]
}

// NewMemoryStore returns an in-process Store whose entries live for ttl
// since their last write.
func NewMemoryStore(ttl time.Duration) Store {
	return &memoryStore{
		failures: lru.NewLRU[string, int](cacheSize, nil, ttl),
		blocks:   lru.NewLRU[string, time.Time](cacheSize, nil, ttl),
	}
}

func (s *memoryStore) Failures(_ context.Context, key string) (int, error) {
	count, _ := s.failures.Get(key)
	return count, nil
}

func (s *memoryStore) SetFailures(_ context.Context, key string, count int) error {
	s.failures.Add(key, count)
	return nil
}

func (s *memoryStore) BlockedUntil(_ context.Context, key string) (time.Time, bool, error) {
	until, ok := s.blocks.Get(key)
	return until, ok, nil
}

func (s *memoryStore) Block(_ context.Context, key string, until time.Time) error {
	s.blocks.Add(key, until)
	return nil
}

func (s *memoryStore) Reset(_ context.Context, key string) error {
	s.failures.Remove(key)
	s.blocks.Remove(key)
	return nil
}
