package auth

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore records token ids that must no longer be accepted.
// Entries only need to live until the token would have expired anyway.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	// RevokeOnce revokes tokenID and reports whether this call did so. It is
	// false when the id was already revoked.
	RevokeOnce(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error)
}

// MemoryRevocationStore is a process-local revocation set with expiry-based eviction.
type MemoryRevocationStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationStore builds an empty store.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{entries: make(map[string]time.Time), now: time.Now}
}

// WithClock swaps the time source; used by tests.
func (s *MemoryRevocationStore) WithClock(now func() time.Time) *MemoryRevocationStore {
	s.now = now
	return s
}

func (s *MemoryRevocationStore) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.evictLocked(now)
	if !expiresAt.After(now) {
		return nil
	}
	s.entries[tokenID] = expiresAt
	return nil
}

func (s *MemoryRevocationStore) RevokeOnce(_ context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if exp, ok := s.entries[tokenID]; ok && exp.After(now) {
		return false, nil
	}
	if expiresAt.After(now) {
		s.entries[tokenID] = expiresAt
	}
	return true, nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.entries[tokenID]
	if !ok {
		return false, nil
	}
	if !exp.After(s.now()) {
		delete(s.entries, tokenID)
		return false, nil
	}
	return true, nil
}

// Len reports the number of live entries.
func (s *MemoryRevocationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked(s.now())
	return len(s.entries)
}

func (s *MemoryRevocationStore) evictLocked(now time.Time) {
	for id, exp := range s.entries {
		if !exp.After(now) {
			delete(s.entries, id)
		}
	}
}

const revokedKeyPrefix = "revoked:token:"

// RedisRevocationStore keeps revoked token ids in Redis with a TTL matching the token expiry.
type RedisRevocationStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisRevocationStore wraps a go-redis client.
func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{client: client, now: time.Now}
}

func (s *RedisRevocationStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, revokedKeyPrefix+tokenID, "1", ttl).Err()
}

func (s *RedisRevocationStore) RevokeOnce(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return true, nil
	}
	return s.client.SetNX(ctx, revokedKeyPrefix+tokenID, "1", ttl).Result()
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	exists, err := s.client.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
