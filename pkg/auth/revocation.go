package auth

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// RevocationStore remembers logged out tokens until they expire. Revoke is
// idempotent and implementations are safe for concurrent use.
type RevocationStore interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
	// Backend names the implementation for metrics and logs
	Backend() string
}

// MemoryRevocationStore keeps revocations in an expiring LRU. It is process
// local: revocations are lost on restart and not shared between replicas.
// Entries leave only when their token expires, never to make room.
type MemoryRevocationStore struct {
	cache *expirable.LRU[string, time.Time]
	now   func() time.Time
}

// NewMemoryRevocationStore creates an unbounded store. maxTTL bounds how long
// any entry is kept and should equal the token TTL.
func NewMemoryRevocationStore(maxTTL time.Duration) *MemoryRevocationStore {
	return &MemoryRevocationStore{
		cache: expirable.NewLRU[string, time.Time](0, nil, maxTTL),
		now:   time.Now,
	}
}

// Revoke records the token until expiresAt. Already expired tokens are ignored.
func (s *MemoryRevocationStore) Revoke(_ context.Context, token string, expiresAt time.Time) error {
	if !s.now().Before(expiresAt) {
		return nil
	}
	key := HashToken(token)
	if existing, ok := s.cache.Peek(key); ok && !existing.Before(expiresAt) {
		return nil
	}
	s.cache.Add(key, expiresAt)
	return nil
}

// IsRevoked reports whether the token has a live revocation entry
func (s *MemoryRevocationStore) IsRevoked(_ context.Context, token string) (bool, error) {
	key := HashToken(token)
	expiresAt, ok := s.cache.Get(key)
	if !ok {
		return false, nil
	}
	if !s.now().Before(expiresAt) {
		s.cache.Remove(key)
		return false, nil
	}
	return true, nil
}

// Len returns the number of entries currently held
func (s *MemoryRevocationStore) Len() int {
	return s.cache.Len()
}

// Backend implements RevocationStore
func (s *MemoryRevocationStore) Backend() string {
	return "memory"
}
