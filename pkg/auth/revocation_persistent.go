package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/platinummonkey/carebase/pkg/storage"
)

// PersistentRevocationStore keeps revocations in a storage.RevokedTokenStore
// (the revoked_tokens table) so they survive restarts. Expired rows are
// ignored on read and removed by Purge.
type PersistentRevocationStore struct {
	store storage.RevokedTokenStore
	now   func() time.Time
}

// NewPersistentRevocationStore wraps a revoked token store
func NewPersistentRevocationStore(store storage.RevokedTokenStore) *PersistentRevocationStore {
	return &PersistentRevocationStore{store: store, now: time.Now}
}

// Revoke implements RevocationStore
func (s *PersistentRevocationStore) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	if !s.now().Before(expiresAt) {
		return nil
	}
	if err := s.store.Insert(ctx, HashToken(token), expiresAt); err != nil {
		return fmt.Errorf("failed to persist revocation: %w", err)
	}
	return nil
}

// IsRevoked implements RevocationStore
func (s *PersistentRevocationStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	revoked, err := s.store.Exists(ctx, HashToken(token), s.now())
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return revoked, nil
}

// Purge deletes expired revocations and returns how many were removed
func (s *PersistentRevocationStore) Purge(ctx context.Context) (int64, error) {
	return s.store.PurgeExpired(ctx, s.now())
}

// Backend implements RevocationStore
func (s *PersistentRevocationStore) Backend() string {
	return "postgres"
}
