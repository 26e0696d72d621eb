package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/platinummonkey/carebase/pkg/storage"
)

// RevokedTokenRepository implements storage.RevokedTokenStore over the
// revoked_tokens table. Rows are kept until PurgeExpired removes them.
type RevokedTokenRepository struct {
	repo
}

var _ storage.RevokedTokenStore = (*RevokedTokenRepository)(nil)

// NewRevokedTokenRepository creates a revoked token repository
func NewRevokedTokenRepository(db *sql.DB, opts ...Option) *RevokedTokenRepository {
	return &RevokedTokenRepository{repo: newRepo(db, "revoked_token", opts)}
}

// Insert records a revocation. Revoking twice keeps the later expiry.
func (r *RevokedTokenRepository) Insert(ctx context.Context, tokenHash string, expiresAt time.Time) (err error) {
	defer r.observe("insert", time.Now(), &err)

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO revoked_tokens (token_hash, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (token_hash)
		DO UPDATE SET expires_at = GREATEST(revoked_tokens.expires_at, EXCLUDED.expires_at)
	`, tokenHash, expiresAt)
	if err != nil {
		err = fmt.Errorf("failed to revoke token: %w", err)
	}
	return err
}

// Exists reports whether tokenHash is revoked and not yet expired at now
func (r *RevokedTokenRepository) Exists(ctx context.Context, tokenHash string, now time.Time) (exists bool, err error) {
	defer r.observe("exists", time.Now(), &err)

	err = r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token_hash = $1 AND expires_at > $2)`,
		tokenHash, now,
	).Scan(&exists)
	if err != nil {
		err = fmt.Errorf("failed to check revoked token: %w", err)
		return false, err
	}
	return exists, nil
}

// PurgeExpired deletes revocations whose token has expired
func (r *RevokedTokenRepository) PurgeExpired(ctx context.Context, now time.Time) (n int64, err error) {
	defer r.observe("purge_expired", time.Now(), &err)

	result, err := r.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		err = fmt.Errorf("failed to purge revoked tokens: %w", err)
		return 0, err
	}
	n, err = result.RowsAffected()
	return n, err
}
