package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/platinummonkey/carebase/pkg/storage"
)

// AuditRepository implements storage.AuditStore over audit_logs
type AuditRepository struct {
	repo
}

var _ storage.AuditStore = (*AuditRepository)(nil)

// NewAuditRepository creates an audit repository
func NewAuditRepository(db *sql.DB, opts ...Option) *AuditRepository {
	return &AuditRepository{repo: newRepo(db, "audit", opts)}
}

// InsertAudit appends entry and fills its id
func (r *AuditRepository) InsertAudit(ctx context.Context, entry *storage.AuditEntry) (err error) {
	defer r.observe("insert", time.Now(), &err)

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO audit_logs (user_id, action, status, ip_address, user_agent, request_id, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`,
		entry.UserID, entry.Action, entry.Status, entry.IPAddress, entry.UserAgent,
		entry.RequestID, entry.ErrorMessage, createdAt,
	).Scan(&entry.ID)
	return translate(err, "insert audit entry", nil)
}
