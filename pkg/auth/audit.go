package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/platinummonkey/carebase/pkg/async"
	"github.com/platinummonkey/carebase/pkg/contextkeys"
	"github.com/platinummonkey/carebase/pkg/httputil"
	"github.com/platinummonkey/carebase/pkg/observability"
	"github.com/platinummonkey/carebase/pkg/storage"
)

// Audit actions
const (
	ActionRegister          = "user.register"
	ActionLogin             = "auth.login"
	ActionLogout            = "auth.logout"
	ActionRateLimitExceeded = "ratelimit.exceeded"
)

// Audit statuses
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusDenied  = "denied"
)

// AuditLogger writes security events to an audit store. Write failures are
// logged and never fail the request. A nil *AuditLogger discards events.
type AuditLogger struct {
	store      storage.AuditStore
	logger     *observability.Logger
	dispatcher Dispatcher
	now        func() time.Time
}

// Dispatcher runs audit writes off the request path
type Dispatcher interface {
	Submit(task async.Task) error
}

// AuditOption configures an AuditLogger
type AuditOption func(*AuditLogger)

// WithDispatcher writes request events through d instead of inline
func WithDispatcher(d Dispatcher) AuditOption {
	return func(al *AuditLogger) {
		al.dispatcher = d
	}
}

// NewAuditLogger creates an audit logger
func NewAuditLogger(store storage.AuditStore, logger *observability.Logger, opts ...AuditOption) *AuditLogger {
	if logger == nil {
		logger = observability.NopLogger()
	}
	al := &AuditLogger{store: store, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(al)
	}
	return al
}

// LogAction validates and stores an audit entry
func (al *AuditLogger) LogAction(ctx context.Context, entry *storage.AuditEntry) error {
	if al == nil {
		return nil
	}
	if entry.Action == "" {
		return errors.New("action is required")
	}
	if entry.Status == "" {
		return errors.New("status is required")
	}

	entry.CreatedAt = al.now()
	if entry.RequestID == "" {
		entry.RequestID = contextkeys.GetRequestID(ctx)
	}

	if err := al.store.InsertAudit(ctx, entry); err != nil {
		al.logger.WithError(err).WithField("action", entry.Action).Error("Failed to write audit log")
		return err
	}
	return nil
}

// LogFromRequest records action for the caller of r. userID may be nil for
// anonymous callers. A non-nil cause is stored as the error message.
func (al *AuditLogger) LogFromRequest(r *http.Request, action, status string, userID *int64, cause error) {
	if al == nil {
		return
	}

	entry := &storage.AuditEntry{
		UserID:    userID,
		Action:    action,
		Status:    status,
		IPAddress: httputil.ClientIP(r),
		UserAgent: r.UserAgent(),
		RequestID: contextkeys.GetRequestID(r.Context()),
	}
	if cause != nil {
		entry.ErrorMessage = cause.Error()
	}

	if al.dispatcher != nil {
		err := al.dispatcher.Submit(func(ctx context.Context) error {
			return al.LogAction(ctx, entry)
		})
		if err != nil {
			al.logger.WithError(err).WithField("action", action).Warn("Audit event dropped")
		}
		return
	}

	// Detached from the request so a client disconnect does not drop the record
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 2*time.Second)
	defer cancel()

	_ = al.LogAction(ctx, entry)
}
