package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/platinummonkey/carebase/pkg/storage"
)

// PostgreSQL error codes translated into storage error kinds
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// OperationRecorder observes repository calls. Satisfied by *observability.Metrics.
type OperationRecorder interface {
	RecordStorageOperation(entity, operation string, start time.Time, err error)
}

// Option configures a repository
type Option func(*repo)

// WithReader routes list and name queries to db, usually a read replica
func WithReader(db *sql.DB) Option {
	return func(r *repo) {
		if db != nil {
			r.reader = db
		}
	}
}

// WithRecorder reports the latency and outcome of every call
func WithRecorder(recorder OperationRecorder) Option {
	return func(r *repo) { r.recorder = recorder }
}

type repo struct {
	db       *sql.DB
	reader   *sql.DB
	entity   string
	recorder OperationRecorder
}

func newRepo(db *sql.DB, entity string, opts []Option) repo {
	r := repo{db: db, reader: db, entity: entity}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// observe records a call when deferred with a pointer to the named error
// result. Expected outcomes such as a missing row are not counted as errors.
func (r *repo) observe(operation string, start time.Time, errp *error) {
	if r.recorder == nil {
		return
	}
	err := *errp
	if isKind(err) {
		err = nil
	}
	r.recorder.RecordStorageOperation(r.entity, operation, start, err)
}

func isKind(err error) bool {
	return errors.Is(err, storage.ErrNotFound) ||
		errors.Is(err, storage.ErrAlreadyExists) ||
		errors.Is(err, storage.ErrInUse) ||
		errors.Is(err, storage.ErrInvalidReference)
}

// translate maps constraint violations onto storage error kinds. onForeignKey
// is the kind reported for 23503, which means a missing parent on insert and
// a remaining child on delete.
func translate(err error, action string, onForeignKey error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", action, storage.ErrNotFound)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%s: %w (%s)", action, storage.ErrAlreadyExists, pqErr.Constraint)
		case codeForeignKeyViolation:
			if onForeignKey != nil {
				return fmt.Errorf("%s: %w (%s)", action, onForeignKey, pqErr.Constraint)
			}
		}
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// requireAffected turns an UPDATE or DELETE that touched nothing into ErrNotFound
func requireAffected(result sql.Result, action string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", action, storage.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// Repositories bundles every store over one database
type Repositories struct {
	Users         *UserRepository
	Patients      *PatientRepository
	Guardians     *GuardianRepository
	Diseases      *DiseaseRepository
	Attendance    *AttendanceRepository
	History       *HistoryRepository
	RevokedTokens *RevokedTokenRepository
	Audit         *AuditRepository
}

// NewRepositories creates every repository on db
func NewRepositories(db *sql.DB, opts ...Option) *Repositories {
	return &Repositories{
		Users:         NewUserRepository(db, opts...),
		Patients:      NewPatientRepository(db, opts...),
		Guardians:     NewGuardianRepository(db, opts...),
		Diseases:      NewDiseaseRepository(db, opts...),
		Attendance:    NewAttendanceRepository(db, opts...),
		History:       NewHistoryRepository(db, opts...),
		RevokedTokens: NewRevokedTokenRepository(db, opts...),
		Audit:         NewAuditRepository(db, opts...),
	}
}

// Recorders fans a call out to several recorders
type Recorders []OperationRecorder

// RecordStorageOperation implements OperationRecorder
func (rs Recorders) RecordStorageOperation(entity, operation string, start time.Time, err error) {
	for _, r := range rs {
		if r != nil {
			r.RecordStorageOperation(entity, operation, start, err)
		}
	}
}
