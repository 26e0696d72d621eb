package storage

import (
	"context"
	"time"
)

// UserReader resolves accounts. Absent users yield ErrNotFound.
type UserReader interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
}

// UserWriter creates accounts. A taken email yields ErrAlreadyExists.
type UserWriter interface {
	Create(ctx context.Context, user *User) error
}

// UserStore is the credential store used by authentication
type UserStore interface {
	UserReader
	UserWriter
}

// PatientStore persists patients. Reads return patients with their guardians.
type PatientStore interface {
	List(ctx context.Context) ([]*Patient, error)
	FindByFirstName(ctx context.Context, name string) ([]*Patient, error)
	FindByFullName(ctx context.Context, firstName, lastName string) (*Patient, error)
	Get(ctx context.Context, id int64) (*Patient, error)
	// Create fails with ErrAlreadyExists when the CPF is taken
	Create(ctx context.Context, patient *Patient) error
	Update(ctx context.Context, patient *Patient) error
	// Delete fails with ErrInUse while guardians, attendance or history rows
	// reference the patient, and returns the deleted row
	Delete(ctx context.Context, id int64) (*Patient, error)
}

// GuardianStore persists guardians. Reads include the guarded patient.
type GuardianStore interface {
	List(ctx context.Context) ([]*Guardian, error)
	FindByFirstName(ctx context.Context, name string) ([]*Guardian, error)
	Get(ctx context.Context, id int64) (*Guardian, error)
	// Create fails with ErrAlreadyExists on a taken CPF and
	// ErrInvalidReference when the patient does not exist
	Create(ctx context.Context, guardian *Guardian) error
	Update(ctx context.Context, guardian *Guardian) error
	Delete(ctx context.Context, id int64) (*Guardian, error)
}

// DiseaseStore persists the disease catalogue
type DiseaseStore interface {
	List(ctx context.Context) ([]*Disease, error)
	FindByName(ctx context.Context, name string) ([]*Disease, error)
	Get(ctx context.Context, id int64) (*Disease, error)
	Create(ctx context.Context, disease *Disease) error
	Update(ctx context.Context, disease *Disease) error
	Delete(ctx context.Context, id int64) error
}

// AttendanceStore persists patient visits
type AttendanceStore interface {
	List(ctx context.Context) ([]*Attendance, error)
	ListByPatient(ctx context.Context, patientID int64) ([]*Attendance, error)
	Create(ctx context.Context, attendance *Attendance) error
	Update(ctx context.Context, attendance *Attendance) error
	Delete(ctx context.Context, id int64) error
}

// HistoryStore persists disease history entries
type HistoryStore interface {
	ListByPatient(ctx context.Context, patientID int64) ([]*HistoryEntry, error)
	Create(ctx context.Context, entry *HistoryEntry) error
	DeleteByPatient(ctx context.Context, patientID int64) (int64, error)
}

// RevokedTokenStore persists revoked token hashes until they expire
type RevokedTokenStore interface {
	Insert(ctx context.Context, tokenHash string, expiresAt time.Time) error
	Exists(ctx context.Context, tokenHash string, now time.Time) (bool, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// AuditEntry is one security audit record
type AuditEntry struct {
	ID           int64     `json:"id"`
	UserID       *int64    `json:"user_id,omitempty"`
	Action       string    `json:"action"`
	Status       string    `json:"status"`
	IPAddress    string    `json:"ip_address,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuditStore appends audit records
type AuditStore interface {
	InsertAudit(ctx context.Context, entry *AuditEntry) error
}

// HealthChecker reports backend reachability
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
