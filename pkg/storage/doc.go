// Package storage defines the persistence contracts of carebase: the data
// model, the per-entity store interfaces and the error kinds every backend
// returns.
//
// # Interfaces
//
// Stores are small and entity scoped so handlers depend only on what they
// use:
//
//   - UserStore (UserReader + UserWriter): credential store for auth
//   - PatientStore, GuardianStore, DiseaseStore: catalogue CRUD
//   - AttendanceStore, HistoryStore: per-patient records
//   - RevokedTokenStore: durable token revocations
//   - AuditStore: security audit trail
//
// pkg/storage/postgres implements all of them over PostgreSQL.
//
// # Errors
//
// Backends translate driver errors into ErrNotFound, ErrAlreadyExists,
// ErrInUse and ErrInvalidReference, wrapped with context:
//
//	if errors.Is(err, storage.ErrAlreadyExists) {
//		httputil.WriteConflict(w, "patient already exists")
//	}
//
// # Dates
//
// Date stores calendar dates and accepts both dd/mm/yyyy and yyyy-mm-dd.
package storage
