package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/platinummonkey/carebase/pkg/storage"
)

const attendanceColumns = `id, patient_id, created_at, updated_at`

// AttendanceRepository implements storage.AttendanceStore
type AttendanceRepository struct {
	repo
}

var _ storage.AttendanceStore = (*AttendanceRepository)(nil)

// NewAttendanceRepository creates an attendance repository
func NewAttendanceRepository(db *sql.DB, opts ...Option) *AttendanceRepository {
	return &AttendanceRepository{repo: newRepo(db, "attendance", opts)}
}

func (r *AttendanceRepository) List(ctx context.Context) (rows []*storage.Attendance, err error) {
	defer r.observe("list", time.Now(), &err)
	rows, err = r.query(ctx, `SELECT `+attendanceColumns+` FROM attendance ORDER BY id`)
	return rows, err
}

func (r *AttendanceRepository) ListByPatient(ctx context.Context, patientID int64) (rows []*storage.Attendance, err error) {
	defer r.observe("list_by_patient", time.Now(), &err)
	rows, err = r.query(ctx, `SELECT `+attendanceColumns+` FROM attendance WHERE patient_id = $1 ORDER BY id`, patientID)
	return rows, err
}

// Create records a visit. A missing patient is ErrInvalidReference.
func (r *AttendanceRepository) Create(ctx context.Context, attendance *storage.Attendance) (err error) {
	defer r.observe("create", time.Now(), &err)

	err = r.db.QueryRowContext(ctx,
		`INSERT INTO attendance (patient_id) VALUES ($1) RETURNING id, created_at, updated_at`,
		attendance.PatientID,
	).Scan(&attendance.ID, &attendance.CreatedAt, &attendance.UpdatedAt)
	return translate(err, "create attendance", storage.ErrInvalidReference)
}

func (r *AttendanceRepository) Update(ctx context.Context, attendance *storage.Attendance) (err error) {
	defer r.observe("update", time.Now(), &err)

	err = r.db.QueryRowContext(ctx,
		`UPDATE attendance SET patient_id = $2, updated_at = NOW() WHERE id = $1 RETURNING created_at, updated_at`,
		attendance.ID, attendance.PatientID,
	).Scan(&attendance.CreatedAt, &attendance.UpdatedAt)
	return translate(err, "update attendance", storage.ErrInvalidReference)
}

func (r *AttendanceRepository) Delete(ctx context.Context, id int64) (err error) {
	defer r.observe("delete", time.Now(), &err)

	result, err := r.db.ExecContext(ctx, `DELETE FROM attendance WHERE id = $1`, id)
	if err != nil {
		err = translate(err, "delete attendance", nil)
		return err
	}
	err = requireAffected(result, "delete attendance")
	return err
}

func (r *AttendanceRepository) query(ctx context.Context, query string, args ...interface{}) ([]*storage.Attendance, error) {
	rows, err := r.reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	defer rows.Close()

	out := make([]*storage.Attendance, 0)
	for rows.Next() {
		var a storage.Attendance
		if err := rows.Scan(&a.ID, &a.PatientID, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read attendance: %w", err)
	}
	return out, nil
}
