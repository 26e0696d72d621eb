package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/platinummonkey/carebase/pkg/storage"
)

// HistoryRepository implements storage.HistoryStore
type HistoryRepository struct {
	repo
}

var _ storage.HistoryStore = (*HistoryRepository)(nil)

// NewHistoryRepository creates a disease history repository
func NewHistoryRepository(db *sql.DB, opts ...Option) *HistoryRepository {
	return &HistoryRepository{repo: newRepo(db, "history", opts)}
}

// ListByPatient returns the history of a patient with disease names
func (r *HistoryRepository) ListByPatient(ctx context.Context, patientID int64) (entries []*storage.HistoryEntry, err error) {
	defer r.observe("list_by_patient", time.Now(), &err)

	rows, err := r.reader.QueryContext(ctx, `
		SELECT h.id, h.patient_id, h.disease_id, d.name, h.created_at
		FROM disease_history h
		JOIN diseases d ON d.id = h.disease_id
		WHERE h.patient_id = $1
		ORDER BY h.id
	`, patientID)
	if err != nil {
		err = fmt.Errorf("failed to query history: %w", err)
		return nil, err
	}
	defer rows.Close()

	entries = make([]*storage.HistoryEntry, 0)
	for rows.Next() {
		var e storage.HistoryEntry
		if err = rows.Scan(&e.ID, &e.PatientID, &e.DiseaseID, &e.DiseaseName, &e.CreatedAt); err != nil {
			err = fmt.Errorf("failed to scan history entry: %w", err)
			return nil, err
		}
		entries = append(entries, &e)
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("failed to read history: %w", err)
		return nil, err
	}
	return entries, nil
}

// Create links a patient to a disease. Either id missing is ErrInvalidReference.
func (r *HistoryRepository) Create(ctx context.Context, entry *storage.HistoryEntry) (err error) {
	defer r.observe("create", time.Now(), &err)

	err = r.db.QueryRowContext(ctx, `
		WITH inserted AS (
			INSERT INTO disease_history (patient_id, disease_id)
			VALUES ($1, $2)
			RETURNING id, disease_id, created_at
		)
		SELECT inserted.id, d.name, inserted.created_at
		FROM inserted
		JOIN diseases d ON d.id = inserted.disease_id
	`, entry.PatientID, entry.DiseaseID).Scan(&entry.ID, &entry.DiseaseName, &entry.CreatedAt)
	return translate(err, "create history entry", storage.ErrInvalidReference)
}

// DeleteByPatient removes every history row of a patient and returns the count
func (r *HistoryRepository) DeleteByPatient(ctx context.Context, patientID int64) (n int64, err error) {
	defer r.observe("delete_by_patient", time.Now(), &err)

	result, err := r.db.ExecContext(ctx, `DELETE FROM disease_history WHERE patient_id = $1`, patientID)
	if err != nil {
		err = translate(err, "delete history", nil)
		return 0, err
	}
	n, err = result.RowsAffected()
	if err != nil {
		err = fmt.Errorf("failed to count deleted history: %w", err)
		return 0, err
	}
	return n, nil
}
