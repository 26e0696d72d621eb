package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/platinummonkey/carebase/pkg/storage"
)

const patientColumns = `id, first_name, last_name, cpf, disease, birth_date,
	address, city, number, state, zip_code, district, created_at, updated_at`

// PatientRepository implements storage.PatientStore. Every read attaches the
// patient's guardians.
type PatientRepository struct {
	repo
}

var _ storage.PatientStore = (*PatientRepository)(nil)

// NewPatientRepository creates a patient repository
func NewPatientRepository(db *sql.DB, opts ...Option) *PatientRepository {
	return &PatientRepository{repo: newRepo(db, "patient", opts)}
}

func scanPatient(row scanner) (*storage.Patient, error) {
	var p storage.Patient
	err := row.Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.CPF, &p.Disease, &p.BirthDate,
		&p.Address.Address, &p.City, &p.Number, &p.State, &p.ZipCode, &p.District,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Guardians = []storage.Guardian{}
	return &p, nil
}

// List returns every patient ordered by id
func (r *PatientRepository) List(ctx context.Context) (patients []*storage.Patient, err error) {
	defer r.observe("list", time.Now(), &err)

	patients, err = r.query(ctx, r.reader, `SELECT `+patientColumns+` FROM patients ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return patients, r.attachGuardians(ctx, r.reader, patients)
}

// FindByFirstName returns the patients whose first name equals name
func (r *PatientRepository) FindByFirstName(ctx context.Context, name string) (patients []*storage.Patient, err error) {
	defer r.observe("find_by_first_name", time.Now(), &err)

	patients, err = r.query(ctx, r.reader,
		`SELECT `+patientColumns+` FROM patients WHERE first_name = $1 ORDER BY id`, name)
	if err != nil {
		return nil, err
	}
	return patients, r.attachGuardians(ctx, r.reader, patients)
}

// FindByFullName returns the first patient with the given first and last name
func (r *PatientRepository) FindByFullName(ctx context.Context, firstName, lastName string) (patient *storage.Patient, err error) {
	defer r.observe("find_by_full_name", time.Now(), &err)

	patient, err = scanPatient(r.db.QueryRowContext(ctx,
		`SELECT `+patientColumns+` FROM patients WHERE first_name = $1 AND last_name = $2 ORDER BY id LIMIT 1`,
		firstName, lastName))
	if err != nil {
		err = translate(err, "find patient by name", nil)
		return nil, err
	}
	return patient, r.attachGuardians(ctx, r.db, []*storage.Patient{patient})
}

// Get returns one patient
func (r *PatientRepository) Get(ctx context.Context, id int64) (patient *storage.Patient, err error) {
	defer r.observe("get", time.Now(), &err)

	patient, err = scanPatient(r.db.QueryRowContext(ctx,
		`SELECT `+patientColumns+` FROM patients WHERE id = $1`, id))
	if err != nil {
		err = translate(err, "get patient", nil)
		return nil, err
	}
	return patient, r.attachGuardians(ctx, r.db, []*storage.Patient{patient})
}

// Create inserts patient. A taken CPF is ErrAlreadyExists.
func (r *PatientRepository) Create(ctx context.Context, patient *storage.Patient) (err error) {
	defer r.observe("create", time.Now(), &err)

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO patients (first_name, last_name, cpf, disease, birth_date,
			address, city, number, state, zip_code, district)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`,
		patient.FirstName, patient.LastName, patient.CPF, patient.Disease, patient.BirthDate,
		patient.Address.Address, patient.City, patient.Number, patient.State, patient.ZipCode, patient.District,
	).Scan(&patient.ID, &patient.CreatedAt, &patient.UpdatedAt)
	if err != nil {
		err = translate(err, "create patient", nil)
		return err
	}
	patient.Guardians = []storage.Guardian{}
	return nil
}

// Update replaces every field of patient.ID and reloads its guardians
func (r *PatientRepository) Update(ctx context.Context, patient *storage.Patient) (err error) {
	defer r.observe("update", time.Now(), &err)

	err = r.db.QueryRowContext(ctx, `
		UPDATE patients SET first_name = $2, last_name = $3, cpf = $4, disease = $5, birth_date = $6,
			address = $7, city = $8, number = $9, state = $10, zip_code = $11, district = $12,
			updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`,
		patient.ID, patient.FirstName, patient.LastName, patient.CPF, patient.Disease, patient.BirthDate,
		patient.Address.Address, patient.City, patient.Number, patient.State, patient.ZipCode, patient.District,
	).Scan(&patient.CreatedAt, &patient.UpdatedAt)
	if err != nil {
		err = translate(err, "update patient", nil)
		return err
	}
	patient.Guardians = []storage.Guardian{}
	return r.attachGuardians(ctx, r.db, []*storage.Patient{patient})
}

// Delete removes a patient nothing references. Guardians, attendance and
// history rows make it ErrInUse.
func (r *PatientRepository) Delete(ctx context.Context, id int64) (patient *storage.Patient, err error) {
	defer r.observe("delete", time.Now(), &err)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	patient, err = scanPatient(tx.QueryRowContext(ctx,
		`SELECT `+patientColumns+` FROM patients WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		err = translate(err, "delete patient", nil)
		return nil, err
	}

	var referenced bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM guardians WHERE patient_id = $1)
			OR EXISTS (SELECT 1 FROM attendance WHERE patient_id = $1)
			OR EXISTS (SELECT 1 FROM disease_history WHERE patient_id = $1)
	`, id).Scan(&referenced)
	if err != nil {
		return nil, fmt.Errorf("failed to check patient references: %w", err)
	}
	if referenced {
		err = fmt.Errorf("delete patient %d: %w", id, storage.ErrInUse)
		return nil, err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, id); err != nil {
		err = translate(err, "delete patient", storage.ErrInUse)
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit patient delete: %w", err)
	}
	return patient, nil
}

func (r *PatientRepository) query(ctx context.Context, db *sql.DB, query string, args ...interface{}) ([]*storage.Patient, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query patients: %w", err)
	}
	defer rows.Close()

	patients := make([]*storage.Patient, 0)
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read patients: %w", err)
	}
	return patients, nil
}

// attachGuardians loads the guardians of every patient in one query
func (r *PatientRepository) attachGuardians(ctx context.Context, db *sql.DB, patients []*storage.Patient) error {
	if len(patients) == 0 {
		return nil
	}

	ids := make([]int64, len(patients))
	byID := make(map[int64]*storage.Patient, len(patients))
	for i, p := range patients {
		ids[i] = p.ID
		byID[p.ID] = p
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+guardianColumns+` FROM guardians WHERE patient_id = ANY($1) ORDER BY id`,
		pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query guardians: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		g, err := scanGuardian(rows)
		if err != nil {
			return fmt.Errorf("failed to scan guardian: %w", err)
		}
		if p, ok := byID[g.PatientID]; ok {
			p.Guardians = append(p.Guardians, *g)
		}
	}
	return rows.Err()
}
