package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/platinummonkey/carebase/pkg/storage"
)

const guardianColumns = `id, first_name, last_name, cpf, rg, patient_id,
	address, city, number, state, zip_code, district, created_at, updated_at`

// guardianWithPatient selects a guardian followed by its patient
const guardianWithPatient = `SELECT g.id, g.first_name, g.last_name, g.cpf, g.rg, g.patient_id,
		g.address, g.city, g.number, g.state, g.zip_code, g.district, g.created_at, g.updated_at,
		p.id, p.first_name, p.last_name, p.cpf, p.disease, p.birth_date,
		p.address, p.city, p.number, p.state, p.zip_code, p.district, p.created_at, p.updated_at
	FROM guardians g
	JOIN patients p ON p.id = g.patient_id`

// GuardianRepository implements storage.GuardianStore
type GuardianRepository struct {
	repo
}

var _ storage.GuardianStore = (*GuardianRepository)(nil)

// NewGuardianRepository creates a guardian repository
func NewGuardianRepository(db *sql.DB, opts ...Option) *GuardianRepository {
	return &GuardianRepository{repo: newRepo(db, "guardian", opts)}
}

func guardianDest(g *storage.Guardian) []interface{} {
	return []interface{}{
		&g.ID, &g.FirstName, &g.LastName, &g.CPF, &g.RG, &g.PatientID,
		&g.Address.Address, &g.City, &g.Number, &g.State, &g.ZipCode, &g.District,
		&g.CreatedAt, &g.UpdatedAt,
	}
}

func scanGuardian(row scanner) (*storage.Guardian, error) {
	var g storage.Guardian
	if err := row.Scan(guardianDest(&g)...); err != nil {
		return nil, err
	}
	return &g, nil
}

func scanGuardianWithPatient(row scanner) (*storage.Guardian, error) {
	var g storage.Guardian
	p := storage.Patient{Guardians: []storage.Guardian{}}
	dest := append(guardianDest(&g),
		&p.ID, &p.FirstName, &p.LastName, &p.CPF, &p.Disease, &p.BirthDate,
		&p.Address.Address, &p.City, &p.Number, &p.State, &p.ZipCode, &p.District,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	g.Patient = &p
	return &g, nil
}

// List returns every guardian with its patient
func (r *GuardianRepository) List(ctx context.Context) (guardians []*storage.Guardian, err error) {
	defer r.observe("list", time.Now(), &err)
	guardians, err = r.query(ctx, guardianWithPatient+` ORDER BY g.id`)
	return guardians, err
}

// FindByFirstName returns the guardians whose first name equals name
func (r *GuardianRepository) FindByFirstName(ctx context.Context, name string) (guardians []*storage.Guardian, err error) {
	defer r.observe("find_by_first_name", time.Now(), &err)
	guardians, err = r.query(ctx, guardianWithPatient+` WHERE g.first_name = $1 ORDER BY g.id`, name)
	return guardians, err
}

// Get returns one guardian with its patient
func (r *GuardianRepository) Get(ctx context.Context, id int64) (guardian *storage.Guardian, err error) {
	defer r.observe("get", time.Now(), &err)

	guardian, err = scanGuardianWithPatient(r.db.QueryRowContext(ctx, guardianWithPatient+` WHERE g.id = $1`, id))
	if err != nil {
		err = translate(err, "get guardian", nil)
		return nil, err
	}
	return guardian, nil
}

// Create inserts guardian. A taken CPF is ErrAlreadyExists and a missing
// patient is ErrInvalidReference.
func (r *GuardianRepository) Create(ctx context.Context, guardian *storage.Guardian) (err error) {
	defer r.observe("create", time.Now(), &err)

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO guardians (first_name, last_name, cpf, rg, patient_id,
			address, city, number, state, zip_code, district)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`,
		guardian.FirstName, guardian.LastName, guardian.CPF, guardian.RG, guardian.PatientID,
		guardian.Address.Address, guardian.City, guardian.Number, guardian.State, guardian.ZipCode, guardian.District,
	).Scan(&guardian.ID, &guardian.CreatedAt, &guardian.UpdatedAt)
	return translate(err, "create guardian", storage.ErrInvalidReference)
}

// Update replaces every field of guardian.ID
func (r *GuardianRepository) Update(ctx context.Context, guardian *storage.Guardian) (err error) {
	defer r.observe("update", time.Now(), &err)

	err = r.db.QueryRowContext(ctx, `
		UPDATE guardians SET first_name = $2, last_name = $3, cpf = $4, rg = $5, patient_id = $6,
			address = $7, city = $8, number = $9, state = $10, zip_code = $11, district = $12,
			updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`,
		guardian.ID, guardian.FirstName, guardian.LastName, guardian.CPF, guardian.RG, guardian.PatientID,
		guardian.Address.Address, guardian.City, guardian.Number, guardian.State, guardian.ZipCode, guardian.District,
	).Scan(&guardian.CreatedAt, &guardian.UpdatedAt)
	return translate(err, "update guardian", storage.ErrInvalidReference)
}

// Delete removes a guardian and returns the deleted row
func (r *GuardianRepository) Delete(ctx context.Context, id int64) (guardian *storage.Guardian, err error) {
	defer r.observe("delete", time.Now(), &err)

	guardian, err = scanGuardian(r.db.QueryRowContext(ctx,
		`DELETE FROM guardians WHERE id = $1 RETURNING `+guardianColumns, id))
	if err != nil {
		err = translate(err, "delete guardian", nil)
		return nil, err
	}
	return guardian, nil
}

func (r *GuardianRepository) query(ctx context.Context, query string, args ...interface{}) ([]*storage.Guardian, error) {
	rows, err := r.reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query guardians: %w", err)
	}
	defer rows.Close()

	guardians := make([]*storage.Guardian, 0)
	for rows.Next() {
		g, err := scanGuardianWithPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan guardian: %w", err)
		}
		guardians = append(guardians, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read guardians: %w", err)
	}
	return guardians, nil
}
