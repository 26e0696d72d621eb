package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/platinummonkey/carebase/pkg/storage"
)

const diseaseColumns = `id, name, created_at, updated_at`

// DiseaseRepository implements storage.DiseaseStore
type DiseaseRepository struct {
	repo
}

var _ storage.DiseaseStore = (*DiseaseRepository)(nil)

// NewDiseaseRepository creates a disease repository
func NewDiseaseRepository(db *sql.DB, opts ...Option) *DiseaseRepository {
	return &DiseaseRepository{repo: newRepo(db, "disease", opts)}
}

func scanDisease(row scanner) (*storage.Disease, error) {
	var d storage.Disease
	if err := row.Scan(&d.ID, &d.Name, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DiseaseRepository) List(ctx context.Context) (diseases []*storage.Disease, err error) {
	defer r.observe("list", time.Now(), &err)
	diseases, err = r.query(ctx, `SELECT `+diseaseColumns+` FROM diseases ORDER BY id`)
	return diseases, err
}

func (r *DiseaseRepository) FindByName(ctx context.Context, name string) (diseases []*storage.Disease, err error) {
	defer r.observe("find_by_name", time.Now(), &err)
	diseases, err = r.query(ctx, `SELECT `+diseaseColumns+` FROM diseases WHERE name = $1 ORDER BY id`, name)
	return diseases, err
}

func (r *DiseaseRepository) Get(ctx context.Context, id int64) (disease *storage.Disease, err error) {
	defer r.observe("get", time.Now(), &err)

	disease, err = scanDisease(r.db.QueryRowContext(ctx, `SELECT `+diseaseColumns+` FROM diseases WHERE id = $1`, id))
	if err != nil {
		err = translate(err, "get disease", nil)
		return nil, err
	}
	return disease, nil
}

func (r *DiseaseRepository) Create(ctx context.Context, disease *storage.Disease) (err error) {
	defer r.observe("create", time.Now(), &err)

	err = r.db.QueryRowContext(ctx,
		`INSERT INTO diseases (name) VALUES ($1) RETURNING id, created_at, updated_at`,
		disease.Name,
	).Scan(&disease.ID, &disease.CreatedAt, &disease.UpdatedAt)
	return translate(err, "create disease", nil)
}

func (r *DiseaseRepository) Update(ctx context.Context, disease *storage.Disease) (err error) {
	defer r.observe("update", time.Now(), &err)

	err = r.db.QueryRowContext(ctx,
		`UPDATE diseases SET name = $2, updated_at = NOW() WHERE id = $1 RETURNING created_at, updated_at`,
		disease.ID, disease.Name,
	).Scan(&disease.CreatedAt, &disease.UpdatedAt)
	return translate(err, "update disease", nil)
}

// Delete removes a disease; its history rows go with it
func (r *DiseaseRepository) Delete(ctx context.Context, id int64) (err error) {
	defer r.observe("delete", time.Now(), &err)

	result, err := r.db.ExecContext(ctx, `DELETE FROM diseases WHERE id = $1`, id)
	if err != nil {
		err = translate(err, "delete disease", storage.ErrInUse)
		return err
	}
	err = requireAffected(result, "delete disease")
	return err
}

func (r *DiseaseRepository) query(ctx context.Context, query string, args ...interface{}) ([]*storage.Disease, error) {
	rows, err := r.reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query diseases: %w", err)
	}
	defer rows.Close()

	diseases := make([]*storage.Disease, 0)
	for rows.Next() {
		d, err := scanDisease(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan disease: %w", err)
		}
		diseases = append(diseases, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read diseases: %w", err)
	}
	return diseases, nil
}
