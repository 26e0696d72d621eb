package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/platinummonkey/carebase/pkg/observability"
)

// Migration is one versioned schema change
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations returns the schema in application order
func Migrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id BIGSERIAL PRIMARY KEY,
					email VARCHAR(255) NOT NULL UNIQUE,
					password_hash VARCHAR(255) NOT NULL,
					first_name VARCHAR(255) NOT NULL DEFAULT '',
					last_name VARCHAR(255) NOT NULL DEFAULT '',
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`,
		},
		{
			Version:     2,
			Description: "Create patients table",
			SQL: `
				CREATE TABLE IF NOT EXISTS patients (
					id BIGSERIAL PRIMARY KEY,
					first_name VARCHAR(255) NOT NULL,
					last_name VARCHAR(255) NOT NULL DEFAULT '',
					cpf VARCHAR(14) NOT NULL UNIQUE,
					disease VARCHAR(255) NOT NULL DEFAULT '',
					birth_date DATE,
					address VARCHAR(255) NOT NULL DEFAULT '',
					city VARCHAR(255) NOT NULL DEFAULT '',
					number VARCHAR(20) NOT NULL DEFAULT '',
					state VARCHAR(2) NOT NULL DEFAULT '',
					zip_code VARCHAR(9) NOT NULL DEFAULT '',
					district VARCHAR(255) NOT NULL DEFAULT '',
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_patients_first_name ON patients(first_name);
			`,
		},
		{
			Version:     3,
			Description: "Create guardians table",
			SQL: `
				CREATE TABLE IF NOT EXISTS guardians (
					id BIGSERIAL PRIMARY KEY,
					first_name VARCHAR(255) NOT NULL,
					last_name VARCHAR(255) NOT NULL DEFAULT '',
					cpf VARCHAR(14) NOT NULL UNIQUE,
					rg VARCHAR(20) NOT NULL DEFAULT '',
					patient_id BIGINT NOT NULL REFERENCES patients(id),
					address VARCHAR(255) NOT NULL DEFAULT '',
					city VARCHAR(255) NOT NULL DEFAULT '',
					number VARCHAR(20) NOT NULL DEFAULT '',
					state VARCHAR(2) NOT NULL DEFAULT '',
					zip_code VARCHAR(9) NOT NULL DEFAULT '',
					district VARCHAR(255) NOT NULL DEFAULT '',
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_guardians_patient_id ON guardians(patient_id);
				CREATE INDEX IF NOT EXISTS idx_guardians_first_name ON guardians(first_name);
			`,
		},
		{
			Version:     4,
			Description: "Create diseases table",
			SQL: `
				CREATE TABLE IF NOT EXISTS diseases (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_diseases_name ON diseases(name);
			`,
		},
		{
			Version:     5,
			Description: "Create attendance and disease history tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS attendance (
					id BIGSERIAL PRIMARY KEY,
					patient_id BIGINT NOT NULL REFERENCES patients(id),
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_attendance_patient_id ON attendance(patient_id);

				CREATE TABLE IF NOT EXISTS disease_history (
					id BIGSERIAL PRIMARY KEY,
					patient_id BIGINT NOT NULL REFERENCES patients(id),
					disease_id BIGINT NOT NULL REFERENCES diseases(id) ON DELETE CASCADE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_disease_history_patient_id ON disease_history(patient_id);
			`,
		},
		{
			Version:     6,
			Description: "Create revoked tokens table",
			SQL: `
				CREATE TABLE IF NOT EXISTS revoked_tokens (
					token_hash CHAR(64) PRIMARY KEY,
					expires_at TIMESTAMPTZ NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_revoked_tokens_expires_at ON revoked_tokens(expires_at);
			`,
		},
		{
			Version:     7,
			Description: "Create audit logs table",
			SQL: `
				CREATE TABLE IF NOT EXISTS audit_logs (
					id BIGSERIAL PRIMARY KEY,
					user_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
					action VARCHAR(64) NOT NULL,
					status VARCHAR(16) NOT NULL,
					ip_address VARCHAR(64) NOT NULL DEFAULT '',
					user_agent TEXT NOT NULL DEFAULT '',
					request_id VARCHAR(64) NOT NULL DEFAULT '',
					error_message TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_audit_logs_user_id ON audit_logs(user_id);
				CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs(created_at);
			`,
		},
	}
}

// gooseMigrations converts the schema into goose Go migrations, each run in
// its own transaction
func gooseMigrations() []*goose.Migration {
	migrations := Migrations()
	out := make([]*goose.Migration, 0, len(migrations))
	for _, m := range migrations {
		statement := m.SQL
		out = append(out, goose.NewGoMigration(int64(m.Version), &goose.GoFunc{
			RunTx: func(ctx context.Context, tx *sql.Tx) error {
				_, err := tx.ExecContext(ctx, statement)
				return err
			},
		}, nil))
	}
	return out
}

// gooseUp is a seam for testing the goose provider
var gooseUp = func(ctx context.Context, db *sql.DB, migrations []*goose.Migration) ([]*goose.MigrationResult, error) {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, nil,
		goose.WithGoMigrations(migrations...),
		goose.WithDisableGlobalRegistry(true),
	)
	if err != nil {
		return nil, err
	}
	return provider.Up(ctx)
}

// RunMigrations applies every pending migration through goose. Applied
// versions are tracked in goose_db_version.
func RunMigrations(ctx context.Context, db *sql.DB, logger *observability.Logger) error {
	if logger == nil {
		logger = observability.NopLogger()
	}

	results, err := gooseUp(ctx, db, gooseMigrations())
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	descriptions := make(map[int64]string)
	for _, m := range Migrations() {
		descriptions[int64(m.Version)] = m.Description
	}
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		logger.WithFields(map[string]interface{}{
			"version":     r.Source.Version,
			"description": descriptions[r.Source.Version],
			"duration_ms": r.Duration.Milliseconds(),
		}).Info("Migration applied")
	}

	return nil
}
