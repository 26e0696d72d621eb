package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/platinummonkey/carebase/pkg/storage"
)

const userColumns = `id, email, password_hash, first_name, last_name, created_at, updated_at`

// UserRepository implements storage.UserStore. Every query hits the primary
// so a token issued right after registration resolves.
type UserRepository struct {
	repo
}

var _ storage.UserStore = (*UserRepository)(nil)

// NewUserRepository creates a user repository
func NewUserRepository(db *sql.DB, opts ...Option) *UserRepository {
	return &UserRepository{repo: newRepo(db, "user", opts)}
}

func scanUser(row scanner) (*storage.User, error) {
	var u storage.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByEmail looks a user up by login email
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (user *storage.User, err error) {
	defer r.observe("find_by_email", time.Now(), &err)

	user, err = scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		err = translate(err, "find user by email", nil)
		return nil, err
	}
	return user, nil
}

// FindByID looks a user up by id
func (r *UserRepository) FindByID(ctx context.Context, id int64) (user *storage.User, err error) {
	defer r.observe("find_by_id", time.Now(), &err)

	user, err = scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		err = translate(err, "find user by id", nil)
		return nil, err
	}
	return user, nil
}

// Create inserts user and fills its id and timestamps
func (r *UserRepository) Create(ctx context.Context, user *storage.User) (err error) {
	defer r.observe("create", time.Now(), &err)

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, user.Email, user.PasswordHash, user.FirstName, user.LastName).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	return translate(err, "create user", nil)
}
