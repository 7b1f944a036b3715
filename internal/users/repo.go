package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Get(ctx context.Context, id string) (*User, error) {
	var u User
	err := r.DB.QueryRow(ctx, `SELECT id, role, name, email, created_at FROM users WHERE id=$1`, id).
		Scan(&u.ID, &u.Role, &u.Name, &u.Email, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) HasRole(ctx context.Context, id string, role Role) (bool, error) {
	var n int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE id=$1 AND role=$2`, id, role).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// IsDriver lets dispatch verify the accepting user without importing the
// whole user model.
func (r *Repo) IsDriver(ctx context.Context, id string) (bool, error) {
	return r.HasRole(ctx, id, RoleDriver)
}
