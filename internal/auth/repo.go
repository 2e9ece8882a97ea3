package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/atlas-erp/atlas-erp/internal/platform/db"
	"github.com/atlas-erp/atlas-erp/internal/shared"
)

// Repository provides user persistence.
type Repository struct {
	q db.Querier
}

// NewRepository constructs a repository.
func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

// GetByEmail loads a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.q.QueryRow(ctx, `
		SELECT id, email, name, password_hash, warehouses, created_at, updated_at
		FROM users WHERE email = $1`, email).Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Warehouses, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Get loads a user by id.
func (r *Repository) Get(ctx context.Context, id int64) (*User, error) {
	var u User
	err := r.q.QueryRow(ctx, `
		SELECT id, email, name, password_hash, warehouses, created_at, updated_at
		FROM users WHERE id = $1`, id).Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Warehouses, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Warehouses returns the warehouse scope of a user.
func (r *Repository) Warehouses(ctx context.Context, userID int64) ([]string, error) {
	u, err := r.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.Warehouses, nil
}
