package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rpggio/aerial/internal/domain/identity"
	"github.com/rpggio/aerial/internal/repository"
)

// UserRepository implements identity.UserRepository for SQLite
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert creates a user or refreshes its last sign-in time
func (r *UserRepository) Upsert(ctx context.Context, user *identity.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (uid, anonymous, created_at, last_sign_in)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(uid) DO UPDATE SET last_sign_in = excluded.last_sign_in
	`, user.UID, user.Anonymous, user.CreatedAt.UTC(), user.LastSignInAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// Get retrieves a user by uid
func (r *UserRepository) Get(ctx context.Context, uid string) (*identity.User, error) {
	var user identity.User
	err := r.db.QueryRowContext(ctx,
		`SELECT uid, anonymous, created_at, last_sign_in FROM users WHERE uid = ?`, uid,
	).Scan(&user.UID, &user.Anonymous, &user.CreatedAt, &user.LastSignInAt)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
