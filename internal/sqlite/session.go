package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rpggio/aerial/internal/domain/identity"
	"github.com/rpggio/aerial/internal/repository"
)

// SessionRepository implements identity.SessionRepository for SQLite
type SessionRepository struct {
	db  *DB
	now func() time.Time
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db, now: time.Now}
}

// Create creates a new session
func (r *SessionRepository) Create(ctx context.Context, sess *identity.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, uid, method, created_at, expires_at, closed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sess.ID, sess.UID, sess.Method, sess.CreatedAt.UTC(), sess.ExpiresAt.UTC(), nullTime(sess.ClosedAt))
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID
func (r *SessionRepository) Get(ctx context.Context, id string) (*identity.Session, error) {
	var sess identity.Session
	var method string
	var closedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT id, uid, method, created_at, expires_at, closed_at
		FROM sessions WHERE id = ?
	`, id).Scan(&sess.ID, &sess.UID, &method, &sess.CreatedAt, &sess.ExpiresAt, &closedAt)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	sess.Method = identity.Method(method)
	if closedAt.Valid {
		t := closedAt.Time
		sess.ClosedAt = &t
	}
	return &sess, nil
}

// Close marks a session as closed
func (r *SessionRepository) Close(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET closed_at = ? WHERE id = ? AND closed_at IS NULL`,
		r.now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
