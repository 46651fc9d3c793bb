package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rpggio/aerial/internal/docstore"
	"github.com/rpggio/aerial/internal/repository"
)

// DocumentRepository implements docstore.Repository for SQLite
type DocumentRepository struct {
	db *DB
}

// NewDocumentRepository creates a new DocumentRepository
func NewDocumentRepository(db *DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Upsert inserts or replaces a document. An existing document keeps its creation time,
// which is written back to doc.
func (r *DocumentRepository) Upsert(ctx context.Context, doc *docstore.Document) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin upsert: %w", err)
	}
	defer tx.Rollback()

	var createdAt time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT created_at FROM documents WHERE path = ? AND id = ?`,
		doc.Path, doc.ID,
	).Scan(&createdAt)
	switch {
	case err == sql.ErrNoRows:
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = time.Now().UTC()
		}
		if doc.UpdatedAt.IsZero() {
			doc.UpdatedAt = doc.CreatedAt
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO documents (path, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			doc.Path, doc.ID, string(doc.Data), doc.CreatedAt.UTC(), doc.UpdatedAt.UTC(),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return repository.ErrConflict
			}
			return fmt.Errorf("failed to insert document: %w", err)
		}
	case err != nil:
		return fmt.Errorf("failed to read document: %w", err)
	default:
		doc.CreatedAt = createdAt
		if doc.UpdatedAt.IsZero() {
			doc.UpdatedAt = time.Now().UTC()
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE documents SET data = ?, updated_at = ? WHERE path = ? AND id = ?`,
			string(doc.Data), doc.UpdatedAt.UTC(), doc.Path, doc.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update document: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document: %w", err)
	}
	return nil
}

// Get retrieves a document by path and id
func (r *DocumentRepository) Get(ctx context.Context, path, id string) (*docstore.Document, error) {
	var doc docstore.Document
	var data string
	err := r.db.QueryRowContext(ctx,
		`SELECT path, id, data, created_at, updated_at FROM documents WHERE path = ? AND id = ?`,
		path, id,
	).Scan(&doc.Path, &doc.ID, &data, &doc.CreatedAt, &doc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	doc.Data = json.RawMessage(data)
	return &doc, nil
}

// List returns a collection's documents ordered by creation time, then id
func (r *DocumentRepository) List(ctx context.Context, path string) ([]docstore.Document, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT path, id, data, created_at, updated_at FROM documents
		 WHERE path = ? ORDER BY created_at, id`,
		path,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := []docstore.Document{}
	for rows.Next() {
		var doc docstore.Document
		var data string
		if err := rows.Scan(&doc.Path, &doc.ID, &data, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc.Data = json.RawMessage(data)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}
	return docs, nil
}

// Delete removes a document
func (r *DocumentRepository) Delete(ctx context.Context, path, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE path = ? AND id = ?`, path, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
