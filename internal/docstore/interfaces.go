package docstore

import "context"

// Repository persists documents.
type Repository interface {
	Upsert(ctx context.Context, doc *Document) error
	Get(ctx context.Context, path, id string) (*Document, error)
	List(ctx context.Context, path string) ([]Document, error)
	Delete(ctx context.Context, path, id string) error
}
