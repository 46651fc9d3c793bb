package project

import (
	"context"
	"encoding/json"

	"github.com/rpggio/aerial/internal/docstore"
	"github.com/rpggio/aerial/internal/domain/activity"
)

// Store is the document store surface used by the project service.
type Store interface {
	Upsert(ctx context.Context, path, id string, data json.RawMessage) (*docstore.Document, error)
	Get(ctx context.Context, path, id string) (*docstore.Document, error)
	List(ctx context.Context, path string) (docstore.Snapshot, error)
	Watch(ctx context.Context, path string) (*docstore.Subscription, error)
}

// ActivityRecorder receives audit events.
type ActivityRecorder interface {
	Record(ctx context.Context, uid, sessionID string, typ activity.Type, summary string)
}
