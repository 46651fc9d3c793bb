package sqlite

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rpggio/aerial/internal/docstore"
	"github.com/rpggio/aerial/internal/repository"
	"github.com/stretchr/testify/require"
)

const testCollection = "artifacts/app/users/u1/client_projects"

func TestDocumentRepository_UpsertGet(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewDocumentRepository(db)

	created := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	doc := &docstore.Document{
		Path:      testCollection,
		ID:        "demo-resort",
		Data:      json.RawMessage(`{"clientName":"Anjuna Cliffside Resort"}`),
		CreatedAt: created,
		UpdatedAt: created,
	}
	require.NoError(t, repo.Upsert(ctx, doc))

	got, err := repo.Get(ctx, testCollection, "demo-resort")
	require.NoError(t, err)
	require.JSONEq(t, `{"clientName":"Anjuna Cliffside Resort"}`, string(got.Data))
	require.True(t, got.CreatedAt.Equal(created))

	later := created.Add(time.Hour)
	replacement := &docstore.Document{
		Path:      testCollection,
		ID:        "demo-resort",
		Data:      json.RawMessage(`{"clientName":"Renamed"}`),
		CreatedAt: later,
		UpdatedAt: later,
	}
	require.NoError(t, repo.Upsert(ctx, replacement))
	require.True(t, replacement.CreatedAt.Equal(created), "creation time is kept on replace")

	got, err = repo.Get(ctx, testCollection, "demo-resort")
	require.NoError(t, err)
	require.JSONEq(t, `{"clientName":"Renamed"}`, string(got.Data))
	require.True(t, got.CreatedAt.Equal(created))
	require.True(t, got.UpdatedAt.Equal(later))
}

func TestDocumentRepository_ListOrderAndIsolation(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewDocumentRepository(db)

	base := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	put := func(path, id string, at time.Time) {
		t.Helper()
		require.NoError(t, repo.Upsert(ctx, &docstore.Document{
			Path: path, ID: id, Data: json.RawMessage(`{}`), CreatedAt: at, UpdatedAt: at,
		}))
	}
	put(testCollection, "b", base)
	put(testCollection, "a", base)
	put(testCollection, "c", base.Add(-time.Minute))
	put("artifacts/app/users/u2/client_projects", "z", base)

	docs, err := repo.List(ctx, testCollection)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	require.Equal(t, "c", docs[0].ID)
	require.Equal(t, "a", docs[1].ID)
	require.Equal(t, "b", docs[2].ID)

	empty, err := repo.List(ctx, "artifacts/app/users/nobody/client_projects")
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Len(t, empty, 0)
}

func TestDocumentRepository_Delete(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewDocumentRepository(db)

	require.NoError(t, repo.Upsert(ctx, &docstore.Document{Path: testCollection, ID: "p1", Data: json.RawMessage(`{}`)}))
	require.NoError(t, repo.Delete(ctx, testCollection, "p1"))

	_, err := repo.Get(ctx, testCollection, "p1")
	require.ErrorIs(t, err, repository.ErrNotFound)
	require.ErrorIs(t, repo.Delete(ctx, testCollection, "p1"), repository.ErrNotFound)
}

func TestDocumentRepository_BacksStoreWatch(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	store := docstore.New(NewDocumentRepository(db), nil)
	t.Cleanup(store.Close)

	sub, err := store.Watch(ctx, testCollection)
	require.NoError(t, err)
	defer sub.Close()

	initial := <-sub.Snapshots()
	require.Empty(t, initial.Documents)

	_, err = store.Upsert(ctx, testCollection, "p1", json.RawMessage(`{"status":"Active"}`))
	require.NoError(t, err)

	select {
	case snap := <-sub.Snapshots():
		require.Len(t, snap.Documents, 1)
		require.Equal(t, "p1", snap.Documents[0].ID)
	case <-time.After(2 * time.Second):
		t.Fatal("expected snapshot after upsert")
	}
}
