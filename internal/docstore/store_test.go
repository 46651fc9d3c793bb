package docstore_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rpggio/aerial/internal/docstore"
	"github.com/rpggio/aerial/internal/repository"
	"github.com/rpggio/aerial/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const projectsPath = "artifacts/app/users/u1/client_projects"

func receive(t *testing.T, sub *docstore.Subscription) docstore.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.Snapshots():
		require.True(t, ok, "subscription closed")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return docstore.Snapshot{}
	}
}

func TestStore_WatchDeliversInitialSnapshot(t *testing.T) {
	ctx := context.Background()
	store := docstore.New(docstore.NewMemoryRepository(), nil)

	_, err := store.Upsert(ctx, projectsPath, "p1", json.RawMessage(`{"n":1}`))
	require.NoError(t, err)

	sub, err := store.Watch(ctx, "/"+projectsPath)
	require.NoError(t, err)
	defer sub.Close()

	snap := receive(t, sub)
	require.Equal(t, projectsPath, snap.Path)
	require.Len(t, snap.Documents, 1)
	require.Equal(t, "p1", snap.Documents[0].ID)
}

func TestStore_UpsertPublishesToSamePathOnly(t *testing.T) {
	ctx := context.Background()
	store := docstore.New(docstore.NewMemoryRepository(), nil)

	mine, err := store.Watch(ctx, projectsPath)
	require.NoError(t, err)
	defer mine.Close()
	other, err := store.Watch(ctx, "artifacts/app/users/u2/client_projects")
	require.NoError(t, err)
	defer other.Close()

	require.Empty(t, receive(t, mine).Documents)
	require.Empty(t, receive(t, other).Documents)

	_, err = store.Upsert(ctx, projectsPath, "p1", json.RawMessage(`{"n":1}`))
	require.NoError(t, err)

	snap := receive(t, mine)
	require.Len(t, snap.Documents, 1)

	select {
	case <-other.Snapshots():
		t.Fatal("unexpected snapshot for other path")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStore_SnapshotsAreImmutableCopies(t *testing.T) {
	ctx := context.Background()
	store := docstore.New(docstore.NewMemoryRepository(), nil)

	a, err := store.Watch(ctx, projectsPath)
	require.NoError(t, err)
	defer a.Close()
	b, err := store.Watch(ctx, projectsPath)
	require.NoError(t, err)
	defer b.Close()
	receive(t, a)
	receive(t, b)

	_, err = store.Upsert(ctx, projectsPath, "p1", json.RawMessage(`{"n":1}`))
	require.NoError(t, err)

	snapA := receive(t, a)
	snapB := receive(t, b)
	snapA.Documents[0].Data[1] = 'X'
	require.JSONEq(t, `{"n":1}`, string(snapB.Documents[0].Data))
}

func TestStore_NewestSnapshotWins(t *testing.T) {
	ctx := context.Background()
	store := docstore.New(docstore.NewMemoryRepository(), nil)

	sub, err := store.Watch(ctx, projectsPath)
	require.NoError(t, err)
	defer sub.Close()

	for _, id := range []string{"p1", "p2", "p3"} {
		_, err := store.Upsert(ctx, projectsPath, id, json.RawMessage(`{}`))
		require.NoError(t, err)
	}

	snap := receive(t, sub)
	require.Len(t, snap.Documents, 3)
	require.Equal(t, []string{"p1", "p2", "p3"}, []string{snap.Documents[0].ID, snap.Documents[1].ID, snap.Documents[2].ID})
}

func TestStore_CloseReleasesWatcher(t *testing.T) {
	ctx := context.Background()
	store := docstore.New(docstore.NewMemoryRepository(), nil)

	sub, err := store.Watch(ctx, projectsPath)
	require.NoError(t, err)
	require.Equal(t, 1, store.WatcherCount(projectsPath))

	sub.Close()
	sub.Close()
	require.Equal(t, 0, store.WatcherCount(projectsPath))
	require.NoError(t, sub.Err())

	_, ok := <-sub.Snapshots()
	require.True(t, ok, "initial snapshot is still buffered")
	_, ok = <-sub.Snapshots()
	require.False(t, ok)
}

func TestStore_ContextCancelEndsWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := docstore.New(docstore.NewMemoryRepository(), nil)

	sub, err := store.Watch(ctx, projectsPath)
	require.NoError(t, err)
	cancel()

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not ended by context")
	}
}

func TestStore_ReloadFailureEndsSubscription(t *testing.T) {
	ctx := context.Background()
	repo := docstore.NewMemoryRepository()
	store := docstore.New(repo, nil)

	sub, err := store.Watch(ctx, projectsPath)
	require.NoError(t, err)
	receive(t, sub)

	boom := errors.New("disk gone")
	repo.SetFailList(boom)
	_, err = store.Upsert(ctx, projectsPath, "p1", json.RawMessage(`{}`))
	require.NoError(t, err)

	<-sub.Done()
	require.ErrorIs(t, sub.Err(), boom)
}

func TestStore_WatchInitialFailure(t *testing.T) {
	repo := docstore.NewMemoryRepository()
	repo.SetFailList(errors.New("boom"))
	store := docstore.New(repo, nil)

	_, err := store.Watch(context.Background(), projectsPath)
	require.Error(t, err)
	require.Equal(t, 0, store.WatcherCount(projectsPath))
}

func TestStore_Validation(t *testing.T) {
	ctx := context.Background()
	store := docstore.New(docstore.NewMemoryRepository(), nil)

	_, err := store.Watch(ctx, "artifacts/app")
	require.ErrorIs(t, err, docstore.ErrInvalidPath)
	_, err = store.Watch(ctx, "")
	require.ErrorIs(t, err, docstore.ErrInvalidPath)

	_, err = store.Upsert(ctx, projectsPath, "", json.RawMessage(`{}`))
	require.ErrorIs(t, err, docstore.ErrInvalidDocument)
	_, err = store.Upsert(ctx, projectsPath, "p1", json.RawMessage(`{`))
	require.ErrorIs(t, err, docstore.ErrInvalidDocument)
}

func TestStore_GetAndDelete(t *testing.T) {
	ctx := context.Background()
	store := docstore.New(docstore.NewMemoryRepository(), nil)

	_, err := store.Upsert(ctx, projectsPath, "p1", json.RawMessage(`{"a":true}`))
	require.NoError(t, err)

	doc, err := store.Get(ctx, projectsPath, "p1")
	require.NoError(t, err)
	require.JSONEq(t, `{"a":true}`, string(doc.Data))

	require.NoError(t, store.Delete(ctx, projectsPath, "p1"))
	_, err = store.Get(ctx, projectsPath, "p1")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStore_CloseEndsAll(t *testing.T) {
	ctx := context.Background()
	store := docstore.New(docstore.NewMemoryRepository(), nil)

	sub, err := store.Watch(ctx, projectsPath)
	require.NoError(t, err)

	store.Close()
	<-sub.Done()
	require.ErrorIs(t, sub.Err(), docstore.ErrClosed)

	_, err = store.Upsert(ctx, projectsPath, "p1", json.RawMessage(`{}`))
	require.ErrorIs(t, err, docstore.ErrClosed)
}

func TestStore_RepositoryFailures(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.DocumentRepository{}
	writeErr := errors.New("disk full")
	repo.On("Upsert", mock.Anything, mock.Anything).Return(writeErr)
	repo.On("Get", mock.Anything, projectsPath, "missing").Return(nil, repository.ErrNotFound)

	store := docstore.New(repo, nil)
	t.Cleanup(store.Close)

	_, err := store.Upsert(ctx, projectsPath, "p1", json.RawMessage(`{}`))
	require.ErrorIs(t, err, writeErr)
	// a failed write never reloads the collection
	repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)

	_, err = store.Get(ctx, projectsPath, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
}
