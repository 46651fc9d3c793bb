package project_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rpggio/aerial/internal/docstore"
	"github.com/rpggio/aerial/internal/domain/activity"
	"github.com/rpggio/aerial/internal/domain/metrics"
	"github.com/rpggio/aerial/internal/domain/project"
	"github.com/rpggio/aerial/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const appID = "drone-business-default-id"

func newService(t *testing.T) (*project.Service, *docstore.Store, *docstore.MemoryRepository) {
	t.Helper()
	repo := docstore.NewMemoryRepository()
	store := docstore.New(repo, nil)
	t.Cleanup(store.Close)
	return project.NewService(store, nil, nil), store, repo
}

func receive(t *testing.T, sub *project.Subscription) []project.Project {
	t.Helper()
	select {
	case projects, ok := <-sub.Projects():
		require.True(t, ok, "subscription ended: %v", sub.Err())
		return projects
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for projects")
		return nil
	}
}

func TestCollectionPath(t *testing.T) {
	path, err := project.CollectionPath(appID, "u1")
	require.NoError(t, err)
	require.Equal(t, "artifacts/drone-business-default-id/users/u1/client_projects", path)

	_, err = project.CollectionPath("", "u1")
	require.ErrorIs(t, err, project.ErrInvalidInput)
	_, err = project.CollectionPath(appID, "a/b")
	require.ErrorIs(t, err, project.ErrInvalidInput)
}

func TestProjectService_SeedAndGet(t *testing.T) {
	ctx := context.Background()
	recorder := &mocks.ActivityRecorder{}
	recorder.On("Record", ctx, "u1", "", activity.TypeSeedWritten, mock.Anything).Return()

	store := docstore.New(docstore.NewMemoryRepository(), nil)
	t.Cleanup(store.Close)
	svc := project.NewService(store, recorder, nil)

	seeded, err := svc.Seed(ctx, appID, "u1")
	require.NoError(t, err)
	require.Equal(t, project.DemoProjectID, seeded.ID)

	got, err := svc.Get(ctx, appID, "u1", project.DemoProjectID)
	require.NoError(t, err)
	require.Equal(t, "Anjuna Cliffside Resort", got.ClientName)
	require.Equal(t, "Phase 1: Foundation & Grading", got.ProjectName)
	require.Equal(t, project.StatusActive, got.Status)
	require.Len(t, got.Metrics, 4)
	require.Len(t, got.Media, 2)
	require.Len(t, got.Files, 3)
	require.Equal(t, "#", got.Links[project.LinkThreeD])
	require.Equal(t, metrics.Summarize(got.Metrics), got.Summary)
	require.Contains(t, got.Summary, "**Week 4 Analysis:**")

	view := got.View()
	require.Equal(t, 13.0, view.ProgressDelta)
	require.Equal(t, 700.0, view.NetCutFill)

	recorder.AssertExpectations(t)
}

func TestProjectService_GetMissing(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Get(context.Background(), appID, "u1", "nope")
	require.ErrorIs(t, err, project.ErrProjectNotFound)
}

func TestProjectService_UpsertValidation(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Upsert(context.Background(), appID, "u1", project.Project{ClientName: "Only client"})
	require.ErrorIs(t, err, project.ErrInvalidInput)
}

func TestProjectService_UpsertAssignsID(t *testing.T) {
	svc, _, _ := newService(t)
	p, err := svc.Upsert(context.Background(), appID, "u1", project.Project{
		ClientName:  "Harbor Works",
		ProjectName: "Quay Survey",
	})
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)
	require.Equal(t, project.StatusActive, p.Status)
	require.NotNil(t, p.Metrics)
	require.Empty(t, p.Metrics)
}

func TestProjectService_WatchDeliversUpdates(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	sub, err := svc.Watch(ctx, appID, "u1")
	require.NoError(t, err)
	defer sub.Close()

	require.Empty(t, receive(t, sub))

	_, err = svc.Seed(ctx, appID, "u1")
	require.NoError(t, err)

	projects := receive(t, sub)
	require.Len(t, projects, 1)
	require.Equal(t, project.DemoProjectID, projects[0].ID)

	_, err = svc.Seed(ctx, appID, "u2")
	require.NoError(t, err)
	select {
	case got := <-sub.Projects():
		t.Fatalf("unexpected snapshot for another user: %v", got)
	case <-time.After(50 * time.Millisecond):
	}

	sub.Close()
	<-sub.Done()
	require.NoError(t, sub.Err())
}

func TestProjectService_WatchDecodeFailure(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(t)

	sub, err := svc.Watch(ctx, appID, "u1")
	require.NoError(t, err)
	receive(t, sub)

	path, err := project.CollectionPath(appID, "u1")
	require.NoError(t, err)
	_, err = store.Upsert(ctx, path, "broken", json.RawMessage(`{"clientName":"X","metrics":{"version":9,"weeks":[]}}`))
	require.NoError(t, err)

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not end")
	}
	require.ErrorIs(t, sub.Err(), project.ErrDataLoadFailed)
}

func TestProjectService_WatchStoreFailure(t *testing.T) {
	ctx := context.Background()
	svc, _, repo := newService(t)
	repo.SetFailList(errors.New("disk gone"))

	_, err := svc.Watch(ctx, appID, "u1")
	require.ErrorIs(t, err, project.ErrDataLoadFailed)

	_, err = svc.List(ctx, appID, "u1")
	require.ErrorIs(t, err, project.ErrDataLoadFailed)
}

func TestProjectService_LegacyDocument(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(t)

	path, err := project.CollectionPath(appID, "u1")
	require.NoError(t, err)
	legacy := `{"clientName":"Old Client","projectName":"Legacy","status":"Completed",` +
		`"metrics":"[{\"name\":\"Wk 1\",\"volume\":1200,\"progress\":10,\"cut\":400,\"fill\":200}]"}`
	_, err = store.Upsert(ctx, path, "legacy", json.RawMessage(legacy))
	require.NoError(t, err)

	projects, err := svc.List(ctx, appID, "u1")
	require.NoError(t, err)
	require.Len(t, projects, 1)
	require.Equal(t, project.StatusCompleted, projects[0].Status)
	require.Len(t, projects[0].Metrics, 1)
	require.Equal(t, 1200.0, projects[0].Metrics[0].CumulativeVolume)
	require.Empty(t, projects[0].Media)
	require.NotNil(t, projects[0].Links)
}
