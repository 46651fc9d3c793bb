package activity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rpggio/aerial/internal/domain/activity"
	"github.com/rpggio/aerial/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestActivityService_LogAndList(t *testing.T) {
	ctx := context.Background()

	repo := &mocks.ActivityRepository{}
	entry := &activity.Entry{
		UID:     "u1",
		Type:    activity.TypeSeedWritten,
		Summary: "seeded demo-resort",
	}

	repo.On("Log", ctx, entry).Return(nil)
	repo.On("List", ctx, activity.ListOptions{UID: "u1", Limit: activity.DefaultLimit}).Return([]activity.Entry{*entry}, nil)

	svc := activity.NewService(repo, nil)
	require.NoError(t, svc.Log(ctx, entry))
	require.False(t, entry.CreatedAt.IsZero())

	entries, err := svc.Recent(ctx, activity.ListOptions{UID: "u1"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	repo.AssertExpectations(t)
}

func TestActivityService_LogValidation(t *testing.T) {
	svc := activity.NewService(&mocks.ActivityRepository{}, nil)
	require.ErrorIs(t, svc.Log(context.Background(), nil), activity.ErrInvalidInput)
	require.ErrorIs(t, svc.Log(context.Background(), &activity.Entry{Type: activity.TypeSignOut}), activity.ErrInvalidInput)

	_, err := svc.Recent(context.Background(), activity.ListOptions{})
	require.ErrorIs(t, err, activity.ErrInvalidInput)
}

func TestActivityService_RecordSwallowsErrors(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ActivityRepository{}
	repo.On("Log", ctx, mock.MatchedBy(func(e *activity.Entry) bool {
		return e.UID == "u1" && e.SessionID != nil && *e.SessionID == "s1"
	})).Return(errors.New("db down"))

	svc := activity.NewService(repo, nil)
	svc.Record(ctx, "u1", "s1", activity.TypeSignOut, "signed out")
	repo.AssertExpectations(t)

	var nilSvc *activity.Service
	nilSvc.Record(ctx, "u1", "", activity.TypeSignOut, "ignored")
}
