package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/aerial/internal/domain/activity"
	"github.com/stretchr/testify/require"
)

func TestActivityRepository_LogList(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewActivityRepository(db)

	base := time.Date(2025, 10, 25, 12, 0, 0, 0, time.UTC)
	entry1 := &activity.Entry{
		UID:       "u1",
		Type:      activity.TypeSignInAnonymous,
		Summary:   "Signed in anonymously",
		CreatedAt: base,
	}
	entry2 := &activity.Entry{
		UID:       "u1",
		Type:      activity.TypeSeedWritten,
		Summary:   "Wrote demo project",
		Details:   `{"id":"demo-resort"}`,
		CreatedAt: base.Add(time.Second),
	}

	require.NoError(t, repo.Log(ctx, entry1))
	require.NoError(t, repo.Log(ctx, entry2))
	require.NotZero(t, entry1.ID)

	entries, err := repo.List(ctx, activity.ListOptions{UID: "u1"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, activity.TypeSeedWritten, entries[0].Type)
	require.Equal(t, activity.TypeSignInAnonymous, entries[1].Type)
	require.Nil(t, entries[1].SessionID)

	limited, err := repo.List(ctx, activity.ListOptions{UID: "u1", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	require.Equal(t, activity.TypeSignInAnonymous, limited[0].Type)
}

func TestActivityRepository_FiltersAndUserIsolation(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewActivityRepository(db)

	sessionID := "s1"
	require.NoError(t, repo.Log(ctx, &activity.Entry{
		UID:       "u1",
		SessionID: &sessionID,
		Type:      activity.TypeSignOut,
		Summary:   "Signed out",
	}))
	require.NoError(t, repo.Log(ctx, &activity.Entry{
		UID:     "u1",
		Type:    activity.TypeSeedWritten,
		Summary: "Wrote demo project",
	}))

	typ := activity.TypeSignOut
	entries, err := repo.List(ctx, activity.ListOptions{UID: "u1", SessionID: &sessionID, Type: &typ})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "s1", *entries[0].SessionID)

	entries, err = repo.List(ctx, activity.ListOptions{UID: "u2"})
	require.NoError(t, err)
	require.Len(t, entries, 0)
}
