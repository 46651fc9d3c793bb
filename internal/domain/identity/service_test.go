package identity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rpggio/aerial/internal/domain/activity"
	"github.com/rpggio/aerial/internal/domain/identity"
	"github.com/rpggio/aerial/internal/repository"
	"github.com/rpggio/aerial/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 10, 25, 12, 0, 0, 0, time.UTC)

func testTokens() identity.TokenConfig {
	return identity.TokenConfig{
		Issuer:     "aerial-test",
		Key:        []byte("test-signing-key"),
		SessionTTL: time.Hour,
		Now:        func() time.Time { return testNow },
	}
}

func TestIdentityService_SignInAnonymous(t *testing.T) {
	ctx := context.Background()
	users := &mocks.UserRepository{}
	sessions := &mocks.SessionRepository{}
	recorder := &mocks.ActivityRecorder{}

	users.On("Get", ctx, mock.Anything).Return(nil, repository.ErrNotFound)
	users.On("Upsert", ctx, mock.MatchedBy(func(u *identity.User) bool {
		return u.Anonymous && u.UID != "" && u.LastSignInAt.Equal(testNow)
	})).Return(nil)
	sessions.On("Create", ctx, mock.MatchedBy(func(s *identity.Session) bool {
		return s.Method == identity.MethodAnonymous && s.ExpiresAt.Equal(testNow.Add(time.Hour))
	})).Return(nil)
	recorder.On("Record", ctx, mock.Anything, mock.Anything, activity.TypeSignInAnonymous, mock.Anything).Return()

	svc := identity.NewService(users, sessions, testTokens(), recorder, nil)
	result, err := svc.SignInAnonymous(ctx)
	require.NoError(t, err)
	require.True(t, result.User.Anonymous)
	require.NotEmpty(t, result.Token)
	require.Equal(t, result.User.UID, result.Session.UID)

	users.AssertExpectations(t)
	sessions.AssertExpectations(t)
	recorder.AssertExpectations(t)
}

func TestIdentityService_SignInWithToken(t *testing.T) {
	ctx := context.Background()
	users := &mocks.UserRepository{}
	sessions := &mocks.SessionRepository{}

	users.On("Get", ctx, "client-42").Return(nil, repository.ErrNotFound)
	users.On("Upsert", ctx, mock.MatchedBy(func(u *identity.User) bool {
		return u.UID == "client-42" && !u.Anonymous
	})).Return(nil)
	sessions.On("Create", ctx, mock.MatchedBy(func(s *identity.Session) bool {
		return s.UID == "client-42" && s.Method == identity.MethodToken
	})).Return(nil)

	svc := identity.NewService(users, sessions, testTokens(), nil, nil)
	token, err := svc.MintCustomToken("client-42", time.Minute)
	require.NoError(t, err)

	result, err := svc.SignInWithToken(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "client-42", result.User.UID)
	require.Equal(t, identity.MethodToken, result.Session.Method)
}

func TestIdentityService_SignInWithToken_Rejected(t *testing.T) {
	ctx := context.Background()
	svc := identity.NewService(&mocks.UserRepository{}, &mocks.SessionRepository{}, testTokens(), nil, nil)

	_, err := svc.SignInWithToken(ctx, "not-a-token")
	require.ErrorIs(t, err, identity.ErrAuthenticationFailed)

	other := testTokens()
	other.Key = []byte("someone-else")
	foreign := identity.NewService(nil, nil, other, nil, nil)
	token, err := foreign.MintCustomToken("client-42", time.Minute)
	require.NoError(t, err)
	_, err = svc.SignInWithToken(ctx, token)
	require.ErrorIs(t, err, identity.ErrAuthenticationFailed)

	expired := testTokens()
	expired.Now = func() time.Time { return testNow.Add(-2 * time.Hour) }
	stale := identity.NewService(nil, nil, expired, nil, nil)
	token, err = stale.MintCustomToken("client-42", time.Minute)
	require.NoError(t, err)
	_, err = svc.SignInWithToken(ctx, token)
	require.ErrorIs(t, err, identity.ErrAuthenticationFailed)
}

func TestIdentityService_SessionTokenIsNotACustomToken(t *testing.T) {
	ctx := context.Background()
	users := &mocks.UserRepository{}
	sessions := &mocks.SessionRepository{}
	users.On("Get", ctx, mock.Anything).Return(nil, repository.ErrNotFound)
	users.On("Upsert", ctx, mock.Anything).Return(nil)
	sessions.On("Create", ctx, mock.Anything).Return(nil)

	svc := identity.NewService(users, sessions, testTokens(), nil, nil)
	result, err := svc.SignInAnonymous(ctx)
	require.NoError(t, err)

	_, err = svc.SignInWithToken(ctx, result.Token)
	require.ErrorIs(t, err, identity.ErrAuthenticationFailed)
}

func TestIdentityService_SignInRepositoryFailure(t *testing.T) {
	ctx := context.Background()
	users := &mocks.UserRepository{}
	users.On("Get", ctx, mock.Anything).Return(nil, errors.New("disk full"))

	svc := identity.NewService(users, &mocks.SessionRepository{}, testTokens(), nil, nil)
	_, err := svc.SignInAnonymous(ctx)
	require.ErrorIs(t, err, identity.ErrAuthenticationFailed)
}

func TestIdentityService_ResolveAndSignOut(t *testing.T) {
	ctx := context.Background()
	users := &mocks.UserRepository{}
	sessions := &mocks.SessionRepository{}
	recorder := &mocks.ActivityRecorder{}

	var created *identity.Session
	users.On("Get", ctx, "client-42").Return(nil, repository.ErrNotFound).Once()
	users.On("Upsert", ctx, mock.Anything).Return(nil)
	sessions.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
		created = args.Get(1).(*identity.Session)
	}).Return(nil)
	recorder.On("Record", ctx, "client-42", mock.Anything, mock.Anything, mock.Anything).Return()

	svc := identity.NewService(users, sessions, testTokens(), recorder, nil)
	token, err := svc.MintCustomToken("client-42", time.Minute)
	require.NoError(t, err)
	signedIn, err := svc.SignInWithToken(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, created)

	users.On("Get", ctx, "client-42").Return(&signedIn.User, nil)
	sessions.On("Get", ctx, created.ID).Return(created, nil).Twice()

	resolved, err := svc.Resolve(ctx, signedIn.Token)
	require.NoError(t, err)
	require.Equal(t, created.ID, resolved.Session.ID)

	sessions.On("Close", ctx, created.ID).Return(nil)
	require.NoError(t, svc.SignOut(ctx, created.ID))

	closedAt := testNow
	closed := *created
	closed.ClosedAt = &closedAt
	sessions.On("Get", ctx, created.ID).Return(&closed, nil)

	_, err = svc.Resolve(ctx, signedIn.Token)
	require.ErrorIs(t, err, identity.ErrSessionNotFound)
	require.NoError(t, svc.SignOut(ctx, created.ID))

	sessionID, err := svc.SessionID(signedIn.Token)
	require.NoError(t, err)
	require.Equal(t, created.ID, sessionID)
	_, err = svc.SessionID("garbage")
	require.ErrorIs(t, err, identity.ErrSessionNotFound)

	sessions.AssertNumberOfCalls(t, "Close", 1)
	recorder.AssertCalled(t, "Record", ctx, "client-42", created.ID, activity.TypeSignOut, "Signed out")
}

func TestIdentityService_ResolveUnknownSession(t *testing.T) {
	ctx := context.Background()
	sessions := &mocks.SessionRepository{}
	sessions.On("Get", ctx, mock.Anything).Return(nil, repository.ErrNotFound)

	svc := identity.NewService(&mocks.UserRepository{}, sessions, testTokens(), nil, nil)

	_, err := svc.Resolve(ctx, "garbage")
	require.ErrorIs(t, err, identity.ErrSessionNotFound)
}

func TestIdentityService_MintCustomTokenValidation(t *testing.T) {
	svc := identity.NewService(nil, nil, testTokens(), nil, nil)

	_, err := svc.MintCustomToken("", time.Minute)
	require.ErrorIs(t, err, identity.ErrInvalidInput)
	_, err = svc.MintCustomToken("a/b", time.Minute)
	require.ErrorIs(t, err, identity.ErrInvalidInput)

	unsigned := identity.NewService(nil, nil, identity.TokenConfig{Issuer: "x"}, nil, nil)
	_, err = unsigned.MintCustomToken("client-42", time.Minute)
	require.Error(t, err)
}
