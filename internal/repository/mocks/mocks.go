package mocks

import (
	"context"

	"github.com/rpggio/aerial/internal/docstore"
	"github.com/rpggio/aerial/internal/domain/activity"
	"github.com/rpggio/aerial/internal/domain/identity"
	"github.com/stretchr/testify/mock"
)

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListOptions) ([]activity.Entry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.Entry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// UserRepository is a mock for identity.UserRepository.
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Upsert(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepository) Get(ctx context.Context, uid string) (*identity.User, error) {
	args := m.Called(ctx, uid)
	if user, ok := args.Get(0).(*identity.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

// SessionRepository is a mock for identity.SessionRepository.
type SessionRepository struct {
	mock.Mock
}

func (m *SessionRepository) Create(ctx context.Context, sess *identity.Session) error {
	args := m.Called(ctx, sess)
	return args.Error(0)
}

func (m *SessionRepository) Get(ctx context.Context, id string) (*identity.Session, error) {
	args := m.Called(ctx, id)
	if sess, ok := args.Get(0).(*identity.Session); ok {
		return sess, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) Close(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// ActivityRecorder is a mock for identity.ActivityRecorder.
type ActivityRecorder struct {
	mock.Mock
}

func (m *ActivityRecorder) Record(ctx context.Context, uid, sessionID string, typ activity.Type, summary string) {
	m.Called(ctx, uid, sessionID, typ, summary)
}

// DocumentRepository is a mock for docstore.Repository.
type DocumentRepository struct {
	mock.Mock
}

func (m *DocumentRepository) Upsert(ctx context.Context, doc *docstore.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *DocumentRepository) Get(ctx context.Context, path, id string) (*docstore.Document, error) {
	args := m.Called(ctx, path, id)
	if doc, ok := args.Get(0).(*docstore.Document); ok {
		return doc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DocumentRepository) List(ctx context.Context, path string) ([]docstore.Document, error) {
	args := m.Called(ctx, path)
	if list, ok := args.Get(0).([]docstore.Document); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DocumentRepository) Delete(ctx context.Context, path, id string) error {
	args := m.Called(ctx, path, id)
	return args.Error(0)
}
