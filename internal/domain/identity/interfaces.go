package identity

import (
	"context"

	"github.com/rpggio/aerial/internal/domain/activity"
)

// UserRepository provides persistence for users.
type UserRepository interface {
	Upsert(ctx context.Context, user *User) error
	Get(ctx context.Context, uid string) (*User, error)
}

// SessionRepository provides persistence for sessions.
type SessionRepository interface {
	Create(ctx context.Context, sess *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Close(ctx context.Context, id string) error
}

// ActivityRecorder receives audit events.
type ActivityRecorder interface {
	Record(ctx context.Context, uid, sessionID string, typ activity.Type, summary string)
}

// Authenticator is the server side of the identity boundary used by Client.
type Authenticator interface {
	SignInAnonymous(ctx context.Context) (*SignIn, error)
	SignInWithToken(ctx context.Context, customToken string) (*SignIn, error)
	Resume(ctx context.Context, sessionToken string) (*SignIn, error)
	SignOut(ctx context.Context, sessionID string) error
}
