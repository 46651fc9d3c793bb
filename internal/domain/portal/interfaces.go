package portal

import (
	"context"

	"github.com/rpggio/aerial/internal/domain/identity"
	"github.com/rpggio/aerial/internal/domain/project"
)

// AuthClient is the per-viewer identity handle.
type AuthClient interface {
	OnAuthStateChange(fn func(*identity.User)) (unsubscribe func())
	SignInAnonymous(ctx context.Context) (*identity.User, error)
	SignInWithToken(ctx context.Context, customToken string) (*identity.User, error)
	Resume(ctx context.Context, sessionToken string) (*identity.User, error)
	SignOut(ctx context.Context) error
	Current() (identity.SignIn, bool)
}

// Projects is the project service surface used by the portal.
type Projects interface {
	Watch(ctx context.Context, appID, uid string) (*project.Subscription, error)
	Seed(ctx context.Context, appID, uid string) (*project.Project, error)
}
