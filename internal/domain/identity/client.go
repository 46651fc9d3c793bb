package identity

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Client holds one viewer's current identity and notifies listeners when it changes.
type Client struct {
	auth   Authenticator
	logger *slog.Logger

	// opMu serializes sign-in and sign-out so listeners observe changes in order.
	opMu sync.Mutex

	mu        sync.Mutex
	current   *SignIn
	nextID    int
	listeners map[int]func(*User)
}

// NewClient creates a signed-out client.
func NewClient(auth Authenticator, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{auth: auth, logger: logger, listeners: make(map[int]func(*User))}
}

// OnAuthStateChange registers fn. It is called immediately with the current
// user (nil when signed out) and again after every change.
func (c *Client) OnAuthStateChange(fn func(*User)) (unsubscribe func()) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	user := c.userLocked()
	c.mu.Unlock()

	fn(user)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// SignInAnonymous signs in as a new anonymous user.
func (c *Client) SignInAnonymous(ctx context.Context) (*User, error) {
	return c.signIn(ctx, func() (*SignIn, error) { return c.auth.SignInAnonymous(ctx) })
}

// SignInWithToken signs in with a custom token.
func (c *Client) SignInWithToken(ctx context.Context, customToken string) (*User, error) {
	return c.signIn(ctx, func() (*SignIn, error) { return c.auth.SignInWithToken(ctx, customToken) })
}

// Resume restores a session from a session token.
func (c *Client) Resume(ctx context.Context, sessionToken string) (*User, error) {
	return c.signIn(ctx, func() (*SignIn, error) { return c.auth.Resume(ctx, sessionToken) })
}

// SignOut ends the current session. Signing out while signed out is a no-op.
func (c *Client) SignOut(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	current := c.current
	c.mu.Unlock()
	if current == nil {
		return nil
	}

	if err := c.auth.SignOut(ctx, current.Session.ID); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	c.set(nil)
	return nil
}

// CurrentUser returns a copy of the signed-in user, or nil.
func (c *Client) CurrentUser() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userLocked()
}

// Current returns a copy of the current sign-in.
func (c *Client) Current() (SignIn, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return SignIn{}, false
	}
	return *c.current, true
}

func (c *Client) signIn(ctx context.Context, do func() (*SignIn, error)) (*User, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	result, err := do()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	previous := c.current
	c.mu.Unlock()
	if previous != nil && previous.Session.ID != result.Session.ID {
		// Replacing an identity closes the old session; failure leaves it to expire.
		if err := c.auth.SignOut(ctx, previous.Session.ID); err != nil {
			c.logger.Warn("failed to close replaced session", "session_id", previous.Session.ID, "error", err)
		}
	}

	c.set(result)
	user := result.User
	return &user, nil
}

func (c *Client) set(next *SignIn) {
	c.mu.Lock()
	c.current = next
	user := c.userLocked()
	listeners := make([]func(*User), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		if user == nil {
			fn(nil)
			continue
		}
		copied := *user
		fn(&copied)
	}
}

func (c *Client) userLocked() *User {
	if c.current == nil {
		return nil
	}
	user := c.current.User
	return &user
}
