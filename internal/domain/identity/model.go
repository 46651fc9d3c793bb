package identity

import "time"

// Method records how a session was established.
type Method string

const (
	MethodAnonymous Method = "anonymous"
	MethodToken     Method = "token"
)

// User is an authenticated viewer.
type User struct {
	UID          string    `json:"uid"`
	Anonymous    bool      `json:"anonymous"`
	CreatedAt    time.Time `json:"created_at"`
	LastSignInAt time.Time `json:"last_sign_in_at"`
}

// ShortID returns the abbreviated uid shown in the portal sidebar.
func (u User) ShortID() string {
	if len(u.UID) <= 6 {
		return u.UID
	}
	return u.UID[:6]
}

// Session is one sign-in of a user.
type Session struct {
	ID        string     `json:"id"`
	UID       string     `json:"uid"`
	Method    Method     `json:"method"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// Open reports whether the session can still be used at the given time.
func (s Session) Open(now time.Time) bool {
	return s.ClosedAt == nil && now.Before(s.ExpiresAt)
}

// SignIn is the outcome of a successful sign-in.
type SignIn struct {
	User    User    `json:"user"`
	Session Session `json:"session"`
	Token   string  `json:"token"`
}
