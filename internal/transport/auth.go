package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rpggio/aerial/internal/domain/identity"
)

// SessionCookie carries the viewer's session token for the HTML dashboard.
const SessionCookie = "aerial_session"

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

type viewerKey struct{}

// SessionResolver maps session tokens to sign-ins.
type SessionResolver interface {
	Resolve(ctx context.Context, sessionToken string) (*identity.SignIn, error)
	// SessionID reads the session id from a token without requiring the
	// session to be open.
	SessionID(sessionToken string) (string, error)
}

// ViewerFromContext returns the authenticated viewer, if present.
func ViewerFromContext(ctx context.Context) (*identity.SignIn, bool) {
	in, ok := ctx.Value(viewerKey{}).(*identity.SignIn)
	return in, ok
}

// AuthMiddleware accepts a bearer session token or the session cookie.
func AuthMiddleware(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := requestToken(r)
			if token == "" {
				writeJSONError(w, http.StatusUnauthorized, "missing session token")
				return
			}

			in, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid session token")
				return
			}

			ctx := context.WithValue(r.Context(), viewerKey{}, in)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requestToken prefers the Authorization header over the cookie.
func requestToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return cookieToken(r)
}

func cookieToken(r *http.Request) string {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
