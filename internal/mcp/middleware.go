package mcp

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type contextKey int

const (
	uidKey contextKey = iota
	sessionIDKey
)

// getUID extracts the caller's uid from context.
func getUID(ctx context.Context) string {
	v, _ := ctx.Value(uidKey).(string)
	return v
}

// getSessionID extracts the caller's portal session id from context.
func getSessionID(ctx context.Context) string {
	v, _ := ctx.Value(sessionIDKey).(string)
	return v
}

// authMiddleware resolves the bearer session token on every non-protocol call.
func authMiddleware(resolver SessionResolver) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if method == "initialize" || method == "ping" || strings.HasPrefix(method, "notifications/") {
				return next(ctx, method, req)
			}

			extra := req.GetExtra()
			if extra == nil || extra.Header == nil {
				return nil, fmt.Errorf("unauthorized: missing headers")
			}

			auth := extra.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" {
				return nil, fmt.Errorf("unauthorized: missing bearer token")
			}

			signIn, err := resolver.Resolve(ctx, token)
			if err != nil {
				return nil, fmt.Errorf("unauthorized: %w", err)
			}

			ctx = context.WithValue(ctx, uidKey, signIn.User.UID)
			ctx = context.WithValue(ctx, sessionIDKey, signIn.Session.ID)
			return next(ctx, method, req)
		}
	}
}

// noAuthMiddleware runs every call as a fixed uid.
func noAuthMiddleware(defaultUID string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			ctx = context.WithValue(ctx, uidKey, defaultUID)
			return next(ctx, method, req)
		}
	}
}
