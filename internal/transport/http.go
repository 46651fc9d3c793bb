package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rpggio/aerial/internal/domain/activity"
	"github.com/rpggio/aerial/internal/domain/identity"
	"github.com/rpggio/aerial/internal/domain/portal"
	"github.com/rpggio/aerial/internal/domain/project"
)

const (
	defaultSettleTimeout = 5 * time.Second
	defaultKeepAlive     = 15 * time.Second
)

// SignInService issues new sessions for API clients.
type SignInService interface {
	SignInAnonymous(ctx context.Context) (*identity.SignIn, error)
	SignInWithToken(ctx context.Context, customToken string) (*identity.SignIn, error)
}

// ProjectService defines the project reads served by the JSON API.
type ProjectService interface {
	List(ctx context.Context, appID, uid string) ([]project.Project, error)
	Get(ctx context.Context, appID, uid, id string) (*project.Project, error)
}

// ActivityService defines the activity reads served by the JSON API.
type ActivityService interface {
	Recent(ctx context.Context, opts activity.ListOptions) ([]activity.Entry, error)
}

// Options wires the HTTP server.
type Options struct {
	Registry  *portal.Registry
	Resolver  SessionResolver
	SignIn    SignInService
	Projects  ProjectService
	Activity  ActivityService
	AppID     string
	ProjectID string
	// MCP is mounted at /mcp when set.
	MCP           http.Handler
	SessionTTL    time.Duration
	SettleTimeout time.Duration
	KeepAlive     time.Duration
	Logger        *slog.Logger
}

// Server wires HTTP handlers.
type Server struct {
	registry  *portal.Registry
	resolver  SessionResolver
	signIn    SignInService
	projects  ProjectService
	activity  ActivityService
	appID     string
	projectID string

	sessionTTL    time.Duration
	settleTimeout time.Duration
	keepAlive     time.Duration
	logger        *slog.Logger
	pages         *pages
}

// NewServer creates an HTTP server router with middleware.
func NewServer(opts Options) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	srv := &Server{
		registry:      opts.Registry,
		resolver:      opts.Resolver,
		signIn:        opts.SignIn,
		projects:      opts.Projects,
		activity:      opts.Activity,
		appID:         opts.AppID,
		projectID:     opts.ProjectID,
		sessionTTL:    opts.SessionTTL,
		settleTimeout: opts.SettleTimeout,
		keepAlive:     opts.KeepAlive,
		logger:        logger,
		pages:         mustLoadPages(),
	}
	if srv.sessionTTL <= 0 {
		srv.sessionTTL = identity.DefaultSessionTTL
	}
	if srv.settleTimeout <= 0 {
		srv.settleTimeout = defaultSettleTimeout
	}
	if srv.keepAlive <= 0 {
		srv.keepAlive = defaultKeepAlive
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", srv.handleHealth)

	r.Get("/", srv.handleDashboard)
	r.Post("/select", srv.handleSelect)
	r.Post("/signout", srv.handleSignOut)
	r.Post("/signin", srv.handleSignIn)

	r.Post("/api/session", srv.handleCreateSession)
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(opts.Resolver))
		r.Get("/api/dashboard", srv.handleAPIDashboard)
		r.Get("/api/projects", srv.handleListProjects)
		r.Get("/api/projects/{id}", srv.handleGetProject)
		r.Get("/api/activity", srv.handleActivity)
		r.Get("/api/events", srv.handleEvents)
	})

	if opts.MCP != nil {
		r.Handle("/mcp", opts.MCP)
		r.Handle("/mcp/*", opts.MCP)
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"project_id": s.projectID,
		"portals":    s.registry.Len(),
	})
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, project.ErrProjectNotFound), errors.Is(err, portal.ErrUnknownProject):
		return http.StatusNotFound
	case errors.Is(err, identity.ErrSessionNotFound), errors.Is(err, identity.ErrAuthenticationFailed),
		errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, project.ErrInvalidInput), errors.Is(err, activity.ErrInvalidInput),
		errors.Is(err, portal.ErrUnknownTab):
		return http.StatusBadRequest
	case errors.Is(err, portal.ErrPortalFailed):
		return http.StatusConflict
	case errors.Is(err, portal.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
