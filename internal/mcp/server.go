package mcp

import (
	"context"
	"log/slog"

	"github.com/rpggio/aerial/internal/domain/activity"
	"github.com/rpggio/aerial/internal/domain/identity"
	"github.com/rpggio/aerial/internal/domain/project"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ProjectService defines project operations needed by MCP.
type ProjectService interface {
	List(ctx context.Context, appID, uid string) ([]project.Project, error)
	Get(ctx context.Context, appID, uid, id string) (*project.Project, error)
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	Recent(ctx context.Context, opts activity.ListOptions) ([]activity.Entry, error)
}

// SessionResolver maps a bearer session token to its sign-in.
type SessionResolver interface {
	Resolve(ctx context.Context, sessionToken string) (*identity.SignIn, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Projects ProjectService
	Activity ActivityService
}

// Config contains server configuration.
type Config struct {
	Services Services
	AppID    string
	Resolver SessionResolver
	// AuthEnabled requires a bearer session token. When false every call runs
	// as DefaultUID.
	AuthEnabled bool
	DefaultUID  string
	Logger      *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "aerial",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	identify := noAuthMiddleware(cfg.DefaultUID)
	if cfg.AuthEnabled {
		identify = authMiddleware(cfg.Resolver)
	}
	// The first middleware is outermost, so traffic logs carry the viewer.
	server.AddReceivingMiddleware(identify, trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, cfg.Services, cfg.AppID)

	return server
}
