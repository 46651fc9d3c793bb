package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/rpggio/aerial/internal/config"
	"github.com/rpggio/aerial/internal/docstore"
	"github.com/rpggio/aerial/internal/domain/activity"
	"github.com/rpggio/aerial/internal/domain/identity"
	"github.com/rpggio/aerial/internal/domain/portal"
	"github.com/rpggio/aerial/internal/domain/project"
	"github.com/rpggio/aerial/internal/logging"
	"github.com/rpggio/aerial/internal/mcp"
	"github.com/rpggio/aerial/internal/sqlite"
	"github.com/rpggio/aerial/internal/telemetry"
	"github.com/rpggio/aerial/internal/transport"
)

const (
	serviceName     = "aerial"
	shutdownTimeout = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "aerial: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	logger, closeLog, err := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Path)
	if err != nil {
		return fmt.Errorf("log file error: %w", err)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))

	if err := cfg.Validate(); err != nil {
		if !errors.Is(err, config.ErrConfigurationMissing) {
			return err
		}
		// Every route reports the error until restart.
		logger.Error("configuration missing, serving error page", "error", err)
		return serve(ctx, logger, addr, transport.NewConfigErrorServer(err, logger), nil, 0)
	}

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName: serviceName,
		Namespace:   cfg.App.ProjectID,
		Endpoint:    cfg.Otel.Endpoint,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("trace shutdown failed", "error", err)
		}
	}()

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return fmt.Errorf("prepare database path: %w", err)
	}
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.RunMigrations(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	activitySvc := activity.NewService(sqlite.NewActivityRepository(db), logger)
	store := docstore.New(sqlite.NewDocumentRepository(db), logger)
	defer store.Close()
	projectSvc := project.NewService(store, activitySvc, logger)
	identitySvc := identity.NewService(
		sqlite.NewUserRepository(db),
		sqlite.NewSessionRepository(db),
		identity.TokenConfig{
			Issuer:     cfg.Identity.Issuer,
			Key:        []byte(cfg.Identity.APIKey),
			SessionTTL: cfg.Identity.SessionTTL,
		},
		activitySvc,
		logger,
	)

	portalCfg := portal.Config{AppID: cfg.App.ID, SeedEnabled: cfg.Seed.Enabled}
	registry := portal.NewRegistry(func() *portal.Portal {
		return portal.New(portalCfg, identity.NewClient(identitySvc, logger), projectSvc, logger)
	}, portal.RegistryConfig{
		IdleTTL:    cfg.Portal.IdleTTL,
		MaxPortals: cfg.Portal.MaxPortals,
	}, logger)

	mcpServer := mcp.NewServer(mcp.Config{
		Services:    mcp.Services{Projects: projectSvc, Activity: activitySvc},
		AppID:       cfg.App.ID,
		Resolver:    identitySvc,
		AuthEnabled: true,
		Logger:      logger,
	})
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: 30 * time.Minute},
	)

	router := transport.NewServer(transport.Options{
		Registry:   registry,
		Resolver:   identitySvc,
		SignIn:     identitySvc,
		Projects:   projectSvc,
		Activity:   activitySvc,
		AppID:      cfg.App.ID,
		ProjectID:  cfg.App.ProjectID,
		MCP:        mcpHandler,
		SessionTTL: cfg.Identity.SessionTTL,
		Logger:     logger,
	})

	logger.Info("portal ready", "app_id", cfg.App.ID, "project_id", cfg.App.ProjectID, "seed", cfg.Seed.Enabled)
	return serve(ctx, logger, addr, router, registry, cfg.Portal.SweepInterval)
}

// serve runs the HTTP server, and the portal sweeper when portals is set, until
// ctx ends, then shuts the server down gracefully.
func serve(ctx context.Context, logger *slog.Logger, addr string, handler http.Handler, portals *portal.Registry, sweepEvery time.Duration) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	if portals != nil {
		g.Go(func() error {
			return portals.Run(gctx, sweepEvery)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		// Closing portals ends their event streams so Shutdown is not held open.
		if portals != nil {
			portals.CloseAll()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
