// Command portalctl administers a portal database: it mints custom sign-in
// tokens, seeds the demo project and prints activity.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rpggio/aerial/internal/config"
	"github.com/rpggio/aerial/internal/docstore"
	"github.com/rpggio/aerial/internal/domain/activity"
	"github.com/rpggio/aerial/internal/domain/identity"
	"github.com/rpggio/aerial/internal/domain/project"
	"github.com/rpggio/aerial/internal/logging"
	"github.com/rpggio/aerial/internal/sqlite"
)

var Cmd = &cobra.Command{
	Use:          "portalctl",
	Long:         "Administer the aerial client portal. Settings are read the same way the server reads them.",
	SilenceUsage: true,
}

var mintTokenCmd = &cobra.Command{
	Use:   "mint-token",
	Short: "Mint a custom sign-in token for a user",
	RunE:  runMintToken,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write the demo project into a user's collection",
	RunE:  runSeed,
}

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Print a user's recent activity, newest first",
	RunE:  runActivity,
}

var args struct {
	debug bool
	uid   string
	ttl   time.Duration
	limit int
}

func init() {
	Cmd.PersistentFlags().BoolVar(&args.debug, "debug", false, "log at debug level")

	mintTokenCmd.Flags().StringVar(&args.uid, "uid", "", "user id the token signs in as")
	mintTokenCmd.Flags().DurationVar(&args.ttl, "ttl", time.Hour, "token lifetime")
	_ = mintTokenCmd.MarkFlagRequired("uid")

	seedCmd.Flags().StringVar(&args.uid, "uid", "", "user id to seed")
	_ = seedCmd.MarkFlagRequired("uid")

	activityCmd.Flags().StringVar(&args.uid, "uid", "", "user id to list")
	activityCmd.Flags().IntVar(&args.limit, "limit", activity.DefaultLimit, "maximum entries")
	_ = activityCmd.MarkFlagRequired("uid")

	Cmd.AddCommand(mintTokenCmd, seedCmd, activityCmd)
}

func main() {
	if err := Cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// env is what every subcommand needs.
type env struct {
	cfg    config.Config
	logger *slog.Logger
	db     *sqlite.DB
}

func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}
	level := cfg.Log.Level
	if args.debug {
		level = "debug"
	}
	logger, _, err := logging.New(cmd.ErrOrStderr(), level, "")
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func openEnv(cmd *cobra.Command) (*env, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &env{cfg: cfg, logger: logger, db: db}, nil
}

func runMintToken(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc := identity.NewService(nil, nil, identity.TokenConfig{
		Issuer: cfg.Identity.Issuer,
		Key:    []byte(cfg.Identity.APIKey),
	}, nil, logger)

	token, err := svc.MintCustomToken(args.uid, args.ttl)
	if err != nil {
		return fmt.Errorf("mint token: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
}

func runSeed(cmd *cobra.Command, _ []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.db.Close()

	store := docstore.New(sqlite.NewDocumentRepository(e.db), e.logger)
	defer store.Close()
	projects := project.NewService(store, activity.NewService(sqlite.NewActivityRepository(e.db), e.logger), e.logger)

	p, err := projects.Seed(context.Background(), e.cfg.App.ID, args.uid)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	path, _ := project.CollectionPath(e.cfg.App.ID, args.uid)
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "seeded %s/%s\n", path, p.ID)
	return err
}

func runActivity(cmd *cobra.Command, _ []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.db.Close()

	svc := activity.NewService(sqlite.NewActivityRepository(e.db), e.logger)
	entries, err := svc.Recent(context.Background(), activity.ListOptions{UID: args.uid, Limit: args.limit})
	if err != nil {
		return fmt.Errorf("list activity: %w", err)
	}
	return printActivity(cmd.OutOrStdout(), entries)
}

func printActivity(w io.Writer, entries []activity.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "no activity")
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%s  %-18s %s\n", e.CreatedAt.UTC().Format(time.RFC3339), e.Type, e.Summary); err != nil {
			return err
		}
	}
	return nil
}
