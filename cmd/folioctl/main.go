// Copyright (c) 2026 Folio. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command folioctl is the operator CLI for a Folio deployment.
//
// It shares configuration with the API server (the same environment
// variables) and talks to PostgreSQL directly, so it can bootstrap the first
// admin account before any HTTP session exists.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/taibuivan/folio/internal/platform/config"
	"github.com/taibuivan/folio/internal/platform/constants"
	pgstore "github.com/taibuivan/folio/internal/platform/postgres"
	"github.com/taibuivan/folio/internal/platform/sec"
	"github.com/taibuivan/folio/internal/users/auth"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "folioctl",
		Short: "Operate a Folio deployment",
		Long: `folioctl manages the Folio admin backend.

It reads the same environment as the API server (DATABASE_URL or
POSTGRES_*, SESSION_SECRET, BCRYPT_COST, ...).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(newLogger(cmd.ErrOrStderr(), level))
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log progress to stderr")

	rootCmd.AddCommand(
		migrateCmd(),
		usersCmd(),
		sessionsCmd(),
		whoamiCmd(),
		versionCmd(),
	)

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", constants.AppName, constants.AppVersion)
		},
	}
}

func newLogger(writer io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(writer, &slog.HandlerOptions{Level: level}))
}

// # Shared wiring

// environment is what database-backed commands need.
type environment struct {
	cfg  *config.Config
	pool *pgxpool.Pool
}

func (env *environment) Close() {
	env.pool.Close()
}

func openEnvironment(ctx context.Context) (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	pool, err := pgstore.NewPool(ctx, cfg.DSN(), slog.Default())
	if err != nil {
		return nil, err
	}

	return &environment{cfg: cfg, pool: pool}, nil
}

// authService builds the same service the API server uses, minus throttling.
func (env *environment) authService() (*auth.Service, error) {
	codec, err := sec.NewSessionCodec([]byte(env.cfg.SessionSecret), constants.AuthIssuer, auth.SessionTTL)
	if err != nil {
		return nil, err
	}

	return auth.NewService(
		auth.NewUserRepository(env.pool),
		auth.NewSessionRepository(env.pool),
		sec.NewPasswordHasher(env.cfg.BcryptCost),
		codec,
	), nil
}

// # Output helpers

func success(writer io.Writer, format string, args ...any) {
	fmt.Fprintf(writer, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

func info(writer io.Writer, format string, args ...any) {
	fmt.Fprintf(writer, "  %s\n", fmt.Sprintf(format, args...))
}

func warn(writer io.Writer, format string, args ...any) {
	fmt.Fprintf(writer, "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
