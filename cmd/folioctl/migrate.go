// Copyright (c) 2026 Folio. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/taibuivan/folio/internal/platform/config"
	"github.com/taibuivan/folio/internal/platform/migration"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long: `Apply, roll back or inspect the embedded schema migrations.

Examples:
  folioctl migrate up          # Apply all pending migrations
  folioctl migrate down -n 1   # Roll back the latest migration
  folioctl migrate status      # Print the applied version`,
	}

	cmd.AddCommand(migrateUpCmd(), migrateDownCmd(), migrateStatusCmd())

	return cmd
}

func migrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if err := migration.RunUp(cfg.DSN(), slog.Default()); err != nil {
				return err
			}

			success(cmd.OutOrStdout(), "Schema is up to date")
			return nil
		},
	}
}

func migrateDownCmd() *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if err := migration.RunDown(cfg.DSN(), steps, slog.Default()); err != nil {
				return err
			}

			success(cmd.OutOrStdout(), "Rolled back %d migration(s)", steps)
			return nil
		},
	}

	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to roll back")

	return cmd
}

func migrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			status, err := migration.CurrentStatus(cfg.DSN(), slog.Default())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			info(out, "Version: %d", status.Version)
			if status.Dirty {
				warn(out, "Database is dirty; a migration failed half-way and needs manual repair")
			}
			return nil
		},
	}
}
