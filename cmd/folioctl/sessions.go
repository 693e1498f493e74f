// Copyright (c) 2026 Folio. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"github.com/spf13/cobra"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Maintain login sessions",
	}

	cmd.AddCommand(sessionsSweepCmd())

	return cmd
}

func sessionsSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired sessions now",
		Long: `Delete every session row whose expiry has passed.

Expired rows are already ignored by lookups; sweeping reclaims storage.
The API server does the same on SESSION_SWEEP_INTERVAL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			service, err := env.authService()
			if err != nil {
				return err
			}

			deleted, err := service.SweepExpiredSessions(cmd.Context())
			if err != nil {
				return err
			}

			success(cmd.OutOrStdout(), "Deleted %d expired session(s)", deleted)
			return nil
		},
	}
}
