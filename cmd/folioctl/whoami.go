// Copyright (c) 2026 Folio. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/taibuivan/folio/internal/web/probe"
)

// sessionTokenEnv supplies the token when --token is not given.
const sessionTokenEnv = "FOLIO_SESSION_TOKEN"

// errNotAuthenticated makes whoami exit non-zero for a dead session.
var errNotAuthenticated = errors.New("not authenticated")

func whoamiCmd() *cobra.Command {
	var (
		baseURL string
		token   string
	)

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Check a session token against a running server",
		Long: `Ask GET /api/auth/session whether a session token is live.

Any failure, including an unreachable server, counts as not authenticated.

Examples:
  folioctl whoami --url https://folio.example --token "$TOKEN"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				token = os.Getenv(sessionTokenEnv)
			}

			out := cmd.OutOrStdout()
			result, err := probe.New(baseURL).Check(cmd.Context(), token)
			if err != nil {
				warn(out, "Session check failed: %v", err)
				return errNotAuthenticated
			}
			if !result.Authenticated {
				warn(out, "Not authenticated")
				return errNotAuthenticated
			}

			success(out, "Authenticated as %q (id %d)", result.User.Username, result.User.UserID)
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the API server")
	cmd.Flags().StringVar(&token, "token", "", "Session token (default $"+sessionTokenEnv+")")

	return cmd
}
