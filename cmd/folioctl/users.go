// Copyright (c) 2026 Folio. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/taibuivan/folio/internal/users/auth"
)

// adminPasswordEnv supplies the password when --password is not given.
const adminPasswordEnv = "FOLIO_ADMIN_PASSWORD"

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage admin accounts",
	}

	cmd.AddCommand(usersCreateCmd())

	return cmd
}

func usersCreateCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Create an admin account",
		Long: `Create an admin account without an HTTP session.

This is how the first admin is bootstrapped. The password comes from
--password or the FOLIO_ADMIN_PASSWORD environment variable. An existing
username is reported and left untouched.

Examples:
  FOLIO_ADMIN_PASSWORD=... folioctl users create admin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := resolvePassword(password, os.Getenv(adminPasswordEnv))
			if err != nil {
				return err
			}

			env, err := openEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			service, err := env.authService()
			if err != nil {
				return err
			}

			return createAdmin(cmd.Context(), service, args[0], resolved, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "Password for the new account (default $"+adminPasswordEnv+")")

	return cmd
}

func resolvePassword(flagValue, envValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if envValue != "" {
		return envValue, nil
	}
	return "", fmt.Errorf("no password given: use --password or set %s", adminPasswordEnv)
}

// userCreator is the slice of [auth.Service] the command needs.
type userCreator interface {
	CreateUser(ctx context.Context, input auth.Credentials) (*auth.User, error)
}

func createAdmin(ctx context.Context, creator userCreator, username, password string, out io.Writer) error {
	user, err := creator.CreateUser(ctx, auth.Credentials{Username: username, Password: password})
	if errors.Is(err, auth.ErrUsernameTaken) {
		warn(out, "User %q already exists; nothing changed", username)
		return nil
	}
	if err != nil {
		return err
	}

	success(out, "Created admin %q (id %d)", user.Username, user.ID)
	return nil
}
