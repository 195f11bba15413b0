package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/issue-tracker/internal/app"
	"github.com/spec-kit/issue-tracker/internal/config"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage user accounts",
}

var activateCmd = &cobra.Command{
	Use:   "activate <email>",
	Short: "Mark an account ACTIVE so it can log in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Storage.Driver != config.DriverPostgres {
			return fmt.Errorf("users activate needs STORAGE_DRIVER=%s; the %s store lives inside the server process",
				config.DriverPostgres, cfg.Storage.Driver)
		}
		a, err := app.Open(cmd.Context(), *cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		user, err := a.Auth.ActivateUser(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user %s (%s) is %s\n", user.Email, user.ID, user.Status)
		return nil
	},
}

func init() {
	usersCmd.AddCommand(activateCmd)
}
