package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"userAuthService/internal/config"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dev bool
	root := &cobra.Command{
		Use:           "userauthd",
		Short:         "User account and token service",
		Long:          `Registers users, issues JWTs and serves the account API over HTTP and gRPC.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&dev, "dev", false, "fall back to a development JWT secret when JWT_SECRET is unset")

	loadConfig := func() (*config.Config, error) {
		if dev {
			return config.LoadWithDefaults()
		}
		return config.Load()
	}

	root.AddCommand(newServeCmd(loadConfig))

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Schema migrations",
	}
	migrateCmd.AddCommand(newMigrateUpCmd(loadConfig), newMigrateRollbackCmd(loadConfig))
	root.AddCommand(migrateCmd)

	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "User administration",
	}
	usersCmd.AddCommand(newUsersListCmd(loadConfig))
	root.AddCommand(usersCmd)

	return root
}
