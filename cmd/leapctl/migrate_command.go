package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leap-learning/leap-server/internal/bootstrap"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and run data migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := ctx.database(cmd.Context())
			if err != nil {
				return err
			}
			if err := bootstrap.Migrate(cmd.Context(), db, ctx.logger); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database schema is up to date")
			return nil
		},
	}
}
