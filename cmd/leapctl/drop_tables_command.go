package main

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/lib/pq"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/leap-learning/leap-server/internal/bootstrap"
)

func newDropTablesCommand(ctx *commandContext) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "drop-tables",
		Short: "Drop every LEAP table. All data is permanently deleted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return errors.New("refusing to drop tables without --yes")
			}
			db, err := ctx.database(cmd.Context())
			if err != nil {
				return err
			}
			statements, err := dropStatements(db)
			if err != nil {
				return err
			}

			dropped := 0
			for _, stmt := range statements {
				if err := db.WithContext(cmd.Context()).Exec(stmt).Error; err != nil {
					ctx.logger.Warn("failed to drop table", slog.String("statement", stmt), slog.String("error", err.Error()))
					continue
				}
				dropped++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dropped %d of %d tables\n", dropped, len(statements))
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirmed, "yes", false, "Confirm that all data should be deleted")
	return cmd
}

// dropStatements lists DROP statements in reverse dependency order.
func dropStatements(db *gorm.DB) ([]string, error) {
	tables, err := bootstrap.Tables(db)
	if err != nil {
		return nil, err
	}
	slices.Reverse(tables)

	statements := make([]string, 0, len(tables))
	for _, table := range tables {
		statements = append(statements, "DROP TABLE IF EXISTS "+pq.QuoteIdentifier(table)+" CASCADE")
	}
	return statements, nil
}
