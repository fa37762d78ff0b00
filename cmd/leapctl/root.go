package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var envFile string

	ctx := newCommandContext(&envFile)

	rootCmd := &cobra.Command{
		Use:           "leapctl",
		Short:         "LEAP maintenance CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment variables from this file first")

	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newDropTablesCommand(ctx))
	rootCmd.AddCommand(newCertificatesCommand(ctx))
	rootCmd.AddCommand(newRenderCommand())

	return rootCmd
}
