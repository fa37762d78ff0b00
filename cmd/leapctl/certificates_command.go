package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leap-learning/leap-server/internal/bootstrap"
	"github.com/leap-learning/leap-server/internal/features/certificate"
	"github.com/leap-learning/leap-server/pkg/socketio"
)

func newCertificatesCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "certificates",
		Short: "Manage issued certificates",
	}
	cmd.AddCommand(newResendFailedCommand(ctx))
	return cmd
}

func newResendFailedCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "resend-failed",
		Short: "Retry delivery of certificates whose email failed",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := ctx.database(cmd.Context())
			if err != nil {
				return err
			}
			cfg, log := ctx.config, ctx.logger

			mailer, err := bootstrap.NewMailer(cfg.Email, log)
			if err != nil {
				return err
			}
			if mailer == nil {
				return fmt.Errorf("no email provider configured")
			}

			service := certificate.NewService(db, mailer, socketio.Nop{}, cfg.Certificate.Issuer, log)
			sent, err := service.RedeliverFailed(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Redelivered %d certificates\n", sent)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of certificates to retry")
	return cmd
}
