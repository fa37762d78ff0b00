package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/leap-learning/leap-server/pkg/markup"
)

func newRenderCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "render [file]",
		Short: "Render lesson markup to HTML. Reads stdin when no file is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var src []byte
			var err error
			if len(args) == 0 || args[0] == "-" {
				src, err = io.ReadAll(cmd.InOrStdin())
			} else {
				src, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read markup: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), markup.Render(string(src)))
			return err
		},
	}
}
