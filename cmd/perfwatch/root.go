package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:          "perfwatch",
		Short:        "Collects page performance metrics on a schedule and serves them over HTTP",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			cobra.OnFinalize(stop)
			cmd.SetContext(ctx)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env", "", "path to an env file (default .env)")

	root.AddCommand(
		newServeCmd(&envFile),
		newWorkerCmd(&envFile),
		newDispatchCmd(&envFile),
		newMigrateCmd(&envFile),
	)
	root.SetContext(context.Background())
	return root
}
