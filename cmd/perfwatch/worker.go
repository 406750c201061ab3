package main

import (
	"github.com/spf13/cobra"
)

func newWorkerCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the collection workers only",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *envFile)
			if err != nil {
				return err
			}
			defer a.Close()

			stop := a.startWorkers(ctx)
			<-ctx.Done()
			a.logger.Info("Stopping workers...")
			stop()
			return nil
		},
	}
}
