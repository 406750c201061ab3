package main

import (
	"github.com/spf13/cobra"
	"github.com/user/perfwatch/internal/adapter/postgres"
)

func newMigrateCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or revert the database schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(_ *cobra.Command, args []string) error {
			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}
			cfg, log, err := loadConfig(*envFile)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return postgres.Migrate(cfg.PostgresURL("pgx5"), direction, log)
		},
	}
}
