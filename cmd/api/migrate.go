package main

import (
	"github.com/akolanti/ResearchAPI/internal/config"
	"github.com/akolanti/ResearchAPI/internal/data/postgres"
	"github.com/akolanti/ResearchAPI/pkg/logger_i"
	"github.com/spf13/cobra"
)

func migrateCMD(cfgPath *string) *cobra.Command {
	var direction string
	var steps int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded Postgres migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			logger_i.Init(settings.Prod, settings.LogLevel)
			logger := logger_i.NewLogger("migrate")

			if err = postgres.Migrate(settings.PostgresDSN, direction, steps); err != nil {
				logger.Error("Migration failed", "direction", direction, "error", err)
				return err
			}
			logger.Info("Migrations applied", "direction", direction, "steps", steps)
			return nil
		},
	}
	cmd.Flags().StringVar(&direction, "direction", "up", "up or down")
	cmd.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")
	return cmd
}
