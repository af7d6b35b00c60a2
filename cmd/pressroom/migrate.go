package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pressroom/pressroom/internal/app"
	"github.com/pressroom/pressroom/migrations"
)

var migrateDownSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig()
		if err != nil {
			return err
		}
		if migrateDownSteps > 0 {
			if err := migrations.Down(cfg.PGDSN, migrateDownSteps); err != nil {
				return err
			}
			slog.Info("migrations rolled back", slog.Int("steps", migrateDownSteps))
			return nil
		}
		if err := migrations.Up(cfg.PGDSN); err != nil {
			return err
		}
		version, dirty, err := migrations.Version(cfg.PGDSN)
		if err != nil {
			return err
		}
		slog.Info("migrations applied", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
		return nil
	},
}

func init() {
	migrateCmd.Flags().IntVar(&migrateDownSteps, "down", 0, "roll back this many migrations instead of applying")
}
