package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"gopherai-chat/internal/bootstrap"
	"gopherai-chat/internal/repository"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := bootstrap.OpenDatabase(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		if err := repository.Migrate(cmd.Context(), db); err != nil {
			return fmt.Errorf("migrate failed: %w", err)
		}
		slog.Info("schema migrated", "driver", cfg.Database.Driver)
		return nil
	},
}
