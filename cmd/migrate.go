package cmd

import (
	"context"
	"fmt"

	"github.com/frahmantamala/oneaccess/internal"
	"github.com/frahmantamala/oneaccess/internal/db"
	"github.com/frahmantamala/oneaccess/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "to run the embedded sql migrations against the configured storage",
	}
	migrateRollback bool
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "to rollback the latest version of sql migration")
}

func runMigration(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	setupLogger(cfg)

	if cfg.Storage.Driver == internal.StorageMemory {
		return fmt.Errorf("storage driver %q has no schema to migrate", cfg.Storage.Driver)
	}

	handle, err := db.Open(cfg.Storage, logger.LoggerWrapper())
	if err != nil {
		return err
	}
	defer handle.Close()

	if migrateRollback {
		err = handle.Rollback(ctx)
	} else {
		err = handle.Migrate(ctx)
	}
	if err != nil {
		return err
	}

	version, err := handle.Version(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("schema version %d\n", version)
	return nil
}
