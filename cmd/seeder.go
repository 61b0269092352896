package cmd

import (
	"context"
	"fmt"

	"github.com/frahmantamala/oneaccess/internal"
	"github.com/frahmantamala/oneaccess/internal/directory"
	"github.com/frahmantamala/oneaccess/pkg/logger"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with the demo directory",
	Long:  `Seed the demo users, gates and configured revoked devices for development and testing purposes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		setupLogger(cfg)
		lg := logger.LoggerWrapper()

		if cfg.Storage.Driver == internal.StorageMemory {
			return fmt.Errorf("seeding needs a sql storage driver; the memory driver seeds itself at startup")
		}

		repos, err := openRepositories(ctx, cfg.Storage, lg)
		if err != nil {
			return err
		}
		defer repos.Close()

		svc := directory.NewService(repos.directory, lg)
		if err := svc.SeedDemo(ctx); err != nil {
			return fmt.Errorf("failed to seed directory: %w", err)
		}
		if err := svc.SeedRevokedDevices(ctx, cfg.Access.RevokedDevices); err != nil {
			return fmt.Errorf("failed to seed revoked devices: %w", err)
		}

		gates, err := svc.Gates(ctx)
		if err != nil {
			return err
		}
		for _, g := range gates {
			cmd.Printf("gate %-12s %-8s %s\n", g.ID, g.Kind, g.CompanyID)
		}
		cmd.Printf("seeded %d gates and %d revoked devices\n", len(gates), len(cfg.Access.RevokedDevices))
		return nil
	},
}
