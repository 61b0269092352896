package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/oneaccess/internal"
	"github.com/frahmantamala/oneaccess/internal/timetracking"
	"github.com/frahmantamala/oneaccess/pkg/logger"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Run maintenance workers against the configured sql storage, outside the HTTP server process`,
}

var pruneWorkerCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete completed time sessions older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		return startPruneWorker(cmd)
	},
}

var (
	pruneRetention time.Duration
	pruneOnce      bool
)

func startPruneWorker(cmd *cobra.Command) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	setupLogger(cfg)
	lg := logger.LoggerWrapper()

	if cfg.Storage.Driver == internal.StorageMemory {
		return fmt.Errorf("the prune worker needs a sql storage driver; in-memory sessions are pruned by the server")
	}

	retention := cfg.TimeTracking.Retention
	if pruneRetention > 0 {
		retention = pruneRetention
	}
	if retention <= 0 {
		return fmt.Errorf("retention must be positive; set timetracking.retention or --retention")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, err := openRepositories(ctx, cfg.Storage, lg)
	if err != nil {
		return err
	}
	defer repos.Close()

	svc := timetracking.NewService(repos.sessions, lg)
	pruner := timetracking.NewPruner(svc, retention, cfg.TimeTracking.PruneInterval, lg)

	if pruneOnce {
		cmd.Printf("deleted %d completed sessions\n", pruner.PruneOnce(ctx))
		return nil
	}

	lg.Info("starting prune worker", "retention", retention, "interval", cfg.TimeTracking.PruneInterval)
	return pruner.Run(ctx)
}

func init() {
	pruneWorkerCmd.Flags().DurationVar(&pruneRetention, "retention", 0, "override timetracking.retention")
	pruneWorkerCmd.Flags().BoolVar(&pruneOnce, "once", false, "prune once and exit")

	workerCmd.AddCommand(pruneWorkerCmd)
	rootCmd.AddCommand(workerCmd)
}
