package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/oneaccess/api"
	"github.com/frahmantamala/oneaccess/internal/transport/rest"
	"github.com/frahmantamala/oneaccess/pkg/logger"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server for the app, visitor and gate reader APIs`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := startHTTPServer(); err != nil {
			fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func startHTTPServer() error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	setupLogger(cfg)
	lg := logger.LoggerWrapper()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := api.Load(ctx); err != nil {
		return err
	}

	app, err := newApplication(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer app.Close()

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.NewHealthHandler(app.healthChecks()), app.handlers(), rest.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         lg,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		lg.Info("Starting HTTP server", "address", addr, "key_id", app.keys.KeyID())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return app.pruner.Run(gctx)
	})

	if app.notifier != nil {
		app.notifier.Start()
	}

	g.Go(func() error {
		<-gctx.Done()
		lg.Info("Shutting down...")
		return shutdown(server, app, lg)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	lg.Info("Server stopped")
	return nil
}

func shutdown(server *http.Server, app *application, lg *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	serverErr := server.Shutdown(ctx)
	if serverErr != nil {
		lg.Error("Server shutdown error", "error", serverErr)
	}
	// Let in-flight events reach their subscribers, then the webhook.
	if err := app.bus.Drain(ctx); err != nil {
		lg.Warn("event bus drain incomplete", "error", err)
	}
	if app.notifier != nil {
		if err := app.notifier.Flush(ctx); err != nil {
			lg.Warn("webhook deliveries still pending", "error", err)
		}
		app.notifier.Shutdown()
	}
	return serverErr
}
