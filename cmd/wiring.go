package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/frahmantamala/oneaccess/internal"
	"github.com/frahmantamala/oneaccess/internal/access"
	"github.com/frahmantamala/oneaccess/internal/audit"
	auditPostgres "github.com/frahmantamala/oneaccess/internal/audit/postgres"
	"github.com/frahmantamala/oneaccess/internal/auth"
	"github.com/frahmantamala/oneaccess/internal/core/events"
	"github.com/frahmantamala/oneaccess/internal/db"
	"github.com/frahmantamala/oneaccess/internal/delegation"
	delegationPostgres "github.com/frahmantamala/oneaccess/internal/delegation/postgres"
	"github.com/frahmantamala/oneaccess/internal/directory"
	directoryPostgres "github.com/frahmantamala/oneaccess/internal/directory/postgres"
	"github.com/frahmantamala/oneaccess/internal/keys"
	"github.com/frahmantamala/oneaccess/internal/notifier"
	"github.com/frahmantamala/oneaccess/internal/replay"
	"github.com/frahmantamala/oneaccess/internal/timetracking"
	timetrackingPostgres "github.com/frahmantamala/oneaccess/internal/timetracking/postgres"
	"github.com/frahmantamala/oneaccess/internal/token"
	"github.com/frahmantamala/oneaccess/internal/transport"
	"github.com/frahmantamala/oneaccess/internal/transport/rest"
	"github.com/frahmantamala/oneaccess/internal/visitor"
	visitorPostgres "github.com/frahmantamala/oneaccess/internal/visitor/postgres"
)

// repositories is one storage backend's set of registries.
type repositories struct {
	handle      *db.Handle
	directory   directory.RepositoryAPI
	delegations delegation.RepositoryAPI
	visitors    visitor.RepositoryAPI
	sessions    timetracking.RepositoryAPI
	audit       audit.Store
}

func openRepositories(ctx context.Context, cfg internal.StorageConfig, logger *slog.Logger) (*repositories, error) {
	if cfg.Driver == internal.StorageMemory {
		logger.Warn("using in-memory storage; state is lost on restart")
		return &repositories{
			directory:   directory.NewMemoryRepository(),
			delegations: delegation.NewMemoryRepository(),
			visitors:    visitor.NewMemoryRepository(),
			sessions:    timetracking.NewMemoryRepository(),
			audit:       audit.NewMemoryStore(),
		}, nil
	}

	handle, err := db.Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := handle.Migrate(ctx); err != nil {
			_ = handle.Close()
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return &repositories{
		handle:      handle,
		directory:   directoryPostgres.NewDirectoryRepository(handle.Gorm),
		delegations: delegationPostgres.NewDelegationRepository(handle.Gorm),
		visitors:    visitorPostgres.NewVisitorRepository(handle.Gorm),
		sessions:    timetrackingPostgres.NewTimeSessionRepository(handle.Gorm),
		audit:       auditPostgres.NewAuditStore(handle.SQL),
	}, nil
}

func (r *repositories) Close() error {
	if r.handle == nil {
		return nil
	}
	return r.handle.Close()
}

// application holds every wired component of the server.
type application struct {
	config *internal.Config
	logger *slog.Logger

	repos       *repositories
	bus         *events.EventBus
	keys        *keys.Manager
	directory   *directory.Service
	sessions    *auth.SessionManager
	delegations *delegation.Service
	visitors    *visitor.Service
	timeTracker *timetracking.Service
	recorder    *audit.Recorder
	access      *access.Service
	ledger      replay.Ledger
	notifier    *notifier.Dispatcher
	pruner      *timetracking.Pruner
}

func newApplication(ctx context.Context, cfg *internal.Config, logger *slog.Logger) (*application, error) {
	app := &application{config: cfg, logger: logger}

	repos, err := openRepositories(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	app.repos = repos

	app.keys, err = keys.LoadOrCreate(keys.NewFileStore(cfg.Security.KeysDir), logger)
	if err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("failed to load signing key: %w", err)
	}

	app.sessions, err = auth.NewSessionManager(cfg.Security.AppAuthSecret, cfg.Security.AppSessionTTL)
	if err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("failed to init app sessions: %w", err)
	}

	app.bus = events.NewEventBus(logger)

	app.directory = directory.NewService(repos.directory, logger)
	if cfg.Storage.SeedDemo {
		if err := app.directory.SeedDemo(ctx); err != nil {
			_ = repos.Close()
			return nil, fmt.Errorf("failed to seed directory: %w", err)
		}
	}
	if err := app.directory.SeedRevokedDevices(ctx, cfg.Access.RevokedDevices); err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("failed to seed revoked devices: %w", err)
	}

	app.delegations = delegation.NewService(repos.delegations, app.directory, logger,
		delegation.WithPublisher(app.bus))
	app.visitors = visitor.NewService(repos.visitors, app.directory, logger,
		visitor.WithPublisher(app.bus),
		visitor.WithDefaultUses(cfg.Access.DefaultVisitorUses))
	app.timeTracker = timetracking.NewService(repos.sessions, logger,
		timetracking.WithPublisher(app.bus))
	app.recorder = audit.NewRecorder(repos.audit, logger)
	app.pruner = timetracking.NewPruner(app.timeTracker, cfg.TimeTracking.Retention, cfg.TimeTracking.PruneInterval, logger)

	opts := []access.Option{
		access.WithPublisher(app.bus),
		access.WithTokenTTL(cfg.Access.TokenTTL),
		access.WithExposeDenyReasons(cfg.Access.ExposeDenyReasons),
	}
	if cfg.Replay.Mode == internal.ReplayModeReject {
		app.ledger = newReplayLedger(cfg.Replay)
		opts = append(opts, access.WithReplayLedger(app.ledger))
		logger.Info("single-use tokens enforced", "backend", cfg.Replay.Backend)
	}

	app.access = access.NewService(access.Dependencies{
		Directory:   app.directory,
		Delegations: app.delegations,
		Visitors:    app.visitors,
		Sessions:    app.timeTracker,
		Audit:       app.recorder,
		Codec:       token.NewCodec(app.keys, app.keys),
	}, logger, opts...)

	if cfg.Notifier.WebhookURL != "" {
		app.notifier = notifier.NewDispatcher(notifier.Config{
			WebhookURL: cfg.Notifier.WebhookURL,
			Timeout:    cfg.Notifier.Timeout,
			MaxWorkers: cfg.Notifier.MaxWorkers,
			QueueSize:  cfg.Notifier.QueueSize,
		}, logger)
		app.notifier.Subscribe(app.bus, events.AllEventTypes...)
	}

	return app, nil
}

func newReplayLedger(cfg internal.ReplayConfig) replay.Ledger {
	if cfg.Backend == internal.ReplayBackendRedis {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return replay.NewRedisLedger(client, cfg.RedisPrefix)
	}
	return replay.NewMemoryLedger(
		replay.WithMaxEntries(cfg.MaxEntries),
		replay.WithCleanupInterval(cfg.CleanupInterval),
	)
}

func (a *application) handlers() rest.Handlers {
	base := transport.NewBaseHandler(a.logger)
	return rest.Handlers{
		Auth:         auth.NewHandler(auth.NewService(a.directory, a.sessions, a.logger), a.logger),
		Access:       access.NewHandler(base, a.access, a.keys),
		Delegation:   delegation.NewHandler(base, a.delegations),
		Visitor:      visitor.NewHandler(base, a.visitors),
		Audit:        audit.NewHandler(base, a.recorder),
		TimeTracking: timetracking.NewHandler(base, a.timeTracker),
	}
}

func (a *application) healthChecks() map[string]rest.CheckFunc {
	checks := map[string]rest.CheckFunc{}
	if a.repos.handle != nil {
		checks[a.repos.handle.Driver] = rest.DBCheck(a.repos.handle.DB())
	}
	if ledger, ok := a.ledger.(*replay.RedisLedger); ok {
		checks["redis"] = ledger.Ping
	}
	return checks
}

func (a *application) Close() {
	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			a.logger.Error("replay ledger close error", "error", err)
		}
	}
	if err := a.repos.Close(); err != nil {
		a.logger.Error("database close error", "error", err)
	}
}
