// Package db opens the SQL storage backends and applies the schema migrations.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/oneaccess/internal"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	migrationsDir   = "migrations"
	migrationsTable = "schema_migrations"
)

// Handle is one connection pool shared by the gorm repositories and the sqlx
// audit store.
type Handle struct {
	Driver string
	Gorm   *gorm.DB
	SQL    *sqlx.DB
}

// Open connects to cfg's sql driver. It does not run migrations.
func Open(cfg internal.StorageConfig, logger *slog.Logger) (*Handle, error) {
	gormConfig := &gorm.Config{Logger: gormLogger.Default.LogMode(gormLogger.Silent)}

	var (
		gdb        *gorm.DB
		sqlxDriver string
		err        error
	)
	switch cfg.Driver {
	case internal.StorageSQLite:
		gdb, err = gorm.Open(sqlite.Open(cfg.Source), gormConfig)
		sqlxDriver = "sqlite3"
	case internal.StoragePostgres:
		var conn *sql.DB
		conn, err = sql.Open("pgx", cfg.Source)
		if err != nil {
			return nil, fmt.Errorf("failed to open pgx connection: %w", err)
		}
		gdb, err = gorm.Open(postgres.New(postgres.Config{Conn: conn}), gormConfig)
		sqlxDriver = "pgx"
	default:
		return nil, fmt.Errorf("storage driver %q has no sql backend", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	configurePool(sqlDB, cfg)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connected", "driver", cfg.Driver)
	return &Handle{
		Driver: cfg.Driver,
		Gorm:   gdb,
		SQL:    sqlx.NewDb(sqlDB, sqlxDriver),
	}, nil
}

// An in-memory sqlite database lives only as long as its single connection.
func configurePool(sqlDB *sql.DB, cfg internal.StorageConfig) {
	if cfg.Driver == internal.StorageSQLite && strings.Contains(cfg.Source, ":memory:") {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
		return
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLife)
}

func (h *Handle) DB() *sql.DB {
	return h.SQL.DB
}

func (h *Handle) Close() error {
	return h.SQL.Close()
}

// Migrate applies every pending embedded migration.
func (h *Handle) Migrate(ctx context.Context) error {
	return h.run(ctx, "up")
}

// Rollback reverts the latest applied migration.
func (h *Handle) Rollback(ctx context.Context) error {
	return h.run(ctx, "down")
}

// Version reports the current schema version.
func (h *Handle) Version(ctx context.Context) (int64, error) {
	if err := h.prepare(); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, h.DB())
}

func (h *Handle) run(ctx context.Context, command string) error {
	if err := h.prepare(); err != nil {
		return err
	}
	if err := goose.RunContext(ctx, command, h.DB(), migrationsDir); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

func (h *Handle) prepare() error {
	goose.SetBaseFS(migrations)
	goose.SetTableName(migrationsTable)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect(h.Driver)); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	return nil
}

func dialect(driver string) string {
	if driver == internal.StoragePostgres {
		return "postgres"
	}
	return "sqlite3"
}
