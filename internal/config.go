package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"

	ReplayModeOff    = "off"
	ReplayModeReject = "reject"

	ReplayBackendMemory = "memory"
	ReplayBackendRedis  = "redis"

	DevAppAuthSecret = "dev-only-change-me"
)

type Config struct {
	Env           string              `mapstructure:"env" env:"APP_ENV" envDefault:"development"`
	Server        ServerConfig        `mapstructure:"http_server" envPrefix:"HTTP_"`
	Storage       StorageConfig       `mapstructure:"storage" envPrefix:"STORAGE_"`
	Security      SecurityConfig      `mapstructure:"security" envPrefix:"SECURITY_"`
	Access        AccessConfig        `mapstructure:"access" envPrefix:"ACCESS_"`
	Replay        ReplayConfig        `mapstructure:"replay" envPrefix:"REPLAY_"`
	Notifier      NotifierConfig      `mapstructure:"notifier" envPrefix:"NOTIFIER_"`
	TimeTracking  TimeTrackingConfig  `mapstructure:"timetracking" envPrefix:"TIMETRACKING_"`
	Observability ObservabilityConfig `mapstructure:"observability" envPrefix:"OBSERVABILITY_"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" env:"PORT" envDefault:"8080"`
	BaseURL           string        `mapstructure:"base_url" env:"BASE_URL"`
	AllowedOrigins    string        `mapstructure:"allowed_origins" env:"ALLOWED_ORIGINS"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" env:"READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" env:"READ_TIMEOUT" envDefault:"10s"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" env:"IDLE_TIMEOUT" envDefault:"60s"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" env:"WRITE_TIMEOUT" envDefault:"10s"`
}

type StorageConfig struct {
	Driver       string        `mapstructure:"driver" env:"DRIVER" envDefault:"memory"`
	Source       string        `mapstructure:"source" env:"SOURCE"`
	MaxOpenConns int           `mapstructure:"max_open_conns" env:"MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns int           `mapstructure:"max_idle_conns" env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLife  time.Duration `mapstructure:"conn_max_lifetime" env:"CONN_MAX_LIFETIME" envDefault:"30m"`
	AutoMigrate  bool          `mapstructure:"auto_migrate" env:"AUTO_MIGRATE" envDefault:"true"`
	SeedDemo     bool          `mapstructure:"seed_demo" env:"SEED_DEMO" envDefault:"true"`
}

type SecurityConfig struct {
	KeysDir       string        `mapstructure:"keys_dir" env:"KEYS_DIR" envDefault:"./keys"`
	AppAuthSecret string        `mapstructure:"app_auth_secret" env:"APP_AUTH_SECRET" envDefault:"dev-only-change-me"`
	AppSessionTTL time.Duration `mapstructure:"app_session_ttl" env:"APP_SESSION_TTL" envDefault:"1h"`
}

type AccessConfig struct {
	TokenTTL           time.Duration `mapstructure:"token_ttl" env:"TOKEN_TTL" envDefault:"20s"`
	ExposeDenyReasons  bool          `mapstructure:"expose_deny_reasons" env:"EXPOSE_DENY_REASONS" envDefault:"true"`
	RevokedDevices     []string      `mapstructure:"revoked_devices" env:"REVOKED_DEVICES" envSeparator:","`
	DefaultVisitorUses int           `mapstructure:"default_visitor_uses" env:"DEFAULT_VISITOR_USES" envDefault:"5"`
}

type ReplayConfig struct {
	Mode            string        `mapstructure:"mode" env:"MODE" envDefault:"off"`
	Backend         string        `mapstructure:"backend" env:"BACKEND" envDefault:"memory"`
	RedisAddr       string        `mapstructure:"redis_addr" env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPrefix     string        `mapstructure:"redis_prefix" env:"REDIS_PREFIX" envDefault:"oneaccess:jti:"`
	MaxEntries      int           `mapstructure:"max_entries" env:"MAX_ENTRIES" envDefault:"100000"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" env:"CLEANUP_INTERVAL" envDefault:"30s"`
}

type NotifierConfig struct {
	WebhookURL string        `mapstructure:"webhook_url" env:"WEBHOOK_URL"`
	MaxWorkers int           `mapstructure:"max_workers" env:"MAX_WORKERS" envDefault:"4"`
	QueueSize  int           `mapstructure:"queue_size" env:"QUEUE_SIZE" envDefault:"256"`
	Timeout    time.Duration `mapstructure:"timeout" env:"TIMEOUT" envDefault:"3s"`
}

type TimeTrackingConfig struct {
	Retention     time.Duration `mapstructure:"retention" env:"RETENTION" envDefault:"0s"`
	PruneInterval time.Duration `mapstructure:"prune_interval" env:"PRUNE_INTERVAL" envDefault:"1h"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging" envPrefix:"LOG_"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" env:"LEVEL" envDefault:"info"`
	Format string `mapstructure:"format" env:"FORMAT" envDefault:"text"`
}

// LoadConfigFromEnv parses ONEACCESS_* environment variables.
func LoadConfigFromEnv() (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "ONEACCESS_"}); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	// APP_ENV selects env loading in the first place, so it wins unprefixed.
	if appEnv := os.Getenv("APP_ENV"); appEnv != "" {
		cfg.Env = appEnv
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills zero values left by a partial config file.
func (c *Config) ApplyDefaults() {
	if c.Env == "" {
		c.Env = "development"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageMemory
	}
	if c.Storage.Driver == StorageSQLite && c.Storage.Source == "" {
		c.Storage.Source = "file:oneaccess.db?_foreign_keys=on"
	}
	if c.Storage.MaxOpenConns == 0 {
		c.Storage.MaxOpenConns = 10
	}
	if c.Storage.MaxIdleConns == 0 {
		c.Storage.MaxIdleConns = 5
	}
	if c.Security.KeysDir == "" {
		c.Security.KeysDir = "./keys"
	}
	if c.Security.AppAuthSecret == "" {
		c.Security.AppAuthSecret = DevAppAuthSecret
	}
	if c.Security.AppSessionTTL == 0 {
		c.Security.AppSessionTTL = time.Hour
	}
	if c.Access.TokenTTL == 0 {
		c.Access.TokenTTL = 20 * time.Second
	}
	if c.Access.DefaultVisitorUses == 0 {
		c.Access.DefaultVisitorUses = 5
	}
	if c.Replay.Mode == "" {
		c.Replay.Mode = ReplayModeOff
	}
	if c.Replay.Backend == "" {
		c.Replay.Backend = ReplayBackendMemory
	}
	if c.Replay.RedisPrefix == "" {
		c.Replay.RedisPrefix = "oneaccess:jti:"
	}
	if c.Replay.CleanupInterval == 0 {
		c.Replay.CleanupInterval = 30 * time.Second
	}
	if c.Notifier.MaxWorkers == 0 {
		c.Notifier.MaxWorkers = 4
	}
	if c.Notifier.QueueSize == 0 {
		c.Notifier.QueueSize = 256
	}
	if c.Notifier.Timeout == 0 {
		c.Notifier.Timeout = 3 * time.Second
	}
	if c.TimeTracking.PruneInterval == 0 {
		c.TimeTracking.PruneInterval = time.Hour
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("storage config: %v", err))
	}

	if err := c.Security.Validate(c.Env); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Access.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("access config: %v", err))
	}

	if err := c.Replay.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("replay config: %v", err))
	}

	if err := c.Notifier.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("notifier config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *StorageConfig) Validate() error {
	switch c.Driver {
	case StorageMemory:
		return nil
	case StorageSQLite, StoragePostgres:
		if c.Source == "" {
			return errors.New("source is required for sql drivers")
		}
	default:
		return fmt.Errorf("unsupported driver %q", c.Driver)
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *SecurityConfig) Validate(appEnv string) error {
	if c.KeysDir == "" {
		return errors.New("keys_dir is required")
	}
	if c.AppAuthSecret == "" {
		return errors.New("app_auth_secret is required")
	}
	if appEnv == "production" && (c.AppAuthSecret == DevAppAuthSecret || len(c.AppAuthSecret) < 32) {
		return errors.New("app_auth_secret must be changed and at least 32 characters in production")
	}
	if c.AppSessionTTL <= 0 {
		return errors.New("app_session_ttl must be positive")
	}
	return nil
}

func (c *AccessConfig) Validate() error {
	if c.TokenTTL < time.Second || c.TokenTTL > 5*time.Minute {
		return fmt.Errorf("token_ttl must be between 1s and 5m, got %s", c.TokenTTL)
	}
	if c.DefaultVisitorUses < 1 {
		return errors.New("default_visitor_uses must be at least 1")
	}
	return nil
}

func (c *ReplayConfig) Validate() error {
	switch c.Mode {
	case ReplayModeOff, ReplayModeReject:
	default:
		return fmt.Errorf("unsupported mode %q", c.Mode)
	}
	switch c.Backend {
	case ReplayBackendMemory:
	case ReplayBackendRedis:
		if c.RedisAddr == "" {
			return errors.New("redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unsupported backend %q", c.Backend)
	}
	return nil
}

func (c *NotifierConfig) Validate() error {
	if c.WebhookURL == "" {
		return nil
	}
	u, err := url.Parse(c.WebhookURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid webhook_url %q", c.WebhookURL)
	}
	if c.MaxWorkers < 1 {
		return errors.New("max_workers must be at least 1")
	}
	return nil
}
