package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strings"

	"github.com/frahmantamala/oneaccess/internal"
	"github.com/frahmantamala/oneaccess/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "oneaccess",
	Short: "OneAccess gate access control",
	Long:  `Issues short-lived signed access tokens and decides ALLOW or DENY at gate readers.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// loadConfig reads the environment only in production and containers, and
// config.yml overlaid with ONEACCESS_* variables everywhere else.
func loadConfig(path string) (*internal.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env: %w", err)
	}

	var (
		cfg *internal.Config
		err error
	)
	if envOnly() {
		cfg, err = internal.LoadConfigFromEnv()
	} else {
		cfg, err = loadConfigFile(path)
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func envOnly() bool {
	return os.Getenv("APP_ENV") == "production" || os.Getenv("DOCKER_ENV") == "true"
}

func loadConfigFile(dir string) (*internal.Config, error) {
	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.SetEnvPrefix("ONEACCESS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	registerDefaults(v, "", reflect.TypeOf(internal.Config{}))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg internal.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// registerDefaults mirrors the envDefault tags into v so that a missing file
// still yields the same config as the env loader. Every key is registered,
// with or without a default, because AutomaticEnv only overrides known keys.
func registerDefaults(v *viper.Viper, prefix string, t reflect.Type) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := f.Tag.Get("mapstructure")
		if name == "" || name == "-" {
			continue
		}
		key := prefix + name

		if f.Type.Kind() == reflect.Struct {
			registerDefaults(v, key+".", f.Type)
			continue
		}
		if def, ok := f.Tag.Lookup("envDefault"); ok {
			v.SetDefault(key, def)
			continue
		}
		if f.Type.Kind() == reflect.Slice {
			v.SetDefault(key, reflect.MakeSlice(f.Type, 0, 0).Interface())
			continue
		}
		v.SetDefault(key, reflect.Zero(f.Type).Interface())
	}
}

// setupLogger initialises the process logger from the observability config.
func setupLogger(cfg *internal.Config) {
	logger.Init(cfg.Env,
		logger.WithLevel(cfg.Observability.Logging.Level),
		logger.WithFormat(cfg.Observability.Logging.Format))
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "directory holding config.yml")

	rootCmd.AddCommand(httpServerCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}
