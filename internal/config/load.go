package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. VOCAB_SERVER_PORT.
const EnvPrefix = "VOCAB"

// DefaultEnvFiles are loaded, when present, before the environment is read.
// Variables already set in the process environment win.
var DefaultEnvFiles = []string{".env.local", ".env"}

// Options controls where Load looks for configuration.
type Options struct {
	// ConfigDir is searched for config.yaml in addition to the working directory.
	ConfigDir string
	// EnvFiles are dotenv files to load; missing files are ignored.
	EnvFiles []string
	// SkipAuth leaves the auth section unvalidated. Offline tools that never
	// verify tokens set it.
	SkipAuth bool
}

// Load reads configuration from dotenv files, an optional config.yaml and
// VOCAB_* environment variables, in increasing order of precedence, and
// validates the result.
func Load() (*Config, error) {
	return LoadWithOptions(Options{
		ConfigDir: os.Getenv(EnvPrefix + "_CONFIG_DIR"),
		EnvFiles:  DefaultEnvFiles,
	})
}

// LoadTool is Load for command line tools that work on the database
// directly and need no token secret.
func LoadTool() (*Config, error) {
	return LoadWithOptions(Options{
		ConfigDir: os.Getenv(EnvPrefix + "_CONFIG_DIR"),
		EnvFiles:  DefaultEnvFiles,
		SkipAuth:  true,
	})
}

// LoadWithOptions is Load with explicit file locations.
func LoadWithOptions(opts Options) (*Config, error) {
	for _, f := range opts.EnvFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if opts.ConfigDir != "" {
		v.AddConfigPath(opts.ConfigDir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Unmarshal only sees keys viper already knows about.
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	var err error
	if opts.SkipAuth {
		err = validate.StructExcept(cfg, "Auth")
	} else {
		err = validate.Struct(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

var keys = []string{
	"server.port",
	"server.log_level",
	"server.request_timeout_seconds",
	"database.driver",
	"database.url",
	"database.max_open_conns",
	"auth.jwt_secret",
	"auth.issuer",
	"cache.redis_url",
	"cache.summary_ttl_seconds",
	"quiz.page_size",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.request_timeout_seconds", 15)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("cache.summary_ttl_seconds", 30)
	v.SetDefault("quiz.page_size", 1000)
}
