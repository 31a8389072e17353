package config

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Quiz     QuizConfig     `mapstructure:"quiz"     validate:"required"`
}

// ServerConfig contains the HTTP server settings.
type ServerConfig struct {
	Port                  int    `mapstructure:"port"                    validate:"required,gt=0,lt=65536"`
	LogLevel              string `mapstructure:"log_level"               validate:"required,oneof=debug info warn error fatal"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds" validate:"gte=0"`
}

// DatabaseConfig selects the store backend. For postgres URL is a
// connection string, for sqlite a file path or DSN.
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"         validate:"required,oneof=postgres sqlite"`
	URL          string `mapstructure:"url"            validate:"required"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=0"`
}

// AuthConfig holds the shared secret used to verify bearer tokens.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
	// Issuer, when set, must match the token's iss claim.
	Issuer string `mapstructure:"issuer"`
}

// CacheConfig configures the optional level summary cache. An empty
// RedisURL disables caching.
type CacheConfig struct {
	RedisURL          string `mapstructure:"redis_url"           validate:"omitempty,url"`
	SummaryTTLSeconds int    `mapstructure:"summary_ttl_seconds" validate:"gte=0"`
}

// QuizConfig tunes the quiz service.
type QuizConfig struct {
	// PageSize bounds every paged store read.
	PageSize int `mapstructure:"page_size" validate:"required,gt=0,lte=10000"`
}
