package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server     ServerConfig
	Admin      AdminConfig
	App        AppConfig
	Store      StoreConfig
	Session    SessionConfig
	Invitation InvitationConfig
	Seed       SeedConfig
}

// ServerConfig holds the market's TCP listener settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"127.0.0.1"`
	Port            int           `envconfig:"SERVER_PORT" default:"22333"`
	MaxLineBytes    int           `envconfig:"SERVER_MAX_LINE_BYTES" default:"65536"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"0"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"10s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimit       float64       `envconfig:"SERVER_RATE_LIMIT_RPS" default:"50"` // frames per second per connection, 0 disables
	RateBurst       int           `envconfig:"SERVER_RATE_LIMIT_BURST" default:"100"`
}

// AdminConfig holds the HTTP admin surface settings.
type AdminConfig struct {
	Enabled bool   `envconfig:"ADMIN_ENABLED" default:"true"`
	Host    string `envconfig:"ADMIN_HOST" default:"127.0.0.1"`
	Port    int    `envconfig:"ADMIN_PORT" default:"8080"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"cybermarket"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
	LoginKey    string `envconfig:"LOGIN_KEY" default:""` // Admin stats key
}

// StoreConfig holds the market database settings.
type StoreConfig struct {
	Type string `envconfig:"STORE_TYPE" default:"sqlite"` // sqlite, mysql, or postgres
	Path string `envconfig:"STORE_PATH" default:"./data/cybermarket.db"`
	// MySQL and PostgreSQL settings
	Host     string `envconfig:"STORE_HOST" default:"localhost"`
	Port     int    `envconfig:"STORE_PORT" default:"0"` // 0 picks the driver's default port
	Name     string `envconfig:"STORE_NAME" default:"cybermarket"`
	User     string `envconfig:"STORE_USER" default:"cybermarket"`
	Password string `envconfig:"STORE_PASS" default:""`
	SSLMode  string `envconfig:"STORE_SSLMODE" default:"disable"`
}

// SessionConfig holds login session registry settings.
type SessionConfig struct {
	Backend       string        `envconfig:"SESSION_BACKEND" default:"memory"` // memory or redis
	KeyPrefix     string        `envconfig:"SESSION_KEY_PREFIX" default:"cybermarket:session"`
	PruneInterval time.Duration `envconfig:"SESSION_PRUNE_INTERVAL" default:"5m"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// InvitationConfig holds invitation code settings.
type InvitationConfig struct {
	CodeLength int `envconfig:"INVITATION_CODE_LENGTH" default:"12"`
}

// SeedConfig points at the optional founder file.
type SeedConfig struct {
	Path string `envconfig:"SEED_PATH" default:""`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Address returns the admin address in host:port format.
func (a *AdminConfig) Address() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// SQLiteDSN returns the SQLite database path.
func (s *StoreConfig) SQLiteDSN() string {
	return s.Path
}

// MySQLDSN returns the MySQL data source name.
func (s *StoreConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		s.User, s.Password, s.Host, s.portOr(3306), s.Name)
}

// PostgresDSN returns the PostgreSQL connection string.
func (s *StoreConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		s.User, s.Password, s.Host, s.portOr(5432), s.Name, s.SSLMode)
}

func (s *StoreConfig) portOr(def int) int {
	if s.Port == 0 {
		return def
	}
	return s.Port
}

// RedisAddress returns the Redis address in host:port format.
func (s *SessionConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", s.RedisHost, s.RedisPort)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
