// Package config reads runtime configuration from the environment (and a
// .env file when present). Command-line flags registered by AddFlags
// override the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	devJWTSecret = "dev-only-secret-change-me"
)

// Config holds application runtime configuration.
type Config struct {
	Env      string
	HTTPPort string
	LogLevel string

	DBDriver    string
	DBPath      string // sqlite
	DatabaseURL string // postgres

	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration

	CORSOrigins     []string
	GlobalRateLimit int // requests per minute per IP, 0 disables

	RedisURL         string // login limiter backend; memory when empty
	LoginMaxAttempts int
	LoginWindow      time.Duration

	TelegramToken  string
	TelegramChatID string
	NotifyTimeout  time.Duration

	OTELEndpoint string
	ServiceName  string

	AllowAdminOnBehalf bool
	EnableScenarios    bool
	SeedScenario       string // built-in id or path to a YAML file

	MaintenanceInterval time.Duration
	MaxShiftAge         time.Duration // open longer than this raises an alert

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Load reads environment variables and .env (if present). Call Validate
// after applying flags.
func Load() Config {
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "development")
	return Config{
		Env:      env,
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DBDriver:    getEnv("DB_DRIVER", DriverSQLite),
		DBPath:      getEnv("DB_PATH", "hotel.db"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTIssuer: getEnv("JWT_ISSUER", "hotel-backoffice"),
		TokenTTL:  getDuration("TOKEN_TTL", 12*time.Hour),

		CORSOrigins:     getList("CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		GlobalRateLimit: getInt("RATE_LIMIT_PER_MINUTE", 300),

		RedisURL:         os.Getenv("REDIS_URL"),
		LoginMaxAttempts: getInt("LOGIN_MAX_ATTEMPTS", 5),
		LoginWindow:      getDuration("LOGIN_WINDOW", 15*time.Minute),

		TelegramToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID: os.Getenv("TELEGRAM_CHAT_ID"),
		NotifyTimeout:  getDuration("NOTIFY_TIMEOUT", 5*time.Second),

		OTELEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:  getEnv("OTEL_SERVICE_NAME", "hotel-backoffice"),

		AllowAdminOnBehalf: getBool("ALLOW_ADMIN_ON_BEHALF", false),
		EnableScenarios:    getBool("ENABLE_SCENARIOS", env == "development"),
		SeedScenario:       os.Getenv("SEED_SCENARIO"),

		MaintenanceInterval: getDuration("MAINTENANCE_INTERVAL", 10*time.Minute),
		MaxShiftAge:         getDuration("MAX_SHIFT_AGE", 26*time.Hour),

		ReadTimeout:     getDuration("HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:     getDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// AddFlags registers flags that override the loaded values.
func (c *Config) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.HTTPPort, "port", c.HTTPPort, "HTTP listen port")
	fs.StringVar(&c.DBDriver, "db-driver", c.DBDriver, "database driver: sqlite or postgres")
	fs.StringVar(&c.DBPath, "db-path", c.DBPath, "SQLite database file (\":memory:\" for in-memory)")
	fs.StringVar(&c.DatabaseURL, "database-url", c.DatabaseURL, "PostgreSQL connection URL")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&c.SeedScenario, "seed", c.SeedScenario, "scenario to load at startup (built-in id or YAML path)")
	fs.BoolVar(&c.EnableScenarios, "scenarios", c.EnableScenarios, "expose the scenario endpoints")
}

func (c Config) IsProduction() bool { return c.Env == "production" }

// Validate checks the final configuration. In development a missing JWT
// secret is replaced by a fixed one.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			return errors.New("DB_PATH is required for sqlite")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for postgres")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}

	if c.JWTSecret == "" {
		if c.IsProduction() {
			return errors.New("JWT_SECRET is required")
		}
		c.JWTSecret = devJWTSecret
	}
	if c.IsProduction() && c.EnableScenarios {
		return errors.New("scenarios cannot be enabled in production")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.LoginMaxAttempts <= 0 || c.LoginWindow <= 0 {
		return errors.New("LOGIN_MAX_ATTEMPTS and LOGIN_WINDOW must be positive")
	}
	if c.MaintenanceInterval <= 0 || c.MaxShiftAge <= 0 {
		return errors.New("MAINTENANCE_INTERVAL and MAX_SHIFT_AGE must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		// Support seconds as integer without suffix.
		if secs, convErr := strconv.Atoi(val); convErr == nil {
			return time.Duration(secs) * time.Second
		}
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}

func getList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
