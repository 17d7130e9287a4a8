package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Config is resolved by kong from flags, then the environment, then the
// defaults below. LoadEnv runs first so a .env file feeds the environment.
type Config struct {
	DBHost     string `name:"db-host" env:"DB_HOST" default:"localhost" help:"Database host."`
	DBPort     string `name:"db-port" env:"DB_PORT" default:"5432" help:"Database port."`
	DBUser     string `name:"db-user" env:"DB_USER" default:"poem_user" help:"Database user."`
	DBPassword string `name:"db-password" env:"DB_PASSWORD" default:"poem_pass" help:"Database password."`
	DBName     string `name:"db-name" env:"DB_NAME" default:"poem_db" help:"Database name."`
	DBSSLMode  string `name:"db-sslmode" env:"DB_SSLMODE" default:"disable" help:"Database sslmode."`

	ServerPort string `name:"port" env:"SERVER_PORT" default:"8080" help:"HTTP listen port."`

	JWTSecret string        `name:"jwt-secret" env:"JWT_SECRET" default:"supersecretkey" help:"HMAC secret for admin tokens."`
	JWTExpiry time.Duration `name:"jwt-expiry" env:"JWT_EXPIRY" default:"24h" help:"Lifetime of issued tokens."`

	LogLevel string `name:"log-level" env:"LOG_LEVEL" default:"info" enum:"debug,info,warn,error" help:"Log level."`

	CacheTTL      time.Duration `name:"cache-ttl" env:"CACHE_TTL" default:"10m" help:"Lifetime of cached listings."`
	CacheMaxItems int64         `name:"cache-max-items" env:"CACHE_MAX_ITEMS" default:"10000" help:"Maximum cached listings."`

	RateLimit float64 `name:"rate-limit" env:"RATE_LIMIT" default:"50" help:"Requests per second across all clients."`
	RateBurst int     `name:"rate-burst" env:"RATE_BURST" default:"100" help:"Burst size of the rate limiter."`

	MigrateOnStart bool `name:"migrate-on-start" env:"MIGRATE_ON_START" default:"true" negatable:"" help:"Apply migrations before serving."`
}

// LoadEnv reads .env into the process environment when the file exists.
func LoadEnv(logger *log.Logger) {
	if err := godotenv.Load(); err != nil {
		logger.Warn("⚠️  No .env file found, using system environment variables")
	}
}

// DSN is the libpq keyword/value connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) Addr() string {
	return ":" + c.ServerPort
}

// Validate is called by kong after parsing.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt secret must not be empty"))
	}
	if c.CacheMaxItems <= 0 {
		errs = append(errs, errors.New("cache max items must be positive"))
	}
	if c.RateLimit <= 0 {
		errs = append(errs, errors.New("rate limit must be positive"))
	}
	if c.RateBurst <= 0 {
		errs = append(errs, errors.New("rate burst must be positive"))
	}
	return errors.Join(errs...)
}
