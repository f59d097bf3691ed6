package dbconfig

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds Postgres connection settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	// URL, when set, wins over the individual fields.
	URL string
	// ConnectTimeout bounds the startup ping; past it the service runs offline.
	ConnectTimeout time.Duration
}

// NewConfigFromEnv reads DATABASE_URL and DB_* environment variables (with defaults).
func NewConfigFromEnv() Config {
	port, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		port = 5432
	}
	timeout, err := time.ParseDuration(getEnv("DB_CONNECT_TIMEOUT", "5s"))
	if err != nil {
		timeout = 5 * time.Second
	}

	return Config{
		Host:           getEnv("DB_HOST", "localhost"),
		Port:           port,
		User:           getEnv("DB_USER", "postgres"),
		Password:       getEnv("DB_PASSWORD", "postgres"),
		Database:       getEnv("DB_NAME", "scoreboard"),
		SSLMode:        getEnv("DB_SSLMODE", "disable"),
		URL:            os.Getenv("DATABASE_URL"),
		ConnectTimeout: timeout,
	}
}

// DSN returns the Postgres connection URL.
func (c Config) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// Target describes the database without credentials, for logs.
func (c Config) Target() string {
	if c.URL != "" {
		return "DATABASE_URL"
	}
	return fmt.Sprintf("%s@%s:%d/%s", c.User, c.Host, c.Port, c.Database)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
