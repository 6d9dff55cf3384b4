package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service configuration, environment-supplied with defaults.
type Config struct {
	Server struct {
		Host         string
		Port         int
		ReadTimeout  time.Duration
		WriteTimeout time.Duration
		IdleTimeout  time.Duration
	}

	Database struct {
		Host            string
		Port            int
		User            string
		Password        string
		Database        string
		SSLMode         string
		MaxOpenConns    int
		MaxIdleConns    int
		ConnMaxLifetime time.Duration
		ConnMaxIdleTime time.Duration
	}

	Upstream struct {
		BaseURL   string
		UserAgent string
		Timeout   time.Duration
	}

	Startup struct {
		MaxAttempts int
		RetryDelay  time.Duration
	}

	Logging struct {
		Level string
	}
}

// LoadConfig reads configuration from the environment, consulting a .env
// file when one is present.
func LoadConfig() (*Config, error) {
	// .env is optional; real deployments provide the environment directly.
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.Server.Host = getEnv("SERVER_HOST", "0.0.0.0")
	cfg.Server.Port = getEnvInt("SERVER_PORT", 8080)
	cfg.Server.ReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	cfg.Server.WriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second)
	cfg.Server.IdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "gp_user")
	cfg.Database.Password = getEnv("DB_PASSWORD", "gp_pass")
	cfg.Database.Database = getEnv("DB_NAME", "weather_db")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 25)
	cfg.Database.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 5)
	cfg.Database.ConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	cfg.Database.ConnMaxIdleTime = getEnvDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute)

	cfg.Upstream.BaseURL = getEnv("NWS_BASE_URL", "https://api.weather.gov")
	cfg.Upstream.UserAgent = getEnv("NWS_USER_AGENT", "weather-pipeline (ops@weather-pipeline.local)")
	cfg.Upstream.Timeout = getEnvDuration("NWS_TIMEOUT", 10*time.Second)

	cfg.Startup.MaxAttempts = getEnvInt("STARTUP_MAX_ATTEMPTS", 10)
	cfg.Startup.RetryDelay = getEnvDuration("STARTUP_RETRY_DELAY", 2*time.Second)

	cfg.Logging.Level = getEnv("LOG_LEVEL", "info")

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream base URL is required")
	}

	if c.Upstream.UserAgent == "" {
		return fmt.Errorf("upstream user agent is required")
	}

	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive")
	}

	if c.Startup.MaxAttempts <= 0 {
		return fmt.Errorf("startup max attempts must be positive")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
