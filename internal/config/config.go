package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	// BasisPoints is the denominator of FeeRateBPS
	BasisPoints = 10000
)

type Config struct {
	Development bool
	// API configuration
	APIPort int
	// DatabaseDriver is postgres or sqlite
	DatabaseDriver string
	// SQLitePath is the SQLite DSN used when DatabaseDriver is sqlite
	SQLitePath string
	// Postgres configuration
	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     int
	PostgresDB       string

	// Ledger policy
	// FeeRateBPS is the platform fee in basis points (800 = 8%).
	FeeRateBPS int64
	// MinTip is the smallest accepted tip in token units.
	MinTip int64
	// MinorUnitsPerToken converts gateway minor currency units (paise, cents) to tokens.
	MinorUnitsPerToken int64
	// StoreTimeout bounds every ledger write.
	StoreTimeout time.Duration
	// ReconcileInterval is the period of the ledger audit sweep.
	ReconcileInterval time.Duration

	// Secrets
	WebhookSecret string
	SessionSecret string
	SessionTTL    time.Duration

	// SMTP configuration
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPSender   string

	// Notification configuration
	TelegramBotToken string
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Development:        getEnvAsBool("DEVELOPMENT", false),
		APIPort:            getEnvAsInt("API_PORT", 6533),
		DatabaseDriver:     getEnv("DATABASE_DRIVER", "postgres"),
		SQLitePath:         getEnv("SQLITE_PATH", "obolus.db"),
		PostgresUser:       getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword:   getEnv("POSTGRES_PASSWORD", "password"),
		PostgresHost:       getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:       getEnvAsInt("POSTGRES_PORT", 5432),
		PostgresDB:         getEnv("POSTGRES_DB", "obolus"),
		FeeRateBPS:         getEnvAsInt64("FEE_RATE_BPS", 800),
		MinTip:             getEnvAsInt64("MIN_TIP", 10),
		MinorUnitsPerToken: getEnvAsInt64("MINOR_UNITS_PER_TOKEN", 100),
		StoreTimeout:       getEnvAsDuration("STORE_TIMEOUT", 5*time.Second),
		ReconcileInterval:  getEnvAsDuration("RECONCILE_INTERVAL", 5*time.Minute),
		WebhookSecret:      getEnv("WEBHOOK_SECRET", ""),
		SessionSecret:      getEnv("SESSION_SECRET", ""),
		SessionTTL:         getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		SMTPHost:           getEnv("SMTP_HOST", ""),
		SMTPPort:           getEnvAsInt("SMTP_PORT", 587),
		SMTPUser:           getEnv("SMTP_USER", ""),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
		SMTPSender:         getEnv("SMTP_SENDER", ""),
		TelegramBotToken:   getEnv("TELEGRAM_BOT_TOKEN", ""),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are properly set
func (c *Config) Validate() error {
	if c.WebhookSecret == "" {
		return fmt.Errorf("WEBHOOK_SECRET is required")
	}

	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}

	if c.FeeRateBPS < 0 || c.FeeRateBPS >= BasisPoints {
		return fmt.Errorf("FEE_RATE_BPS must be in [0, %d), got %d", BasisPoints, c.FeeRateBPS)
	}

	if c.MinTip <= 0 {
		return fmt.Errorf("MIN_TIP must be positive, got %d", c.MinTip)
	}

	if c.MinorUnitsPerToken <= 0 {
		return fmt.Errorf("MINOR_UNITS_PER_TOKEN must be positive, got %d", c.MinorUnitsPerToken)
	}

	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive")
	}

	if c.ReconcileInterval <= 0 {
		return fmt.Errorf("RECONCILE_INTERVAL must be positive")
	}

	switch c.DatabaseDriver {
	case "postgres":
		if c.PostgresDB == "" {
			return fmt.Errorf("POSTGRES_DB is required")
		}
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required")
		}
	default:
		return fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite, got %q", c.DatabaseDriver)
	}

	return nil
}

// SMTPEnabled reports whether tip emails can be sent
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.SMTPSender != ""
}

// Helper functions to read environment variables
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsInt64(name string, defaultValue int64) int64 {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsDuration(name string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
