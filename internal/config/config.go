package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	Matching MatchingConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// LoggingConfig holds structured logging configuration.
type LoggingConfig struct {
	Level string
}

// MatchingConfig holds the bidding-engine knobs. It is resolved once at
// startup and passed down explicitly; services never read env vars.
type MatchingConfig struct {
	// ApproveNeed gates new requests behind operator approval.
	ApproveNeed bool

	// CommissionRatePercent is the advisory platform commission on a bid.
	CommissionRatePercent float64

	// ServiceChargePercent is added onto the bid amount to produce the
	// amount actually charged to the requester.
	ServiceChargePercent float64

	// EnforceBalanceCheck rejects bids from drivers whose wallet cannot
	// cover the commission.
	EnforceBalanceCheck bool

	// DriverSearchRadiusKm and DriverSearchLimit bound driver discovery
	// when a request enters bidding.
	DriverSearchRadiusKm float64
	DriverSearchLimit    int

	// RequestSearchRadiusKm bounds the "requests near me" driver query.
	RequestSearchRadiusKm float64

	// MaxPageSize caps operator listing pages.
	MaxPageSize int
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "ridebid"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "ridebid"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Matching: MatchingConfig{
			ApproveNeed:           getBoolEnv("MATCHING_APPROVE_NEED", false),
			CommissionRatePercent: getFloatEnv("MATCHING_COMMISSION_RATE_PERCENT", 10),
			ServiceChargePercent:  getFloatEnv("MATCHING_SERVICE_CHARGE_PERCENT", 5),
			EnforceBalanceCheck:   getBoolEnv("MATCHING_ENFORCE_BALANCE_CHECK", false),
			DriverSearchRadiusKm:  getFloatEnv("MATCHING_DRIVER_SEARCH_RADIUS_KM", 10),
			DriverSearchLimit:     getIntEnv("MATCHING_DRIVER_SEARCH_LIMIT", 20),
			RequestSearchRadiusKm: getFloatEnv("MATCHING_REQUEST_SEARCH_RADIUS_KM", 2),
			MaxPageSize:           getIntEnv("MATCHING_MAX_PAGE_SIZE", 100),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
