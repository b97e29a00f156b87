package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Extraction ExtractionConfig
	Cache      CacheConfig
	Session    SessionConfig
	References ReferencesConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string
	GRPCAddr        string
	ShutdownTimeout time.Duration
	LogFormat       string
	LogLevel        string
	// DocumentRoot allows attaching documents by server-side path
	DocumentRoot string
}

// ExtractionConfig holds the document-extraction service configuration
type ExtractionConfig struct {
	URL           string
	APIKey        string
	Timeout       time.Duration
	Lenient       bool
	MaxDocumentMB int
}

// CacheConfig holds the extraction cache configuration
type CacheConfig struct {
	Path    string
	Enabled bool
}

// SessionConfig holds form session configuration
type SessionConfig struct {
	TTL           time.Duration
	SweepSchedule string
	Location      string
	VATRatePct    int
}

// ReferencesConfig selects where reference lists come from. An empty File
// means the database.
type ReferencesConfig struct {
	File string
}

// LoadConfig loads configuration from environment variables, reading a .env
// file first when one is present.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
			GRPCAddr:        getEnv("GRPC_ADDR", ":9090"),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			LogFormat:       getEnv("LOG_FORMAT", "json"),
			LogLevel:        getEnv("LOG_LEVEL", "info"),
			DocumentRoot:    getEnv("DOCUMENT_ROOT", ""),
		},
		Extraction: ExtractionConfig{
			URL:           getEnv("EXTRACTION_URL", ""),
			APIKey:        getEnv("EXTRACTION_API_KEY", ""),
			Timeout:       getEnvAsDuration("EXTRACTION_TIMEOUT", 45*time.Second),
			Lenient:       getEnvAsBool("EXTRACTION_LENIENT", true),
			MaxDocumentMB: getEnvAsInt("MAX_DOCUMENT_MB", 10),
		},
		Cache: CacheConfig{
			Path:    getEnv("EXTRACTION_CACHE_PATH", "./tmp/extractions.db"),
			Enabled: getEnvAsBool("EXTRACTION_CACHE_ENABLED", true),
		},
		Session: SessionConfig{
			TTL:           getEnvAsDuration("SESSION_TTL", 2*time.Hour),
			SweepSchedule: getEnv("SESSION_SWEEP_SCHEDULE", "*/10 * * * *"),
			Location:      getEnv("SESSION_SWEEP_TZ", "UTC"),
			VATRatePct:    getEnvAsInt("VAT_RATE_PCT", 19),
		},
		References: ReferencesConfig{
			File: getEnv("REFERENCES_FILE", ""),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the settings the service cannot start without. The database
// is optional when reference lists come from a file.
func (c *Config) Validate() error {
	if c.Database.DSN == "" && c.References.File == "" {
		return NewAppError(CodeConfig, "DB_URL or REFERENCES_FILE is required", ErrInvalidInput)
	}
	if c.Extraction.URL == "" {
		return NewAppError(CodeConfig, "EXTRACTION_URL is required", ErrInvalidInput)
	}
	if c.Extraction.MaxDocumentMB <= 0 {
		return NewAppError(CodeConfig, "MAX_DOCUMENT_MB must be positive", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError(CodeConfig, "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Session.TTL <= 0 {
		return NewAppError(CodeConfig, "SESSION_TTL must be positive", ErrInvalidInput)
	}
	if c.Session.VATRatePct < 0 || c.Session.VATRatePct > 100 {
		return NewAppError(CodeConfig, "VAT_RATE_PCT must be between 0 and 100", ErrInvalidInput)
	}
	return nil
}
