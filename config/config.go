package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	SourceCSV       = "csv"
	SourceWarehouse = "warehouse"
)

type Config struct {
	HTTP    HTTPConfig
	Session SessionConfig
	Data    DataConfig
	Log     LogConfig
}

type HTTPConfig struct {
	Host string
	Port string
}

type SessionConfig struct {
	// Secret signs session tokens (HS256).
	Secret string
	TTL    time.Duration

	// PasswordHash is the bcrypt hash of the operator password. Password is
	// the plain fallback for local development; exactly one of the two must
	// be set.
	PasswordHash string
	Password     string
}

type DataConfig struct {
	// Source selects the adapter the indices are built from.
	Source string

	// Dir holds the flat-file exports (plan index, letters, user parts).
	Dir              string
	PlanExportFile   string
	LettersFile      string
	UserExportPrefix string

	// MySQLDSN is required when Source is "warehouse".
	MySQLDSN string

	// LoadTimeout bounds a single source load (file read or warehouse
	// query).
	LoadTimeout time.Duration

	// Watch enables the rebuild-on-change watcher over Dir.
	Watch bool
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignores error if not found)
	_ = godotenv.Load()

	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		return nil, errors.New("SESSION_SECRET environment variable is required")
	}

	password := os.Getenv("APP_PASSWORD")
	passwordHash := os.Getenv("APP_PASSWORD_HASH")
	if password == "" && passwordHash == "" {
		return nil, errors.New("APP_PASSWORD or APP_PASSWORD_HASH environment variable is required")
	}
	if password != "" && passwordHash != "" {
		return nil, errors.New("APP_PASSWORD and APP_PASSWORD_HASH are mutually exclusive")
	}

	source := getEnv("DATA_SOURCE", SourceCSV)
	if source != SourceCSV && source != SourceWarehouse {
		return nil, fmt.Errorf("DATA_SOURCE must be %q or %q, got %q", SourceCSV, SourceWarehouse, source)
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if source == SourceWarehouse && mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required when DATA_SOURCE is warehouse")
	}

	return &Config{
		HTTP: HTTPConfig{
			Host: getEnv("HTTP_HOST", ""),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		Session: SessionConfig{
			Secret:       sessionSecret,
			TTL:          getDurationEnv("SESSION_TTL", 8*time.Hour),
			Password:     password,
			PasswordHash: passwordHash,
		},
		Data: DataConfig{
			Source:           source,
			Dir:              getEnv("DATA_DIR", "data"),
			PlanExportFile:   getEnv("PLAN_EXPORT_FILE", "grouped_by_email.csv"),
			LettersFile:      getEnv("LETTERS_FILE", "letters.csv"),
			UserExportPrefix: getEnv("USER_EXPORT_PREFIX", "user_part"),
			MySQLDSN:         mysqlDSN,
			LoadTimeout:      getDurationEnv("LOAD_TIMEOUT", 2*time.Minute),
			Watch:            getBoolEnv("WATCH_DATA_DIR", false),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
