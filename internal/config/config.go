package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/joho/godotenv"
)

const (
	EventSourcePostgres = "postgres"
	EventSourceRemote   = "remote"
)

type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Redis       RedisConfig
	EventSource EventSourceConfig
	Attendance  AttendanceConfig
	Anomaly     AnomalyConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Name           string
	Version        string
	Port           int
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	Name        string
	SSLMode     string
	AutoMigrate bool
}

// JWTConfig holds JWT configuration. Tokens are issued by the HRIS auth
// service; this service only verifies them.
type JWTConfig struct {
	Secret           string
	AccessExpiration time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// EventSourceConfig selects where punches are read from.
type EventSourceConfig struct {
	Type       string
	BaseURL    string
	Token      string
	Timeout    time.Duration
	RetryCount int
	PageSize   int
}

// AttendanceConfig holds the aggregation rules.
type AttendanceConfig struct {
	ReportTimezone     string
	CompleteDayMinutes int
	StandardDayMinutes int
	FetchTimeout       time.Duration
	Workers            int
}

type AnomalyConfig struct {
	Enabled             bool
	Window              time.Duration
	DuplicateWindow     time.Duration
	AutoCloseMissingOut bool
	ScanInterval        time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded, using process environment", "error", err)
	}

	var errs []error
	config := &Config{}

	// Application configuration
	config.App = AppConfig{
		Name:           getEnv("APP_NAME", "attendance-engine"),
		Version:        getEnv("APP_VERSION", "v1.0.0"),
		Port:           getEnvInt("APP_PORT", 8080, &errs),
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}

	// Database configuration
	config.Database = DatabaseConfig{
		Host:        getEnv("DB_HOST", "localhost"),
		Port:        getEnvInt("DB_PORT", 5432, &errs),
		User:        getEnv("DB_USER", "postgres"),
		Password:    getEnv("DB_PASSWORD", ""),
		Name:        getEnv("DB_NAME", "cmlabs-hris"),
		SSLMode:     getEnv("DB_SSL_MODE", "disable"),
		AutoMigrate: getEnvBool("DB_AUTO_MIGRATE", false, &errs),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnvDuration("JWT_ACCESS_EXPIRATION_TIME", time.Hour, &errs),
	}

	// Redis configuration
	config.Redis = RedisConfig{
		Enabled:  getEnvBool("REDIS_ENABLED", false, &errs),
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0, &errs),
		TTL:      getEnvDuration("REDIS_SUMMARY_TTL", 24*time.Hour, &errs),
	}

	// Event source configuration
	config.EventSource = EventSourceConfig{
		Type:       strings.ToLower(getEnv("EVENT_SOURCE", EventSourcePostgres)),
		BaseURL:    getEnv("EVENT_SOURCE_BASE_URL", ""),
		Token:      getEnv("EVENT_SOURCE_TOKEN", ""),
		Timeout:    getEnvDuration("EVENT_SOURCE_TIMEOUT", 10*time.Second, &errs),
		RetryCount: getEnvInt("EVENT_SOURCE_RETRY_COUNT", 2, &errs),
		PageSize:   getEnvInt("EVENT_SOURCE_PAGE_SIZE", 500, &errs),
	}

	// Aggregation rules
	config.Attendance = AttendanceConfig{
		ReportTimezone:     getEnv("REPORT_TIMEZONE", "Asia/Kolkata"),
		CompleteDayMinutes: getEnvInt("COMPLETE_DAY_MINUTES", attendance.DefaultCompleteDayMinutes, &errs),
		StandardDayMinutes: getEnvInt("STANDARD_DAY_MINUTES", attendance.DefaultStandardDayMinutes, &errs),
		FetchTimeout:       getEnvDuration("ATTENDANCE_FETCH_TIMEOUT", 15*time.Second, &errs),
		Workers:            getEnvInt("ATTENDANCE_WORKERS", 8, &errs),
	}

	// Anomaly detection
	config.Anomaly = AnomalyConfig{
		Enabled:             getEnvBool("ANOMALY_SCAN_ENABLED", true, &errs),
		Window:              getEnvDuration("ANOMALY_WINDOW", 24*time.Hour, &errs),
		DuplicateWindow:     getEnvDuration("ANOMALY_DUPLICATE_WINDOW", 2*time.Minute, &errs),
		AutoCloseMissingOut: getEnvBool("ANOMALY_AUTO_CLOSE_MISSING_OUT", true, &errs),
		ScanInterval:        getEnvDuration("ANOMALY_SCAN_INTERVAL", 15*time.Minute, &errs),
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}

	switch c.EventSource.Type {
	case EventSourcePostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case EventSourceRemote:
		if c.EventSource.BaseURL == "" {
			return fmt.Errorf("EVENT_SOURCE_BASE_URL is required when EVENT_SOURCE=remote")
		}
	default:
		return fmt.Errorf("EVENT_SOURCE must be %q or %q, got %q", EventSourcePostgres, EventSourceRemote, c.EventSource.Type)
	}

	if c.Attendance.CompleteDayMinutes <= 0 || c.Attendance.StandardDayMinutes <= 0 {
		return fmt.Errorf("COMPLETE_DAY_MINUTES and STANDARD_DAY_MINUTES must be positive")
	}
	if c.Attendance.CompleteDayMinutes > 24*60 || c.Attendance.StandardDayMinutes > 24*60 {
		return fmt.Errorf("day thresholds must not exceed 1440 minutes")
	}
	if c.Attendance.Workers <= 0 {
		return fmt.Errorf("ATTENDANCE_WORKERS must be positive")
	}
	if _, err := time.LoadLocation(c.Attendance.ReportTimezone); err != nil {
		slog.Warn("Report timezone not found in tzdata, the fixed offset fallback applies", "timezone", c.Attendance.ReportTimezone)
	}

	if c.Anomaly.Enabled && c.Anomaly.ScanInterval <= 0 {
		return fmt.Errorf("ANOMALY_SCAN_INTERVAL must be positive")
	}
	if c.Anomaly.Window <= 0 || c.Anomaly.DuplicateWindow <= 0 {
		return fmt.Errorf("ANOMALY_WINDOW and ANOMALY_DUPLICATE_WINDOW must be positive")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.App.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	var result []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}

func getEnvInt(key string, fallback int, errs *[]error) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool, errs *[]error) bool {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return d
}
