package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const devSignedURLSecret = "dev_reports_secret"

// Data sources the snapshot repository can read from.
const (
	DataSourceMemory   = "memory"
	DataSourceDatabase = "database"
)

// Database drivers understood by pkg/database.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Data        DataConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	CORS        CORSConfig
	Log         LogConfig
	Analytics   AnalyticsConfig
	Reports     ReportsConfig
	Insights    InsightsConfig
	Leaderboard LeaderboardConfig
}

// DataConfig selects where participation records are read from.
type DataConfig struct {
	Source      string
	FixturePath string
}

type DatabaseConfig struct {
	Driver       string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	SQLitePath   string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AnalyticsConfig governs feature flagging and cache behaviour for analytics endpoints.
type AnalyticsConfig struct {
	Enabled  bool
	CacheTTL time.Duration
}

// ReportsConfig configures asynchronous report generation.
type ReportsConfig struct {
	Enabled           bool
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	CleanupInterval   time.Duration
	WorkerConcurrency int
	WorkerRetries     int
}

// InsightsConfig points at an optional TOML rule table for report recommendations.
type InsightsConfig struct {
	RulesFile string
}

// LeaderboardConfig tunes leaderboard defaults.
type LeaderboardConfig struct {
	DefaultLimit     int
	AnonymizeDefault bool
}

// Load reads configuration from the environment, optionally seeded by a
// .env file in the working directory, and validates it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read .env: %w", err)
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every setting that would stop the service from starting.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if !strings.HasPrefix(c.APIPrefix, "/") {
		errs = append(errs, fmt.Errorf("API_PREFIX %q must start with /", c.APIPrefix))
	}
	switch c.Data.Source {
	case DataSourceMemory:
	case DataSourceDatabase:
		if c.Database.Driver != DriverPostgres && c.Database.Driver != DriverSQLite {
			errs = append(errs, fmt.Errorf("DB_DRIVER %q is not postgres or sqlite", c.Database.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("DATA_SOURCE %q is not memory or database", c.Data.Source))
	}
	if c.Reports.Enabled {
		if c.Reports.WorkerConcurrency <= 0 {
			errs = append(errs, errors.New("REPORTS_WORKER_CONCURRENCY must be positive"))
		}
		if c.Reports.SignedURLSecret == "" {
			errs = append(errs, errors.New("REPORTS_SIGNED_URL_SECRET is required when reports are enabled"))
		}
		if c.Env == EnvProduction && c.Reports.SignedURLSecret == devSignedURLSecret {
			errs = append(errs, errors.New("REPORTS_SIGNED_URL_SECRET must be changed in production"))
		}
	}
	if c.Leaderboard.DefaultLimit <= 0 {
		errs = append(errs, errors.New("LEADERBOARD_DEFAULT_LIMIT must be positive"))
	}
	return errors.Join(errs...)
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Data = DataConfig{
		Source:      strings.ToLower(v.GetString("DATA_SOURCE")),
		FixturePath: v.GetString("DATA_FIXTURE_PATH"),
	}

	cfg.Database = DatabaseConfig{
		Driver:       strings.ToLower(v.GetString("DB_DRIVER")),
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		SQLitePath:   v.GetString("DB_SQLITE_PATH"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Analytics = AnalyticsConfig{
		Enabled:  v.GetBool("ENABLE_ANALYTICS"),
		CacheTTL: parseDuration(v.GetString("ANALYTICS_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Reports = ReportsConfig{
		Enabled:           v.GetBool("ENABLE_REPORTS"),
		StorageDir:        v.GetString("REPORTS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("REPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("REPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval:   parseDuration(v.GetString("REPORTS_CLEANUP_INTERVAL"), time.Hour),
		WorkerConcurrency: v.GetInt("REPORTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("REPORTS_WORKER_RETRIES"),
	}

	cfg.Insights = InsightsConfig{
		RulesFile: v.GetString("INSIGHT_RULES_FILE"),
	}

	cfg.Leaderboard = LeaderboardConfig{
		DefaultLimit:     v.GetInt("LEADERBOARD_DEFAULT_LIMIT"),
		AnonymizeDefault: v.GetBool("LEADERBOARD_ANONYMIZE"),
	}

	return cfg
}

var defaults = map[string]interface{}{
	"ENV":        EnvDevelopment,
	"PORT":       8080,
	"API_PREFIX": "/api/v1",

	"DATA_SOURCE":       DataSourceMemory,
	"DATA_FIXTURE_PATH": "",

	"DB_DRIVER":         DriverSQLite,
	"DB_HOST":           "localhost",
	"DB_PORT":           5432,
	"DB_USER":           "postgres",
	"DB_PASSWORD":       "postgres",
	"DB_NAME":           "sdg_impact",
	"DB_SSL_MODE":       "disable",
	"DB_SQLITE_PATH":    "./sdg_impact.db",
	"DB_MAX_OPEN_CONNS": 10,
	"DB_MAX_IDLE_CONNS": 5,

	"ENABLE_REDIS":   false,
	"REDIS_HOST":     "localhost",
	"REDIS_PORT":     6379,
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,

	"ALLOWED_ORIGINS": "",
	"LOG_LEVEL":       "info",
	"LOG_FORMAT":      "json",

	"ENABLE_ANALYTICS":    true,
	"ANALYTICS_CACHE_TTL": "10m",

	"ENABLE_REPORTS":             true,
	"REPORTS_STORAGE_DIR":        "./exports",
	"REPORTS_SIGNED_URL_SECRET":  devSignedURLSecret,
	"REPORTS_SIGNED_URL_TTL":     "24h",
	"REPORTS_CLEANUP_INTERVAL":   "1h",
	"REPORTS_WORKER_CONCURRENCY": 1,
	"REPORTS_WORKER_RETRIES":     3,

	"INSIGHT_RULES_FILE": "",

	"LEADERBOARD_DEFAULT_LIMIT": 10,
	"LEADERBOARD_ANONYMIZE":     false,
}

func setDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
