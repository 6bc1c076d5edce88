package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/viper"

	"dronewerx/internal/pkg/validator"
)

const (
	defaultAppEnv          = "dev"
	defaultHTTPAddr        = ":8000"
	defaultStorageBaseDir  = "."
	defaultUploadMaxBytes  = "104857600" // 100 MiB
	defaultSSLMode         = "disable"
	defaultMaxOpenConns    = "15"
	defaultMaxIdleConns    = "5"
	defaultConnMaxLifetime = "5m"
	defaultRequestTimeout  = "60s"
	defaultLogLevel        = "info"
	defaultLogFormat       = "json"
	defaultSweepInterval   = "0s"
	defaultSweepGrace      = "1h"
)

type Config struct {
	AppEnv             string
	HTTPAddr           string `env:"HTTP_ADDR" validate:"required"`
	RequestTimeout     time.Duration
	CORSAllowedOrigins []string

	Database DatabaseConfig
	Storage  StorageConfig
	Log      LogConfig
	Sweep    SweepConfig
}

// DatabaseConfig holds the five connection variables. DATABASE_URL, when set,
// replaces them (a postgres:// URL or a SQLite file for local development).
type DatabaseConfig struct {
	URL      string `env:"DATABASE_URL"`
	User     string `env:"DB_USER" validate:"required_without=URL"`
	Password string `env:"DB_PASS" validate:"required_without=URL"`
	Host     string `env:"DB_HOST" validate:"required_without=URL"`
	Port     string `env:"DB_PORT" validate:"required_without=URL"`
	Name     string `env:"DB_NAME" validate:"required_without=URL"`
	SSLMode  string `env:"DB_SSLMODE"`

	MaxOpenConns    int `env:"DB_MAX_OPEN_CONNS" validate:"gte=1"`
	MaxIdleConns    int `env:"DB_MAX_IDLE_CONNS" validate:"gte=0"`
	ConnMaxLifetime time.Duration
}

type StorageConfig struct {
	BaseDir string `env:"STORAGE_BASE_DIR" validate:"required"`
	// MaxBytes caps a single upload; 0 disables the cap.
	MaxBytes int64 `env:"UPLOAD_MAX_BYTES" validate:"gte=0"`
}

type LogConfig struct {
	Level  string
	Format string
}

type SweepConfig struct {
	Interval time.Duration
	Grace    time.Duration
}

// Load reads the environment, plus the file named by CONFIG_FILE when present.
// Environment values win over the file.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	if file := strings.TrimSpace(os.Getenv("CONFIG_FILE")); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	return FromViper(v)
}

func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppEnv:   strings.ToLower(getString(v, "app_env", defaultAppEnv)),
		HTTPAddr: getString(v, "http_addr", defaultHTTPAddr),
		Database: DatabaseConfig{
			URL:      getString(v, "database_url", ""),
			User:     getString(v, "db_user", ""),
			Password: v.GetString("db_pass"),
			Host:     getString(v, "db_host", ""),
			Port:     getString(v, "db_port", ""),
			Name:     getString(v, "db_name", ""),
			SSLMode:  getString(v, "db_sslmode", defaultSSLMode),
		},
		Storage: StorageConfig{
			BaseDir: getString(v, "storage_base_dir", defaultStorageBaseDir),
		},
		Log: LogConfig{
			Level:  getString(v, "log_level", defaultLogLevel),
			Format: getString(v, "log_format", defaultLogFormat),
		},
		CORSAllowedOrigins: splitList(getString(v, "cors_allowed_origins", "")),
	}

	var err error
	if cfg.RequestTimeout, err = parseDuration(v, "request_timeout", defaultRequestTimeout); err != nil {
		return nil, err
	}
	if cfg.Database.ConnMaxLifetime, err = parseDuration(v, "db_conn_max_lifetime", defaultConnMaxLifetime); err != nil {
		return nil, err
	}
	if cfg.Sweep.Interval, err = parseDuration(v, "sweep_interval", defaultSweepInterval); err != nil {
		return nil, err
	}
	if cfg.Sweep.Grace, err = parseDuration(v, "sweep_grace", defaultSweepGrace); err != nil {
		return nil, err
	}
	if cfg.Database.MaxOpenConns, err = parseInt(v, "db_max_open_conns", defaultMaxOpenConns); err != nil {
		return nil, err
	}
	if cfg.Database.MaxIdleConns, err = parseInt(v, "db_max_idle_conns", defaultMaxIdleConns); err != nil {
		return nil, err
	}
	maxBytes, err := parseInt(v, "upload_max_bytes", defaultUploadMaxBytes)
	if err != nil {
		return nil, err
	}
	cfg.Storage.MaxBytes = int64(maxBytes)

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether APP_ENV names a production-like environment.
func (c *Config) IsProduction() bool {
	return isProdLike(c.AppEnv)
}

// DSN returns the connection string. The five DB_* values are combined into a
// postgres URL and checked with pgx so a malformed setting fails at startup.
func (d DatabaseConfig) DSN() (string, error) {
	if d.URL != "" {
		if isPostgresURL(d.URL) {
			if _, err := pgx.ParseConfig(d.URL); err != nil {
				return "", fmt.Errorf("invalid DATABASE_URL: %w", err)
			}
		}
		return d.URL, nil
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   net.JoinHostPort(d.Host, d.Port),
		Path:   "/" + d.Name,
	}
	q := url.Values{}
	if d.SSLMode != "" {
		q.Set("sslmode", d.SSLMode)
	}
	u.RawQuery = q.Encode()

	dsn := u.String()
	if _, err := pgx.ParseConfig(dsn); err != nil {
		return "", fmt.Errorf("invalid database settings: %w", err)
	}
	return dsn, nil
}

func validateConfig(cfg *Config) error {
	if errs := validator.Validate(cfg); len(errs) > 0 {
		names := make([]string, 0, len(errs))
		for field, tag := range errs {
			if strings.HasPrefix(tag, "required") {
				names = append(names, field+" is required")
				continue
			}
			names = append(names, fmt.Sprintf("%s is invalid (%s)", field, tag))
		}
		sort.Strings(names)
		return fmt.Errorf("invalid configuration: %s", strings.Join(names, ", "))
	}

	if cfg.Database.URL == "" {
		port, err := strconv.Atoi(cfg.Database.Port)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("DB_PORT must be a port number, got %q", cfg.Database.Port)
		}
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be > 0")
	}
	if cfg.Sweep.Interval < 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be >= 0")
	}
	if cfg.Sweep.Grace <= 0 {
		return fmt.Errorf("SWEEP_GRACE must be > 0")
	}
	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isPostgresURL(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func parseDuration(v *viper.Viper, key, fallback string) (time.Duration, error) {
	value := getString(v, key, fallback)
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", strings.ToUpper(key), value, err)
	}
	return d, nil
}

func parseInt(v *viper.Viper, key, fallback string) (int, error) {
	value := getString(v, key, fallback)
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", strings.ToUpper(key), value, err)
	}
	return n, nil
}

func getString(v *viper.Viper, key, fallback string) string {
	if s := strings.TrimSpace(v.GetString(key)); s != "" {
		return s
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
