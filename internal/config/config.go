package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Booking    BookingConfig    `yaml:"booking"`
	Tariffs    TariffsConfig    `yaml:"tariffs"`
	Catalog    CatalogConfig    `yaml:"catalog"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path          string `yaml:"path"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms"`
	MaxRetries    int    `yaml:"max_retries"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"` // Go duration, e.g. "24h"
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

// Interval parses Schedule, falling back to a day.
func (c BackupConfig) Interval() time.Duration {
	if d, err := time.ParseDuration(c.Schedule); err == nil && d > 0 {
		return d
	}
	return 24 * time.Hour
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type BookingConfig struct {
	HoldTTLMinutes          int    `yaml:"hold_ttl_minutes"`
	SweepIntervalSeconds    int    `yaml:"sweep_interval_seconds"`
	RequirePaymentCapture   bool   `yaml:"require_payment_capture"`
	CancelFullRefundHours   int    `yaml:"cancel_full_refund_hours"`
	CancelPartialPercentage int    `yaml:"cancel_partial_percentage"`
	MaxAdvanceDays          int    `yaml:"max_advance_days"`
	DefaultSlotMinutes      int    `yaml:"default_slot_minutes"`
	DefaultCurrency         string `yaml:"default_currency"`
}

func (c BookingConfig) HoldTTL() time.Duration {
	return time.Duration(c.HoldTTLMinutes) * time.Minute
}

func (c BookingConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

func (c BookingConfig) FullRefundThreshold() time.Duration {
	return time.Duration(c.CancelFullRefundHours) * time.Hour
}

type TariffsConfig struct {
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	CacheBackend    string `yaml:"cache_backend"` // memory, redis
}

func (c TariffsConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

type CatalogConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	config := newConfig()
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Booking.HoldTTLMinutes <= 0 {
		return errors.New("booking.hold_ttl_minutes must be positive")
	}
	if c.Booking.SweepIntervalSeconds <= 0 {
		return errors.New("booking.sweep_interval_seconds must be positive")
	}
	if p := c.Booking.CancelPartialPercentage; p < 0 || p > 100 {
		return fmt.Errorf("booking.cancel_partial_percentage must be within 0..100, got %d", p)
	}
	if c.Booking.CancelFullRefundHours < 0 {
		return errors.New("booking.cancel_full_refund_hours must not be negative")
	}
	if m := c.Booking.DefaultSlotMinutes; m < 15 || m > 240 {
		return fmt.Errorf("booking.default_slot_minutes must be within 15..240, got %d", m)
	}
	switch c.Tariffs.CacheBackend {
	case "memory":
	case "redis":
		if c.Redis.Address == "" {
			return errors.New("tariffs.cache_backend=redis requires redis.address")
		}
	default:
		return fmt.Errorf("unknown tariffs.cache_backend %q", c.Tariffs.CacheBackend)
	}
	if c.Backup.Enabled && c.Backup.StoragePath == "" {
		return errors.New("backup.storage_path is required when backups are enabled")
	}
	return nil
}

// newConfig seeds the fields where zero is a meaningful setting, so an
// explicit 0 in the file survives unmarshalling.
func newConfig() Config {
	return Config{
		Booking: BookingConfig{
			CancelFullRefundHours:   24,
			CancelPartialPercentage: 50,
		},
	}
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "courtbook"
	}
	if c.Database.BusyTimeoutMS == 0 {
		c.Database.BusyTimeoutMS = 5000
	}
	if c.Database.MaxRetries == 0 {
		c.Database.MaxRetries = 3
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}

	if c.Booking.HoldTTLMinutes == 0 {
		c.Booking.HoldTTLMinutes = 10
	}
	if c.Booking.SweepIntervalSeconds == 0 {
		c.Booking.SweepIntervalSeconds = 60
	}
	if c.Booking.MaxAdvanceDays == 0 {
		c.Booking.MaxAdvanceDays = 365
	}
	if c.Booking.DefaultSlotMinutes == 0 {
		c.Booking.DefaultSlotMinutes = 60
	}
	if c.Booking.DefaultCurrency == "" {
		c.Booking.DefaultCurrency = "COP"
	}

	if c.Tariffs.CacheTTLSeconds == 0 {
		c.Tariffs.CacheTTLSeconds = 300
	}
	if c.Tariffs.CacheBackend == "" {
		c.Tariffs.CacheBackend = "memory"
	}
}
