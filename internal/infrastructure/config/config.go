package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Vault     VaultConfig
	Plaid     PlaidConfig
	Stripe    StripeConfig
	Sync      SyncConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres or sqlite
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	AutoMigrate     bool
}

// RedisConfig holds Redis connection settings. An empty host disables Redis.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
	Output string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	TrustedProxies []string
	CORSOrigins    []string
}

// VaultConfig holds the credential vault key
type VaultConfig struct {
	// EncryptionKey is either 64 hex characters or a passphrase
	EncryptionKey string
}

// PlaidConfig holds aggregator client settings
type PlaidConfig struct {
	ClientID     string
	Secret       string
	Environment  string // sandbox, development, production
	BaseURL      string
	WebhookURL   string
	ClientName   string
	Products     []string
	CountryCodes []string
	Language     string
	Timeout      time.Duration
}

// StripeConfig holds payment processor client settings
type StripeConfig struct {
	SecretKey         string
	BaseURL           string
	Timeout           time.Duration
	PageSize          int64
	MaxNetworkRetries int64
}

// SyncConfig holds orchestrator and scheduler settings
type SyncConfig struct {
	Enabled             bool
	Schedule            string
	DefaultWindowDays   int
	ScheduledWindowDays int
	HistorySize         int
	WebhookDedupTTL     time.Duration
}

// TelemetryConfig holds OpenTelemetry tracing settings
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	Insecure          bool
	DBTracing         bool
	SlowQueryThresh   time.Duration
	MetricsEnabled    bool
	MetricsInterval   time.Duration
	LogsEnabled       bool
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CFO_ prefix (e.g., CFO_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit config file path. An empty path searches
// the working directory and /app for config.toml.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("/app")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("CFO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("sync.enabled", true)
	v.SetDefault("telemetry.sampling_ratio", 1.0)
	v.SetDefault("telemetry.db_tracing", true)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			SQLitePath:      v.GetString("database.sqlite_path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
			CORSOrigins:    v.GetStringSlice("http.cors_origins"),
		},
		Vault: VaultConfig{
			EncryptionKey: v.GetString("vault.encryption_key"),
		},
		Plaid: PlaidConfig{
			ClientID:     v.GetString("plaid.client_id"),
			Secret:       v.GetString("plaid.secret"),
			Environment:  v.GetString("plaid.environment"),
			BaseURL:      v.GetString("plaid.base_url"),
			WebhookURL:   v.GetString("plaid.webhook_url"),
			ClientName:   v.GetString("plaid.client_name"),
			Products:     v.GetStringSlice("plaid.products"),
			CountryCodes: v.GetStringSlice("plaid.country_codes"),
			Language:     v.GetString("plaid.language"),
			Timeout:      v.GetDuration("plaid.timeout"),
		},
		Stripe: StripeConfig{
			SecretKey:         v.GetString("stripe.secret_key"),
			BaseURL:           v.GetString("stripe.base_url"),
			Timeout:           v.GetDuration("stripe.timeout"),
			PageSize:          v.GetInt64("stripe.page_size"),
			MaxNetworkRetries: v.GetInt64("stripe.max_network_retries"),
		},
		Sync: SyncConfig{
			Enabled:             v.GetBool("sync.enabled"),
			Schedule:            v.GetString("sync.schedule"),
			DefaultWindowDays:   v.GetInt("sync.default_window_days"),
			ScheduledWindowDays: v.GetInt("sync.scheduled_window_days"),
			HistorySize:         v.GetInt("sync.history_size"),
			WebhookDedupTTL:     v.GetDuration("sync.webhook_dedup_ttl"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTracing:         v.GetBool("telemetry.db_tracing"),
			SlowQueryThresh:   v.GetDuration("telemetry.slow_query_thresh"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "cfo-sync"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "cfo"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "cfo.db"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		// full processor syncs run inside the request
		cfg.HTTP.WriteTimeout = 5 * time.Minute
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	if cfg.Plaid.Environment == "" {
		cfg.Plaid.Environment = "sandbox"
	}
	if cfg.Plaid.ClientName == "" {
		cfg.Plaid.ClientName = "CFO Sync"
	}
	if len(cfg.Plaid.Products) == 0 {
		cfg.Plaid.Products = []string{"transactions"}
	}
	if len(cfg.Plaid.CountryCodes) == 0 {
		cfg.Plaid.CountryCodes = []string{"US"}
	}
	if cfg.Plaid.Language == "" {
		cfg.Plaid.Language = "en"
	}
	if cfg.Plaid.Timeout == 0 {
		cfg.Plaid.Timeout = 30 * time.Second
	}
	if cfg.Stripe.Timeout == 0 {
		cfg.Stripe.Timeout = 30 * time.Second
	}
	if cfg.Stripe.PageSize == 0 {
		cfg.Stripe.PageSize = 100
	}
	if cfg.Stripe.MaxNetworkRetries == 0 {
		cfg.Stripe.MaxNetworkRetries = 2
	}
	if cfg.Sync.Schedule == "" {
		cfg.Sync.Schedule = "0 */6 * * *"
	}
	if cfg.Sync.DefaultWindowDays == 0 {
		cfg.Sync.DefaultWindowDays = 30
	}
	if cfg.Sync.ScheduledWindowDays == 0 {
		cfg.Sync.ScheduledWindowDays = 7
	}
	if cfg.Sync.HistorySize == 0 {
		cfg.Sync.HistorySize = 50
	}
	if cfg.Sync.WebhookDedupTTL == 0 {
		cfg.Sync.WebhookDedupTTL = 10 * time.Minute
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SlowQueryThresh == 0 {
		cfg.Telemetry.SlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Vault.EncryptionKey == "" {
		return fmt.Errorf("vault.encryption_key is required")
	}
	switch c.Plaid.Environment {
	case "sandbox", "development", "production":
	default:
		return fmt.Errorf("plaid.environment must be sandbox, development or production, got %q", c.Plaid.Environment)
	}
	if c.Sync.DefaultWindowDays < 0 || c.Sync.ScheduledWindowDays < 0 {
		return fmt.Errorf("sync window days cannot be negative")
	}
	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0 and 1")
	}
	if c.Stripe.PageSize < 1 || c.Stripe.PageSize > 100 {
		return fmt.Errorf("stripe.page_size must be between 1 and 100")
	}

	if c.App.Env == "production" {
		if len(c.Vault.EncryptionKey) < 32 {
			return fmt.Errorf("vault.encryption_key must be at least 32 characters in production")
		}
		if c.Database.Driver != "postgres" {
			return fmt.Errorf("database.driver must be postgres in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Plaid.Secret == "" || c.Plaid.ClientID == "" {
			return fmt.Errorf("plaid.client_id and plaid.secret are required in production")
		}
	}
	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.SQLitePath
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
