package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Telemetry TelemetryConfig
	Cache     CacheConfig
	Reconcile ReconcileConfig
	Invoicing InvoicingConfig
	Swagger   SwaggerConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level     string
	Format    string
	Output    string
	GormLevel string
}

// AppConfig holds application configuration
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database configuration. Driver is "postgres" or
// "sqlite"; for sqlite DBName is the file path (":memory:" allowed).
type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // minutes
	SlowThreshold   time.Duration
}

// RedisConfig holds redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxBodySize       int64
	CORSAllowOrigins  []string
	RequestTimeout    time.Duration
	TrustedProxies    []string
	EnableOTelTracing bool
	// RateLimit is the per-client request budget per RateLimitWindow; 0 disables
	RateLimit       int
	RateLimitWindow time.Duration
	IdempotencyTTL  time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration. All signals share
// one collector endpoint.
type TelemetryConfig struct {
	TracingEnabled    bool
	MetricsEnabled    bool
	LogsEnabled       bool
	DBTracingEnabled  bool
	CollectorEndpoint string
	SamplingRatio     float64
	ExportInterval    time.Duration
	Insecure          bool
}

// CacheConfig controls the dependent-view query cache
type CacheConfig struct {
	TTL               time.Duration
	CleanupInterval   time.Duration
	RedisInvalidation bool
	Channel           string
}

// ReconcileConfig controls the totals reconciliation protocol
type ReconcileConfig struct {
	BatchDelay           time.Duration
	FieldDelay           time.Duration
	InvalidateMilestones bool
	SettleMode           string // delay, ack
}

// SwaggerConfig controls the /swagger API documentation endpoint
type SwaggerConfig struct {
	Enabled    bool
	AllowedIPs []string // IPs or CIDRs; empty allows everyone
}

// InvoicingConfig holds pricing defaults for new invoices
type InvoicingConfig struct {
	DefaultTaxRate float64
}

// Load reads config.toml (optional) and CATERING_* environment variables
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("CATERING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys whose zero value is not the default
	v.SetDefault("reconcile.invalidate_milestones", true)
	v.SetDefault("http.enable_otel_tracing", true)
	v.SetDefault("telemetry.sampling_ratio", 1.0)
	v.SetDefault("swagger.enabled", true)

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
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			SlowThreshold:   v.GetDuration("database.slow_threshold"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:     v.GetString("log.level"),
			Format:    v.GetString("log.format"),
			Output:    v.GetString("log.output"),
			GormLevel: v.GetString("log.gorm_level"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:   v.GetDuration("http.shutdown_timeout"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			RequestTimeout:    v.GetDuration("http.request_timeout"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
			EnableOTelTracing: v.GetBool("http.enable_otel_tracing"),
			RateLimit:         v.GetInt("http.rate_limit"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			IdempotencyTTL:    v.GetDuration("http.idempotency_ttl"),
		},
		Telemetry: TelemetryConfig{
			TracingEnabled:    v.GetBool("telemetry.tracing_enabled"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTracingEnabled:  v.GetBool("telemetry.db_tracing_enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ExportInterval:    v.GetDuration("telemetry.export_interval"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
		Cache: CacheConfig{
			TTL:               v.GetDuration("cache.ttl"),
			CleanupInterval:   v.GetDuration("cache.cleanup_interval"),
			RedisInvalidation: v.GetBool("cache.redis_invalidation"),
			Channel:           v.GetString("cache.channel"),
		},
		Reconcile: ReconcileConfig{
			BatchDelay:           v.GetDuration("reconcile.batch_delay"),
			FieldDelay:           v.GetDuration("reconcile.field_delay"),
			InvalidateMilestones: v.GetBool("reconcile.invalidate_milestones"),
			SettleMode:           v.GetString("reconcile.settle_mode"),
		},
		Invoicing: InvoicingConfig{
			DefaultTaxRate: v.GetFloat64("invoicing.default_tax_rate"),
		},
		Swagger: SwaggerConfig{
			Enabled:    v.GetBool("swagger.enabled"),
			AllowedIPs: v.GetStringSlice("swagger.allowed_ips"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "catering-invoicing"
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
		cfg.Database.DBName = "catering"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
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
	if cfg.Database.SlowThreshold == 0 {
		cfg.Database.SlowThreshold = 200 * time.Millisecond
	}

	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Log.GormLevel == "" {
		cfg.Log.GormLevel = "warn"
	}

	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 30 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 120 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 15 * time.Second
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	if cfg.HTTP.RequestTimeout == 0 {
		cfg.HTTP.RequestTimeout = 10 * time.Second
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.HTTP.IdempotencyTTL == 0 {
		cfg.HTTP.IdempotencyTTL = 24 * time.Hour
	}

	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = 60 * time.Second
	}

	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 5 * time.Minute
	}
	if cfg.Cache.CleanupInterval == 0 {
		cfg.Cache.CleanupInterval = 10 * time.Minute
	}
	if cfg.Cache.Channel == "" {
		cfg.Cache.Channel = "catering:query-invalidation"
	}

	if cfg.Reconcile.BatchDelay == 0 {
		cfg.Reconcile.BatchDelay = 200 * time.Millisecond
	}
	if cfg.Reconcile.FieldDelay == 0 {
		cfg.Reconcile.FieldDelay = 100 * time.Millisecond
	}
	if cfg.Reconcile.SettleMode == "" {
		cfg.Reconcile.SettleMode = "delay"
	}

	if cfg.Invoicing.DefaultTaxRate == 0 {
		cfg.Invoicing.DefaultTaxRate = 0.08
	}
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.HTTP.RateLimit < 0 {
		return fmt.Errorf("http.rate_limit cannot be negative")
	}

	if c.Reconcile.BatchDelay < 0 || c.Reconcile.FieldDelay < 0 {
		return fmt.Errorf("reconcile delays cannot be negative")
	}
	switch c.Reconcile.SettleMode {
	case "delay", "ack":
	default:
		return fmt.Errorf("reconcile.settle_mode must be delay or ack, got %q", c.Reconcile.SettleMode)
	}

	if c.Invoicing.DefaultTaxRate < 0 || c.Invoicing.DefaultTaxRate >= 1 {
		return fmt.Errorf("invoicing.default_tax_rate must be in [0, 1), got %f", c.Invoicing.DefaultTaxRate)
	}

	if c.App.Env == "production" {
		if c.Database.Driver == "sqlite" {
			return fmt.Errorf("database.driver sqlite is not supported in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("http.cors_allow_origins cannot be '*' in production")
			}
		}
		if c.Swagger.Enabled && len(c.Swagger.AllowedIPs) == 0 {
			return fmt.Errorf("swagger endpoint must be disabled or restricted by swagger.allowed_ips in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.DBName
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
