package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Recipient store backends
const (
	RecipientBackendPostgres = "postgres"
	RecipientBackendRedis    = "redis"
	RecipientBackendDynamoDB = "dynamodb"
	RecipientBackendMemory   = "memory"
)

// Object storage backends
const (
	StorageBackendS3     = "s3"
	StorageBackendMemory = "memory"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	DynamoDB   DynamoDBConfig
	Storage    StorageConfig
	Renderer   RendererConfig
	Issuance   IssuanceConfig
	Recipients RecipientsConfig
	Telemetry  TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	TrustedProxies   []string
	CORSAllowOrigins []string
	HealthTimeout    time.Duration // bounds all /health checks together
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host               string
	Port               int
	User               string
	Password           string
	DBName             string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    int           // in minutes
	ConnMaxIdleTime    int           // in minutes
	SlowQueryThreshold time.Duration // zero disables slow statement warnings
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns the host:port address of the Redis server
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// DynamoDBConfig holds DynamoDB client settings
type DynamoDBConfig struct {
	Region   string
	Endpoint string // optional, e.g. DynamoDB Local
}

// StorageConfig holds object storage settings
type StorageConfig struct {
	Backend       string // s3, memory
	Bucket        string
	Region        string
	Endpoint      string // optional, for S3-compatible stores
	AccessKey     string // optional, default credential chain when empty
	SecretKey     string
	UseSSL        bool
	UsePathStyle  bool
	PublicBaseURL string // optional, overrides the virtual-hosted AWS URL
	EnsureBucket  bool   // create the bucket at startup (local stores)
}

// RendererConfig holds headless browser settings
type RendererConfig struct {
	RemoteURL     string // DevTools websocket URL of a running browser
	ExecPath      string // browser binary, autodetected when empty
	NoSandbox     bool
	Timeout       time.Duration // per conversion
	LaunchTimeout time.Duration
}

// IssuanceConfig holds issuance policy settings
type IssuanceConfig struct {
	DedupPolicy  string // skip_existing, unconditional
	Mode         string // publish, record_only
	TemplatePath string // optional template file overriding the bundled one
}

// RecipientsConfig holds recipient store settings
type RecipientsConfig struct {
	Backend string // postgres, redis, dynamodb, memory
	Table   string
}

// TelemetryConfig holds tracing settings
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	Insecure          bool
	DBTracing         bool
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CERT_ prefix (e.g., CERT_STORAGE_BUCKET)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("CERT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Zero is valid for these, so the defaults cannot come from applyDefaults.
	// A zero renderer timeout disables the per-conversion deadline.
	v.SetDefault("telemetry.sampling_ratio", 1.0)
	v.SetDefault("renderer.timeout", 30*time.Second)
	v.SetDefault("database.slow_query_threshold", 200*time.Millisecond)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			HealthTimeout:    v.GetDuration("http.health_timeout"),
		},
		Database: DatabaseConfig{
			Host:               v.GetString("database.host"),
			Port:               v.GetInt("database.port"),
			User:               v.GetString("database.user"),
			Password:           v.GetString("database.password"),
			DBName:             v.GetString("database.dbname"),
			SSLMode:            v.GetString("database.sslmode"),
			MaxOpenConns:       v.GetInt("database.max_open_conns"),
			MaxIdleConns:       v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime:    v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime:    v.GetInt("database.conn_max_idle_time"),
			SlowQueryThreshold: v.GetDuration("database.slow_query_threshold"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		DynamoDB: DynamoDBConfig{
			Region:   v.GetString("dynamodb.region"),
			Endpoint: v.GetString("dynamodb.endpoint"),
		},
		Storage: StorageConfig{
			Backend:       v.GetString("storage.backend"),
			Bucket:        v.GetString("storage.bucket"),
			Region:        v.GetString("storage.region"),
			Endpoint:      v.GetString("storage.endpoint"),
			AccessKey:     v.GetString("storage.access_key"),
			SecretKey:     v.GetString("storage.secret_key"),
			UseSSL:        v.GetBool("storage.use_ssl"),
			UsePathStyle:  v.GetBool("storage.use_path_style"),
			PublicBaseURL: v.GetString("storage.public_base_url"),
			EnsureBucket:  v.GetBool("storage.ensure_bucket"),
		},
		Renderer: RendererConfig{
			RemoteURL:     v.GetString("renderer.remote_url"),
			ExecPath:      v.GetString("renderer.exec_path"),
			NoSandbox:     v.GetBool("renderer.no_sandbox"),
			Timeout:       v.GetDuration("renderer.timeout"),
			LaunchTimeout: v.GetDuration("renderer.launch_timeout"),
		},
		Issuance: IssuanceConfig{
			DedupPolicy:  v.GetString("issuance.dedup_policy"),
			Mode:         v.GetString("issuance.mode"),
			TemplatePath: v.GetString("issuance.template_path"),
		},
		Recipients: RecipientsConfig{
			Backend: v.GetString("recipients.backend"),
			Table:   v.GetString("recipients.table"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTracing:         v.GetBool("telemetry.db_tracing"),
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "certificate-service"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
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
	// Issuance runs a browser render inside the request
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 60 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.HTTP.HealthTimeout == 0 {
		cfg.HTTP.HealthTimeout = 3 * time.Second
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
		cfg.Database.DBName = "certificates"
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
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = StorageBackendS3
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.DynamoDB.Region == "" {
		cfg.DynamoDB.Region = cfg.Storage.Region
	}
	if cfg.Renderer.LaunchTimeout == 0 {
		cfg.Renderer.LaunchTimeout = 30 * time.Second
	}
	if cfg.Issuance.DedupPolicy == "" {
		cfg.Issuance.DedupPolicy = "skip_existing"
	}
	if cfg.Issuance.Mode == "" {
		cfg.Issuance.Mode = "publish"
	}
	if cfg.Recipients.Backend == "" {
		cfg.Recipients.Backend = RecipientBackendPostgres
	}
	if cfg.Recipients.Table == "" {
		cfg.Recipients.Table = "users_certificates"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	// Validate connection pool settings
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

	switch c.Recipients.Backend {
	case RecipientBackendPostgres, RecipientBackendRedis, RecipientBackendDynamoDB, RecipientBackendMemory:
	default:
		return fmt.Errorf("recipients.backend must be one of postgres, redis, dynamodb, memory, got %q", c.Recipients.Backend)
	}

	switch c.Storage.Backend {
	case StorageBackendS3:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the s3 backend")
		}
	case StorageBackendMemory:
	default:
		return fmt.Errorf("storage.backend must be one of s3, memory, got %q", c.Storage.Backend)
	}
	if (c.Storage.AccessKey == "") != (c.Storage.SecretKey == "") {
		return fmt.Errorf("storage.access_key and storage.secret_key must be set together")
	}

	if c.Renderer.Timeout < 0 {
		return fmt.Errorf("renderer.timeout cannot be negative")
	}

	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0 and 1")
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Recipients.Backend == RecipientBackendMemory {
			return fmt.Errorf("recipients.backend cannot be 'memory' in production")
		}
		if c.Storage.Backend == StorageBackendMemory {
			return fmt.Errorf("storage.backend cannot be 'memory' in production")
		}
		if c.Recipients.Backend == RecipientBackendPostgres {
			if c.Database.Password == "" {
				return fmt.Errorf("database.password is required in production")
			}
			if c.Database.SSLMode == "disable" {
				return fmt.Errorf("database.sslmode cannot be 'disable' in production")
			}
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
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
