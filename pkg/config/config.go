package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App             AppConfig      `mapstructure:"app"`
	Server          ServerConfig   `mapstructure:"server"`
	CatalogDatabase DatabaseConfig `mapstructure:"catalog_database"`
	Redis           RedisConfig    `mapstructure:"redis"`
	Kafka           KafkaConfig    `mapstructure:"kafka"`
	OTel            OTelConfig     `mapstructure:"otel"`
	Workflow        WorkflowConfig `mapstructure:"workflow"`
	Renderer        RendererConfig `mapstructure:"renderer"`
}

// AppConfig holds application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"` // development, staging, production
	Debug       bool   `mapstructure:"debug"`
	Version     string `mapstructure:"version"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN returns the PostgreSQL connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the Redis address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// KafkaConfig holds Kafka/Redpanda connection settings
type KafkaConfig struct {
	Enabled           bool     `mapstructure:"enabled"`
	Brokers           []string `mapstructure:"brokers"`
	ConsumerGroup     string   `mapstructure:"consumer_group"`
	ClientID          string   `mapstructure:"client_id"`
	ConfirmationTopic string   `mapstructure:"confirmation_topic"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	ServiceName   string  `mapstructure:"service_name"`
	CollectorAddr string  `mapstructure:"collector_addr"`
	SampleRatio   float64 `mapstructure:"sample_ratio"`
}

// WorkflowConfig holds booking/payment workflow settings
type WorkflowConfig struct {
	SessionTTL        time.Duration `mapstructure:"session_ttl"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval"`
	SettlementLatency time.Duration `mapstructure:"settlement_latency"`
	OTPLatency        time.Duration `mapstructure:"otp_latency"`
	GatewaySuccess    float64       `mapstructure:"gateway_success"`
	SeatSeed          uint64        `mapstructure:"seat_seed"` // 0 = per-session seed from the clock
	CatalogCacheTTL   time.Duration `mapstructure:"catalog_cache_ttl"`
}

// RendererConfig holds ticket renderer worker settings
type RendererConfig struct {
	OutputDir   string `mapstructure:"output_dir"`
	WorkerCount int    `mapstructure:"worker_count"`
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")

	// A missing .env is fine, environment variables still apply
	_ = v.ReadInConfig()

	return load(v)
}

// LoadWithPath loads configuration from a specific path
func LoadWithPath(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	cfg := &Config{}
	bindConfig(v, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("APP_NAME", "rail-booking")
	v.SetDefault("APP_ENVIRONMENT", "development")
	v.SetDefault("APP_DEBUG", true)
	v.SetDefault("APP_VERSION", "1.0.0")

	// Server defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_READ_TIMEOUT", "5s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	v.SetDefault("SERVER_IDLE_TIMEOUT", "120s")

	// Catalog database defaults (in-memory catalog is used when disabled)
	v.SetDefault("CATALOG_DATABASE_ENABLED", false)
	v.SetDefault("CATALOG_DATABASE_HOST", "localhost")
	v.SetDefault("CATALOG_DATABASE_PORT", 5432)
	v.SetDefault("CATALOG_DATABASE_USER", "postgres")
	v.SetDefault("CATALOG_DATABASE_PASSWORD", "postgres")
	v.SetDefault("CATALOG_DATABASE_DBNAME", "catalog_db")
	v.SetDefault("CATALOG_DATABASE_SSLMODE", "disable")
	v.SetDefault("CATALOG_DATABASE_MAX_OPEN_CONNS", 20)
	v.SetDefault("CATALOG_DATABASE_MAX_IDLE_CONNS", 5)
	v.SetDefault("CATALOG_DATABASE_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("CATALOG_DATABASE_CONN_MAX_IDLE_TIME", "30m")

	// Redis defaults
	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 50)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 5)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")
	v.SetDefault("REDIS_READ_TIMEOUT", "3s")
	v.SetDefault("REDIS_WRITE_TIMEOUT", "3s")

	// Kafka defaults
	v.SetDefault("KAFKA_ENABLED", false)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_CONSUMER_GROUP", "ticket-renderer")
	v.SetDefault("KAFKA_CLIENT_ID", "rail-booking")
	v.SetDefault("KAFKA_CONFIRMATION_TOPIC", "booking-confirmations")

	// OTel defaults
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "rail-booking")
	v.SetDefault("OTEL_COLLECTOR_ADDR", "localhost:4317")
	v.SetDefault("OTEL_SAMPLE_RATIO", 1.0)

	// Workflow defaults mirror the simulated latencies of the booking UI
	v.SetDefault("WORKFLOW_SESSION_TTL", "30m")
	v.SetDefault("WORKFLOW_SWEEP_INTERVAL", "1m")
	v.SetDefault("WORKFLOW_SETTLEMENT_LATENCY", "2s")
	v.SetDefault("WORKFLOW_OTP_LATENCY", "1500ms")
	v.SetDefault("WORKFLOW_GATEWAY_SUCCESS", 1.0)
	v.SetDefault("WORKFLOW_SEAT_SEED", 0)
	v.SetDefault("WORKFLOW_CATALOG_CACHE_TTL", "10m")

	// Renderer defaults
	v.SetDefault("RENDERER_OUTPUT_DIR", "./tickets")
	v.SetDefault("RENDERER_WORKER_COUNT", 4)
}

func bindConfig(v *viper.Viper, cfg *Config) {
	// App
	cfg.App.Name = v.GetString("APP_NAME")
	cfg.App.Environment = v.GetString("APP_ENVIRONMENT")
	cfg.App.Debug = v.GetBool("APP_DEBUG")
	cfg.App.Version = v.GetString("APP_VERSION")

	// Server
	cfg.Server.Host = v.GetString("SERVER_HOST")
	cfg.Server.Port = v.GetInt("SERVER_PORT")
	cfg.Server.ReadTimeout = v.GetDuration("SERVER_READ_TIMEOUT")
	cfg.Server.WriteTimeout = v.GetDuration("SERVER_WRITE_TIMEOUT")
	cfg.Server.IdleTimeout = v.GetDuration("SERVER_IDLE_TIMEOUT")

	// Catalog database
	cfg.CatalogDatabase.Enabled = v.GetBool("CATALOG_DATABASE_ENABLED")
	cfg.CatalogDatabase.Host = v.GetString("CATALOG_DATABASE_HOST")
	cfg.CatalogDatabase.Port = v.GetInt("CATALOG_DATABASE_PORT")
	cfg.CatalogDatabase.User = v.GetString("CATALOG_DATABASE_USER")
	cfg.CatalogDatabase.Password = v.GetString("CATALOG_DATABASE_PASSWORD")
	cfg.CatalogDatabase.DBName = v.GetString("CATALOG_DATABASE_DBNAME")
	cfg.CatalogDatabase.SSLMode = v.GetString("CATALOG_DATABASE_SSLMODE")
	cfg.CatalogDatabase.MaxOpenConns = v.GetInt("CATALOG_DATABASE_MAX_OPEN_CONNS")
	cfg.CatalogDatabase.MaxIdleConns = v.GetInt("CATALOG_DATABASE_MAX_IDLE_CONNS")
	cfg.CatalogDatabase.ConnMaxLifetime = v.GetDuration("CATALOG_DATABASE_CONN_MAX_LIFETIME")
	cfg.CatalogDatabase.ConnMaxIdleTime = v.GetDuration("CATALOG_DATABASE_CONN_MAX_IDLE_TIME")

	// Redis
	cfg.Redis.Enabled = v.GetBool("REDIS_ENABLED")
	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetInt("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")
	cfg.Redis.PoolSize = v.GetInt("REDIS_POOL_SIZE")
	cfg.Redis.MinIdleConns = v.GetInt("REDIS_MIN_IDLE_CONNS")
	cfg.Redis.DialTimeout = v.GetDuration("REDIS_DIAL_TIMEOUT")
	cfg.Redis.ReadTimeout = v.GetDuration("REDIS_READ_TIMEOUT")
	cfg.Redis.WriteTimeout = v.GetDuration("REDIS_WRITE_TIMEOUT")

	// Kafka
	cfg.Kafka.Enabled = v.GetBool("KAFKA_ENABLED")
	cfg.Kafka.Brokers = strings.Split(v.GetString("KAFKA_BROKERS"), ",")
	cfg.Kafka.ConsumerGroup = v.GetString("KAFKA_CONSUMER_GROUP")
	cfg.Kafka.ClientID = v.GetString("KAFKA_CLIENT_ID")
	cfg.Kafka.ConfirmationTopic = v.GetString("KAFKA_CONFIRMATION_TOPIC")

	// OTel
	cfg.OTel.Enabled = v.GetBool("OTEL_ENABLED")
	cfg.OTel.ServiceName = v.GetString("OTEL_SERVICE_NAME")
	cfg.OTel.CollectorAddr = v.GetString("OTEL_COLLECTOR_ADDR")
	cfg.OTel.SampleRatio = v.GetFloat64("OTEL_SAMPLE_RATIO")

	// Workflow
	cfg.Workflow.SessionTTL = v.GetDuration("WORKFLOW_SESSION_TTL")
	cfg.Workflow.SweepInterval = v.GetDuration("WORKFLOW_SWEEP_INTERVAL")
	cfg.Workflow.SettlementLatency = v.GetDuration("WORKFLOW_SETTLEMENT_LATENCY")
	cfg.Workflow.OTPLatency = v.GetDuration("WORKFLOW_OTP_LATENCY")
	cfg.Workflow.GatewaySuccess = v.GetFloat64("WORKFLOW_GATEWAY_SUCCESS")
	cfg.Workflow.SeatSeed = v.GetUint64("WORKFLOW_SEAT_SEED")
	cfg.Workflow.CatalogCacheTTL = v.GetDuration("WORKFLOW_CATALOG_CACHE_TTL")

	// Renderer
	cfg.Renderer.OutputDir = v.GetString("RENDERER_OUTPUT_DIR")
	cfg.Renderer.WorkerCount = v.GetInt("RENDERER_WORKER_COUNT")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Workflow.SessionTTL <= 0 {
		return fmt.Errorf("workflow session ttl must be positive")
	}

	if c.Workflow.SettlementLatency < 0 || c.Workflow.OTPLatency < 0 {
		return fmt.Errorf("workflow latencies cannot be negative")
	}

	if c.Workflow.GatewaySuccess < 0 || c.Workflow.GatewaySuccess > 1 {
		return fmt.Errorf("workflow gateway success rate must be within [0,1]")
	}

	if c.Kafka.Enabled && c.Kafka.ConfirmationTopic == "" {
		return fmt.Errorf("KAFKA_CONFIRMATION_TOPIC is required when kafka is enabled")
	}

	return nil
}

// ValidateCatalogDatabase validates catalog database configuration
func (c *Config) ValidateCatalogDatabase() error {
	if c.CatalogDatabase.Host == "" {
		return fmt.Errorf("CATALOG_DATABASE_HOST is required")
	}
	if c.CatalogDatabase.DBName == "" {
		return fmt.Errorf("CATALOG_DATABASE_DBNAME is required")
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}
