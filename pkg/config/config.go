// Package config loads the directory configuration: built-in defaults, then
// an optional YAML file, then RD_* environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Postgres    PostgresConfig    `yaml:"postgres"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Redis       RedisConfig       `yaml:"redis"`
	Search      SearchConfig      `yaml:"search"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Analytics   AnalyticsConfig   `yaml:"analytics"`
	Geocoder    GeocoderConfig    `yaml:"geocoder"`
	RateLimit   RateLimitConfig   `yaml:"rateLimit"`
	CORS        CORSConfig        `yaml:"cors"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	ConnectAttempts int           `yaml:"connectAttempts"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// RedisConfig holds Redis connection parameters and the key namespace used
// for restaurant view counters.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	PoolSize  int    `yaml:"poolSize"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// SearchConfig controls result limits, field boosting and proximity search.
type SearchConfig struct {
	SuggestionLimit   int     `yaml:"suggestionLimit"`
	ResultLimit       int     `yaml:"resultLimit"`
	BoostFactor       float64 `yaml:"boostFactor"`
	DefaultRadiusKm   float64 `yaml:"defaultRadiusKm"`
	MaxRadiusKm       float64 `yaml:"maxRadiusKm"`
	PrefixSuggestions bool    `yaml:"prefixSuggestions"`
}

// MaintenanceConfig controls the periodic cache reset.
type MaintenanceConfig struct {
	Enabled        bool          `yaml:"enabled"`
	ResetInterval  time.Duration `yaml:"resetInterval"`
	WarmAfterReset bool          `yaml:"warmAfterReset"`
}

// AnalyticsConfig controls event publishing from the directory and the
// standalone analytics service.
type AnalyticsConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Port             int           `yaml:"port"`
	BufferSize       int           `yaml:"bufferSize"`
	BatchSize        int           `yaml:"batchSize"`
	FlushInterval    time.Duration `yaml:"flushInterval"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// GeocoderConfig controls the map-link resolver and its circuit breaker.
type GeocoderConfig struct {
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold int           `yaml:"failureThreshold"`
	ResetTimeout     time.Duration `yaml:"resetTimeout"`
}

// RateLimitConfig controls per-client limits on the public search API.
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled"`
	RequestsPerWindow int           `yaml:"requestsPerWindow"`
	Window            time.Duration `yaml:"window"`
}

// CORSConfig lists the origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowOrigins []string `yaml:"allowOrigins"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load layers the YAML file at path (skipped when empty) and the environment
// over the defaults, then validates the result.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Search.SuggestionLimit <= 0 {
		return fmt.Errorf("search.suggestionLimit must be positive, got %d", c.Search.SuggestionLimit)
	}
	if c.Search.ResultLimit <= 0 {
		return fmt.Errorf("search.resultLimit must be positive, got %d", c.Search.ResultLimit)
	}
	if c.Search.BoostFactor <= 0 {
		return fmt.Errorf("search.boostFactor must be positive, got %v", c.Search.BoostFactor)
	}
	if c.Maintenance.Enabled && c.Maintenance.ResetInterval <= 0 {
		return fmt.Errorf("maintenance.resetInterval must be positive when maintenance is enabled")
	}
	return nil
}

// Default returns the built-in configuration without reading files or the
// environment.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            6000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "aslimenu",
			User:            "aslimenu",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnectAttempts: 5,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "restaurant-directory",
			Topics: KafkaTopics{
				AnalyticsEvents: "restaurant-analytics",
			},
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			KeyPrefix: "views:",
		},
		Search: SearchConfig{
			SuggestionLimit:   10,
			ResultLimit:       50,
			BoostFactor:       2,
			DefaultRadiusKm:   10,
			MaxRadiusKm:       100,
			PrefixSuggestions: true,
		},
		Maintenance: MaintenanceConfig{
			Enabled:        true,
			ResetInterval:  24 * time.Hour,
			WarmAfterReset: true,
		},
		Analytics: AnalyticsConfig{
			Enabled:          true,
			Port:             6100,
			BufferSize:       10000,
			BatchSize:        100,
			FlushInterval:    5 * time.Second,
			SnapshotInterval: 5 * time.Minute,
		},
		Geocoder: GeocoderConfig{
			Timeout:          10 * time.Second,
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerWindow: 120,
			Window:            time.Minute,
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"https://partner.aslimenu.com"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads RD_* environment variables. Values that fail to
// parse are ignored and the file or default value stands.
func applyEnvOverrides(cfg *Config) {
	envInt("RD_SERVER_PORT", &cfg.Server.Port)
	envString("RD_POSTGRES_HOST", &cfg.Postgres.Host)
	envInt("RD_POSTGRES_PORT", &cfg.Postgres.Port)
	envString("RD_POSTGRES_DATABASE", &cfg.Postgres.Database)
	envString("RD_POSTGRES_USER", &cfg.Postgres.User)
	envString("RD_POSTGRES_PASSWORD", &cfg.Postgres.Password)
	envString("RD_POSTGRES_SSLMODE", &cfg.Postgres.SSLMode)
	envList("RD_KAFKA_BROKERS", &cfg.Kafka.Brokers)
	envString("RD_REDIS_ADDR", &cfg.Redis.Addr)
	envString("RD_REDIS_PASSWORD", &cfg.Redis.Password)
	envDuration("RD_MAINTENANCE_RESET_INTERVAL", &cfg.Maintenance.ResetInterval)
	envBool("RD_ANALYTICS_ENABLED", &cfg.Analytics.Enabled)
	envInt("RD_ANALYTICS_PORT", &cfg.Analytics.Port)
	envBool("RD_RATELIMIT_ENABLED", &cfg.RateLimit.Enabled)
	envList("RD_CORS_ALLOW_ORIGINS", &cfg.CORS.AllowOrigins)
	envString("RD_LOGGING_LEVEL", &cfg.Logging.Level)
	envString("RD_LOGGING_FORMAT", &cfg.Logging.Format)
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envList(key string, dst *[]string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = strings.Split(v, ",")
	}
}

func envInt(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
