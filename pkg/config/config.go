// Package config loads the search service configuration from a YAML file
// with environment-variable overrides. Each subsystem has its own typed
// section with defaults suitable for local development.
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
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Search    SearchConfig    `yaml:"search"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// RateLimit is the number of requests per minute allowed per client IP;
	// zero disables limiting.
	RateLimit   int      `yaml:"rateLimit"`
	CORSOrigins []string `yaml:"corsOrigins"`
	// TrustedProxies lists addresses or CIDR ranges whose X-Forwarded-For
	// header is believed when identifying clients.
	TrustedProxies []string `yaml:"trustedProxies"`
}

// PostgresConfig holds the connection parameters of the full-text index and
// the names the executor queries against.
type PostgresConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	Database         string        `yaml:"database"`
	User             string        `yaml:"user"`
	Password         string        `yaml:"password"`
	SSLMode          string        `yaml:"sslMode"`
	MaxOpenConns     int           `yaml:"maxOpenConns"`
	MaxIdleConns     int           `yaml:"maxIdleConns"`
	ConnMaxLifetime  time.Duration `yaml:"connMaxLifetime"`
	TextSearchConfig string        `yaml:"textSearchConfig"`
	DocumentsTable   string        `yaml:"documentsTable"`
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
	Brokers         []string `yaml:"brokers"`
	ConsumerGroup   string   `yaml:"consumerGroup"`
	AnalyticsTopic  string   `yaml:"analyticsTopic"`
	AnalyticsBuffer int      `yaml:"analyticsBuffer"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// SearchConfig controls query compilation and execution limits.
type SearchConfig struct {
	MaxQueryLength int `yaml:"maxQueryLength"`
	DefaultLimit   int `yaml:"defaultLimit"`
	MaxResults     int `yaml:"maxResults"`
	SnippetWindow  int `yaml:"snippetWindow"`
}

// AnalyticsConfig controls persistence of the aggregated search stats.
type AnalyticsConfig struct {
	SnapshotsEnabled bool          `yaml:"snapshotsEnabled"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
	SnapshotTable    string        `yaml:"snapshotTable"`
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

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides on top of the defaults.
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
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.Search.MaxQueryLength <= 0 {
		return fmt.Errorf("search.maxQueryLength must be positive, got %d", c.Search.MaxQueryLength)
	}
	if c.Search.DefaultLimit <= 0 || c.Search.MaxResults < c.Search.DefaultLimit {
		return fmt.Errorf("search limits invalid: defaultLimit=%d maxResults=%d", c.Search.DefaultLimit, c.Search.MaxResults)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rateLimit must not be negative, got %d", c.Server.RateLimit)
	}
	if c.Analytics.SnapshotsEnabled && c.Analytics.SnapshotInterval <= 0 {
		return fmt.Errorf("analytics.snapshotInterval must be positive when snapshots are enabled")
	}
	if c.Postgres.DocumentsTable == "" {
		return fmt.Errorf("postgres.documentsTable is required")
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit:       600,
		},
		Postgres: PostgresConfig{
			Host:             "localhost",
			Port:             5432,
			Database:         "querycompiler",
			User:             "querycompiler",
			Password:         "localdev",
			SSLMode:          "disable",
			MaxOpenConns:     25,
			MaxIdleConns:     5,
			ConnMaxLifetime:  5 * time.Minute,
			TextSearchConfig: "english",
			DocumentsTable:   "documents",
		},
		Kafka: KafkaConfig{
			Brokers:         []string{"localhost:9092"},
			ConsumerGroup:   "querycompiler-analytics",
			AnalyticsTopic:  "search-analytics",
			AnalyticsBuffer: 10000,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Search: SearchConfig{
			MaxQueryLength: 1000,
			DefaultLimit:   10,
			MaxResults:     100,
			SnippetWindow:  12,
		},
		Analytics: AnalyticsConfig{
			SnapshotsEnabled: true,
			SnapshotInterval: time.Minute,
			SnapshotTable:    "analytics_snapshots",
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

// applyEnvOverrides reads QC_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	setInt("QC_SERVER_PORT", &cfg.Server.Port)
	setInt("QC_SERVER_RATE_LIMIT", &cfg.Server.RateLimit)
	if v := os.Getenv("QC_SERVER_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("QC_SERVER_TRUSTED_PROXIES"); v != "" {
		cfg.Server.TrustedProxies = strings.Split(v, ",")
	}
	setString("QC_POSTGRES_HOST", &cfg.Postgres.Host)
	setInt("QC_POSTGRES_PORT", &cfg.Postgres.Port)
	setString("QC_POSTGRES_DATABASE", &cfg.Postgres.Database)
	setString("QC_POSTGRES_USER", &cfg.Postgres.User)
	setString("QC_POSTGRES_PASSWORD", &cfg.Postgres.Password)
	setString("QC_POSTGRES_SSLMODE", &cfg.Postgres.SSLMode)
	setString("QC_POSTGRES_TEXT_SEARCH_CONFIG", &cfg.Postgres.TextSearchConfig)
	setString("QC_POSTGRES_DOCUMENTS_TABLE", &cfg.Postgres.DocumentsTable)
	if v := os.Getenv("QC_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	setString("QC_KAFKA_ANALYTICS_TOPIC", &cfg.Kafka.AnalyticsTopic)
	setString("QC_REDIS_ADDR", &cfg.Redis.Addr)
	setString("QC_REDIS_PASSWORD", &cfg.Redis.Password)
	setInt("QC_SEARCH_MAX_QUERY_LENGTH", &cfg.Search.MaxQueryLength)
	setInt("QC_SEARCH_DEFAULT_LIMIT", &cfg.Search.DefaultLimit)
	setInt("QC_SEARCH_MAX_RESULTS", &cfg.Search.MaxResults)
	if v := os.Getenv("QC_ANALYTICS_SNAPSHOTS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Analytics.SnapshotsEnabled = b
		}
	}
	setString("QC_LOGGING_LEVEL", &cfg.Logging.Level)
	setString("QC_LOGGING_FORMAT", &cfg.Logging.Format)
	setInt("QC_METRICS_PORT", &cfg.Metrics.Port)
}

func setString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
