// Package config loads and validates application configuration from YAML
// files with environment-variable overrides. It provides typed structs for
// every subsystem (Server, Postgres, Kafka, Redis, Search, Index, etc.).
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
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Search   SearchConfig   `yaml:"search"`
	Index    IndexConfig    `yaml:"index"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters for the quote store.
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
	QuoteUpserts    string `yaml:"quoteUpserts"`
	QuoteDeletes    string `yaml:"quoteDeletes"`
	CacheInvalidate string `yaml:"cacheInvalidate"`
	SearchEvents    string `yaml:"searchEvents"`
}

// RedisConfig holds Redis connection and query-cache parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// SearchConfig controls the analysis pipeline and query execution limits.
type SearchConfig struct {
	// Locale selects the stopword set applied on both the index and
	// query sides.
	Locale string `yaml:"locale"`
	// DefaultCombinator is "and" or "or" and applies when a request
	// names neither.
	DefaultCombinator string `yaml:"defaultCombinator"`
	// FieldWeights maps document fields to weight labels A-D. Fields
	// absent from the map fall back to D.
	FieldWeights map[string]string `yaml:"fieldWeights"`
	// WeightMultipliers optionally overrides the numeric multiplier for
	// a label, e.g. {A: 1.0, B: 0.4}.
	WeightMultipliers map[string]float64 `yaml:"weightMultipliers"`
	// RankThreshold drops results scoring below it. Zero disables the
	// cut-off.
	RankThreshold float64 `yaml:"rankThreshold"`
	DefaultLimit  int     `yaml:"defaultLimit"`
	MaxResults    int     `yaml:"maxResults"`
}

// IndexConfig controls batch-build parallelism and snapshot persistence.
type IndexConfig struct {
	// Workers bounds the parallel vector builders; <= 0 means one per CPU.
	Workers int `yaml:"workers"`
	// SnapshotPath is where the index snapshot file lives. Empty
	// disables persistence.
	SnapshotPath string `yaml:"snapshotPath"`
	// SnapshotInterval is how often the running service re-saves the
	// snapshot. Zero saves only on shutdown.
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
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

// Load reads a YAML config file (if provided), applies environment-variable
// overrides, and validates the result. It returns a Config populated with
// sensible defaults for any missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaultConfig returns a Config with production-ready defaults for local
// development. The field-weight defaults mirror the quote corpus: the quote
// body carries the top label, the author name one below it.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "quotesearch",
			User:            "quotesearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "quotesearch-group",
			Topics: KafkaTopics{
				QuoteUpserts:    "quote-upserts",
				QuoteDeletes:    "quote-deletes",
				CacheInvalidate: "cache-invalidate",
				SearchEvents:    "search-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Search: SearchConfig{
			Locale:            "en",
			DefaultCombinator: "and",
			FieldWeights:      map[string]string{"name": "B", "quote": "A"},
			RankThreshold:     0.0,
			DefaultLimit:      10,
			MaxResults:        100,
		},
		Index: IndexConfig{
			Workers:          0,
			SnapshotPath:     "data/index.qsv",
			SnapshotInterval: 0,
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

// Validate rejects configurations that would otherwise surface as per-query
// failures: unknown combinators, unknown weight labels, and non-positive or
// duplicate weight multipliers.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Search.DefaultCombinator) {
	case "and", "or":
	default:
		return fmt.Errorf("search.defaultCombinator %q: must be \"and\" or \"or\"", c.Search.DefaultCombinator)
	}
	for field, label := range c.Search.FieldWeights {
		if !validWeightLabel(label) {
			return fmt.Errorf("search.fieldWeights[%s] = %q: weight label must be A, B, C, or D", field, label)
		}
	}
	seen := make(map[float64]string, len(c.Search.WeightMultipliers))
	for label, mult := range c.Search.WeightMultipliers {
		if !validWeightLabel(label) {
			return fmt.Errorf("search.weightMultipliers[%s]: weight label must be A, B, C, or D", label)
		}
		if mult <= 0 {
			return fmt.Errorf("search.weightMultipliers[%s] = %v: multiplier must be positive", label, mult)
		}
		if prev, dup := seen[mult]; dup {
			return fmt.Errorf("search.weightMultipliers: labels %s and %s share multiplier %v", prev, label, mult)
		}
		seen[mult] = label
	}
	if c.Search.RankThreshold < 0 {
		return fmt.Errorf("search.rankThreshold %v: must not be negative", c.Search.RankThreshold)
	}
	if c.Search.MaxResults > 0 && c.Search.DefaultLimit > c.Search.MaxResults {
		return fmt.Errorf("search.defaultLimit %d exceeds search.maxResults %d", c.Search.DefaultLimit, c.Search.MaxResults)
	}
	return nil
}

func validWeightLabel(label string) bool {
	switch strings.ToUpper(label) {
	case "A", "B", "C", "D":
		return true
	}
	return false
}

// applyEnvOverrides reads QS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("QS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("QS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("QS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("QS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("QS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("QS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("QS_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("QS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("QS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("QS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("QS_SEARCH_LOCALE"); v != "" {
		cfg.Search.Locale = v
	}
	if v := os.Getenv("QS_SEARCH_COMBINATOR"); v != "" {
		cfg.Search.DefaultCombinator = v
	}
	if v := os.Getenv("QS_SEARCH_THRESHOLD"); v != "" {
		if threshold, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.RankThreshold = threshold
		}
	}
	if v := os.Getenv("QS_INDEX_SNAPSHOT_PATH"); v != "" {
		cfg.Index.SnapshotPath = v
	}
	if v := os.Getenv("QS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("QS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
