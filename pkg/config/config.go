// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Kafka, Redis, Crawler, Processor, API, etc.).
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
	Forum     ForumConfig     `yaml:"forum"`
	Crawler   CrawlerConfig   `yaml:"crawler"`
	Storage   StorageConfig   `yaml:"storage"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Processor ProcessorConfig `yaml:"processor"`
	API       APIConfig       `yaml:"api"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Metrics   MetricsConfig   `yaml:"metrics"`
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
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	PagesCrawled string `yaml:"pagesCrawled"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// ForumConfig describes the crawled site.
type ForumConfig struct {
	BaseURL  string `yaml:"baseUrl"`
	Timezone string `yaml:"timezone"`
}

// DefaultTimezone is the zone the forum prints its post dates in.
const DefaultTimezone = "Europe/Paris"

// Location resolves Timezone, DefaultTimezone when it is empty.
func (f ForumConfig) Location() (*time.Location, error) {
	name := f.Timezone
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", name, err)
	}
	return loc, nil
}

// CrawlerConfig controls request pacing for the page crawler.
type CrawlerConfig struct {
	Delay          time.Duration `yaml:"delay"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	UserAgent      string        `yaml:"userAgent"`
	MaxBodySize    int64         `yaml:"maxBodySize"`
	SeedsPath      string        `yaml:"seedsPath"`
}

// StorageConfig locates the on-disk artifacts of a run.
type StorageConfig struct {
	RawDir       string `yaml:"rawDir"`
	SnapshotPath string `yaml:"snapshotPath"`
	ArtifactDir  string `yaml:"artifactDir"`
	GraphPath    string `yaml:"graphPath"`
}

// IngestConfig controls page parsing fan-out and snapshotting.
type IngestConfig struct {
	Parallelism      int           `yaml:"parallelism"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// ProcessorConfig holds the tuning knobs of the analytics processors.
type ProcessorConfig struct {
	MinMessages      int     `yaml:"minMessages"`
	SampleTokens     bool    `yaml:"sampleTokens"`
	KeepRatio        float64 `yaml:"keepRatio"`
	TopTerms         int     `yaml:"topTerms"`
	SentenceSample   int     `yaml:"sentenceSample"`
	MinSentences     int     `yaml:"minSentences"`
	Seed             uint64  `yaml:"seed"`
	LegacyLengthNorm bool    `yaml:"legacyLengthNorm"`
	StopwordsPath    string  `yaml:"stopwordsPath"`
	LexiconPath      string  `yaml:"lexiconPath"`
	Parallelism      int     `yaml:"parallelism"`
}

// APIConfig controls the read API.
type APIConfig struct {
	CacheEnabled       bool `yaml:"cacheEnabled"`
	SearchLimit        int  `yaml:"searchLimit"`
	RateLimitPerMinute int  `yaml:"rateLimitPerMinute"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls span logging for pipeline runs.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
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
	return cfg, nil
}

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	return cfg
}

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
			Database:        "forumprofiler",
			User:            "forumprofiler",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "forumprofiler-group",
			Topics: KafkaTopics{
				PagesCrawled: "pages-crawled",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 5 * time.Minute,
		},
		Forum: ForumConfig{
			BaseURL:  "https://forum.canardpc.com/",
			Timezone: DefaultTimezone,
		},
		Crawler: CrawlerConfig{
			Delay:          2 * time.Second,
			RequestTimeout: 30 * time.Second,
			UserAgent:      "forum-profiler/1.0",
			MaxBodySize:    10 << 20,
			SeedsPath:      "var/urls.json",
		},
		Storage: StorageConfig{
			RawDir:       "var/raw",
			SnapshotPath: "var/parsed.json",
			ArtifactDir:  "var/processed",
			GraphPath:    "var/graph.gexf",
		},
		Ingest: IngestConfig{
			Parallelism:      4,
			SnapshotInterval: time.Minute,
		},
		Processor: ProcessorConfig{
			MinMessages:    200,
			KeepRatio:      0.1,
			TopTerms:       30,
			SentenceSample: 1000,
			MinSentences:   200,
			Parallelism:    4,
		},
		API: APIConfig{
			SearchLimit:        12,
			RateLimitPerMinute: 600,
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

// applyEnvOverrides reads FP_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FP_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FP_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("FP_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("FP_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("FP_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("FP_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("FP_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("FP_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("FP_KAFKA_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = enabled
		}
	}
	if v := os.Getenv("FP_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("FP_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("FP_FORUM_BASE_URL"); v != "" {
		cfg.Forum.BaseURL = v
	}
	if v := os.Getenv("FP_FORUM_TIMEZONE"); v != "" {
		cfg.Forum.Timezone = v
	}
	if v := os.Getenv("FP_CRAWLER_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Crawler.Delay = d
		}
	}
	if v := os.Getenv("FP_STORAGE_RAW_DIR"); v != "" {
		cfg.Storage.RawDir = v
	}
	if v := os.Getenv("FP_STORAGE_SNAPSHOT_PATH"); v != "" {
		cfg.Storage.SnapshotPath = v
	}
	if v := os.Getenv("FP_STORAGE_ARTIFACT_DIR"); v != "" {
		cfg.Storage.ArtifactDir = v
	}
	if v := os.Getenv("FP_PROCESSOR_SEED"); v != "" {
		if seed, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Processor.Seed = seed
		}
	}
	if v := os.Getenv("FP_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FP_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
