// Package config loads and validates application configuration from YAML or
// TOML files, an optional .env file and LS_* environment overrides. It
// provides typed structs for every subsystem (Server, stores, run state,
// Kafka, scoring, segmentation, batching).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Store     StoreConfig     `yaml:"store" toml:"store"`
	Postgres  PostgresConfig  `yaml:"postgres" toml:"postgres"`
	Redis     RedisConfig     `yaml:"redis" toml:"redis"`
	RunState  RunStateConfig  `yaml:"runState" toml:"runState"`
	Kafka     KafkaConfig     `yaml:"kafka" toml:"kafka"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing" toml:"tracing"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics"`
	RateLimit RateLimitConfig `yaml:"rateLimit" toml:"rateLimit"`
	Batch     BatchConfig     `yaml:"batch" toml:"batch"`
	Scoring   ScoringConfig   `yaml:"scoring" toml:"scoring"`
	Segment   SegmentConfig   `yaml:"segment" toml:"segment"`
	Text      TextConfig      `yaml:"text" toml:"text"`
	Titles    TitlesConfig    `yaml:"titles" toml:"titles"`
	Display   DisplayConfig   `yaml:"display" toml:"display"`
	Filters   FiltersConfig   `yaml:"filters" toml:"filters"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port" toml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout" toml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" toml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" toml:"shutdownTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout" toml:"requestTimeout"`
	// APIKeys are the SHA-256 hex digests of the keys accepted by the API.
	// Empty disables key checks.
	APIKeys     []string `yaml:"apiKeys" toml:"apiKeys"`
	CORSOrigins []string `yaml:"corsOrigins" toml:"corsOrigins"`
}

// StoreConfig selects the document store backend: postgres, sqlite, bolt or memory.
type StoreConfig struct {
	Driver     string `yaml:"driver" toml:"driver"`
	SQLitePath string `yaml:"sqlitePath" toml:"sqlitePath"`
	BoltPath   string `yaml:"boltPath" toml:"boltPath"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host" toml:"host"`
	Port            int           `yaml:"port" toml:"port"`
	Database        string        `yaml:"database" toml:"database"`
	User            string        `yaml:"user" toml:"user"`
	Password        string        `yaml:"password" toml:"password"`
	SSLMode         string        `yaml:"sslMode" toml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns" toml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns" toml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime" toml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr     string `yaml:"addr" toml:"addr"`
	Password string `yaml:"password" toml:"password"`
	DB       int    `yaml:"db" toml:"db"`
	PoolSize int    `yaml:"poolSize" toml:"poolSize"`
}

// RunStateConfig controls where per-run state lives and how long it survives.
type RunStateConfig struct {
	Backend        string        `yaml:"backend" toml:"backend"`
	SnapshotTTL    time.Duration `yaml:"snapshotTTL" toml:"snapshotTTL"`
	KeywordTTL     time.Duration `yaml:"keywordTTL" toml:"keywordTTL"`
	MemoryCapacity int           `yaml:"memoryCapacity" toml:"memoryCapacity"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled" toml:"enabled"`
	Brokers       []string    `yaml:"brokers" toml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup" toml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics" toml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	RunRequested string `yaml:"runRequested" toml:"runRequested"`
	RunEvents    string `yaml:"runEvents" toml:"runEvents"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// TracingConfig toggles span logging.
type TracingConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
	Port    int  `yaml:"port" toml:"port"`
}

// RateLimitConfig bounds chunk calls per client per window.
type RateLimitConfig struct {
	Enabled bool          `yaml:"enabled" toml:"enabled"`
	Limit   int           `yaml:"limit" toml:"limit"`
	Window  time.Duration `yaml:"window" toml:"window"`
}

// BatchConfig controls chunk sizes and the wall-clock and memory budgets of
// a single chunk call.
type BatchConfig struct {
	Size              int           `yaml:"size" toml:"size"`
	SoftBudget        time.Duration `yaml:"softBudget" toml:"softBudget"`
	HardBudget        time.Duration `yaml:"hardBudget" toml:"hardBudget"`
	ExternalSoft      time.Duration `yaml:"externalSoftBudget" toml:"externalSoftBudget"`
	ExternalHard      time.Duration `yaml:"externalHardBudget" toml:"externalHardBudget"`
	MemoryBreakPoint  uint64        `yaml:"memoryBreakPoint" toml:"memoryBreakPoint"`
	MaxLinksPerPost   int           `yaml:"maxLinksPerPost" toml:"maxLinksPerPost"`
	ExternalLinking   bool          `yaml:"externalLinking" toml:"externalLinking"`
	InboundMultiplier int           `yaml:"inboundMultiplier" toml:"inboundMultiplier"`
}

// ScoringConfig mirrors suggest.ScoringConfig.
type ScoringConfig struct {
	MaxAnchorLength         int  `yaml:"maxAnchorLength" toml:"maxAnchorLength"`
	Undeletable             bool `yaml:"undeletable" toml:"undeletable"`
	All                     bool `yaml:"all" toml:"all"`
	MaxSuggestionsPerPhrase int  `yaml:"maxSuggestionsPerPhrase" toml:"maxSuggestionsPerPhrase"`
	MaxDedupePasses         int  `yaml:"maxDedupePasses" toml:"maxDedupePasses"`
	OnlyMatchTargetKeywords bool `yaml:"onlyMatchTargetKeywords" toml:"onlyMatchTargetKeywords"`
}

// SegmentConfig controls content segmentation.
type SegmentConfig struct {
	SkipType         string   `yaml:"skipType" toml:"skipType"`
	SkipCount        int      `yaml:"skipCount" toml:"skipCount"`
	IgnoreShortcodes []string `yaml:"ignoreShortcodes" toml:"ignoreShortcodes"`
	IgnoreClasses    []string `yaml:"ignoreClasses" toml:"ignoreClasses"`
}

// TextConfig controls tokenisation and stemming.
type TextConfig struct {
	Language      string   `yaml:"language" toml:"language"`
	IgnoreWords   []string `yaml:"ignoreWords" toml:"ignoreWords"`
	IgnoreNumbers bool     `yaml:"ignoreNumbers" toml:"ignoreNumbers"`
}

// TitlesConfig restricts title matching to a window of the title.
type TitlesConfig struct {
	Basis     string `yaml:"basis" toml:"basis"`
	Words     int    `yaml:"words" toml:"words"`
	SplitChar string `yaml:"splitChar" toml:"splitChar"`
}

// DisplayConfig controls formatted output.
type DisplayConfig struct {
	MaxSuggestions int `yaml:"maxSuggestions" toml:"maxSuggestions"`
}

// FiltersConfig restricts the candidate universe.
type FiltersConfig struct {
	PostTypes         []string `yaml:"postTypes" toml:"postTypes"`
	Statuses          []string `yaml:"statuses" toml:"statuses"`
	Taxonomies        []string `yaml:"taxonomies" toml:"taxonomies"`
	IgnoredCategories []int64  `yaml:"ignoredCategories" toml:"ignoredCategories"`
	IgnoredPosts      []string `yaml:"ignoredPosts" toml:"ignoredPosts"`
	MaxAgeDays        int      `yaml:"maxAgeDays" toml:"maxAgeDays"`
}

// Load reads a YAML or TOML config file (if provided) and applies
// environment-variable overrides. A .env file next to the working directory
// is loaded first when present. It returns a Config populated with sensible
// defaults for any missing values.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".toml":
			if _, err := toml.Decode(string(data), cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "postgres", "sqlite", "bolt", "memory":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.RunState.Backend {
	case "redis", "memory":
	default:
		return fmt.Errorf("unknown run state backend %q", c.RunState.Backend)
	}
	if c.Batch.Size <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.Batch.Size)
	}
	if c.Batch.SoftBudget > c.Batch.HardBudget {
		return fmt.Errorf("soft budget %s exceeds hard budget %s", c.Batch.SoftBudget, c.Batch.HardBudget)
	}
	if c.Scoring.MaxAnchorLength < 2 {
		return fmt.Errorf("max anchor length must be at least 2, got %d", c.Scoring.MaxAnchorLength)
	}
	return nil
}

// defaultConfig returns a Config with defaults suitable for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  55 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Store: StoreConfig{
			Driver:     "postgres",
			SQLitePath: "linksuggest.db",
			BoltPath:   "linksuggest.bolt",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "linksuggest",
			User:            "linksuggest",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		RunState: RunStateConfig{
			Backend:        "redis",
			SnapshotTTL:    15 * time.Minute,
			KeywordTTL:     10 * time.Minute,
			MemoryCapacity: 4096,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "linksuggest-workers",
			Topics: KafkaTopics{
				RunRequested: "linksuggest.run-requested",
				RunEvents:    "linksuggest.run-events",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
		RateLimit: RateLimitConfig{
			Limit:  120,
			Window: time.Minute,
		},
		Batch: BatchConfig{
			Size:              300,
			SoftBudget:        15 * time.Second,
			HardBudget:        45 * time.Second,
			ExternalSoft:      15 * time.Second,
			ExternalHard:      30 * time.Second,
			InboundMultiplier: 10,
		},
		Scoring: ScoringConfig{
			MaxAnchorLength:         10,
			MaxSuggestionsPerPhrase: 10,
			MaxDedupePasses:         100,
		},
		Segment: SegmentConfig{
			SkipType: "paragraphs",
		},
		Text: TextConfig{
			Language:      "english",
			IgnoreNumbers: true,
		},
		Titles: TitlesConfig{
			Basis: "none",
		},
		Display: DisplayConfig{
			MaxSuggestions: 10,
		},
		Filters: FiltersConfig{
			PostTypes: []string{"post", "page"},
			Statuses:  []string{"publish"},
		},
	}
}

// applyEnvOverrides reads LS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LS_SERVER_API_KEYS"); v != "" {
		cfg.Server.APIKeys = strings.Split(v, ",")
	}
	if v := os.Getenv("LS_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("LS_STORE_SQLITE_PATH"); v != "" {
		cfg.Store.SQLitePath = v
	}
	if v := os.Getenv("LS_STORE_BOLT_PATH"); v != "" {
		cfg.Store.BoltPath = v
	}
	if v := os.Getenv("LS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("LS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("LS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("LS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("LS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("LS_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("LS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("LS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("LS_RUNSTATE_BACKEND"); v != "" {
		cfg.RunState.Backend = v
	}
	if v := os.Getenv("LS_KAFKA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = b
		}
	}
	if v := os.Getenv("LS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("LS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("LS_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Batch.Size = n
		}
	}
	if v := os.Getenv("LS_TEXT_LANGUAGE"); v != "" {
		cfg.Text.Language = v
	}
}
