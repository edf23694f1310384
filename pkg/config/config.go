// Package config loads and validates the engine configuration from YAML
// files with environment-variable overrides. It provides typed structs for
// every subsystem (Server, Corpus, Ranking, Redis, Kafka, SearchLog, etc.).
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Ranking   RankingConfig   `yaml:"ranking"`
	Snippet   SnippetConfig   `yaml:"snippet"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	SearchLog SearchLogConfig `yaml:"searchLog"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// RateLimit is the number of requests a client may make per RateWindow.
	// Zero disables rate limiting.
	RateLimit   int           `yaml:"rateLimit"`
	RateWindow  time.Duration `yaml:"rateWindow"`
	CORSOrigins []string      `yaml:"corsOrigins"`
}

// CorpusConfig points at the document collection and, optionally, the
// relevance judgments used for benchmarking.
type CorpusConfig struct {
	DocumentsPath   string `yaml:"documentsPath"`
	GroundTruthPath string `yaml:"groundTruthPath"`
}

// RankingConfig holds the default model and its parameters.
type RankingConfig struct {
	Model            string  `yaml:"model"`
	K1               float64 `yaml:"k1"`
	B                float64 `yaml:"b"`
	Stemmer          string  `yaml:"stemmer"`
	DefaultLimit     int     `yaml:"defaultLimit"`
	MaxResults       int     `yaml:"maxResults"`
	EvaluationCutoff int     `yaml:"evaluationCutoff"`
}

// SnippetConfig controls result snippets.
type SnippetConfig struct {
	MaxLength int `yaml:"maxLength"`
}

// RedisConfig holds Redis connection and result caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds broker and topic settings for search events.
type KafkaConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Brokers       []string `yaml:"brokers"`
	ConsumerGroup string   `yaml:"consumerGroup"`
	Topic         string   `yaml:"topic"`
}

// SearchLogConfig selects where executed searches are recorded.
type SearchLogConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	// Retention prunes entries older than this. Zero keeps everything.
	Retention time.Duration  `yaml:"retention"`
	Postgres  PostgresConfig `yaml:"postgres"`
}

// AnalyticsConfig holds settings of the analytics service.
type AnalyticsConfig struct {
	Port             int           `yaml:"port"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
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

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls span logging.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	SampleRate float64 `yaml:"sampleRate"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Search log drivers.
const (
	DriverNone     = "none"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides over the defaults, then validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateWindow:      time.Minute,
		},
		Corpus: CorpusConfig{
			DocumentsPath: "data/documentsLibrary.json",
		},
		Ranking: RankingConfig{
			Model:            "bm25",
			K1:               1.5,
			B:                0.75,
			Stemmer:          "porter",
			DefaultLimit:     5,
			MaxResults:       100,
			EvaluationCutoff: 5,
		},
		Snippet: SnippetConfig{
			MaxLength: 150,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "ranking-analytics",
			Topic:         "search-events",
		},
		SearchLog: SearchLogConfig{
			Driver: DriverNone,
			Postgres: PostgresConfig{
				Host:            "localhost",
				Port:            5432,
				Database:        "ranking",
				User:            "ranking",
				Password:        "localdev",
				SSLMode:         "disable",
				MaxOpenConns:    10,
				MaxIdleConns:    2,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Analytics: AnalyticsConfig{
			Port:             8081,
			SnapshotInterval: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			SampleRate: 1,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Ranking.Model) {
	case "vsm", "bm25":
	default:
		return fmt.Errorf("ranking.model %q: want vsm or bm25", c.Ranking.Model)
	}
	if c.Ranking.K1 < 0 {
		return fmt.Errorf("ranking.k1 must be >= 0, got %v", c.Ranking.K1)
	}
	if c.Ranking.B < 0 || c.Ranking.B > 1 {
		return fmt.Errorf("ranking.b must be within [0, 1], got %v", c.Ranking.B)
	}
	if c.Ranking.DefaultLimit <= 0 || c.Ranking.MaxResults <= 0 || c.Ranking.EvaluationCutoff <= 0 {
		return fmt.Errorf("ranking limits must be positive")
	}
	if c.Ranking.DefaultLimit > c.Ranking.MaxResults {
		return fmt.Errorf("ranking.defaultLimit %d exceeds maxResults %d", c.Ranking.DefaultLimit, c.Ranking.MaxResults)
	}
	if c.Snippet.MaxLength <= 0 {
		return fmt.Errorf("snippet.maxLength must be positive, got %d", c.Snippet.MaxLength)
	}
	if !slices.Contains([]string{DriverNone, DriverSQLite, DriverPostgres}, c.SearchLog.Driver) {
		return fmt.Errorf("searchLog.driver %q: want none, sqlite or postgres", c.SearchLog.Driver)
	}
	if c.SearchLog.Driver == DriverSQLite && c.SearchLog.DSN == "" {
		return fmt.Errorf("searchLog.dsn is required for sqlite")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rateLimit must be >= 0, got %d", c.Server.RateLimit)
	}
	if c.Server.RateLimit > 0 && c.Server.RateWindow <= 0 {
		return fmt.Errorf("server.rateWindow must be positive when rate limiting is enabled")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing.sampleRate must be within [0, 1], got %v", c.Tracing.SampleRate)
	}
	return nil
}

// applyEnvOverrides reads DR_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) error {
	ints := map[string]*int{
		"DR_SERVER_PORT":             &cfg.Server.Port,
		"DR_METRICS_PORT":            &cfg.Metrics.Port,
		"DR_RANKING_DEFAULT_LIMIT":   &cfg.Ranking.DefaultLimit,
		"DR_RANKING_MAX_RESULTS":     &cfg.Ranking.MaxResults,
		"DR_RANKING_EVAL_CUTOFF":     &cfg.Ranking.EvaluationCutoff,
		"DR_SNIPPET_MAX_LENGTH":      &cfg.Snippet.MaxLength,
		"DR_SEARCHLOG_POSTGRES_PORT": &cfg.SearchLog.Postgres.Port,
		"DR_SERVER_RATE_LIMIT":       &cfg.Server.RateLimit,
		"DR_ANALYTICS_PORT":          &cfg.Analytics.Port,
	}
	for name, field := range ints {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*field = n
		}
	}
	floats := map[string]*float64{
		"DR_RANKING_K1": &cfg.Ranking.K1,
		"DR_RANKING_B":  &cfg.Ranking.B,
	}
	for name, field := range floats {
		if v := os.Getenv(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*field = f
		}
	}
	bools := map[string]*bool{
		"DR_REDIS_ENABLED":   &cfg.Redis.Enabled,
		"DR_KAFKA_ENABLED":   &cfg.Kafka.Enabled,
		"DR_METRICS_ENABLED": &cfg.Metrics.Enabled,
		"DR_TRACING_ENABLED": &cfg.Tracing.Enabled,
	}
	for name, field := range bools {
		if v := os.Getenv(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*field = b
		}
	}
	strs := map[string]*string{
		"DR_CORPUS_DOCUMENTS":           &cfg.Corpus.DocumentsPath,
		"DR_CORPUS_GROUND_TRUTH":        &cfg.Corpus.GroundTruthPath,
		"DR_RANKING_MODEL":              &cfg.Ranking.Model,
		"DR_RANKING_STEMMER":            &cfg.Ranking.Stemmer,
		"DR_REDIS_ADDR":                 &cfg.Redis.Addr,
		"DR_REDIS_PASSWORD":             &cfg.Redis.Password,
		"DR_KAFKA_TOPIC":                &cfg.Kafka.Topic,
		"DR_SEARCHLOG_DRIVER":           &cfg.SearchLog.Driver,
		"DR_SEARCHLOG_DSN":              &cfg.SearchLog.DSN,
		"DR_SEARCHLOG_POSTGRES_HOST":    &cfg.SearchLog.Postgres.Host,
		"DR_SEARCHLOG_POSTGRES_DB":      &cfg.SearchLog.Postgres.Database,
		"DR_SEARCHLOG_POSTGRES_USER":    &cfg.SearchLog.Postgres.User,
		"DR_SEARCHLOG_POSTGRES_PASS":    &cfg.SearchLog.Postgres.Password,
		"DR_SEARCHLOG_POSTGRES_SSLMODE": &cfg.SearchLog.Postgres.SSLMode,
		"DR_LOGGING_LEVEL":              &cfg.Logging.Level,
		"DR_LOGGING_FORMAT":             &cfg.Logging.Format,
	}
	for name, field := range strs {
		if v := os.Getenv(name); v != "" {
			*field = v
		}
	}
	if v := os.Getenv("DR_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	return nil
}
