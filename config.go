package cohort

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/story-squad/cohort/strategy"
)

// Offset strategy names accepted in PartitionerConfig.OffsetStrategy.
const (
	OffsetStrategyRoundRobin = "round-robin"
	OffsetStrategyFrontOnly  = "front-only"
)

// PartitionerConfig controls the partitioner.
type PartitionerConfig struct {
	// OffsetStrategy selects where bots are inserted: "round-robin" (default)
	// or "front-only".
	OffsetStrategy string `yaml:"offsetStrategy"`

	// Concurrency bounds how many cohorts a batch request partitions at once.
	// 0 means GOMAXPROCS.
	Concurrency int `yaml:"concurrency"`
}

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	// Addr is the listen address (e.g., ":8000").
	Addr string `yaml:"addr"`

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `yaml:"maxBodyBytes"`

	// ReadHeaderTimeout bounds how long the server waits for request headers.
	ReadHeaderTimeout time.Duration `yaml:"readHeaderTimeout"`
}

// NATSConfig configures the NATS transport and the cluster record bucket.
type NATSConfig struct {
	// Enabled turns on the NATS request/reply service.
	Enabled bool `yaml:"enabled"`

	// URL is the NATS server URL.
	URL string `yaml:"url"`

	// SubjectPrefix is prepended to the request subjects
	// ("<prefix>.partition", "<prefix>.batch").
	SubjectPrefix string `yaml:"subjectPrefix"`

	// QueueGroup load-balances requests across cohortd instances.
	QueueGroup string `yaml:"queueGroup"`

	// PublishRecords stores batch results in the JetStream KV bucket.
	PublishRecords bool `yaml:"publishRecords"`

	// RecordBucket is the JetStream KV bucket for cluster records.
	RecordBucket string `yaml:"recordBucket"`

	// RecordTTL is how long records remain in KV (0 = no expiration).
	RecordTTL time.Duration `yaml:"recordTtl"`
}

// LoggingConfig configures the daemon logger.
type LoggingConfig struct {
	// Backend is "slog" (default) or "zap".
	Backend string `yaml:"backend"`

	// Level is "debug", "info" (default), "warn" or "error".
	Level string `yaml:"level"`

	// Format is "text" (default) or "json". Applies to the slog backend.
	Format string `yaml:"format"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Enabled serves /metrics on the HTTP listener.
	Enabled bool `yaml:"enabled"`

	// Namespace is the Prometheus namespace.
	Namespace string `yaml:"namespace"`
}

// Config is the configuration of the cohortd service.
//
// All duration fields accept Go duration strings like "5s" or "1m".
type Config struct {
	Partitioner PartitionerConfig `yaml:"partitioner"`
	HTTP        HTTPConfig        `yaml:"http"`
	NATS        NATSConfig        `yaml:"nats"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`

	// RequestTimeout bounds the handling of a single request.
	RequestTimeout time.Duration `yaml:"requestTimeout"`

	// OperationTimeout bounds KV operations.
	OperationTimeout time.Duration `yaml:"operationTimeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Partitioner: PartitionerConfig{
			OffsetStrategy: OffsetStrategyRoundRobin,
		},
		HTTP: HTTPConfig{
			Addr:              ":8000",
			MaxBodyBytes:      4 << 20,
			ReadHeaderTimeout: 10 * time.Second,
		},
		NATS: NATSConfig{
			URL:           "nats://127.0.0.1:4222",
			SubjectPrefix: "cohort",
			QueueGroup:    "cohortd",
			RecordBucket:  "cohort-clusters",
			RecordTTL:     0, // records persist for version continuity
		},
		Logging: LoggingConfig{
			Backend: "slog",
			Level:   "info",
			Format:  "text",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "cohort",
		},
		RequestTimeout:   10 * time.Second,
		OperationTimeout: 5 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// SetDefaults fills in missing configuration values with defaults.
//
// Boolean switches (NATS.Enabled, NATS.PublishRecords, Metrics.Enabled) are
// left as given.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Partitioner.OffsetStrategy == "" {
		cfg.Partitioner.OffsetStrategy = defaults.Partitioner.OffsetStrategy
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = defaults.HTTP.Addr
	}
	if cfg.HTTP.MaxBodyBytes == 0 {
		cfg.HTTP.MaxBodyBytes = defaults.HTTP.MaxBodyBytes
	}
	if cfg.HTTP.ReadHeaderTimeout == 0 {
		cfg.HTTP.ReadHeaderTimeout = defaults.HTTP.ReadHeaderTimeout
	}
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = defaults.NATS.URL
	}
	if cfg.NATS.SubjectPrefix == "" {
		cfg.NATS.SubjectPrefix = defaults.NATS.SubjectPrefix
	}
	if cfg.NATS.QueueGroup == "" {
		cfg.NATS.QueueGroup = defaults.NATS.QueueGroup
	}
	if cfg.NATS.RecordBucket == "" {
		cfg.NATS.RecordBucket = defaults.NATS.RecordBucket
	}
	if cfg.Logging.Backend == "" {
		cfg.Logging.Backend = defaults.Logging.Backend
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaults.Logging.Format
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = defaults.Metrics.Namespace
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = defaults.RequestTimeout
	}
	if cfg.OperationTimeout == 0 {
		cfg.OperationTimeout = defaults.OperationTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}
}

// Validate checks configuration constraints.
//
// Returns:
//   - error: Wraps ErrInvalidConfig with an explanation, nil if valid
func (cfg *Config) Validate() error {
	if _, err := cfg.Partitioner.Strategy(); err != nil {
		return err
	}
	if cfg.Partitioner.Concurrency < 0 {
		return fmt.Errorf("%w: partitioner.concurrency must be >= 0, got %d",
			ErrInvalidConfig, cfg.Partitioner.Concurrency)
	}
	if cfg.HTTP.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: http.maxBodyBytes must be > 0, got %d", ErrInvalidConfig, cfg.HTTP.MaxBodyBytes)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("%w: requestTimeout must be > 0, got %v", ErrInvalidConfig, cfg.RequestTimeout)
	}
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: shutdownTimeout must be > 0, got %v", ErrInvalidConfig, cfg.ShutdownTimeout)
	}

	if cfg.NATS.Enabled {
		if cfg.NATS.URL == "" {
			return fmt.Errorf("%w: nats.url is required when nats is enabled", ErrInvalidConfig)
		}
		if cfg.NATS.SubjectPrefix == "" || strings.ContainsAny(cfg.NATS.SubjectPrefix, " *>") {
			return fmt.Errorf("%w: nats.subjectPrefix %q is not a valid subject prefix",
				ErrInvalidConfig, cfg.NATS.SubjectPrefix)
		}
		if cfg.NATS.PublishRecords && cfg.NATS.RecordBucket == "" {
			return fmt.Errorf("%w: nats.recordBucket is required when publishRecords is set", ErrInvalidConfig)
		}
		if cfg.NATS.RecordTTL < 0 {
			return fmt.Errorf("%w: nats.recordTtl must be >= 0, got %v", ErrInvalidConfig, cfg.NATS.RecordTTL)
		}
	}

	switch cfg.Logging.Backend {
	case "slog", "zap":
	default:
		return fmt.Errorf("%w: logging.backend must be slog or zap, got %q", ErrInvalidConfig, cfg.Logging.Backend)
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: logging.format must be text or json, got %q", ErrInvalidConfig, cfg.Logging.Format)
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level %q is not supported", ErrInvalidConfig, cfg.Logging.Level)
	}

	return nil
}

// Strategy resolves OffsetStrategy to its implementation.
//
// Returns:
//   - OffsetStrategy: The named strategy
//   - error: Wraps ErrInvalidConfig for unknown names
func (c PartitionerConfig) Strategy() (OffsetStrategy, error) {
	switch c.OffsetStrategy {
	case OffsetStrategyRoundRobin, "":
		return strategy.RoundRobinOffsets, nil
	case OffsetStrategyFrontOnly:
		return strategy.FrontOnlyOffsets, nil
	default:
		return nil, fmt.Errorf("%w: unknown offset strategy %q", ErrInvalidConfig, c.OffsetStrategy)
	}
}

// Options returns the partitioner options described by c.
func (c PartitionerConfig) Options() ([]Option, error) {
	s, err := c.Strategy()
	if err != nil {
		return nil, err
	}

	return []Option{WithOffsetStrategy(s), WithConcurrency(c.Concurrency)}, nil
}

// LoadConfig reads a YAML configuration file, applies defaults and validates it.
//
// Parameters:
//   - path: Path to the YAML file
//
// Returns:
//   - Config: Loaded configuration
//   - error: Read, parse or validation error
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig parses YAML configuration over DefaultConfig, fills any
// emptied fields with defaults and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: failed to parse config: %w", ErrInvalidConfig, err)
	}

	SetDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
