package cohort

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/story-squad/cohort/strategy"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.Equal(t, OffsetStrategyRoundRobin, cfg.Partitioner.OffsetStrategy)
	require.Equal(t, ":8000", cfg.HTTP.Addr)
	require.Equal(t, int64(4<<20), cfg.HTTP.MaxBodyBytes)
	require.Equal(t, "cohort", cfg.NATS.SubjectPrefix)
	require.Equal(t, "cohort-clusters", cfg.NATS.RecordBucket)
	require.False(t, cfg.NATS.Enabled)
	require.Equal(t, "slog", cfg.Logging.Backend)
	require.True(t, cfg.Metrics.Enabled)
	require.Equal(t, 10*time.Second, cfg.RequestTimeout)
	require.NoError(t, cfg.Validate())
}

func TestSetDefaults(t *testing.T) {
	t.Run("applies defaults to empty config", func(t *testing.T) {
		cfg := Config{}
		SetDefaults(&cfg)

		require.Equal(t, OffsetStrategyRoundRobin, cfg.Partitioner.OffsetStrategy)
		require.Equal(t, ":8000", cfg.HTTP.Addr)
		require.Equal(t, "cohortd", cfg.NATS.QueueGroup)
		require.Equal(t, "info", cfg.Logging.Level)
		require.Equal(t, 5*time.Second, cfg.OperationTimeout)
		require.NoError(t, cfg.Validate())
	})

	t.Run("preserves custom values", func(t *testing.T) {
		cfg := Config{
			Partitioner:    PartitionerConfig{OffsetStrategy: OffsetStrategyFrontOnly, Concurrency: 3},
			HTTP:           HTTPConfig{Addr: ":9000", MaxBodyBytes: 1024},
			NATS:           NATSConfig{SubjectPrefix: "squad"},
			Logging:        LoggingConfig{Backend: "zap", Level: "debug", Format: "json"},
			RequestTimeout: 2 * time.Second,
		}
		SetDefaults(&cfg)

		require.Equal(t, OffsetStrategyFrontOnly, cfg.Partitioner.OffsetStrategy)
		require.Equal(t, 3, cfg.Partitioner.Concurrency)
		require.Equal(t, ":9000", cfg.HTTP.Addr)
		require.Equal(t, int64(1024), cfg.HTTP.MaxBodyBytes)
		require.Equal(t, "squad", cfg.NATS.SubjectPrefix)
		require.Equal(t, "zap", cfg.Logging.Backend)
		require.Equal(t, 2*time.Second, cfg.RequestTimeout)
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown strategy", func(c *Config) { c.Partitioner.OffsetStrategy = "random" }},
		{"negative concurrency", func(c *Config) { c.Partitioner.Concurrency = -1 }},
		{"zero body limit", func(c *Config) { c.HTTP.MaxBodyBytes = 0 }},
		{"zero request timeout", func(c *Config) { c.RequestTimeout = 0 }},
		{"zero shutdown timeout", func(c *Config) { c.ShutdownTimeout = 0 }},
		{"nats without url", func(c *Config) { c.NATS.Enabled = true; c.NATS.URL = "" }},
		{"nats wildcard prefix", func(c *Config) { c.NATS.Enabled = true; c.NATS.SubjectPrefix = "cohort.>" }},
		{"publish without bucket", func(c *Config) {
			c.NATS.Enabled = true
			c.NATS.PublishRecords = true
			c.NATS.RecordBucket = ""
		}},
		{"negative ttl", func(c *Config) { c.NATS.Enabled = true; c.NATS.RecordTTL = -time.Second }},
		{"bad backend", func(c *Config) { c.Logging.Backend = "logrus" }},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestPartitionerConfig_Strategy(t *testing.T) {
	s, err := PartitionerConfig{OffsetStrategy: OffsetStrategyFrontOnly}.Strategy()
	require.NoError(t, err)
	require.IsType(t, strategy.FrontOnly{}, s(13))

	s, err = PartitionerConfig{}.Strategy()
	require.NoError(t, err)
	require.IsType(t, &strategy.RoundRobin{}, s(13))

	opts, err := PartitionerConfig{OffsetStrategy: OffsetStrategyFrontOnly, Concurrency: 2}.Options()
	require.NoError(t, err)
	p := NewPartitioner(opts...)
	require.Equal(t, 2, p.opts.concurrency)

	_, err = PartitionerConfig{OffsetStrategy: "nope"}.Options()
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParseConfig_YAML(t *testing.T) {
	yamlConfig := `
partitioner:
  offsetStrategy: front-only
  concurrency: 4
http:
  addr: ":8080"
  readHeaderTimeout: 3s
nats:
  enabled: true
  url: nats://nats:4222
  subjectPrefix: squad
  publishRecords: true
  recordTtl: 1h
logging:
  backend: zap
  level: debug
requestTimeout: 15s
`
	cfg, err := ParseConfig([]byte(yamlConfig))
	require.NoError(t, err)

	require.Equal(t, OffsetStrategyFrontOnly, cfg.Partitioner.OffsetStrategy)
	require.Equal(t, 4, cfg.Partitioner.Concurrency)
	require.Equal(t, ":8080", cfg.HTTP.Addr)
	require.Equal(t, 3*time.Second, cfg.HTTP.ReadHeaderTimeout)
	require.True(t, cfg.NATS.Enabled)
	require.Equal(t, "nats://nats:4222", cfg.NATS.URL)
	require.True(t, cfg.NATS.PublishRecords)
	require.Equal(t, "cohort-clusters", cfg.NATS.RecordBucket)
	require.Equal(t, time.Hour, cfg.NATS.RecordTTL)
	require.Equal(t, "zap", cfg.Logging.Backend)
	require.Equal(t, "text", cfg.Logging.Format)
	require.True(t, cfg.Metrics.Enabled, "unset booleans keep their defaults")
	require.Equal(t, 15*time.Second, cfg.RequestTimeout)
	require.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestParseConfig_Errors(t *testing.T) {
	_, err := ParseConfig([]byte("partitioner: [not, a, map]"))
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = ParseConfig([]byte("logging:\n  backend: stdout\n"))
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cohortd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  addr: \":7000\"\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, ":7000", cfg.HTTP.Addr)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
