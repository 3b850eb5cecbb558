package cohort

import (
	"runtime"

	"github.com/story-squad/cohort/internal/logger"
	"github.com/story-squad/cohort/internal/metrics"
	"github.com/story-squad/cohort/strategy"
)

// Option configures a Partitioner.
type Option func(*partitionerOptions)

// partitionerOptions holds optional Partitioner configuration.
type partitionerOptions struct {
	offsets     OffsetStrategy
	logger      Logger
	metrics     MetricsCollector
	concurrency int
}

func defaultOptions() partitionerOptions {
	return partitionerOptions{
		offsets:     strategy.RoundRobinOffsets,
		logger:      logger.NewNop(),
		metrics:     metrics.NewNop(),
		concurrency: runtime.GOMAXPROCS(0),
	}
}

// WithOffsetStrategy sets the strategy that places synthetic submissions.
//
// Parameters:
//   - s: OffsetStrategy (nil keeps the round-robin default)
//
// Returns:
//   - Option: Functional option for NewPartitioner
//
// Example:
//
//	p := cohort.NewPartitioner(cohort.WithOffsetStrategy(strategy.FrontOnlyOffsets))
func WithOffsetStrategy(s OffsetStrategy) Option {
	return func(o *partitionerOptions) {
		if s != nil {
			o.offsets = s
		}
	}
}

// WithLogger sets a logger.
//
// Parameters:
//   - l: Logger implementation (nil keeps the no-op default)
//
// Returns:
//   - Option: Functional option for NewPartitioner
//
// Example:
//
//	p := cohort.NewPartitioner(cohort.WithLogger(logging.NewSlogDefault()))
func WithLogger(l Logger) Option {
	return func(o *partitionerOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - m: MetricsCollector implementation (nil keeps the no-op default)
//
// Returns:
//   - Option: Functional option for NewPartitioner
func WithMetrics(m MetricsCollector) Option {
	return func(o *partitionerOptions) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithConcurrency bounds how many cohorts PartitionBatch processes at once.
//
// Parameters:
//   - n: Maximum concurrent cohorts (values < 1 keep GOMAXPROCS)
//
// Returns:
//   - Option: Functional option for NewPartitioner
func WithConcurrency(n int) Option {
	return func(o *partitionerOptions) {
		if n >= 1 {
			o.concurrency = n
		}
	}
}
