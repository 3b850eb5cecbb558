// Package kvutil provides helpers for NATS JetStream KeyValue buckets.
package kvutil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/story-squad/cohort/internal/backoff"
)

// DefaultAttempts is used when EnsureBucket is given a non-positive attempt count.
const DefaultAttempts = 3

var retryPolicy = backoff.Policy{Base: 10 * time.Millisecond, Multiplier: 2, Cap: time.Second}

// EnsureBucket creates the KV bucket described by cfg, or opens it if another
// process created it first.
//
// Transient failures are retried with jittered exponential backoff starting
// at 10ms.
// Context cancellation stops the retries.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - js: JetStream context
//   - cfg: KV bucket configuration
//   - attempts: Maximum attempts (DefaultAttempts if <= 0)
//
// Returns:
//   - jetstream.KeyValue: The KV bucket
//   - error: Last error after all attempts, or the context error
//
// Example:
//
//	kv, err := kvutil.EnsureBucket(ctx, js, jetstream.KeyValueConfig{
//	    Bucket:  "cohort-clusters",
//	    History: 1,
//	}, 0)
func EnsureBucket(
	ctx context.Context,
	js jetstream.JetStream,
	cfg jetstream.KeyValueConfig,
	attempts int,
) (jetstream.KeyValue, error) {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	var (
		delay   time.Duration
		lastErr error
	)

	for attempt := 1; attempt <= attempts; attempt++ {
		kv, err := js.CreateKeyValue(ctx, cfg)
		if errors.Is(err, jetstream.ErrBucketExists) {
			kv, err = js.KeyValue(ctx, cfg.Bucket)
		}
		if err == nil {
			return kv, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, fmt.Errorf("context done while ensuring KV bucket %s: %w", cfg.Bucket, ctx.Err())
		}

		if attempt < attempts {
			delay = retryPolicy.Next(delay)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("context done while ensuring KV bucket %s: %w", cfg.Bucket, ctx.Err())
			case <-time.After(delay):
			}
		}
	}

	return nil, fmt.Errorf("failed to create or open KV bucket %s after %d attempts: %w",
		cfg.Bucket, attempts, lastErr)
}
