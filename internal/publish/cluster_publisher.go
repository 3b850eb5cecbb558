package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/story-squad/cohort/internal/backoff"
	"github.com/story-squad/cohort/types"
)

// Publish results reported to types.PublishMetrics.
const (
	ResultSuccess   = "success"
	ResultFailure   = "failure"
	ResultUnchanged = "unchanged"
)

// maxUpdateAttempts bounds optimistic-concurrency retries against other writers.
const maxUpdateAttempts = 5

var conflictBackoff = backoff.Policy{Base: 5 * time.Millisecond, Multiplier: 2, Cap: 200 * time.Millisecond}

var validCohortID = regexp.MustCompile(`^[-/_=a-zA-Z0-9]+$`)

// ClusterPublisher writes cluster records to NATS KV.
//
// Writes are compare-and-set on the key's last revision, so concurrent
// publishers (several cohortd instances) never lose a version. The last
// record seen by this process is cached per cohort together with its KV
// revision; an identical re-publish is skipped only while the stored
// revision still matches, which costs one Get instead of a decode and write.
type ClusterPublisher struct {
	kv        jetstream.KeyValue
	keyPrefix string

	last *xsync.Map[string, cachedRecord]

	logger  types.Logger
	metrics types.PublishMetrics
	now     func() time.Time
}

// NewClusterPublisher creates a new cluster publisher.
//
// Parameters:
//   - kv: NATS KV bucket for cluster records
//   - prefix: Key prefix (e.g., "clusters")
//   - logger: Logger for publishing events
//   - metrics: Metrics collector for publish outcomes
//
// Returns:
//   - *ClusterPublisher: A new publisher instance
func NewClusterPublisher(
	kv jetstream.KeyValue,
	prefix string,
	logger types.Logger,
	metrics types.PublishMetrics,
) *ClusterPublisher {
	return &ClusterPublisher{
		kv:        kv,
		keyPrefix: prefix + ".",
		last:      xsync.NewMap[string, cachedRecord](),
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Key returns the KV key used for cohortID.
func (p *ClusterPublisher) Key(cohortID string) string {
	return p.keyPrefix + cohortID
}

// Publish stores groups as the latest record of cohortID.
//
// If the latest record already has the same digest it is returned unchanged
// and nothing is written.
//
// Parameters:
//   - ctx: Context for cancellation
//   - cohortID: Cohort id; must be a valid KV key token ([-/_=a-zA-Z0-9]+)
//   - digest: types.Digest of the input the groups were computed from
//   - groups: Partitioning result
//
// Returns:
//   - types.ClusterRecord: The stored (or unchanged) record
//   - error: ErrInvalidInput for a bad cohort id, ErrPublishFailed on KV failure
func (p *ClusterPublisher) Publish(
	ctx context.Context,
	cohortID string,
	digest uint64,
	groups []types.Group,
) (types.ClusterRecord, error) {
	start := time.Now()

	if !validCohortID.MatchString(cohortID) {
		return types.ClusterRecord{}, fmt.Errorf("%w: cohort id %q cannot be used as a KV key", types.ErrInvalidInput, cohortID)
	}

	if cached, ok := p.last.Load(cohortID); ok && cached.rec.Digest == digest && p.current(ctx, cached) {
		p.metrics.RecordPublish(ResultUnchanged, time.Since(start).Seconds())
		p.logger.Debug("cluster record unchanged", "cohort_id", cohortID, "version", cached.rec.Version)

		return cached.rec, nil
	}

	rec, revision, changed, err := p.write(ctx, cohortID, digest, groups)
	if err != nil {
		p.metrics.RecordPublish(ResultFailure, time.Since(start).Seconds())
		p.logger.Warn("failed to publish cluster record", "cohort_id", cohortID, "error", err)

		return types.ClusterRecord{}, err
	}

	p.last.Store(cohortID, cachedRecord{rec: rec, revision: revision})

	result := ResultSuccess
	if !changed {
		result = ResultUnchanged
	}
	p.metrics.RecordPublish(result, time.Since(start).Seconds())
	p.logger.Debug("published cluster record",
		"cohort_id", cohortID,
		"version", rec.Version,
		"groups", len(rec.Groups),
		"result", result,
	)

	return rec, nil
}

// cachedRecord is a record together with the KV revision it was stored at.
type cachedRecord struct {
	rec      types.ClusterRecord
	revision uint64
}

// current reports whether the stored entry is still the cached revision.
// Another instance may have written since, or the entry may have expired.
func (p *ClusterPublisher) current(ctx context.Context, cached cachedRecord) bool {
	entry, err := p.kv.Get(ctx, p.Key(cached.rec.CohortID))
	if err != nil {
		return false
	}

	return entry.Revision() == cached.revision
}

// write performs the compare-and-set loop and returns the stored record and
// its revision. changed is false when the stored record already carried
// digest.
func (p *ClusterPublisher) write(
	ctx context.Context,
	cohortID string,
	digest uint64,
	groups []types.Group,
) (types.ClusterRecord, uint64, bool, error) {
	key := p.Key(cohortID)

	var (
		delay   time.Duration
		lastErr error
	)
	for attempt := range maxUpdateAttempts {
		if attempt > 0 {
			delay = conflictBackoff.Next(delay)
			select {
			case <-ctx.Done():
				return types.ClusterRecord{}, 0, false, fmt.Errorf("%w: %w", types.ErrPublishFailed, ctx.Err())
			case <-time.After(delay):
			}
		}

		current, revision, err := p.load(ctx, key)
		if err != nil && !errors.Is(err, types.ErrRecordNotFound) {
			return types.ClusterRecord{}, 0, false, err
		}
		if err == nil && current.Digest == digest {
			return current, revision, false, nil
		}

		rec := types.ClusterRecord{
			CohortID:  cohortID,
			Version:   current.Version + 1,
			Digest:    digest,
			Groups:    groups,
			CreatedAt: p.now().UTC(),
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return types.ClusterRecord{}, 0, false, fmt.Errorf("failed to marshal cluster record: %w", err)
		}

		var stored uint64
		if revision == 0 {
			stored, err = p.kv.Create(ctx, key, data)
		} else {
			stored, err = p.kv.Update(ctx, key, data, revision)
		}
		if err == nil {
			return rec, stored, true, nil
		}
		if !errors.Is(err, jetstream.ErrKeyExists) {
			return types.ClusterRecord{}, 0, false, fmt.Errorf("%w: %w", types.ErrPublishFailed, err)
		}

		// Another writer got there first; reload and retry.
		lastErr = err
		p.logger.Debug("cluster record changed concurrently, retrying", "key", key)
	}

	return types.ClusterRecord{}, 0, false, fmt.Errorf("%w: too many concurrent updates: %w", types.ErrPublishFailed, lastErr)
}

// Latest returns the stored record of cohortID.
//
// Returns:
//   - types.ClusterRecord: The latest record
//   - error: ErrRecordNotFound if the cohort has no record
func (p *ClusterPublisher) Latest(ctx context.Context, cohortID string) (types.ClusterRecord, error) {
	rec, _, err := p.load(ctx, p.Key(cohortID))

	return rec, err
}

func (p *ClusterPublisher) load(ctx context.Context, key string) (types.ClusterRecord, uint64, error) {
	entry, err := p.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
		return types.ClusterRecord{}, 0, fmt.Errorf("%w: %s", types.ErrRecordNotFound, key)
	}
	if err != nil {
		return types.ClusterRecord{}, 0, fmt.Errorf("%w: failed to read %s: %w", types.ErrPublishFailed, key, err)
	}

	var rec types.ClusterRecord
	if err := json.Unmarshal(entry.Value(), &rec); err != nil {
		return types.ClusterRecord{}, 0, fmt.Errorf("%w: malformed record at %s: %w", types.ErrPublishFailed, key, err)
	}

	return rec, entry.Revision(), nil
}
