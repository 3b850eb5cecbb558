package cohort

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"golang.org/x/sync/errgroup"
)

// PartitionBatch partitions every cohort of batch.
//
// Cohorts are independent and are processed concurrently, at most
// WithConcurrency at a time. The first failure cancels the cohorts that have
// not started yet and is returned wrapped with its cohort id, so errors.Is
// still matches ErrInvalidInput or ErrInternalInvariant.
//
// Parameters:
//   - ctx: Context for cancellation
//   - batch: Submissions keyed by cohort id
//
// Returns:
//   - BatchResult: Groups keyed by cohort id (one entry per input cohort)
//   - error: First cohort failure or ctx.Err()
//
// Example:
//
//	result, err := p.PartitionBatch(ctx, cohort.Batch{
//	    "cohort-1": subs1,
//	    "cohort-2": subs2,
//	})
func (p *Partitioner) PartitionBatch(ctx context.Context, batch Batch) (BatchResult, error) {
	ids := slices.Sorted(maps.Keys(batch))
	results := make([][]Group, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.concurrency)

	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			groups, err := p.Partition(batch[id])
			if err != nil {
				return fmt.Errorf("cohort %q: %w", id, err)
			}
			results[i] = groups

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(BatchResult, len(ids))
	for i, id := range ids {
		out[id] = results[i]
	}

	p.opts.logger.Debug("partitioned batch", "cohorts", len(ids))

	return out, nil
}

// PartitionSource loads a cohort from src and partitions it.
//
// Parameters:
//   - ctx: Context passed to the source
//   - src: Submission source
//   - cohortID: Cohort to load
//
// Returns:
//   - []Group: Groups of the cohort
//   - error: Source error (wrapped) or a Partition error
func (p *Partitioner) PartitionSource(ctx context.Context, src SubmissionSource, cohortID string) ([]Group, error) {
	subs, err := src.ListSubmissions(ctx, cohortID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions for cohort %q: %w", cohortID, err)
	}

	return p.Partition(subs)
}
