package source

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/story-squad/cohort/types"
)

// Static implements a submission source backed by fixed per-cohort lists.
type Static struct {
	mu      sync.RWMutex
	cohorts map[string][]types.Submission
}

var _ types.SubmissionSource = (*Static)(nil)

// NewStatic creates a new static submission source.
//
// Useful for testing and for callers that already hold the submissions.
//
// Parameters:
//   - cohorts: Submissions keyed by cohort id (copied)
//
// Returns:
//   - *Static: Initialized static source
//
// Example:
//
//	src := source.NewStatic(types.Batch{
//	    "cohort-1": {{ID: "1", Complexity: 10}, {ID: "2", Complexity: 20}},
//	})
//	groups, err := p.PartitionSource(ctx, src, "cohort-1")
func NewStatic(cohorts types.Batch) *Static {
	s := &Static{}
	s.Update(cohorts)

	return s
}

// ListSubmissions returns a copy of the cohort's submissions.
//
// Unknown cohorts yield an empty list. The only error is ctx.Err().
func (s *Static) ListSubmissions(ctx context.Context, cohortID string) ([]types.Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.cohorts[cohortID]), nil
}

// Cohorts returns the known cohort ids in sorted order.
func (s *Static) Cohorts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Sorted(maps.Keys(s.cohorts))
}

// Update replaces all cohorts.
func (s *Static) Update(cohorts types.Batch) {
	next := make(map[string][]types.Submission, len(cohorts))
	for id, subs := range cohorts {
		next[id] = slices.Clone(subs)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cohorts = next
}
