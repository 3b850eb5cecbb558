package types

import "context"

// SubmissionSource provides the submissions of a cohort.
//
// Implementations can query various backends:
//   - Static: fixed per-cohort lists for testing
//   - Custom: any database or service lookup
type SubmissionSource interface {
	// ListSubmissions returns the submissions of a cohort, in the order
	// that should be used to break complexity ties.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - cohortID: Cohort to list
	//
	// Returns:
	//   - []Submission: Submissions of the cohort (empty if unknown)
	//   - error: Lookup error (nil on success)
	ListSubmissions(ctx context.Context, cohortID string) ([]Submission, error)
}
