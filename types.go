package cohort

import "github.com/story-squad/cohort/types"

// Re-export types from the types package.
//
// Internal packages depend on types rather than on the root package; the
// aliases give callers cohort.Submission, cohort.Group, etc.
type (
	Submission     = types.Submission
	Group          = types.Group
	Batch          = types.Batch
	BatchResult    = types.BatchResult
	ClusterRecord  = types.ClusterRecord
	InputError     = types.InputError
	InvariantError = types.InvariantError
)

// Re-export interfaces from the types package for convenience.
type (
	Logger           = types.Logger
	MetricsCollector = types.MetricsCollector
	OffsetGenerator  = types.OffsetGenerator
	OffsetStrategy   = types.OffsetStrategy
	SubmissionSource = types.SubmissionSource
)

// Re-export constants from the types package.
const (
	GroupSize = types.GroupSize
	BotPrefix = types.BotPrefix
)

// Digest returns the hash of the ordered submissions used to detect
// unchanged cohorts. See types.Digest.
func Digest(subs []Submission) uint64 {
	return types.Digest(subs)
}

// NewBot returns the synthetic submission cloned from template.
func NewBot(template Submission) Submission {
	return types.NewBot(template)
}
