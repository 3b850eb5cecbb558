package cohort

import "github.com/story-squad/cohort/types"

// Sentinel errors re-exported from the types package.
var (
	// ErrInvalidInput is returned when submissions are malformed or ids repeat.
	ErrInvalidInput = types.ErrInvalidInput

	// ErrInternalInvariant is returned when padding produced a length that is
	// not a multiple of GroupSize.
	ErrInternalInvariant = types.ErrInternalInvariant

	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = types.ErrInvalidConfig

	// ErrPublishFailed is returned when a cluster record cannot be written.
	ErrPublishFailed = types.ErrPublishFailed

	// ErrRecordNotFound is returned when no cluster record exists for a cohort.
	ErrRecordNotFound = types.ErrRecordNotFound
)
