package types

// OffsetGenerator yields the insertion offsets used to place synthetic
// submissions into the ordered sequence.
//
// The partitioner calls Next once per synthetic submission. Offsets are
// indexes into the sequence as it is at the time of insertion.
type OffsetGenerator interface {
	// Next returns the next insertion offset.
	Next() int
}

// OffsetStrategy builds an OffsetGenerator for a call with n real submissions.
//
// Strategy implementations must be deterministic and must only return
// offsets within [0, n], the valid insertion range of the initial sequence.
type OffsetStrategy func(n int) OffsetGenerator
