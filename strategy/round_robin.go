package strategy

import "github.com/story-squad/cohort/types"

// RoundRobin cycles through the group-aligned insertion offsets of a sequence.
//
// For a call with n real submissions the offsets are 0, 4, 8, ... strictly
// less than n-4, repeating. When that range is empty (n <= 4) the only
// offset is 0, so every synthetic submission is inserted at the front.
type RoundRobin struct {
	span int
	next int
}

var _ types.OffsetGenerator = (*RoundRobin)(nil)

// NewRoundRobin creates a round-robin offset generator.
//
// Parameters:
//   - n: Number of real submissions in the call
//
// Returns:
//   - *RoundRobin: Generator positioned at offset 0
//
// Example:
//
//	rr := strategy.NewRoundRobin(13)
//	rr.Next() // 0
//	rr.Next() // 4
//	rr.Next() // 8
//	rr.Next() // 0
func NewRoundRobin(n int) *RoundRobin {
	span := 1
	if limit := n - types.GroupSize; limit > 0 {
		span = (limit + types.GroupSize - 1) / types.GroupSize
	}

	return &RoundRobin{span: span}
}

// RoundRobinOffsets is the types.OffsetStrategy backed by NewRoundRobin.
// It is the partitioner's default.
func RoundRobinOffsets(n int) types.OffsetGenerator {
	return NewRoundRobin(n)
}

// Next returns the next offset and advances the cycle.
func (rr *RoundRobin) Next() int {
	offset := (rr.next % rr.span) * types.GroupSize
	rr.next++

	return offset
}

// Offsets returns one full cycle of offsets without advancing the generator.
func (rr *RoundRobin) Offsets() []int {
	offsets := make([]int, rr.span)
	for i := range offsets {
		offsets[i] = i * types.GroupSize
	}

	return offsets
}

// FrontOnly always inserts at offset 0.
//
// This is what RoundRobin degenerates to for fewer than eight submissions;
// it is exposed so callers can opt into that placement for every size.
type FrontOnly struct{}

var _ types.OffsetGenerator = FrontOnly{}

// FrontOnlyOffsets is the types.OffsetStrategy backed by FrontOnly.
func FrontOnlyOffsets(_ /* n */ int) types.OffsetGenerator {
	return FrontOnly{}
}

// Next returns 0.
func (FrontOnly) Next() int {
	return 0
}
