package cohort

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/story-squad/cohort/types"
)

// Error kinds reported to MetricsCollector.RecordPartitionError.
const (
	ErrorKindInvalidInput = "invalid_input"
	ErrorKindInternal     = "internal"
)

// Partitioner groups submissions into groups of GroupSize.
//
// A Partitioner holds only its immutable options and is safe for concurrent
// use. Each call allocates its own working slices and has no side effects
// beyond logging and metrics.
type Partitioner struct {
	opts partitionerOptions
}

// NewPartitioner creates a partitioner.
//
// Parameters:
//   - opts: Optional configuration (offset strategy, logger, metrics, concurrency)
//
// Returns:
//   - *Partitioner: Ready to use partitioner
//
// Example:
//
//	p := cohort.NewPartitioner(cohort.WithLogger(logger))
//	groups, err := p.Partition(subs)
func NewPartitioner(opts ...Option) *Partitioner {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Partitioner{opts: o}
}

// Partition groups subs with the default options.
//
// It is equivalent to NewPartitioner().Partition(subs).
func Partition(subs []Submission) ([]Group, error) {
	return NewPartitioner().Partition(subs)
}

// BotCount returns how many synthetic submissions pad n real ones to a
// multiple of GroupSize: (GroupSize - n mod GroupSize) mod GroupSize.
func BotCount(n int) int {
	remainder := n % GroupSize
	if remainder == 0 {
		return 0
	}

	return GroupSize - remainder
}

// Partition orders subs by complexity, pads them with synthetic submissions
// and splits the result into groups.
//
// The algorithm:
//  1. Validate ids and complexities
//  2. Stable sort by complexity, descending
//  3. Clone the BotCount(n) lowest-complexity entries as bots
//  4. Insert the bots, last one first, at offsets from the offset strategy
//  5. Check the padded length and cut it into consecutive groups
//
// Parameters:
//   - subs: Submissions with unique ids (not modified)
//
// Returns:
//   - []Group: Groups in sequence order (empty, non-nil for no input)
//   - error: *InputError (ErrInvalidInput) or *InvariantError (ErrInternalInvariant)
func (p *Partitioner) Partition(subs []Submission) ([]Group, error) {
	start := time.Now()

	index, err := validate(subs)
	if err != nil {
		p.reject(err, len(subs))

		return nil, err
	}

	n := len(subs)
	numBots := BotCount(n)

	ordered := make([]Submission, n, n+numBots)
	copy(ordered, subs)
	slices.SortStableFunc(ordered, func(a, b Submission) int {
		return cmp.Compare(b.Complexity, a.Complexity)
	})

	if numBots > 0 {
		padded, err := p.pad(ordered, numBots, index)
		if errors.Is(err, ErrInvalidInput) {
			p.reject(err, n)

			return nil, err
		}
		if err != nil {
			p.fail(err, n, numBots, len(ordered))

			return nil, err
		}
		ordered = padded
	}

	if err := checkLength(n, numBots, len(ordered)); err != nil {
		p.fail(err, n, numBots, len(ordered))

		return nil, err
	}

	groups := make([]Group, 0, len(ordered)/GroupSize)
	for chunk := range slices.Chunk(ordered, GroupSize) {
		groups = append(groups, Group(chunk))
	}

	p.opts.metrics.RecordPartition(n, numBots, len(groups), time.Since(start).Seconds())
	p.opts.logger.Debug("partitioned submissions",
		"submissions", n,
		"bots", numBots,
		"groups", len(groups),
	)

	return groups, nil
}

// pad inserts numBots bots cloned from the tail of ordered. index maps each
// real id to its input position; a bot whose id equals a real id is rejected.
func (p *Partitioner) pad(ordered []Submission, numBots int, index map[string]int) ([]Submission, error) {
	n := len(ordered)

	// Templates are the numBots lowest entries. A lone submission has to
	// serve as the template of every bot.
	templates := ordered[max(n-numBots, 0):]
	bots := make([]Submission, 0, numBots)
	for i := range numBots {
		bot := types.NewBotCopy(templates[i%len(templates)], i/len(templates)+1)
		if at, taken := index[bot.ID]; taken {
			return nil, &InputError{Index: at, ID: bot.ID, Reason: "id collides with a generated bot id"}
		}
		bots = append(bots, bot)
	}

	offsets := p.opts.offsets(n)
	for len(bots) > 0 {
		bot := bots[len(bots)-1]
		bots = bots[:len(bots)-1]

		at := offsets.Next()
		if at < 0 || at > len(ordered) {
			return nil, fmt.Errorf("%w: insertion offset %d outside [0, %d]",
				ErrInternalInvariant, at, len(ordered))
		}
		ordered = slices.Insert(ordered, at, bot)
	}

	return ordered, nil
}

func (p *Partitioner) reject(err error, n int) {
	p.opts.metrics.RecordPartitionError(ErrorKindInvalidInput)
	p.opts.logger.Debug("rejected submissions", "submissions", n, "error", err)
}

func (p *Partitioner) fail(err error, n, numBots, length int) {
	p.opts.metrics.RecordPartitionError(ErrorKindInternal)
	p.opts.logger.Error("padding invariant violated",
		"submissions", n,
		"bots", numBots,
		"length", length,
		"error", err,
	)
}

// checkLength verifies that the padded sequence splits into whole groups.
func checkLength(n, numBots, length int) error {
	if length%GroupSize != 0 || length != n+numBots {
		return &InvariantError{N: n, NumBots: numBots, Length: length}
	}

	return nil
}

// validate rejects empty or duplicate ids and non-finite complexities. It
// returns the input position of every id.
func validate(subs []Submission) (map[string]int, error) {
	index := make(map[string]int, len(subs))
	for i, s := range subs {
		switch {
		case strings.TrimSpace(s.ID) == "":
			return nil, &InputError{Index: i, ID: s.ID, Reason: "missing id"}
		case math.IsNaN(s.Complexity) || math.IsInf(s.Complexity, 0):
			return nil, &InputError{Index: i, ID: s.ID, Reason: "complexity must be a finite number"}
		}

		if _, dup := index[s.ID]; dup {
			return nil, &InputError{Index: i, ID: s.ID, Reason: "duplicate id"}
		}
		index[s.ID] = i
	}

	return index, nil
}

// ErrorKind classifies a Partition error for metrics and transports.
//
// Returns:
//   - string: ErrorKindInvalidInput, ErrorKindInternal, or "" for nil
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return ErrorKindInvalidInput
	default:
		return ErrorKindInternal
	}
}
