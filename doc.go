// Package cohort groups scored submissions into peer groups of exactly four.
//
// Submissions are ordered by complexity, highest first. When the count is not
// a multiple of four, synthetic submissions ("bots") are cloned from the
// lowest-complexity submissions and inserted so that every group is full.
// The result is a sequence of groups, each holding four consecutive entries of
// the padded sequence.
//
// # Quick Start
//
//	subs := []cohort.Submission{
//	    {ID: "1", Complexity: 10},
//	    {ID: "2", Complexity: 20},
//	    {ID: "3", Complexity: 30},
//	    {ID: "4", Complexity: 40},
//	    {ID: "5", Complexity: 50},
//	    {ID: "6", Complexity: 60},
//	}
//
//	groups, err := cohort.Partition(subs)
//	if err != nil {
//	    // errors.Is(err, cohort.ErrInvalidInput) for bad input
//	}
//	// groups[0] = [Bot 2, Bot 1, 6, 5]
//	// groups[1] = [4, 3, 2, 1]
//
// # Ordering
//
// The sort is stable: submissions with equal complexity keep their input
// order. Bots take the complexity of the submission they were cloned from and
// an id of the form "Bot <id>". Their insertion offsets come from an offset
// strategy; the default (strategy.RoundRobin) cycles through 0, 4, 8, ...
// below n-4 and therefore inserts every bot at the front when n < 8.
//
// # Errors
//
// Invalid input (empty or duplicate ids, non-finite complexity, or a real id
// equal to a generated bot id) wraps ErrInvalidInput. A padded sequence that is not
// a multiple of four wraps ErrInternalInvariant; it indicates a defect and is
// logged at error level.
//
// # Advanced Usage
//
//	p := cohort.NewPartitioner(
//	    cohort.WithLogger(logger),
//	    cohort.WithMetrics(collector),
//	    cohort.WithOffsetStrategy(strategy.FrontOnlyOffsets),
//	    cohort.WithConcurrency(8),
//	)
//	result, err := p.PartitionBatch(ctx, cohort.Batch{"c1": subs1, "c2": subs2})
//
// The transport/httpapi and transport/natsrpc packages expose the partitioner
// over HTTP and NATS; cmd/cohortd runs both.
package cohort
