// Package source provides SubmissionSource implementations.
//
// A SubmissionSource supplies the submissions of a cohort; the partitioner
// loads from it in PartitionSource. Static serves fixed lists and is meant for
// tests and for callers that already hold the data.
package source
