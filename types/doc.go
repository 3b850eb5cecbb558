// Package types provides core type definitions and interfaces for the cohort library.
//
// The types live in their own package so that internal packages (metrics,
// publishing, transports) can share them without importing the root cohort
// package, which re-exports them for callers.
//
// Key types:
//   - Submission: A scored item identified by id
//   - Group: Exactly GroupSize submissions, real or synthetic
//   - Batch / BatchResult: Submissions and groups keyed by cohort id
//   - ClusterRecord: A versioned, published grouping
//   - Logger: Structured logging interface
//   - MetricsCollector: Metrics recording interface
package types
