// Package publish stores partitioning results in a NATS JetStream KV bucket.
//
// Each cohort has one key, "<prefix>.<cohortID>", holding the latest
// types.ClusterRecord as JSON. Versions increase by one per cohort on every
// publish of a different input; re-publishing an identical input (same
// digest) is a no-op.
package publish
