// Package natsrpc exposes the partitioner as a NATS request/reply service.
//
// Subjects (with the default prefix "cohort"):
//
//	cohort.partition  request: [{"id": ..., "Complexity": ...}, ...]
//	                  reply:   {"groups": [[sub x4], ...]}
//	cohort.batch      request: {"<cohort>": [{"id": ..., "Complexity": ...}, ...]}
//	                  reply:   {"groups": {"<cohort>": [[sub x4], ...]}, "versions": {"<cohort>": 3}}
//
// Failures reply with {"error": {"kind": "invalid_input" | "internal" | "publish_failed", "message": ...}}.
// Subscriptions join a queue group so that several instances share the load.
package natsrpc
