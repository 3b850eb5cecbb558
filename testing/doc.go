// Package testing provides helpers for tests that exercise the cohort
// transports and publisher against a real, embedded NATS server.
package testing
