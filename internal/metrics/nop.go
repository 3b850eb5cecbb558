// Package metrics provides types.MetricsCollector implementations.
package metrics

import "github.com/story-squad/cohort/types"

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. It is the default when no collector is configured.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// RecordPartition discards the partition metric.
func (n *NopMetrics) RecordPartition(_ /* submissions */, _ /* bots */, _ /* groups */ int, _ /* duration */ float64) {
	// No-op
}

// RecordPartitionError discards the partition error metric.
func (n *NopMetrics) RecordPartitionError(_ /* kind */ string) {
	// No-op
}

// RecordPublish discards the publish metric.
func (n *NopMetrics) RecordPublish(_ /* result */ string, _ /* duration */ float64) {
	// No-op
}

// RecordRequest discards the request metric.
func (n *NopMetrics) RecordRequest(_ /* transport */, _ /* operation */, _ /* status */ string, _ /* duration */ float64) {
	// No-op
}
