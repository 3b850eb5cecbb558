package types

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations must be non-blocking and safe for concurrent use; the
// partitioner and the transports call them from request goroutines.
//
// This interface composes smaller, component-focused interfaces.
type MetricsCollector interface {
	PartitionMetrics
	PublishMetrics
	TransportMetrics
}

// PartitionMetrics defines metrics for partitioning calls.
type PartitionMetrics interface {
	// RecordPartition records a successful partitioning call.
	//
	// Parameters:
	//   - submissions: Number of real submissions
	//   - bots: Number of synthetic submissions inserted
	//   - groups: Number of groups produced
	//   - duration: Time taken in seconds
	RecordPartition(submissions, bots, groups int, duration float64)

	// RecordPartitionError records a failed partitioning call.
	//
	// Parameters:
	//   - kind: "invalid_input" or "internal"
	RecordPartitionError(kind string)
}

// PublishMetrics defines metrics for cluster record publishing.
type PublishMetrics interface {
	// RecordPublish records a publish attempt.
	//
	// Parameters:
	//   - result: "success", "failure" or "unchanged"
	//   - duration: Time taken in seconds
	RecordPublish(result string, duration float64)
}

// TransportMetrics defines metrics for HTTP and NATS requests.
type TransportMetrics interface {
	// RecordRequest records a handled request.
	//
	// Parameters:
	//   - transport: "http" or "nats"
	//   - operation: Endpoint or subject suffix (e.g., "cohort-clusters", "batch")
	//   - status: "ok", "client_error" or "server_error"
	//   - duration: Time taken in seconds
	RecordRequest(transport, operation, status string, duration float64)
}
