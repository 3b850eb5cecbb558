// Package httpapi exposes the partitioner over HTTP/JSON.
//
// Routes:
//
//	POST /cohort-clusters  {"submissions": [{"id": ..., "Complexity": ...}]} -> [[sub x4], ...]
//	POST /cluster          {"<cohort>": {"<id>": {"Complexity": ...}}}       -> {"<cohort>": [[id x4], ...]}
//	GET  /healthz          {"status": "ok"}
//	GET  /metrics          Prometheus exposition (when a gatherer is set)
//
// Invalid input is answered with 400, everything else that fails with 500.
// Error bodies are {"error": "<message>"}.
package httpapi
