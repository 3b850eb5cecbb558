package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/story-squad/cohort/internal/logger"
	"github.com/story-squad/cohort/internal/metrics"
	"github.com/story-squad/cohort/types"
)

// RequestIDHeader carries the per-request id. A client-supplied value is kept.
const RequestIDHeader = "X-Request-ID"

// Request status labels reported to types.TransportMetrics.
const (
	StatusOK          = "ok"
	StatusClientError = "client_error"
	StatusServerError = "server_error"
)

const transportName = "http"

// StatusClientClosedRequest is reported when the client went away before the
// response was ready. No response reaches the client in that case.
const StatusClientClosedRequest = 499

// Partitioner is the subset of *cohort.Partitioner the handlers use.
type Partitioner interface {
	Partition(subs []types.Submission) ([]types.Group, error)
	PartitionBatch(ctx context.Context, batch types.Batch) (types.BatchResult, error)
}

// Server holds the HTTP handlers.
type Server struct {
	partitioner    Partitioner
	logger         types.Logger
	metrics        types.TransportMetrics
	gatherer       prometheus.Gatherer
	maxBodyBytes   int64
	requestTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l types.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the request metrics collector.
func WithMetrics(m types.TransportMetrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithGatherer serves the gatherer's metrics on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithMaxBodyBytes caps request bodies. Values below 1 are ignored.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithRequestTimeout bounds each request. Zero disables the timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.requestTimeout = d
	}
}

// NewServer creates the HTTP handlers.
//
// Parameters:
//   - p: Partitioner serving the requests
//   - opts: Optional logger, metrics, body limit and timeout
//
// Returns:
//   - *Server: Server whose Handler can be mounted on an http.Server
//
// Example:
//
//	srv := httpapi.NewServer(cohort.NewPartitioner(), httpapi.WithLogger(logger))
//	http.ListenAndServe(":8000", srv.Handler())
func NewServer(p Partitioner, opts ...Option) *Server {
	s := &Server{
		partitioner:  p,
		logger:       logger.NewNop(),
		metrics:      metrics.NewNop(),
		maxBodyBytes: 4 << 20,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /cohort-clusters", s.instrument("cohort-clusters", s.handleCohortClusters))
	mux.HandleFunc("POST /cluster", s.instrument("cluster", s.handleCluster))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return withRequestID(mux)
}

type cohortClustersRequest struct {
	Submissions []types.Submission `json:"submissions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handlerFunc is an operation handler; a non-nil error is written as the
// error response.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (s *Server) instrument(operation string, h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ctx := r.Context()
		if s.requestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
			defer cancel()
		}
		r = r.WithContext(ctx)
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)

		status := StatusOK
		if err := h(w, r); err != nil {
			code := statusCode(err)
			status = StatusServerError
			if code < http.StatusInternalServerError {
				status = StatusClientError
				s.logger.Debug("rejected request",
					"operation", operation, "request_id", requestID(r), "status", code, "error", err)
			} else {
				s.logger.Error("request failed",
					"operation", operation, "request_id", requestID(r), "status", code, "error", err)
			}
			writeJSON(w, code, errorResponse{Error: err.Error()})
		}

		s.metrics.RecordRequest(transportName, operation, status, time.Since(start).Seconds())
	}
}

func (s *Server) handleCohortClusters(w http.ResponseWriter, r *http.Request) error {
	var req cohortClustersRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, types.ErrInvalidInput) {
			return err
		}

		return malformed(err)
	}
	if req.Submissions == nil {
		return &types.InputError{Index: -1, Reason: `missing "submissions"`}
	}

	groups, err := s.partitioner.Partition(req.Submissions)
	if err != nil {
		return err
	}

	s.logger.Debug("partitioned cohort",
		"request_id", requestID(r), "submissions", len(req.Submissions), "groups", len(groups))
	writeJSON(w, http.StatusOK, groups)

	return nil
}

func (s *Server) handleCluster(w http.ResponseWriter, r *http.Request) error {
	req, err := decodeClusterRequest(r.Body)
	if err != nil {
		return err
	}

	result, err := s.partitioner.PartitionBatch(r.Context(), req.batch)
	if err != nil {
		return err
	}

	resp := make(map[string][][]string, len(result))
	for _, cohortID := range req.order {
		ids := make([][]string, 0, len(result[cohortID]))
		for _, g := range result[cohortID] {
			ids = append(ids, g.IDs())
		}
		resp[cohortID] = ids
	}

	s.logger.Debug("partitioned batch", "request_id", requestID(r), "cohorts", len(resp))
	writeJSON(w, http.StatusOK, resp)

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func statusCode(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, types.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type requestIDKey struct{}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey{}).(string)

	return id
}
