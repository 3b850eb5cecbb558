package natsrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/story-squad/cohort"
	"github.com/story-squad/cohort/internal/logger"
	"github.com/story-squad/cohort/internal/metrics"
	"github.com/story-squad/cohort/internal/natsutil"
	"github.com/story-squad/cohort/types"
)

// Error kinds carried in ReplyError.Kind.
const (
	KindInvalidInput  = cohort.ErrorKindInvalidInput
	KindInternal      = cohort.ErrorKindInternal
	KindPublishFailed = "publish_failed"
)

// Subject suffixes.
const (
	SubjectPartition = "partition"
	SubjectBatch     = "batch"
)

const transportName = "nats"

// Partitioner is the subset of *cohort.Partitioner the service uses.
type Partitioner interface {
	Partition(subs []types.Submission) ([]types.Group, error)
	PartitionBatch(ctx context.Context, batch types.Batch) (types.BatchResult, error)
}

// Publisher stores batch results. *publish.ClusterPublisher implements it.
type Publisher interface {
	Publish(ctx context.Context, cohortID string, digest uint64, groups []types.Group) (types.ClusterRecord, error)
}

// Config configures the service.
type Config struct {
	// SubjectPrefix is prepended to the subject suffixes (default "cohort").
	SubjectPrefix string

	// QueueGroup is the queue group shared by all instances (default "cohortd").
	QueueGroup string

	// RequestTimeout bounds the handling of one request, publishing included.
	// Zero disables the timeout.
	RequestTimeout time.Duration
}

// ReplyError describes a failed request.
type ReplyError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// PartitionReply is the reply to a partition request.
type PartitionReply struct {
	Groups []types.Group `json:"groups"`
	Error  *ReplyError   `json:"error,omitempty"`
}

// BatchReply is the reply to a batch request.
//
// Versions holds the published record version per cohort when a publisher
// is configured. A publish failure keeps Groups and sets Error.
type BatchReply struct {
	Groups   types.BatchResult `json:"groups"`
	Versions map[string]int64  `json:"versions,omitempty"`
	Error    *ReplyError       `json:"error,omitempty"`
}

// Service answers partition requests received over NATS.
type Service struct {
	conn        *nats.Conn
	partitioner Partitioner
	publisher   Publisher
	cfg         Config
	logger      types.Logger
	metrics     types.TransportMetrics

	// mu guards subs and stopped, and orders inflight.Add before Stop's Wait.
	mu       sync.Mutex
	subs     []*nats.Subscription
	stopped  bool
	inflight sync.WaitGroup
	baseCtx  context.Context
	cancel   context.CancelFunc
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l types.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the request metrics collector.
func WithMetrics(m types.TransportMetrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithPublisher publishes every successful batch result.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// NewService creates a NATS partition service.
//
// Parameters:
//   - conn: NATS connection
//   - p: Partitioner serving the requests
//   - cfg: Subjects, queue group and timeout
//   - opts: Optional logger, metrics and publisher
//
// Returns:
//   - *Service: Service ready to Start
//
// Example:
//
//	svc := natsrpc.NewService(nc, cohort.NewPartitioner(), natsrpc.Config{SubjectPrefix: "cohort"})
//	if err := svc.Start(ctx); err != nil {
//	    return err
//	}
//	defer svc.Stop(context.Background())
func NewService(conn *nats.Conn, p Partitioner, cfg Config, opts ...Option) *Service {
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "cohort"
	}
	if cfg.QueueGroup == "" {
		cfg.QueueGroup = "cohortd"
	}

	s := &Service{
		conn:        conn,
		partitioner: p,
		cfg:         cfg,
		logger:      logger.NewNop(),
		metrics:     metrics.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Subject returns the full subject for suffix.
func (s *Service) Subject(suffix string) string {
	return s.cfg.SubjectPrefix + "." + suffix
}

// Start subscribes to the request subjects.
//
// ctx is the parent of every request context; canceling it aborts
// in-flight requests but does not unsubscribe. Call Stop for that.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subs != nil {
		return errors.New("natsrpc: service already started")
	}

	s.baseCtx, s.cancel = context.WithCancel(ctx)
	s.stopped = false

	handlers := []struct {
		suffix  string
		handler nats.MsgHandler
	}{
		{SubjectPartition, s.wrap(SubjectPartition, s.handlePartition)},
		{SubjectBatch, s.wrap(SubjectBatch, s.handleBatch)},
	}

	for _, h := range handlers {
		sub, err := s.conn.QueueSubscribe(s.Subject(h.suffix), s.cfg.QueueGroup, h.handler)
		if err != nil {
			s.unsubscribeLocked()
			s.cancel()

			return fmt.Errorf("failed to subscribe to %s: %w", s.Subject(h.suffix), err)
		}
		s.subs = append(s.subs, sub)
	}

	if err := s.conn.Flush(); err != nil {
		s.unsubscribeLocked()
		s.cancel()

		return fmt.Errorf("failed to flush subscriptions: %w", err)
	}

	s.logger.Info("nats service started",
		"prefix", s.cfg.SubjectPrefix, "queue_group", s.cfg.QueueGroup, "publish", s.publisher != nil)

	return nil
}

// Stop unsubscribes and waits for in-flight requests to finish or ctx to end.
// Messages already dispatched to a handler but not yet started are dropped.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.unsubscribeLocked()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		if s.cancel != nil {
			s.cancel()
		}
		<-done

		return ctx.Err()
	}

	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Info("nats service stopped")

	return nil
}

func (s *Service) unsubscribeLocked() {
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			s.logger.Warn("failed to unsubscribe", "subject", sub.Subject, "error", err)
		}
	}
	s.subs = nil
}

// enter registers an in-flight request unless the service is stopped.
func (s *Service) enter() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}
	s.inflight.Add(1)

	return true
}

// requestHandler returns the reply and the error kind ("" on success).
type requestHandler func(ctx context.Context, data []byte) (reply any, kind string)

func (s *Service) wrap(operation string, h requestHandler) nats.MsgHandler {
	return func(msg *nats.Msg) {
		if !s.enter() {
			s.logger.Debug("dropping request received after stop", "subject", msg.Subject)
			return
		}
		defer s.inflight.Done()

		start := time.Now()

		ctx := s.baseCtx
		if s.cfg.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
			defer cancel()
		}

		reply, kind := h(ctx, msg.Data)

		status := "ok"
		switch kind {
		case "":
		case KindInvalidInput:
			status = "client_error"
		default:
			status = "server_error"
		}
		s.metrics.RecordRequest(transportName, operation, status, time.Since(start).Seconds())

		if msg.Reply == "" {
			s.logger.Debug("dropping reply to request without reply subject", "subject", msg.Subject)
			return
		}

		data, err := json.Marshal(reply)
		if err != nil {
			s.logger.Error("failed to marshal reply", "subject", msg.Subject, "error", err)
			return
		}
		if err := msg.Respond(data); err != nil {
			s.logger.Warn("failed to send reply", "subject", msg.Subject, "error", err)
		}
	}
}

func (s *Service) handlePartition(_ context.Context, data []byte) (any, string) {
	var subs []types.Submission
	if err := json.Unmarshal(data, &subs); err != nil {
		return PartitionReply{Error: s.replyError(SubjectPartition, decodeError(err))}, KindInvalidInput
	}

	groups, err := s.partitioner.Partition(subs)
	if err != nil {
		re := s.replyError(SubjectPartition, err)
		return PartitionReply{Error: re}, re.Kind
	}

	return PartitionReply{Groups: groups}, ""
}

func (s *Service) handleBatch(ctx context.Context, data []byte) (any, string) {
	var batch types.Batch
	if err := json.Unmarshal(data, &batch); err != nil {
		return BatchReply{Error: s.replyError(SubjectBatch, decodeError(err))}, KindInvalidInput
	}
	if batch == nil {
		return BatchReply{Error: s.replyError(SubjectBatch,
			&types.InputError{Index: -1, Reason: "batch must be a JSON object"})}, KindInvalidInput
	}

	result, err := s.partitioner.PartitionBatch(ctx, batch)
	if err != nil {
		re := s.replyError(SubjectBatch, err)
		return BatchReply{Error: re}, re.Kind
	}

	reply := BatchReply{Groups: result}
	if s.publisher == nil {
		return reply, ""
	}

	reply.Versions = make(map[string]int64, len(result))
	for cohortID, groups := range result {
		rec, err := s.publisher.Publish(ctx, cohortID, types.Digest(batch[cohortID]), groups)
		if err != nil {
			if natsutil.IsConnectivityError(err) {
				s.logger.Warn("cluster record store unreachable", "cohort_id", cohortID, "error", err)
			} else {
				s.logger.Error("failed to publish cluster record", "cohort_id", cohortID, "error", err)
			}
			reply.Error = &ReplyError{Kind: KindPublishFailed, Message: fmt.Sprintf("cohort %q: %v", cohortID, err)}

			continue
		}
		reply.Versions[cohortID] = rec.Version
	}
	if reply.Error != nil {
		return reply, KindPublishFailed
	}

	return reply, ""
}

func (s *Service) replyError(operation string, err error) *ReplyError {
	kind := cohort.ErrorKind(err)
	if kind == KindInvalidInput {
		s.logger.Debug("rejected request", "operation", operation, "error", err)
	} else {
		s.logger.Error("request failed", "operation", operation, "error", err)
	}

	return &ReplyError{Kind: kind, Message: err.Error()}
}

func decodeError(err error) error {
	if errors.Is(err, types.ErrInvalidInput) {
		return err
	}

	return fmt.Errorf("%w: malformed JSON: %w", types.ErrInvalidInput, err)
}
