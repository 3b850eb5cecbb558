package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/story-squad/cohort"
	"github.com/story-squad/cohort/internal/kvutil"
	"github.com/story-squad/cohort/internal/metrics"
	"github.com/story-squad/cohort/internal/publish"
	"github.com/story-squad/cohort/transport/httpapi"
	"github.com/story-squad/cohort/transport/natsrpc"
)

// recordKeyPrefix prefixes cluster record keys in the KV bucket.
const recordKeyPrefix = "clusters"

func newServeCmd() *cobra.Command {
	var (
		configPath string
		verbose    bool
		addr       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and NATS partitioning service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadServeConfig(configPath, verbose, addr)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, nil)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.Flags().StringVar(&addr, "addr", "", "Override http.addr")

	return cmd
}

func loadServeConfig(path string, verbose bool, addr string) (cohort.Config, error) {
	cfg := cohort.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = cohort.LoadConfig(path); err != nil {
			return cohort.Config{}, err
		}
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if addr != "" {
		cfg.HTTP.Addr = addr
	}

	return cfg, cfg.Validate()
}

// serve runs the service until ctx is done. If ready is non-nil it receives
// the bound HTTP address once the listener is up.
func serve(ctx context.Context, cfg cohort.Config, ready chan<- string) error {
	log, syncLog, err := buildLogger(cfg.Logging, os.Stderr)
	if err != nil {
		return err
	}
	defer syncLog()

	reg := prometheus.NewRegistry()
	var collector cohort.MetricsCollector = metrics.NewNop()
	if cfg.Metrics.Enabled {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		collector = metrics.NewPrometheus(reg, cfg.Metrics.Namespace)
	}

	partOpts, err := cfg.Partitioner.Options()
	if err != nil {
		return err
	}
	p := cohort.NewPartitioner(append(partOpts, cohort.WithLogger(log), cohort.WithMetrics(collector))...)

	httpOpts := []httpapi.Option{
		httpapi.WithLogger(log),
		httpapi.WithMetrics(collector),
		httpapi.WithMaxBodyBytes(cfg.HTTP.MaxBodyBytes),
		httpapi.WithRequestTimeout(cfg.RequestTimeout),
	}
	if cfg.Metrics.Enabled {
		httpOpts = append(httpOpts, httpapi.WithGatherer(reg))
	}
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpapi.NewServer(p, httpOpts...).Handler(),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	var (
		nc  *nats.Conn
		svc *natsrpc.Service
	)
	if cfg.NATS.Enabled {
		nc, err = nats.Connect(cfg.NATS.URL, nats.Name("cohortd"), nats.MaxReconnects(-1))
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer nc.Close()

		natsOpts := []natsrpc.Option{natsrpc.WithLogger(log), natsrpc.WithMetrics(collector)}
		if cfg.NATS.PublishRecords {
			pub, err := newPublisher(ctx, nc, cfg, log, collector)
			if err != nil {
				return err
			}
			natsOpts = append(natsOpts, natsrpc.WithPublisher(pub))
		}

		svc = natsrpc.NewService(nc, p, natsrpc.Config{
			SubjectPrefix:  cfg.NATS.SubjectPrefix,
			QueueGroup:     cfg.NATS.QueueGroup,
			RequestTimeout: cfg.RequestTimeout,
		}, natsOpts...)
		if err := svc.Start(ctx); err != nil {
			return err
		}
	}

	ln, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		if svc != nil {
			_ = svc.Stop(context.Background())
		}

		return fmt.Errorf("failed to listen on %s: %w", cfg.HTTP.Addr, err)
	}
	log.Info("cohortd started", "http_addr", ln.Addr().String(), "nats", cfg.NATS.Enabled)
	if ready != nil {
		ready <- ln.Addr().String()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}

		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", "timeout", cfg.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		var errs []error
		if svc != nil {
			errs = append(errs, svc.Stop(shutdownCtx))
		}
		errs = append(errs, srv.Shutdown(shutdownCtx))
		if nc != nil {
			errs = append(errs, nc.Drain())
		}

		return errors.Join(errs...)
	})

	err = g.Wait()
	if err != nil {
		log.Error("cohortd stopped with error", "error", err)
	} else {
		log.Info("cohortd stopped")
	}

	return err
}

func newPublisher(
	ctx context.Context,
	nc *nats.Conn,
	cfg cohort.Config,
	log cohort.Logger,
	collector cohort.MetricsCollector,
) (*publish.ClusterPublisher, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	opCtx, cancel := context.WithTimeout(ctx, cfg.OperationTimeout)
	defer cancel()

	kv, err := kvutil.EnsureBucket(opCtx, js, jetstream.KeyValueConfig{
		Bucket:      cfg.NATS.RecordBucket,
		Description: "cohort cluster records",
		History:     1,
		TTL:         cfg.NATS.RecordTTL,
	}, kvutil.DefaultAttempts)
	if err != nil {
		return nil, err
	}

	return publish.NewClusterPublisher(kv, recordKeyPrefix, log, collector), nil
}
