package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	"github.com/story-squad/cohort"
	cohorttest "github.com/story-squad/cohort/testing"
	"github.com/story-squad/cohort/transport/natsrpc"
)

func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)

	err := root.Execute()

	return out.String(), err
}

func TestPartitionCmd_Stdin(t *testing.T) {
	out, err := runCmd(t, `[{"id":1,"Complexity":10},{"id":2,"Complexity":20}]`, "partition", "--ids")
	require.NoError(t, err)
	require.JSONEq(t, `[["Bot 2","Bot 1","2","1"]]`, out)
}

func TestPartitionCmd_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs.json")
	body := `{"submissions": [
		{"id":"a","Complexity":1},{"id":"b","Complexity":2},{"id":"c","Complexity":3},
		{"id":"d","Complexity":4},{"id":"e","Complexity":5}
	]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	out, err := runCmd(t, "", "partition", path)
	require.NoError(t, err)

	var groups []cohort.Group
	require.NoError(t, json.Unmarshal([]byte(out), &groups))
	require.Len(t, groups, 2)
	require.Equal(t, []string{"Bot c", "Bot b", "Bot a", "e"}, groups[0].IDs())
}

func TestPartitionCmd_Errors(t *testing.T) {
	_, err := runCmd(t, `[{"id":"a"}]`, "partition")
	require.ErrorIs(t, err, cohort.ErrInvalidInput)

	_, err = runCmd(t, `[]`, "partition", "--strategy", "random")
	require.ErrorIs(t, err, cohort.ErrInvalidConfig)

	_, err = runCmd(t, "", "partition", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestLoadServeConfig(t *testing.T) {
	cfg, err := loadServeConfig("", true, "127.0.0.1:9999")
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "127.0.0.1:9999", cfg.HTTP.Addr)

	path := filepath.Join(t.TempDir(), "cohortd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  backend: zap\n  format: json\n"), 0o600))

	cfg, err = loadServeConfig(path, false, "")
	require.NoError(t, err)
	require.Equal(t, "zap", cfg.Logging.Backend)
	require.Equal(t, "info", cfg.Logging.Level)

	_, err = loadServeConfig(filepath.Join(t.TempDir(), "missing.yaml"), false, "")
	require.Error(t, err)
}

func TestBuildLogger(t *testing.T) {
	for _, backend := range []string{"slog", "zap"} {
		for _, format := range []string{"text", "json"} {
			var buf bytes.Buffer
			log, sync, err := buildLogger(cohort.LoggingConfig{Backend: backend, Level: "warn", Format: format}, &buf)
			require.NoError(t, err)

			log.Info("hidden")
			log.Warn("shown", "k", "v")
			sync()

			require.NotContains(t, buf.String(), "hidden", "%s/%s", backend, format)
			require.Contains(t, buf.String(), "shown", "%s/%s", backend, format)
		}
	}

	_, _, err := buildLogger(cohort.LoggingConfig{Backend: "zap", Level: "loud"}, io.Discard)
	require.Error(t, err)
}

func TestServe(t *testing.T) {
	srv, nc := cohorttest.StartEmbeddedNATS(t)

	cfg := cohort.DefaultConfig()
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.Logging.Level = "error"
	cfg.NATS.Enabled = true
	cfg.NATS.URL = srv.ClientURL()
	cfg.NATS.PublishRecords = true
	cfg.ShutdownTimeout = 5 * time.Second
	require.NoError(t, cfg.Validate())

	ctx, cancel := context.WithCancel(t.Context())
	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, ready) }()

	var addr string
	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not become ready")
	}

	resp, err := http.Post("http://"+addr+"/cohort-clusters", "application/json",
		strings.NewReader(`{"submissions":[{"id":"a","Complexity":1}]}`))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, err = http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Contains(t, string(body), "cohort_partitioner_calls_total 1")

	msg, err := nc.Request(cfg.NATS.SubjectPrefix+"."+natsrpc.SubjectBatch,
		[]byte(`{"c1":[{"id":"a","Complexity":1}]}`), 5*time.Second)
	require.NoError(t, err)
	var reply natsrpc.BatchReply
	require.NoError(t, json.Unmarshal(msg.Data, &reply))
	require.Nil(t, reply.Error)
	require.Equal(t, map[string]int64{"c1": 1}, reply.Versions)

	js, err := jetstream.New(nc)
	require.NoError(t, err)
	kv, err := js.KeyValue(t.Context(), cfg.NATS.RecordBucket)
	require.NoError(t, err)
	_, err = kv.Get(t.Context(), recordKeyPrefix+".c1")
	require.NoError(t, err)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not shut down")
	}
}
