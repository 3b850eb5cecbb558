package publish

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/story-squad/cohort/internal/logger"
	"github.com/story-squad/cohort/internal/metrics"
	cohorttest "github.com/story-squad/cohort/testing"
	"github.com/story-squad/cohort/types"
)

type recordingPublishMetrics struct {
	mu      sync.Mutex
	results []string
}

func (m *recordingPublishMetrics) RecordPublish(result string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, result)
}

func sampleGroups(prefix string) []types.Group {
	return []types.Group{{
		{ID: prefix + "1", Complexity: 4},
		{ID: prefix + "2", Complexity: 3},
		{ID: prefix + "3", Complexity: 2},
		{ID: prefix + "4", Complexity: 1},
	}}
}

func TestClusterPublisher_Publish(t *testing.T) {
	_, nc := cohorttest.StartEmbeddedNATS(t)
	kv := cohorttest.CreateJetStreamKV(t, nc, "clusters-publish")

	m := &recordingPublishMetrics{}
	pub := NewClusterPublisher(kv, "clusters", logger.NewTest(t), m)

	t.Run("first publish creates version 1", func(t *testing.T) {
		rec, err := pub.Publish(t.Context(), "cohort-a", 100, sampleGroups("a"))
		require.NoError(t, err)
		require.Equal(t, int64(1), rec.Version)
		require.Equal(t, "cohort-a", rec.CohortID)
		require.Equal(t, uint64(100), rec.Digest)
		require.False(t, rec.CreatedAt.IsZero())

		entry, err := kv.Get(t.Context(), "clusters.cohort-a")
		require.NoError(t, err)
		require.Contains(t, string(entry.Value()), `"cohortId":"cohort-a"`)
	})

	t.Run("same digest is not re-published", func(t *testing.T) {
		before, err := kv.Get(t.Context(), "clusters.cohort-a")
		require.NoError(t, err)

		rec, err := pub.Publish(t.Context(), "cohort-a", 100, sampleGroups("a"))
		require.NoError(t, err)
		require.Equal(t, int64(1), rec.Version)

		after, err := kv.Get(t.Context(), "clusters.cohort-a")
		require.NoError(t, err)
		require.Equal(t, before.Revision(), after.Revision())
	})

	t.Run("new digest increments version", func(t *testing.T) {
		rec, err := pub.Publish(t.Context(), "cohort-a", 200, sampleGroups("b"))
		require.NoError(t, err)
		require.Equal(t, int64(2), rec.Version)
		require.Equal(t, "b1", rec.Groups[0][0].ID)
	})

	t.Run("cohorts are versioned independently", func(t *testing.T) {
		rec, err := pub.Publish(t.Context(), "cohort-b", 200, sampleGroups("b"))
		require.NoError(t, err)
		require.Equal(t, int64(1), rec.Version)
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	require.Equal(t, []string{ResultSuccess, ResultUnchanged, ResultSuccess, ResultSuccess}, m.results)
}

func TestClusterPublisher_VersionSurvivesRestart(t *testing.T) {
	_, nc := cohorttest.StartEmbeddedNATS(t)
	kv := cohorttest.CreateJetStreamKV(t, nc, "clusters-restart")

	first := NewClusterPublisher(kv, "clusters", logger.NewNop(), metrics.NewNop())
	_, err := first.Publish(t.Context(), "c1", 1, sampleGroups("x"))
	require.NoError(t, err)
	_, err = first.Publish(t.Context(), "c1", 2, sampleGroups("y"))
	require.NoError(t, err)

	// A fresh publisher has an empty cache but continues from the stored version.
	second := NewClusterPublisher(kv, "clusters", logger.NewNop(), metrics.NewNop())

	rec, err := second.Publish(t.Context(), "c1", 2, sampleGroups("y"))
	require.NoError(t, err)
	require.Equal(t, int64(2), rec.Version, "stored digest matches, nothing written")

	rec, err = second.Publish(t.Context(), "c1", 3, sampleGroups("z"))
	require.NoError(t, err)
	require.Equal(t, int64(3), rec.Version)
}

func TestClusterPublisher_RepublishAfterOtherWriter(t *testing.T) {
	_, nc := cohorttest.StartEmbeddedNATS(t)
	kv := cohorttest.CreateJetStreamKV(t, nc, "clusters-interleaved")

	a := NewClusterPublisher(kv, "clusters", logger.NewNop(), metrics.NewNop())
	b := NewClusterPublisher(kv, "clusters", logger.NewNop(), metrics.NewNop())

	_, err := a.Publish(t.Context(), "c1", 111, sampleGroups("a"))
	require.NoError(t, err)
	_, err = b.Publish(t.Context(), "c1", 222, sampleGroups("b"))
	require.NoError(t, err)

	// a's cache still holds digest 111, but the store moved on.
	rec, err := a.Publish(t.Context(), "c1", 111, sampleGroups("a"))
	require.NoError(t, err)
	require.Equal(t, int64(3), rec.Version)

	latest, err := a.Latest(t.Context(), "c1")
	require.NoError(t, err)
	require.Equal(t, uint64(111), latest.Digest)
	require.Equal(t, int64(3), latest.Version)
	require.Equal(t, "a1", latest.Groups[0][0].ID)
}

func TestClusterPublisher_RepublishAfterRecordRemoved(t *testing.T) {
	_, nc := cohorttest.StartEmbeddedNATS(t)
	kv := cohorttest.CreateJetStreamKV(t, nc, "clusters-removed")

	pub := NewClusterPublisher(kv, "clusters", logger.NewNop(), metrics.NewNop())

	_, err := pub.Publish(t.Context(), "c1", 5, sampleGroups("r"))
	require.NoError(t, err)

	// Same effect as the record expiring through the bucket TTL.
	require.NoError(t, kv.Delete(t.Context(), pub.Key("c1")))
	_, err = pub.Latest(t.Context(), "c1")
	require.ErrorIs(t, err, types.ErrRecordNotFound)

	_, err = pub.Publish(t.Context(), "c1", 5, sampleGroups("r"))
	require.NoError(t, err)

	latest, err := pub.Latest(t.Context(), "c1")
	require.NoError(t, err)
	require.Equal(t, uint64(5), latest.Digest)
}

func TestClusterPublisher_ConcurrentWriters(t *testing.T) {
	_, nc := cohorttest.StartEmbeddedNATS(t)
	kv := cohorttest.CreateJetStreamKV(t, nc, "clusters-concurrent")

	const writers = 4
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pub := NewClusterPublisher(kv, "clusters", logger.NewNop(), metrics.NewNop())
			_, err := pub.Publish(t.Context(), "shared", uint64(i+1), sampleGroups("w"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	pub := NewClusterPublisher(kv, "clusters", logger.NewNop(), metrics.NewNop())
	rec, err := pub.Latest(t.Context(), "shared")
	require.NoError(t, err)
	assert.Equal(t, int64(writers), rec.Version)
}

func TestClusterPublisher_Latest(t *testing.T) {
	_, nc := cohorttest.StartEmbeddedNATS(t)
	kv := cohorttest.CreateJetStreamKV(t, nc, "clusters-latest")

	pub := NewClusterPublisher(kv, "clusters", cohorttest.NewTestLogger(t), metrics.NewNop())

	_, err := pub.Latest(t.Context(), "missing")
	require.ErrorIs(t, err, types.ErrRecordNotFound)

	published, err := pub.Publish(t.Context(), "present", 7, sampleGroups("p"))
	require.NoError(t, err)

	got, err := pub.Latest(t.Context(), "present")
	require.NoError(t, err)
	require.Equal(t, published.Version, got.Version)
	require.Equal(t, published.Groups, got.Groups)
	require.True(t, published.CreatedAt.Equal(got.CreatedAt))
}

func TestClusterPublisher_InvalidCohortID(t *testing.T) {
	_, nc := cohorttest.StartEmbeddedNATS(t)
	kv := cohorttest.CreateJetStreamKV(t, nc, "clusters-invalid")

	pub := NewClusterPublisher(kv, "clusters", logger.NewNop(), metrics.NewNop())

	for _, id := range []string{"", "has space", "dot.ted", "star*"} {
		_, err := pub.Publish(t.Context(), id, 1, sampleGroups("i"))
		require.ErrorIs(t, err, types.ErrInvalidInput, "cohort id %q", id)
	}
}
