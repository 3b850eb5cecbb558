package types

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/zeebo/xxh3"
)

// Batch holds the submissions of several cohorts keyed by cohort id.
type Batch map[string][]Submission

// BatchResult holds the groups of several cohorts keyed by cohort id.
type BatchResult map[string][]Group

// ClusterRecord is a published grouping for one cohort.
//
// Records are versioned per cohort; each publish for the same cohort
// increments Version by one.
type ClusterRecord struct {
	// CohortID is the cohort the groups belong to.
	CohortID string `json:"cohortId"`

	// Version is a monotonically increasing per-cohort version.
	Version int64 `json:"version"`

	// Digest identifies the ordered input the groups were computed from.
	Digest uint64 `json:"digest"`

	// Groups is the partitioning result.
	Groups []Group `json:"groups"`

	// CreatedAt is when the record was published.
	CreatedAt time.Time `json:"createdAt"`
}

// Digest returns a 64-bit hash of the ordered submissions.
//
// Two inputs hash equal only if they hold the same ids with the same
// complexities in the same order, which is what determines the grouping.
// The id is length-prefixed so that adjacent ids cannot run together.
//
// Returns:
//   - uint64: xxh3 digest (0-length input hashes to the xxh3 empty value)
func Digest(subs []Submission) uint64 {
	h := xxh3.New()

	var buf [8]byte
	for _, s := range subs {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(s.ID)))
		_, _ = h.Write(buf[:])
		_, _ = h.WriteString(s.ID)
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(s.Complexity))
		_, _ = h.Write(buf[:])
	}

	return h.Sum64()
}
