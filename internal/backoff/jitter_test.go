package backoff

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func stddev(durs []time.Duration) time.Duration {
	if len(durs) == 0 {
		return 0
	}
	vals := make([]float64, len(durs))
	for i, d := range durs {
		vals[i] = d.Seconds()
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))
	var varSum float64
	for _, v := range vals {
		d := v - mean
		varSum += d * d
	}

	return time.Duration(math.Sqrt(varSum/float64(len(vals))) * float64(time.Second))
}

func TestPolicy_BoundsAndCap(t *testing.T) {
	p := Policy{Base: 200 * time.Millisecond, Multiplier: 1.6, Cap: 500 * time.Millisecond}.WithSeed(42)

	prev := time.Duration(0)
	for range 10 {
		next := p.Next(prev)
		require.GreaterOrEqual(t, next, p.Base)
		require.LessOrEqual(t, next, p.Cap)
		prev = next
	}

	// Starting at the cap stays within [Base, Cap].
	p = p.WithSeed(99)
	prev = p.Cap
	for range 5 {
		next := p.Next(prev)
		require.GreaterOrEqual(t, next, p.Base)
		require.LessOrEqual(t, next, p.Cap)
		prev = next
	}
}

func TestPolicy_CapLessThanBase(t *testing.T) {
	p := Policy{Base: 200 * time.Millisecond, Multiplier: 1.6, Cap: 100 * time.Millisecond}.WithSeed(1)

	require.Equal(t, p.Cap, p.Next(0))
	require.Equal(t, p.Cap, p.Next(p.Base))
}

func TestPolicy_ZeroValue(t *testing.T) {
	var p Policy

	require.Equal(t, 10*time.Millisecond, p.Next(0))

	next := p.Next(10 * time.Millisecond)
	require.GreaterOrEqual(t, next, 10*time.Millisecond)
	require.Less(t, next, 20*time.Millisecond)
}

func TestPolicy_Deterministic(t *testing.T) {
	a := Policy{Base: time.Millisecond, Cap: time.Second}.WithSeed(7)
	b := Policy{Base: time.Millisecond, Cap: time.Second}.WithSeed(7)

	prevA, prevB := time.Duration(0), time.Duration(0)
	for range 8 {
		prevA, prevB = a.Next(prevA), b.Next(prevB)
		require.Equal(t, prevA, prevB)
	}
}

func TestPolicy_VarianceAcrossSeeds(t *testing.T) {
	const seeds = 5
	const steps = 12

	lasts := make([]time.Duration, 0, seeds)
	for s := int64(1); s <= seeds; s++ {
		p := Policy{Base: 200 * time.Millisecond, Multiplier: 1.6, Cap: 2 * time.Second}.WithSeed(s)
		prev := time.Duration(0)
		for range steps {
			prev = p.Next(prev)
		}
		lasts = append(lasts, prev)
	}

	require.GreaterOrEqual(t, stddev(lasts), 50*time.Millisecond, "expected spread across seeds")
}
