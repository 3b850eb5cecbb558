// Package backoff computes retry delays for NATS operations.
package backoff

import (
	rand "math/rand/v2"
	"time"
)

// Policy describes a capped, decorrelated-jitter backoff.
//
// Given the previous delay prev, the next delay is drawn uniformly from
// [Base, prev*Multiplier) and capped at Cap:
//
//	next = min(Cap, Base + rand(prev*Multiplier - Base))
//
// A zero Policy uses Base 10ms, Multiplier 2 and no cap.
type Policy struct {
	Base       time.Duration
	Multiplier float64
	Cap        time.Duration

	// rng is nil for the package-level source.
	rng *rand.Rand
}

// WithSeed returns a copy of p drawing jitter from a deterministic source.
// Seed 0 keeps the package-level source.
func (p Policy) WithSeed(seed int64) Policy {
	if seed == 0 {
		p.rng = nil
		return p
	}

	s1 := uint64(seed)
	p.rng = rand.New(rand.NewPCG(s1, s1^0x9e3779b97f4a7c15)) //nolint:gosec // non-crypto backoff jitter

	return p
}

// Next returns the delay following prev. prev <= 0 starts at Base.
func (p Policy) Next(prev time.Duration) time.Duration {
	base := p.Base
	if base <= 0 {
		base = 10 * time.Millisecond
	}
	mult := p.Multiplier
	if mult == 0 {
		mult = 2
	}
	if mult < 1 {
		mult = 1
	}
	if p.Cap > 0 && p.Cap < base {
		return p.Cap
	}
	if prev <= 0 {
		return base
	}

	spread := time.Duration(float64(prev)*mult) - base
	if spread <= 0 {
		spread = base
	}

	var jitter int64
	if p.rng != nil {
		jitter = p.rng.Int64N(int64(spread))
	} else {
		jitter = rand.Int64N(int64(spread)) //nolint:gosec // non-crypto backoff jitter
	}

	next := base + time.Duration(jitter)
	if p.Cap > 0 && next > p.Cap {
		return p.Cap
	}

	return next
}
