package snapshot

import (
	"math"
	"sync"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Rate limits
// ─────────────────────────────────────────────────────────────────────────────

// Limits are the guard constants of the rate engine. They exist as fields
// rather than literals because their exact values were chosen empirically for
// switches with 32-bit counters and should be re-confirmed per deployment.
type Limits struct {
	// WrapHighWater: a counter decrease is treated as a 32-bit wraparound only
	// when the previous value had already exceeded this mark; below it the
	// decrease is assumed to be a genuine counter reset (delta 0).
	WrapHighWater uint64

	// RateCeilingBps: any computed rate outside [0, ceiling] is reported as 0
	// for the cycle — a counter reset or corrupted read, not real traffic.
	RateCeilingBps float64

	// ElapsedClampFactor: when the wall-clock gap between samples exceeds
	// factor × interval (scheduler jitter, host suspension), the denominator
	// is clamped to the interval itself.
	ElapsedClampFactor float64
}

// DefaultLimits returns the production guard set.
func DefaultLimits() Limits {
	return Limits{
		WrapHighWater:      3_000_000_000,
		RateCeilingBps:     20_000_000_000,
		ElapsedClampFactor: 1.5,
	}
}

const counter32Max = uint64(1) << 32

// wrapDelta computes the increase between two cumulative counter samples.
// A decrease is a single 32-bit wraparound when the previous value was past
// the high-water mark (and still within 32-bit range); any other decrease is
// a reset and yields 0.
func wrapDelta(prev, cur uint64, highWater uint64) uint64 {
	if cur >= prev {
		return cur - prev
	}
	if prev > highWater && prev < counter32Max {
		return (counter32Max - prev) + cur
	}
	return 0
}

// ─────────────────────────────────────────────────────────────────────────────
// RateState
// ─────────────────────────────────────────────────────────────────────────────

// counterSample is one previous observation: raw cumulative counters plus the
// wall-clock time they were read.
type counterSample struct {
	rx, tx uint64
	at     time.Time
}

// portRates is the computed pair for one port within a pending update.
type portRates struct {
	rxBps, txBps float64
}

// RateState owns the previous-cycle counters for one device: per logical
// port and the device-wide totals. It is mutated exactly once per successful
// cycle via Commit; Begin never mutates, so an aborted or cancelled cycle
// leaves the stored state untouched.
type RateState struct {
	limits   Limits
	interval time.Duration

	mu        sync.Mutex
	ports     map[int]counterSample
	total     counterSample
	haveTotal bool
}

// NewRateState creates rate state for a device polled at the given interval.
func NewRateState(limits Limits, interval time.Duration) *RateState {
	if limits.WrapHighWater == 0 {
		limits = DefaultLimits()
	}
	return &RateState{
		limits:   limits,
		interval: interval,
		ports:    make(map[int]counterSample),
	}
}

// Update is one cycle's worth of rate computations, staged against the state
// it was created from. Apply it with RateState.Commit after the snapshot is
// fully assembled; drop it on cycle failure.
type Update struct {
	now       time.Time
	ports     map[int]counterSample
	total     counterSample
	haveTotal bool

	rates         map[int]portRates
	bandwidthMbps float64
}

// Begin starts a staged update for a cycle sampled at now.
func (s *RateState) Begin(now time.Time) *Update {
	return &Update{
		now:   now,
		ports: make(map[int]counterSample),
		rates: make(map[int]portRates),
	}
}

// Port computes the live rx/tx rates for one logical port from its raw
// cumulative counters and stages the new counters for the next cycle.
//
// The first observation of a port establishes the baseline only (rates 0).
// The elapsed denominator is clamped to the polling interval when the actual
// gap exceeds ElapsedClampFactor × interval, and any rate outside
// [0, RateCeilingBps] is reported as 0 without poisoning the staged counters.
func (s *RateState) Port(u *Update, logical int, rx, tx uint64) (rxBps, txBps float64) {
	u.ports[logical] = counterSample{rx: rx, tx: tx, at: u.now}

	s.mu.Lock()
	prev, ok := s.ports[logical]
	s.mu.Unlock()
	if !ok {
		u.rates[logical] = portRates{}
		return 0, 0
	}

	elapsed := u.now.Sub(prev.at).Seconds()
	if elapsed <= 0 {
		u.rates[logical] = portRates{}
		return 0, 0
	}
	if max := s.interval.Seconds() * s.limits.ElapsedClampFactor; elapsed > max {
		elapsed = s.interval.Seconds()
	}

	rxBps = float64(wrapDelta(prev.rx, rx, s.limits.WrapHighWater)) * 8 / elapsed
	txBps = float64(wrapDelta(prev.tx, tx, s.limits.WrapHighWater)) * 8 / elapsed

	if rxBps < 0 || rxBps > s.limits.RateCeilingBps {
		rxBps = 0
	}
	if txBps < 0 || txBps > s.limits.RateCeilingBps {
		txBps = 0
	}

	u.rates[logical] = portRates{rxBps: rxBps, txBps: txBps}
	return rxBps, txBps
}

// Total computes the aggregate bandwidth in Mbit/s from the device-wide
// cumulative totals and stages them. First observation yields 0.
func (s *RateState) Total(u *Update, rx, tx uint64) float64 {
	u.total = counterSample{rx: rx, tx: tx, at: u.now}
	u.haveTotal = true

	s.mu.Lock()
	prev, ok := s.total, s.haveTotal
	s.mu.Unlock()
	if !ok {
		return 0
	}

	elapsed := u.now.Sub(prev.at).Seconds()
	if elapsed <= 0 {
		return 0
	}

	deltaBytes := wrapDelta(prev.rx, rx, s.limits.WrapHighWater) +
		wrapDelta(prev.tx, tx, s.limits.WrapHighWater)
	mbps := float64(deltaBytes) * 8 / elapsed / 1_000_000
	mbps = math.Round(mbps*100) / 100

	u.bandwidthMbps = mbps
	return mbps
}

// Commit replaces the stored previous-cycle counters with the staged ones.
// Call it only after the snapshot has been fully assembled; a cycle that
// fails or is cancelled simply never commits.
func (s *RateState) Commit(u *Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for logical, sample := range u.ports {
		s.ports[logical] = sample
	}
	if u.haveTotal {
		s.total = u.total
		s.haveTotal = true
	}
}
