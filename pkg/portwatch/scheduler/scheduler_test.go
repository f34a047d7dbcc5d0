package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/portwatch/portwatch/models"
	"github.com/portwatch/portwatch/pkg/portwatch/scheduler"
)

// ─────────────────────────────────────────────────────────────────────────────
// Mock CycleRunner
// ─────────────────────────────────────────────────────────────────────────────

type mockRunner struct {
	host  string
	err   error
	delay time.Duration

	cycles   atomic.Int32
	inFlight atomic.Int32
	overlap  atomic.Bool
}

func (m *mockRunner) RunCycle(ctx context.Context) (models.Snapshot, error) {
	if m.inFlight.Add(1) > 1 {
		m.overlap.Store(true)
	}
	defer m.inFlight.Add(-1)

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return models.Snapshot{}, ctx.Err()
		}
	}
	m.cycles.Add(1)
	if m.err != nil {
		return models.Snapshot{}, m.err
	}
	return models.Snapshot{Host: m.host, Timestamp: time.Now()}, nil
}

// snapshotSink collects snapshots delivered through the onSnapshot callback.
type snapshotSink struct {
	mu    sync.Mutex
	snaps []models.Snapshot
}

func (s *snapshotSink) accept(snap models.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = append(s.snaps, snap)
}

func (s *snapshotSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snaps)
}

func (s *snapshotSink) hosts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int)
	for _, snap := range s.snaps {
		out[snap.Host]++
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Lifecycle
// ─────────────────────────────────────────────────────────────────────────────

func TestScheduler_ImmediateFirstCycleThenTicks(t *testing.T) {
	sink := &snapshotSink{}
	s := scheduler.New(sink.accept, nil)

	r := &mockRunner{host: "sw1"}
	s.Register("sw1", 100*time.Millisecond, r)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	time.Sleep(350 * time.Millisecond)
	cancel()
	s.Wait()

	// Immediate cycle + ~3 ticks in 350 ms.
	if n := r.cycles.Load(); n < 2 {
		t.Errorf("cycles = %d, want at least 2 (immediate + ticks)", n)
	}
	if sink.count() < 2 {
		t.Errorf("snapshots delivered = %d, want at least 2", sink.count())
	}
}

func TestScheduler_IndependentDeviceLoops(t *testing.T) {
	sink := &snapshotSink{}
	s := scheduler.New(sink.accept, nil)

	// sw1 is stuck (cycles slower than its interval); sw2 is healthy.
	stuck := &mockRunner{host: "sw1", delay: 200 * time.Millisecond}
	fast := &mockRunner{host: "sw2"}
	s.Register("sw1", 50*time.Millisecond, stuck)
	s.Register("sw2", 50*time.Millisecond, fast)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	time.Sleep(400 * time.Millisecond)
	cancel()
	s.Wait()

	hosts := sink.hosts()
	if hosts["sw2"] < 4 {
		t.Errorf("sw2 snapshots = %d, want ≥4 despite sw1 being stuck", hosts["sw2"])
	}
	if stuck.overlap.Load() {
		t.Error("cycles for one device overlapped; they must be serialized")
	}
}

func TestScheduler_SerializedPerDevice(t *testing.T) {
	s := scheduler.New(nil, nil)

	// Cycle duration (80 ms) far exceeds the interval (10 ms): ticks pile up,
	// but a new cycle must never start while the previous one runs.
	r := &mockRunner{host: "sw1", delay: 80 * time.Millisecond}
	s.Register("sw1", 10*time.Millisecond, r)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	time.Sleep(300 * time.Millisecond)
	cancel()
	s.Wait()

	if r.overlap.Load() {
		t.Error("overlapping cycles detected for a single device")
	}
}

func TestScheduler_FailedCycleNotDelivered(t *testing.T) {
	sink := &snapshotSink{}
	s := scheduler.New(sink.accept, nil)

	r := &mockRunner{host: "sw1", err: errors.New("device unreachable")}
	s.Register("sw1", 50*time.Millisecond, r)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	time.Sleep(150 * time.Millisecond)
	cancel()
	s.Wait()

	if r.cycles.Load() < 1 {
		t.Fatal("runner never invoked")
	}
	if sink.count() != 0 {
		t.Errorf("failed cycles delivered %d snapshots, want 0", sink.count())
	}
}

func TestScheduler_StopsPromptly(t *testing.T) {
	s := scheduler.New(nil, nil)
	s.Register("sw1", 50*time.Millisecond, &mockRunner{host: "sw1"})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not drain within 2s of cancellation")
	}
}

func TestScheduler_RegisterAfterStartIgnored(t *testing.T) {
	s := scheduler.New(nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	defer func() {
		cancel()
		s.Wait()
	}()

	late := &mockRunner{host: "late"}
	s.Register("late", 10*time.Millisecond, late)

	time.Sleep(100 * time.Millisecond)
	if late.cycles.Load() != 0 {
		t.Errorf("late registration ran %d cycles, want 0", late.cycles.Load())
	}
}

func TestScheduler_NoDevices(t *testing.T) {
	s := scheduler.New(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()
	s.Wait() // must return immediately without panicking
}
