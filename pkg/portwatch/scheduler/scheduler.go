// Package scheduler drives the polling loops. Each monitored device gets its
// own goroutine ticking at the device's poll interval; because a device's
// cycles run inside a single loop, at most one cycle per device is ever in
// flight, which keeps rate-state mutation strictly serialized. Cycles of
// different devices run concurrently and independently — one stuck switch
// never delays another.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/portwatch/portwatch/models"
)

// CycleRunner is the subset of the snapshot coordinator consumed by the
// scheduler. Using an interface lets tests inject a mock without importing
// the full producer package.
type CycleRunner interface {
	RunCycle(ctx context.Context) (models.Snapshot, error)
}

// entry pairs one device's runner with its interval and identity.
type entry struct {
	host     string
	interval time.Duration
	runner   CycleRunner
}

// Scheduler owns one polling goroutine per registered device.
type Scheduler struct {
	logger *slog.Logger

	// onSnapshot, when non-nil, receives every successfully published
	// snapshot. It is invoked from the device's own loop goroutine.
	onSnapshot func(models.Snapshot)

	mu      sync.Mutex
	entries []entry
	started bool

	wg sync.WaitGroup
}

// New creates a Scheduler. onSnapshot may be nil.
func New(onSnapshot func(models.Snapshot), logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	return &Scheduler{logger: logger, onSnapshot: onSnapshot}
}

// Register adds a device loop. Must be called before Start.
func (s *Scheduler) Register(host string, interval time.Duration, runner CycleRunner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		s.logger.Warn("scheduler: register after start ignored", "host", host)
		return
	}
	s.entries = append(s.entries, entry{host: host, interval: interval, runner: runner})
}

// Start launches every device loop. The loops stop when ctx is cancelled;
// call Wait to block until they have drained.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	entries := s.entries
	s.started = true
	s.mu.Unlock()

	for _, e := range entries {
		s.wg.Add(1)
		go s.deviceLoop(ctx, e)
	}
	s.logger.Info("scheduler: started", "devices", len(entries))
}

// Wait blocks until all device loops have exited. The caller must cancel the
// context passed to Start first.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// deviceLoop runs cycles for one device: an immediate first cycle, then one
// per tick. A cycle in progress is cancelled through ctx; the loop never
// starts a new cycle while the previous one is outstanding.
func (s *Scheduler) deviceLoop(ctx context.Context, e entry) {
	defer s.wg.Done()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	s.runOnce(ctx, e)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, e)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, e entry) {
	if ctx.Err() != nil {
		return
	}
	snap, err := e.runner.RunCycle(ctx)
	if err != nil {
		// Already logged and counted by the coordinator; the next tick retries.
		return
	}
	if s.onSnapshot != nil {
		s.onSnapshot(snap)
	}
}

// noopWriter discards log output.
type noopWriter struct{}

func (noopWriter) Write(b []byte) (int, error) { return len(b), nil }
