package snapshot_test

import (
	"testing"
	"time"

	"github.com/portwatch/portwatch/models"
	"github.com/portwatch/portwatch/producer/snapshot"
)

// ─────────────────────────────────────────────────────────────────────────────
// Store
// ─────────────────────────────────────────────────────────────────────────────

func TestStore_EmptyUntilPublish(t *testing.T) {
	s := snapshot.NewStore()
	if _, ok := s.Current(); ok {
		t.Error("empty store reported a current snapshot")
	}
	if n := s.ConsecutiveFailures(); n != 0 {
		t.Errorf("failures = %d, want 0", n)
	}
}

func TestStore_PublishReplacesAndResetsFailures(t *testing.T) {
	s := snapshot.NewStore()
	s.RecordFailure()
	s.RecordFailure()

	snap := models.Snapshot{
		Timestamp: time.Now(),
		Host:      "192.0.2.10",
		Ports:     map[int]models.PortSample{1: {Up: true}},
	}
	s.Publish(snap)

	got, ok := s.Current()
	if !ok {
		t.Fatal("no current snapshot after Publish")
	}
	if got.Host != "192.0.2.10" {
		t.Errorf("host = %q", got.Host)
	}
	if n := s.ConsecutiveFailures(); n != 0 {
		t.Errorf("failures after publish = %d, want 0", n)
	}
}

func TestStore_FailuresAccumulateAndKeepSnapshot(t *testing.T) {
	s := snapshot.NewStore()
	s.Publish(models.Snapshot{Host: "sw1"})

	if n := s.RecordFailure(); n != 1 {
		t.Errorf("first failure = %d, want 1", n)
	}
	if n := s.RecordFailure(); n != 2 {
		t.Errorf("second failure = %d, want 2", n)
	}

	// The stale snapshot stays available through the failures.
	got, ok := s.Current()
	if !ok || got.Host != "sw1" {
		t.Errorf("Current after failures = %+v ok=%v, want sw1 retained", got, ok)
	}
}
