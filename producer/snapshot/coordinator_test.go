package snapshot_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/portwatch/portwatch/models"
	"github.com/portwatch/portwatch/pkg/portwatch/config"
	"github.com/portwatch/portwatch/pkg/portwatch/poller"
	"github.com/portwatch/portwatch/producer/snapshot"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fake transport
// ─────────────────────────────────────────────────────────────────────────────

type fakeTransport struct {
	mu      sync.Mutex
	walks   map[string][]poller.Row // base OID → rows
	scalars map[string]string       // scalar OID → value
	walkErr map[string]error
	getErr  map[string]error

	walked []string // every non-empty base passed to Walk
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		walks:   make(map[string][]poller.Row),
		scalars: make(map[string]string),
		walkErr: make(map[string]error),
		getErr:  make(map[string]error),
	}
}

func (f *fakeTransport) Get(_ context.Context, _ config.DeviceConfig, oid string) (string, bool, error) {
	if oid == "" {
		return "", false, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.getErr[oid]; err != nil {
		return "", false, err
	}
	v, ok := f.scalars[oid]
	return v, ok, nil
}

func (f *fakeTransport) Walk(_ context.Context, _ config.DeviceConfig, baseOID string) ([]poller.Row, error) {
	if baseOID == "" {
		return nil, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.walked = append(f.walked, baseOID)
	if err := f.walkErr[baseOID]; err != nil {
		return nil, err
	}
	return f.walks[baseOID], nil
}

func (f *fakeTransport) BulkGet(ctx context.Context, dev config.DeviceConfig, oids []string) (map[string]string, error) {
	results := make(map[string]string)
	attempted, failed := 0, 0
	var firstErr error
	for _, oid := range oids {
		if oid == "" {
			continue
		}
		attempted++
		v, ok, err := f.Get(ctx, dev, oid)
		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			results[oid] = v
		}
	}
	if attempted > 0 && failed == attempted {
		return results, firstErr
	}
	return results, nil
}

func (f *fakeTransport) walkCount(base string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.walked {
		if b == base {
			n++
		}
	}
	return n
}

// ─────────────────────────────────────────────────────────────────────────────
// Fixtures
// ─────────────────────────────────────────────────────────────────────────────

func testDevice() config.DeviceConfig {
	return config.DeviceConfig{
		Host:                "192.0.2.10",
		Port:                161,
		Community:           "public",
		Version:             "2c",
		PollIntervalSeconds: 30,
		Ports:               []int{1, 2},
		PortOIDs:            models.DefaultPortOIDs(),
		SystemOIDs:          models.DefaultSystemOIDs(),
	}
}

// populateSwitch loads the fake with one physical port (ifIndex 1) and one
// VLAN row that classification must drop.
func populateSwitch(f *fakeTransport) {
	f.walks[models.OIDIfDescr] = []poller.Row{
		{OID: models.OIDIfDescr + ".1", Value: "Port 1"},
		{OID: models.OIDIfDescr + ".2", Value: "Vlan1"},
	}
	f.walks[models.OIDIfType] = []poller.Row{
		{OID: models.OIDIfType + ".1", Value: "6"},
	}
	f.walks[models.OIDIfSpeed] = []poller.Row{
		{OID: models.OIDIfSpeed + ".1", Value: "1000000000"},
	}
	f.walks[models.OIDIfHighSpeed] = []poller.Row{
		{OID: models.OIDIfHighSpeed + ".1", Value: "1000"},
	}
	f.walks[models.OIDIfInOctets] = []poller.Row{
		{OID: models.OIDIfInOctets + ".1", Value: "1000"},
	}
	f.walks[models.OIDIfOutOctets] = []poller.Row{
		{OID: models.OIDIfOutOctets + ".1", Value: "2000"},
	}
	f.walks[models.OIDIfOperSt] = []poller.Row{
		{OID: models.OIDIfOperSt + ".1", Value: "1"},
	}
	f.walks[models.OIDIfAlias] = []poller.Row{
		{OID: models.OIDIfAlias + ".1", Value: "uplink"},
	}
	f.scalars[models.OIDSysDescr] = "Cisco IOS Software, C2960"
	f.scalars[models.OIDSysName] = "core-sw"
	f.scalars[models.OIDSysUptime] = "123456"
}

// ─────────────────────────────────────────────────────────────────────────────
// Cycle assembly
// ─────────────────────────────────────────────────────────────────────────────

func TestCoordinator_SuccessfulCycle(t *testing.T) {
	f := newFakeTransport()
	populateSwitch(f)

	store := snapshot.NewStore()
	c := snapshot.NewCoordinator(testDevice(), f, store, nil)

	snap, err := c.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if len(snap.Ports) != 1 {
		t.Fatalf("ports = %d, want 1 (Vlan1 dropped)", len(snap.Ports))
	}
	p, ok := snap.Ports[1]
	if !ok {
		t.Fatal("logical port 1 missing")
	}
	if !p.Up {
		t.Error("port should be up (status 1)")
	}
	if p.RxBytes != 1000 || p.TxBytes != 2000 {
		t.Errorf("counters = %d/%d, want 1000/2000", p.RxBytes, p.TxBytes)
	}
	if p.SpeedBps != 1000000000 {
		t.Errorf("SpeedBps = %d", p.SpeedBps)
	}
	if p.Name != "uplink" {
		t.Errorf("Name = %q, want ifAlias value to win", p.Name)
	}
	if p.RxBps != 0 || p.TxBps != 0 {
		t.Errorf("first-cycle rates = %v/%v, want 0/0", p.RxBps, p.TxBps)
	}
	if p.VLANID != nil || p.PoEPowerMilliwatts != nil {
		t.Error("unconfigured optional fields must stay nil")
	}

	if snap.Device.Hostname != "core-sw" {
		t.Errorf("hostname = %q", snap.Device.Hostname)
	}
	if snap.Device.UptimeHundredths == nil || *snap.Device.UptimeHundredths != 123456 {
		t.Errorf("uptime = %v", snap.Device.UptimeHundredths)
	}
	if snap.Device.CPUPercent != nil {
		t.Error("cpu not configured, must be nil")
	}

	// Published atomically.
	cur, ok := store.Current()
	if !ok || cur.Host != "192.0.2.10" {
		t.Errorf("store current = %+v ok=%v", cur, ok)
	}
}

func TestCoordinator_PortMapCachedAcrossCycles(t *testing.T) {
	f := newFakeTransport()
	populateSwitch(f)

	c := snapshot.NewCoordinator(testDevice(), f, snapshot.NewStore(), nil)
	ctx := context.Background()

	if _, err := c.RunCycle(ctx); err != nil {
		t.Fatalf("cycle 1: %v", err)
	}
	if _, err := c.RunCycle(ctx); err != nil {
		t.Fatalf("cycle 2: %v", err)
	}

	// ifType is walked by discovery only: once, despite two cycles.
	if n := f.walkCount(models.OIDIfType); n != 1 {
		t.Errorf("discovery walks = %d, want 1 (port map must be cached)", n)
	}
	// The counter table is walked every cycle.
	if n := f.walkCount(models.OIDIfInOctets); n != 2 {
		t.Errorf("rx walks = %d, want 2", n)
	}
}

func TestCoordinator_MissingStatusRowMeansDown(t *testing.T) {
	f := newFakeTransport()
	populateSwitch(f)
	f.walks[models.OIDIfOperSt] = nil // device answered nothing for the table

	c := snapshot.NewCoordinator(testDevice(), f, snapshot.NewStore(), nil)
	snap, err := c.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	p := snap.Ports[1]
	if p.Up {
		t.Error("port with no status row must default to down")
	}
	if p.RxBytes != 1000 {
		t.Errorf("RxBytes = %d, counters must still be joined", p.RxBytes)
	}
}

func TestCoordinator_OptionalVLANTable(t *testing.T) {
	f := newFakeTransport()
	populateSwitch(f)

	dev := testDevice()
	dev.PortOIDs.VLAN = "1.3.6.1.2.1.17.7.1.4.5.1.1"
	f.walks[dev.PortOIDs.VLAN] = []poller.Row{
		{OID: dev.PortOIDs.VLAN + ".1", Value: "10"},
	}

	c := snapshot.NewCoordinator(dev, f, snapshot.NewStore(), nil)
	snap, err := c.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	p := snap.Ports[1]
	if p.VLANID == nil || *p.VLANID != 10 {
		t.Errorf("VLANID = %v, want 10", p.VLANID)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Device scalar fallbacks
// ─────────────────────────────────────────────────────────────────────────────

func TestCoordinator_CPUZyxelFallback(t *testing.T) {
	f := newFakeTransport()
	populateSwitch(f)

	dev := testDevice()
	dev.SystemOIDs.CPU = "1.3.6.1.4.1.9.2.1.58.0"        // absent on this device
	dev.SystemOIDs.CPUZyxel = "1.3.6.1.4.1.890.1.15.3.2" // answers
	f.scalars[dev.SystemOIDs.CPUZyxel] = "37"

	c := snapshot.NewCoordinator(dev, f, snapshot.NewStore(), nil)
	snap, err := c.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if snap.Device.CPUPercent == nil || *snap.Device.CPUPercent != 37 {
		t.Errorf("CPUPercent = %v, want 37 via fallback", snap.Device.CPUPercent)
	}
}

func TestCoordinator_PrimaryCPUWinsOverFallback(t *testing.T) {
	f := newFakeTransport()
	populateSwitch(f)

	dev := testDevice()
	dev.SystemOIDs.CPU = "1.3.6.1.4.1.9.2.1.58.0"
	dev.SystemOIDs.CPUZyxel = "1.3.6.1.4.1.890.1.15.3.2"
	f.scalars[dev.SystemOIDs.CPU] = "12"
	f.scalars[dev.SystemOIDs.CPUZyxel] = "99"

	c := snapshot.NewCoordinator(dev, f, snapshot.NewStore(), nil)
	snap, err := c.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if snap.Device.CPUPercent == nil || *snap.Device.CPUPercent != 12 {
		t.Errorf("CPUPercent = %v, want 12 from the primary OID", snap.Device.CPUPercent)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Failure handling
// ─────────────────────────────────────────────────────────────────────────────

func TestCoordinator_FailedCycleKeepsPreviousSnapshot(t *testing.T) {
	f := newFakeTransport()
	populateSwitch(f)

	store := snapshot.NewStore()
	c := snapshot.NewCoordinator(testDevice(), f, store, nil)
	ctx := context.Background()

	if _, err := c.RunCycle(ctx); err != nil {
		t.Fatalf("cycle 1: %v", err)
	}

	f.mu.Lock()
	f.walkErr[models.OIDIfInOctets] = errors.New("request timeout")
	f.mu.Unlock()

	_, err := c.RunCycle(ctx)
	if err == nil {
		t.Fatal("cycle 2 should fail")
	}
	var cerr *snapshot.CycleError
	if !errors.As(err, &cerr) {
		t.Fatalf("error type = %T, want *CycleError", err)
	}
	if cerr.Host != "192.0.2.10" {
		t.Errorf("CycleError.Host = %q", cerr.Host)
	}

	if n := store.ConsecutiveFailures(); n != 1 {
		t.Errorf("failures = %d, want 1", n)
	}
	cur, ok := store.Current()
	if !ok {
		t.Fatal("previous snapshot must stay current through the failure")
	}
	if cur.Ports[1].RxBytes != 1000 {
		t.Errorf("retained snapshot RxBytes = %d, want 1000", cur.Ports[1].RxBytes)
	}
}

func TestCoordinator_DiscoveryFailureFallsBackToIdentity(t *testing.T) {
	f := newFakeTransport()
	populateSwitch(f)
	f.walkErr[models.OIDIfDescr] = errors.New("no response")

	dev := testDevice()
	dev.Ports = []int{3, 7}
	f.walks[models.OIDIfInOctets] = []poller.Row{
		{OID: models.OIDIfInOctets + ".3", Value: "500"},
		{OID: models.OIDIfInOctets + ".7", Value: "600"},
	}

	c := snapshot.NewCoordinator(dev, f, snapshot.NewStore(), nil)
	snap, err := c.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if len(snap.Ports) != 2 {
		t.Fatalf("ports = %d, want 2 from identity mapping", len(snap.Ports))
	}
	if snap.Ports[1].RxBytes != 500 || snap.Ports[2].RxBytes != 600 {
		t.Errorf("identity join: rx = %d/%d, want 500/600",
			snap.Ports[1].RxBytes, snap.Ports[2].RxBytes)
	}

	entries := c.PortMap()
	if len(entries) != 2 || entries[0].IfIndex != 3 || entries[1].IfIndex != 7 {
		t.Errorf("port map = %+v, want identity over configured ports", entries)
	}
	if entries[0].Name != "Port 3" {
		t.Errorf("fallback name = %q, want Port 3", entries[0].Name)
	}
}

func TestCoordinator_EmptyClassificationFallsBackToIdentity(t *testing.T) {
	f := newFakeTransport()
	populateSwitch(f)
	// Only virtual rows: classification yields nothing usable.
	f.walks[models.OIDIfDescr] = []poller.Row{
		{OID: models.OIDIfDescr + ".2", Value: "Vlan1"},
	}

	dev := testDevice()
	dev.Ports = []int{1}

	c := snapshot.NewCoordinator(dev, f, snapshot.NewStore(), nil)
	snap, err := c.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(snap.Ports) != 1 {
		t.Fatalf("ports = %d, want 1 via identity fallback", len(snap.Ports))
	}
	if snap.Ports[1].RxBytes != 1000 {
		t.Errorf("RxBytes = %d, want 1000", snap.Ports[1].RxBytes)
	}
}
