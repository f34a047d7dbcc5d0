// Package snapshot assembles one immutable telemetry snapshot per polling
// cycle. The coordinator fans all configured table walks and scalar fetches
// out concurrently, joins the results against the cached logical port map,
// runs the rate engine over the counter deltas, and publishes the result
// atomically — a cycle either replaces the whole snapshot or leaves the
// previous one current.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/portwatch/portwatch/models"
	"github.com/portwatch/portwatch/pkg/portwatch/config"
	"github.com/portwatch/portwatch/pkg/portwatch/poller"
	"github.com/portwatch/portwatch/snmp/classify"
)

// ─────────────────────────────────────────────────────────────────────────────
// CycleError
// ─────────────────────────────────────────────────────────────────────────────

// CycleError is the single aggregated failure reported when a polling cycle
// aborts. The previous snapshot remains current; the caller retries on the
// next scheduled cycle, never immediately.
type CycleError struct {
	Host string
	Err  error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("poll cycle %s: %v", e.Host, e.Err)
}

func (e *CycleError) Unwrap() error { return e.Err }

// ─────────────────────────────────────────────────────────────────────────────
// Transport — interface for dependency injection
// ─────────────────────────────────────────────────────────────────────────────

// Transport is the subset of poller.Client the coordinator consumes. Using an
// interface lets tests inject a fake without importing the SNMP stack.
type Transport interface {
	Get(ctx context.Context, dev config.DeviceConfig, oid string) (string, bool, error)
	Walk(ctx context.Context, dev config.DeviceConfig, baseOID string) ([]poller.Row, error)
	BulkGet(ctx context.Context, dev config.DeviceConfig, oids []string) (map[string]string, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Coordinator
// ─────────────────────────────────────────────────────────────────────────────

// Coordinator runs polling cycles for a single device. It owns the cached
// logical port map and the rate state exclusively; cycles for one device are
// serialized by the scheduler, so RunCycle is never invoked concurrently for
// the same Coordinator.
type Coordinator struct {
	dev    config.DeviceConfig
	client Transport
	logger *slog.Logger

	store *Store
	rates *RateState

	// portMap is populated on the first cycle (discovery or identity
	// fallback) and never changes afterwards: logical numbering is stable
	// for the lifetime of the session.
	portMap []models.PortEntry
}

// NewCoordinator creates a coordinator for dev using the shared transport
// client. The store is the published-snapshot handoff to the presentation
// side.
func NewCoordinator(dev config.DeviceConfig, client Transport, store *Store, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	interval := time.Duration(dev.PollIntervalSeconds) * time.Second
	return &Coordinator{
		dev:    dev,
		client: client,
		logger: logger,
		store:  store,
		rates:  NewRateState(DefaultLimits(), interval),
	}
}

// Store exposes the snapshot store for consumers.
func (c *Coordinator) Store() *Store { return c.store }

// PortMap returns the cached logical port map (nil before the first cycle).
func (c *Coordinator) PortMap() []models.PortEntry { return c.portMap }

// RunCycle executes one full polling cycle and publishes the snapshot on
// success. On failure it records the failure on the store and returns a
// *CycleError; the previous snapshot stays current and the rate state is
// untouched.
func (c *Coordinator) RunCycle(ctx context.Context) (models.Snapshot, error) {
	snap, err := c.collect(ctx)
	if err != nil {
		n := c.store.RecordFailure()
		c.logger.Warn("cycle failed",
			"host", c.dev.Host,
			"consecutive_failures", n,
			"error", err.Error(),
		)
		return models.Snapshot{}, &CycleError{Host: c.dev.Host, Err: err}
	}
	c.store.Publish(snap)
	c.logger.Debug("cycle published",
		"host", c.dev.Host,
		"ports", len(snap.Ports),
		"bandwidth_mbps", snap.BandwidthMbps,
	)
	return snap, nil
}

func (c *Coordinator) collect(ctx context.Context) (models.Snapshot, error) {
	if err := c.ensurePortMap(ctx); err != nil {
		return models.Snapshot{}, err
	}

	// ── Step 2: all configured per-port walks, concurrently ─────────────────
	oids := c.dev.PortOIDs
	var rxRows, txRows, statusRows, speedRows []poller.Row
	var nameRows, vlanRows, poePRows, poeSRows []poller.Row
	g, gctx := errgroup.WithContext(ctx)
	walk := func(base string, dst *[]poller.Row) {
		if base == "" {
			return // not configured — skip, not attempted
		}
		g.Go(func() error {
			rows, err := c.client.Walk(gctx, c.dev, base)
			if err != nil {
				return err
			}
			*dst = rows
			return nil
		})
	}
	walk(oids.RX, &rxRows)
	walk(oids.TX, &txRows)
	walk(oids.Status, &statusRows)
	walk(oids.Speed, &speedRows)
	walk(oids.Name, &nameRows)
	walk(oids.VLAN, &vlanRows)
	walk(oids.PoEPower, &poePRows)
	walk(oids.PoEStatus, &poeSRows)
	if err := g.Wait(); err != nil {
		return models.Snapshot{}, err
	}

	// ── Step 3: parse rows into ifIndex-keyed maps ───────────────────────────
	rx := ParseUintTable(rxRows)
	tx := ParseUintTable(txRows)
	status := ParseIntTable(statusRows)
	speed := ParseIntTable(speedRows)
	names := ParseStringTable(nameRows)
	vlans := ParseIntTable(vlanRows)
	poePower := ParseIntTable(poePRows)
	poeStatus := ParseIntTable(poeSRows)

	// ── Step 5: device scalars with per-field fallback chain ─────────────────
	device, err := c.collectDevice(ctx)
	if err != nil {
		return models.Snapshot{}, err
	}

	// ── Steps 4 & 6: join by hardware index, compute rates & bandwidth ───────
	// No suspension points from here on: rate staging and publish are one
	// uninterruptible step, so cancellation can never half-update rate state.
	now := time.Now()
	update := c.rates.Begin(now)

	ports := make(map[int]models.PortSample, len(c.portMap))
	var totalRx, totalTx uint64
	for _, entry := range c.portMap {
		idx := entry.IfIndex

		sample := models.PortSample{
			// Missing status row → default down/zero sample, port kept.
			Up:       status[idx] == 1,
			SpeedBps: speed[idx],
			RxBytes:  rx[idx],
			TxBytes:  tx[idx],
			Name:     entry.Name,
		}
		if alias := strings.TrimSpace(names[idx]); alias != "" {
			sample.Name = alias
		}
		if v, ok := vlans[idx]; ok {
			vid := int(v)
			sample.VLANID = &vid
		}
		if v, ok := poePower[idx]; ok {
			mw := int(v)
			sample.PoEPowerMilliwatts = &mw
		}
		if v, ok := poeStatus[idx]; ok {
			st := int(v)
			sample.PoEStatus = &st
		}

		sample.RxBps, sample.TxBps = c.rates.Port(update, entry.Logical, sample.RxBytes, sample.TxBytes)

		totalRx += sample.RxBytes
		totalTx += sample.TxBytes
		ports[entry.Logical] = sample
	}

	bandwidth := c.rates.Total(update, totalRx, totalTx)

	snap := models.Snapshot{
		Timestamp:     now,
		Host:          c.dev.Host,
		Ports:         ports,
		Device:        device,
		BandwidthMbps: bandwidth,
	}

	// Rate state advances only once the snapshot is fully assembled.
	c.rates.Commit(update)
	return snap, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Step 1: port discovery
// ─────────────────────────────────────────────────────────────────────────────

// ensurePortMap classifies the device's interface tables on the first cycle
// and caches the result for the session. Discovery failure or an empty
// classification falls back to an identity mapping over the configured port
// list rather than failing the session; the fallback is cached too, keeping
// logical numbering stable.
func (c *Coordinator) ensurePortMap(ctx context.Context) error {
	if c.portMap != nil {
		return nil
	}

	entries, err := c.discover(ctx)
	if err != nil {
		c.logger.Warn("port discovery failed, using identity mapping",
			"host", c.dev.Host,
			"ports", len(c.dev.Ports),
			"error", err.Error(),
		)
		entries = nil
	}
	discovered := len(entries) > 0
	if !discovered {
		entries = identityMap(c.dev.Ports)
	}

	c.portMap = entries
	c.logger.Info("port map established",
		"host", c.dev.Host,
		"ports", len(entries),
		"discovered", discovered,
	)
	return nil
}

func (c *Coordinator) discover(ctx context.Context) ([]models.PortEntry, error) {
	var descrRows, typeRows, speedRows, highRows []poller.Row
	var sysDescr string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := c.client.Walk(gctx, c.dev, models.OIDIfDescr)
		descrRows = rows
		return err
	})
	g.Go(func() error {
		rows, err := c.client.Walk(gctx, c.dev, models.OIDIfType)
		typeRows = rows
		return err
	})
	g.Go(func() error {
		rows, err := c.client.Walk(gctx, c.dev, c.dev.PortOIDs.Speed)
		speedRows = rows
		return err
	})
	g.Go(func() error {
		rows, err := c.client.Walk(gctx, c.dev, c.dev.PortOIDs.HighSpeed)
		highRows = rows
		return err
	})
	g.Go(func() error {
		// sysDescr is metadata only; absence is fine.
		val, _, err := c.client.Get(gctx, c.dev, models.OIDSysDescr)
		sysDescr = val
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("discovery: %w", err)
	}

	return classify.Classify(classify.Input{
		Descriptions: ParseStringTable(descrRows),
		Types:        ParseStringTable(typeRows),
		Speeds:       ParseStringTable(speedRows),
		HighSpeeds:   ParseStringTable(highRows),
		SysDescr:     sysDescr,
	}), nil
}

// identityMap builds the fallback 1:1 logical/hardware mapping from the
// configured port list.
func identityMap(ports []int) []models.PortEntry {
	entries := make([]models.PortEntry, 0, len(ports))
	for i, p := range ports {
		entries = append(entries, models.PortEntry{
			Logical:         i + 1,
			IfIndex:         p,
			Name:            "Port " + strconv.Itoa(p),
			IsCopper:        true,
			DetectionMethod: "default_copper",
			Manufacturer:    "Unknown",
		})
	}
	return entries
}

// ─────────────────────────────────────────────────────────────────────────────
// Step 5: device scalars
// ─────────────────────────────────────────────────────────────────────────────

// collectDevice batches all configured primary scalar OIDs concurrently, then
// issues a second batch for vendor fallbacks of fields the primary left
// absent (cpu → cpu_zyxel, memory → memory_zyxel).
func (c *Coordinator) collectDevice(ctx context.Context) (models.DeviceSample, error) {
	oids := c.dev.SystemOIDs

	primary := []string{
		oids.CPU, oids.Memory, oids.Hostname, oids.Uptime,
		oids.Firmware, oids.PoETotal, oids.Custom,
	}
	values, err := c.client.BulkGet(ctx, c.dev, primary)
	if err != nil {
		return models.DeviceSample{}, err
	}

	var fallbacks []string
	if _, ok := values[oids.CPU]; !ok && oids.CPUZyxel != "" {
		fallbacks = append(fallbacks, oids.CPUZyxel)
	}
	if _, ok := values[oids.Memory]; !ok && oids.MemoryZyxel != "" {
		fallbacks = append(fallbacks, oids.MemoryZyxel)
	}
	if len(fallbacks) > 0 {
		fbValues, err := c.client.BulkGet(ctx, c.dev, fallbacks)
		if err != nil {
			return models.DeviceSample{}, err
		}
		for oid, val := range fbValues {
			values[oid] = val
		}
	}

	lookup := func(primaryOID, fallbackOID string) (string, bool) {
		if v, ok := values[primaryOID]; ok && v != "" {
			return v, true
		}
		if v, ok := values[fallbackOID]; ok && v != "" {
			return v, true
		}
		return "", false
	}

	var sample models.DeviceSample
	if v, ok := lookup(oids.CPU, oids.CPUZyxel); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			sample.CPUPercent = &n
		}
	}
	if v, ok := lookup(oids.Memory, oids.MemoryZyxel); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			sample.MemoryPercent = &n
		}
	}
	if v, ok := values[oids.Hostname]; ok {
		sample.Hostname = v
	}
	if v, ok := values[oids.Uptime]; ok {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			sample.UptimeHundredths = &n
		}
	}
	if v, ok := values[oids.Firmware]; ok {
		sample.Firmware = v
	}
	if v, ok := values[oids.PoETotal]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			sample.PoETotalWatts = &n
		}
	}
	if v, ok := values[oids.Custom]; ok {
		sample.Custom = v
	}
	return sample, nil
}

// noopWriter discards log output.
type noopWriter struct{}

func (noopWriter) Write(b []byte) (int, error) { return len(b), nil }
