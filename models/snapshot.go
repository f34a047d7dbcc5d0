// Package models defines the core data structures shared across all layers of
// portwatch. These types represent the canonical in-memory form of all
// collected switch telemetry; every other package depends on this package and
// nothing here depends on any other internal package.
package models

import "time"

// PortEntry is one physical port in the logical port map produced by the
// classifier. Logical numbers are dense (1..N), assigned in ascending
// hardware ifIndex order, and stable for the lifetime of a polling session.
type PortEntry struct {
	// Logical is the sequential port number exposed downstream (1-based).
	Logical int `json:"logical"`

	// IfIndex is the device-internal interface index that keys all
	// interface-table rows for this port.
	IfIndex int `json:"if_index"`

	// Name is the short display name, e.g. "Port 3".
	Name string `json:"name"`

	// Descr is the raw ifDescr string the entry was classified from.
	Descr string `json:"if_descr"`

	// IsFiber reports an SFP / fiber-media port; IsCopper is its complement.
	IsFiber  bool `json:"is_fiber"`
	IsCopper bool `json:"is_copper"`

	// DetectionMethod records which rule decided the media type:
	// "type_match", "name_keyword", "cisco_module_sfp", "cisco_fixed_copper",
	// "netgear_10g_sfp", or "default_copper".
	DetectionMethod string `json:"detection_method"`

	// SpeedMbps is the negotiated or nominal port speed in Mbit/s (0 if unknown).
	SpeedMbps int `json:"speed_mbps"`

	// Manufacturer is the first token of sysDescr, "Unknown" when generic.
	Manufacturer string `json:"manufacturer"`
}

// PortSample is the per-cycle telemetry for one logical port.
type PortSample struct {
	// Up is true when ifOperStatus == 1.
	Up bool `json:"up"`

	// SpeedBps is the raw interface speed in bit/s as reported this cycle.
	SpeedBps int64 `json:"speed_bps"`

	// RxBytes / TxBytes are the raw cumulative octet counters.
	RxBytes uint64 `json:"rx_bytes"`
	TxBytes uint64 `json:"tx_bytes"`

	// RxBps / TxBps are the live per-port rates computed from counter deltas.
	// Zero on the first cycle (baseline only) and when the rate engine
	// rejects a spurious reading.
	RxBps float64 `json:"rx_bps"`
	TxBps float64 `json:"tx_bps"`

	// Name is the per-port alias (ifAlias walk), falling back to the
	// classifier's display name when the device returns nothing.
	Name string `json:"name,omitempty"`

	// VLANID is the untagged VLAN, when the vlan OID is configured.
	VLANID *int `json:"vlan_id,omitempty"`

	// PoEPowerMilliwatts / PoEStatus are populated only when the
	// corresponding OIDs are configured and the device answers.
	PoEPowerMilliwatts *int `json:"poe_power_mw,omitempty"`
	PoEStatus          *int `json:"poe_status,omitempty"`
}

// DeviceSample carries the device-level scalars. Every field is independently
// optional; absence is a valid steady state, not an error.
type DeviceSample struct {
	CPUPercent       *int   `json:"cpu_percent,omitempty"`
	MemoryPercent    *int   `json:"memory_percent,omitempty"`
	Hostname         string `json:"hostname,omitempty"`
	UptimeHundredths *int64 `json:"uptime_hundredths,omitempty"`
	Firmware         string `json:"firmware,omitempty"`
	PoETotalWatts    *int   `json:"poe_total_watts,omitempty"`
	Custom           string `json:"custom,omitempty"`
}

// Snapshot is one complete, immutable set of per-port and per-device
// telemetry produced by a single successful polling cycle. A new snapshot
// fully replaces the previous one; there is no partial mutation.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`

	// Host identifies the polled device (management address).
	Host string `json:"host"`

	// Ports is keyed by logical port number.
	Ports map[int]PortSample `json:"ports"`

	Device DeviceSample `json:"device"`

	// BandwidthMbps is the aggregate switch throughput over the last cycle:
	// (Δtotal_rx + Δtotal_tx) * 8 / elapsed, in Mbit/s, rounded to 2 decimals.
	BandwidthMbps float64 `json:"bandwidth_mbps"`
}
