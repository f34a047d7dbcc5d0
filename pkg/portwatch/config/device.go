package config

import "github.com/portwatch/portwatch/models"

// DeviceConfig is the fully-resolved configuration for a single monitored
// switch. Optional fields that are zero-valued in the YAML are filled with
// hard-coded fallbacks during resolution; after Load returns, the rest of the
// application never applies defaults again.
type DeviceConfig struct {
	// Host is the management address of the switch.
	Host string

	// Port is the UDP port for SNMP requests (default 161).
	Port int

	// Community is the shared secret (default "public").
	Community string

	// Version is the SNMP dialect: "1" or "2c". Only these two are
	// supported; v2c is the default.
	Version string

	// TimeoutMillis is the per-request timeout (default 3000).
	TimeoutMillis int

	// Retries is the number of retry attempts on timeout (default 1).
	Retries int

	// PollIntervalSeconds is the cycle interval (default 30, floor 3).
	PollIntervalSeconds int

	// Ports is the fallback logical port list used only when port discovery
	// finds nothing (default 1..8). Discovery results always win.
	Ports []int

	// WalkMaxRows bounds every table walk (default 256) so a misbehaving
	// agent cannot produce an unbounded scan.
	WalkMaxRows int

	// PortOIDs / SystemOIDs are the per-field OID tables. Empty string
	// disables a field.
	PortOIDs   models.PortOIDs
	SystemOIDs models.SystemOIDs
}

// rawDeviceEntry is the intermediate YAML-decoded form of a single device.
// It maps 1-to-1 with the devices YAML schema.
type rawDeviceEntry struct {
	Host                string            `yaml:"host"`
	Port                int               `yaml:"port"`
	Community           string            `yaml:"community"`
	Version             string            `yaml:"version"`
	TimeoutMillis       int               `yaml:"timeout_ms"`
	Retries             int               `yaml:"retries"`
	PollIntervalSeconds int               `yaml:"poll_interval_s"`
	Ports               []int             `yaml:"ports"`
	WalkMaxRows         int               `yaml:"walk_max_rows"`
	PortOIDs            map[string]string `yaml:"port_oids"`
	SystemOIDs          map[string]string `yaml:"system_oids"`
}

// rawFile is the top-level devices YAML document.
type rawFile struct {
	Defaults rawDefaults      `yaml:"defaults"`
	Devices  []rawDeviceEntry `yaml:"devices"`
}

// rawDefaults carries file-wide fallbacks merged into every device before the
// hard-coded defaults apply.
type rawDefaults struct {
	Port                int               `yaml:"port"`
	Community           string            `yaml:"community"`
	Version             string            `yaml:"version"`
	TimeoutMillis       int               `yaml:"timeout_ms"`
	Retries             int               `yaml:"retries"`
	PollIntervalSeconds int               `yaml:"poll_interval_s"`
	WalkMaxRows         int               `yaml:"walk_max_rows"`
	PortOIDs            map[string]string `yaml:"port_oids"`
	SystemOIDs          map[string]string `yaml:"system_oids"`
}
