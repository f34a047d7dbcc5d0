package models

// PortOIDs maps each per-port telemetry field to the base OID of its
// interface table. An empty string means "not configured — skip": the
// transport never contacts the device for that field.
type PortOIDs struct {
	// RX / TX are the cumulative octet counter tables (default ifInOctets /
	// ifOutOctets, 32-bit).
	RX string `yaml:"rx"`
	TX string `yaml:"tx"`

	// Status is the operational status table (default ifOperStatus; 1 = up).
	Status string `yaml:"status"`

	// Speed is the legacy 32-bit speed table in bit/s (default ifSpeed).
	Speed string `yaml:"speed"`

	// HighSpeed is the Mbit/s table preferred over Speed when both answer
	// (default ifHighSpeed).
	HighSpeed string `yaml:"high_speed"`

	// Name is the per-port alias table (default ifAlias).
	Name string `yaml:"name"`

	// VLAN is vendor-specific (Q-BRIDGE-MIB or private); disabled by default.
	VLAN string `yaml:"vlan"`

	// PoEPower / PoEStatus are vendor-specific; disabled by default.
	PoEPower  string `yaml:"poe_power"`
	PoEStatus string `yaml:"poe_status"`
}

// SystemOIDs maps each device-level scalar field to its OID. Empty string
// means "not configured — skip". The *_Zyxel entries are fallbacks tried only
// when the primary OID returned nothing.
type SystemOIDs struct {
	CPU         string `yaml:"cpu"`
	CPUZyxel    string `yaml:"cpu_zyxel"`
	Memory      string `yaml:"memory"`
	MemoryZyxel string `yaml:"memory_zyxel"`
	Hostname    string `yaml:"hostname"`
	Uptime      string `yaml:"uptime"`
	Firmware    string `yaml:"firmware"`
	PoETotal    string `yaml:"poe_total"`
	Custom      string `yaml:"custom"`
}

// Well-known base OIDs used by defaults and discovery.
const (
	OIDIfDescr     = "1.3.6.1.2.1.2.2.1.2"
	OIDIfType      = "1.3.6.1.2.1.2.2.1.3"
	OIDIfSpeed     = "1.3.6.1.2.1.2.2.1.5"
	OIDIfOperSt    = "1.3.6.1.2.1.2.2.1.8"
	OIDIfInOctets  = "1.3.6.1.2.1.2.2.1.10"
	OIDIfOutOctets = "1.3.6.1.2.1.2.2.1.16"
	OIDIfHighSpeed = "1.3.6.1.2.1.31.1.1.1.15"
	OIDIfAlias     = "1.3.6.1.2.1.31.1.1.1.18"

	OIDSysDescr  = "1.3.6.1.2.1.1.1.0"
	OIDSysUptime = "1.3.6.1.2.1.1.3.0"
	OIDSysName   = "1.3.6.1.2.1.1.5.0"
)

// DefaultPortOIDs returns the standard IF-MIB table set that works on most
// managed switches out of the box. Vendor-private fields stay disabled.
func DefaultPortOIDs() PortOIDs {
	return PortOIDs{
		RX:        OIDIfInOctets,
		TX:        OIDIfOutOctets,
		Status:    OIDIfOperSt,
		Speed:     OIDIfSpeed,
		HighSpeed: OIDIfHighSpeed,
		Name:      OIDIfAlias,
	}
}

// DefaultSystemOIDs returns the universal scalar set. CPU / memory / firmware
// are usually in private MIBs, so they stay disabled until configured.
func DefaultSystemOIDs() SystemOIDs {
	return SystemOIDs{
		Hostname: OIDSysName,
		Uptime:   OIDSysUptime,
	}
}

// DefaultPortCount is the identity-mapping size used when discovery yields no
// usable ports and no explicit port list is configured. Eight is safe for
// virtually every managed switch.
const DefaultPortCount = 8
