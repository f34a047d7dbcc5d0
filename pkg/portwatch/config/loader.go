// Package config provides YAML configuration loading for portwatch.
//
// It reads a single devices file and produces the resolved []DeviceConfig
// consumed by the rest of the application. Example document:
//
//	defaults:
//	  community: public
//	  poll_interval_s: 30
//	devices:
//	  - host: 192.0.2.10
//	    version: 2c
//	    system_oids:
//	      cpu_zyxel: 1.3.6.1.4.1.890.1.15.3.2.4.0
package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/portwatch/portwatch/models"
)

// Hard-coded fallbacks applied after file-level defaults.
const (
	defaultPort          = 161
	defaultCommunity     = "public"
	defaultVersion       = "2c"
	defaultTimeoutMillis = 3000
	defaultRetries       = 1
	defaultPollInterval  = 30
	minPollInterval      = 3
	defaultWalkMaxRows   = 256
)

// Load reads the devices YAML file at path and returns the fully resolved
// device list. Errors from individual device entries are accumulated and
// returned together so that operators see all problems at once.
func Load(path string, logger *slog.Logger) ([]DeviceConfig, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var raw rawFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if len(raw.Devices) == 0 {
		return nil, fmt.Errorf("config %s: no devices defined", path)
	}

	var (
		devices []DeviceConfig
		errs    []string
	)
	for i, entry := range raw.Devices {
		dev, err := resolve(entry, raw.Defaults)
		if err != nil {
			errs = append(errs, fmt.Sprintf("device[%d]: %v", i, err))
			continue
		}
		devices = append(devices, dev)
		logger.Debug("config: device loaded",
			"host", dev.Host,
			"version", dev.Version,
			"interval_s", dev.PollIntervalSeconds,
		)
	}

	if len(errs) > 0 {
		return devices, fmt.Errorf("config %s: %d invalid device entries: %v", path, len(errs), errs)
	}
	return devices, nil
}

// resolve merges one raw entry with file defaults and hard-coded fallbacks.
func resolve(entry rawDeviceEntry, defs rawDefaults) (DeviceConfig, error) {
	if entry.Host == "" {
		return DeviceConfig{}, fmt.Errorf("missing host")
	}

	dev := DeviceConfig{
		Host:                entry.Host,
		Port:                firstInt(entry.Port, defs.Port, defaultPort),
		Community:           firstString(entry.Community, defs.Community, defaultCommunity),
		Version:             firstString(entry.Version, defs.Version, defaultVersion),
		TimeoutMillis:       firstInt(entry.TimeoutMillis, defs.TimeoutMillis, defaultTimeoutMillis),
		Retries:             firstInt(entry.Retries, defs.Retries, defaultRetries),
		PollIntervalSeconds: firstInt(entry.PollIntervalSeconds, defs.PollIntervalSeconds, defaultPollInterval),
		WalkMaxRows:         firstInt(entry.WalkMaxRows, defs.WalkMaxRows, defaultWalkMaxRows),
		Ports:               entry.Ports,
	}

	switch dev.Version {
	case "1", "2c":
	default:
		return DeviceConfig{}, fmt.Errorf("unsupported SNMP version %q (expected 1|2c)", dev.Version)
	}

	// Enforce the polling floor rather than reject: an interval below the
	// floor is an operator slip, not a fatal config.
	if dev.PollIntervalSeconds < minPollInterval {
		dev.PollIntervalSeconds = minPollInterval
	}

	if len(dev.Ports) == 0 {
		dev.Ports = identityPorts(models.DefaultPortCount)
	}

	dev.PortOIDs = resolvePortOIDs(entry.PortOIDs, defs.PortOIDs)
	dev.SystemOIDs = resolveSystemOIDs(entry.SystemOIDs, defs.SystemOIDs)
	return dev, nil
}

// resolvePortOIDs layers device overrides on file defaults on the standard
// IF-MIB table set. The override maps use explicit presence: a key set to ""
// disables that field even though a default exists.
func resolvePortOIDs(device, file map[string]string) models.PortOIDs {
	o := models.DefaultPortOIDs()
	apply := func(m map[string]string) {
		if m == nil {
			return
		}
		if v, ok := m["rx"]; ok {
			o.RX = v
		}
		if v, ok := m["tx"]; ok {
			o.TX = v
		}
		if v, ok := m["status"]; ok {
			o.Status = v
		}
		if v, ok := m["speed"]; ok {
			o.Speed = v
		}
		if v, ok := m["high_speed"]; ok {
			o.HighSpeed = v
		}
		if v, ok := m["name"]; ok {
			o.Name = v
		}
		if v, ok := m["vlan"]; ok {
			o.VLAN = v
		}
		if v, ok := m["poe_power"]; ok {
			o.PoEPower = v
		}
		if v, ok := m["poe_status"]; ok {
			o.PoEStatus = v
		}
	}
	apply(file)
	apply(device)
	return o
}

func resolveSystemOIDs(device, file map[string]string) models.SystemOIDs {
	o := models.DefaultSystemOIDs()
	apply := func(m map[string]string) {
		if m == nil {
			return
		}
		if v, ok := m["cpu"]; ok {
			o.CPU = v
		}
		if v, ok := m["cpu_zyxel"]; ok {
			o.CPUZyxel = v
		}
		if v, ok := m["memory"]; ok {
			o.Memory = v
		}
		if v, ok := m["memory_zyxel"]; ok {
			o.MemoryZyxel = v
		}
		if v, ok := m["hostname"]; ok {
			o.Hostname = v
		}
		if v, ok := m["uptime"]; ok {
			o.Uptime = v
		}
		if v, ok := m["firmware"]; ok {
			o.Firmware = v
		}
		if v, ok := m["poe_total"]; ok {
			o.PoETotal = v
		}
		if v, ok := m["custom"]; ok {
			o.Custom = v
		}
	}
	apply(file)
	apply(device)
	return o
}

func identityPorts(n int) []int {
	ports := make([]int, n)
	for i := range ports {
		ports[i] = i + 1
	}
	return ports
}

func firstInt(vals ...int) int {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// noopWriter discards log output.
type noopWriter struct{}

func (noopWriter) Write(b []byte) (int, error) { return len(b), nil }
