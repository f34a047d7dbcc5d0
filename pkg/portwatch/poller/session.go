// Package poller implements the SNMP transport for portwatch. It converts
// device configuration into live gosnmp sessions, manages a per-device
// connection pool, and exposes the three operations the rest of the system
// is built on: scalar Get, table Walk, and concurrent BulkGet.
//
// The transport knows nothing about device semantics: it returns typed scalar
// results or ordered OID/value rows and leaves all interpretation to the
// classifier and the snapshot coordinator.
package poller

import (
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/portwatch/portwatch/pkg/portwatch/config"
)

// ─────────────────────────────────────────────────────────────────────────────
// Session factory — DeviceConfig → *gosnmp.GoSNMP
// ─────────────────────────────────────────────────────────────────────────────

// NewSession creates and connects a gosnmp session for the given device
// configuration. Only the v1 and v2c dialects are supported; the dialect is
// fixed per device, never negotiated. The caller is responsible for closing
// the session when it is no longer needed.
func NewSession(cfg config.DeviceConfig) (*gosnmp.GoSNMP, error) {
	g := &gosnmp.GoSNMP{
		Target:    cfg.Host,
		Port:      uint16(cfg.Port),
		Community: cfg.Community,
		Timeout:   time.Duration(cfg.TimeoutMillis) * time.Millisecond,
		Retries:   cfg.Retries,
		MaxOids:   60,
	}

	switch cfg.Version {
	case "1":
		g.Version = gosnmp.Version1
	case "2c":
		g.Version = gosnmp.Version2c
	default:
		return nil, fmt.Errorf("unsupported SNMP version %q", cfg.Version)
	}

	if err := g.Connect(); err != nil {
		return nil, fmt.Errorf("snmp connect %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return g, nil
}
