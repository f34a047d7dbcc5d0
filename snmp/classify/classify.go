// Package classify turns raw interface-table rows into the stable logical
// port map used by the snapshot coordinator. It is a pure function over the
// supplied rows: identical input always yields an identical entry list, and
// no network I/O happens here — the caller supplies walks it already has.
package classify

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/portwatch/portwatch/models"
)

// Input carries the table walks the classifier consumes. Descriptions and
// Types are keyed by hardware ifIndex (trailing OID component). Speeds
// (bit/s, legacy 32-bit field) and HighSpeeds (Mbit/s) are optional; when
// both answer for a port the high-resolution field wins.
type Input struct {
	Descriptions map[int]string
	Types        map[int]string
	Speeds       map[int]string
	HighSpeeds   map[int]string
	SysDescr     string
}

// Classify walks the description rows in ascending ifIndex order and assigns
// dense logical port numbers 1..N to every row that survives the virtual
// denylist and matches the physical allowlist. Numbers are never reused
// within a session; an empty Descriptions map yields an empty result.
func Classify(in Input) []models.PortEntry {
	indexes := make([]int, 0, len(in.Descriptions))
	for idx := range in.Descriptions {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	manufacturer := ExtractManufacturer(in.SysDescr)

	var entries []models.PortEntry
	logical := 1
	for _, ifIndex := range indexes {
		descrClean := strings.TrimSpace(in.Descriptions[ifIndex])
		descrLower := strings.ToLower(descrClean)
		if descrClean == "" {
			continue
		}

		if isVirtualInterface(descrLower) {
			continue
		}
		if !isPhysicalInterface(descrLower, descrClean, ifIndex) {
			continue
		}

		ifType := parseIfType(in.Types[ifIndex])
		isFiber, method := detectFiber(ifType, descrLower)

		entries = append(entries, models.PortEntry{
			Logical:         logical,
			IfIndex:         ifIndex,
			Name:            portName(descrClean, descrLower, logical),
			Descr:           descrClean,
			IsFiber:         isFiber,
			IsCopper:        !isFiber,
			DetectionMethod: method,
			SpeedMbps:       portSpeedMbps(in.Speeds[ifIndex], in.HighSpeeds[ifIndex]),
			Manufacturer:    manufacturer,
		})
		logical++
	}
	return entries
}

// ─────────────────────────────────────────────────────────────────────────────
// Field helpers
// ─────────────────────────────────────────────────────────────────────────────

var parenCodeRE = regexp.MustCompile(`\((\d+)\)`)

// parseIfType resolves an interface hardware-type value, tolerating both the
// bare integer ("6") and label encodings ("ethernetCsmacd(6)"). Unknown or
// empty values map to 0.
func parseIfType(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if strings.Contains(raw, "(") {
		if m := parenCodeRE.FindStringSubmatch(raw); m != nil {
			return atoiOrZero(m[1])
		}
		return 0
	}
	return atoiOrZero(raw)
}

// portSpeedMbps prefers the high-resolution Mbit/s field over the legacy
// 32-bit bit/s field.
func portSpeedMbps(speedRaw, highRaw string) int {
	if v, err := strconv.Atoi(strings.TrimSpace(highRaw)); err == nil && v > 0 {
		return v
	}
	if v, err := strconv.ParseInt(strings.TrimSpace(speedRaw), 10, 64); err == nil && v > 0 {
		return int(v / 1_000_000)
	}
	return 0
}

var (
	slotPortRE    = regexp.MustCompile(`(?i)port:\s*(\d+)`)
	trailingNumRE = regexp.MustCompile(`(\d+)$`)
)

// portName derives a short display name using a fixed priority chain:
// "Slot: X Port: Y" notation, pure numeric description, Cisco interface-name
// trailing number, descriptions that already contain "port", common short
// interface prefixes, and finally "Port <logical>".
func portName(descrClean, descrLower string, logical int) string {
	if strings.Contains(descrLower, "slot:") && strings.Contains(descrLower, "port:") {
		if m := slotPortRE.FindStringSubmatch(descrLower); m != nil {
			return "Port " + m[1]
		}
	}

	if isDigits(descrClean) {
		return "Port " + descrClean
	}

	if strings.Contains(descrLower, "gigabitethernet") {
		if m := trailingNumRE.FindStringSubmatch(descrLower); m != nil {
			return "Port " + m[1]
		}
		return descrClean
	}

	if strings.Contains(descrLower, "port ") {
		return descrClean
	}

	for _, prefix := range []string{"eth", "ge.", "swp", "xe."} {
		if strings.HasPrefix(descrLower, prefix) {
			return descrClean
		}
	}

	return "Port " + strconv.Itoa(logical)
}

// genericDescrWords never identify a manufacturer even when they lead
// sysDescr.
var genericDescrWords = map[string]bool{
	"version":  true,
	"software": true,
	"hardware": true,
	"release":  true,
	"build":    true,
}

// ExtractManufacturer returns the first token of the device description
// ("H3C S3100-26C, Software Version..." → "H3C"), or "Unknown" when the
// description is empty or starts with a generic word.
func ExtractManufacturer(sysDescr string) string {
	sysDescr = strings.TrimSpace(sysDescr)
	if sysDescr == "" || sysDescr == "Unknown" {
		return "Unknown"
	}
	first := strings.Fields(sysDescr)[0]
	if genericDescrWords[strings.ToLower(first)] {
		return "Unknown"
	}
	return strings.TrimSuffix(first, ",")
}

// ─────────────────────────────────────────────────────────────────────────────
// Small helpers shared with rules.go
// ─────────────────────────────────────────────────────────────────────────────

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func atoiOrZero(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
