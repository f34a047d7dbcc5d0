package snapshot

import (
	"strconv"
	"strings"

	"github.com/portwatch/portwatch/pkg/portwatch/poller"
)

// ─────────────────────────────────────────────────────────────────────────────
// Table parsing — walk rows → ifIndex-keyed maps
// ─────────────────────────────────────────────────────────────────────────────

// ParseStringTable converts walk rows into a map keyed by the trailing
// hardware index of each OID. Rows whose OID does not end in a bare integer
// are dropped individually; one bad row never aborts the table.
func ParseStringTable(rows []poller.Row) map[int]string {
	out := make(map[int]string, len(rows))
	for _, row := range rows {
		idx, ok := poller.TrailingIndex(row.OID)
		if !ok {
			continue
		}
		out[idx] = row.Value
	}
	return out
}

// ParseUintTable is ParseStringTable for counter tables: rows whose value is
// not a non-negative integer are dropped along with index-less rows.
func ParseUintTable(rows []poller.Row) map[int]uint64 {
	out := make(map[int]uint64, len(rows))
	for _, row := range rows {
		idx, ok := poller.TrailingIndex(row.OID)
		if !ok {
			continue
		}
		v, err := strconv.ParseUint(strings.TrimSpace(row.Value), 10, 64)
		if err != nil {
			continue
		}
		out[idx] = v
	}
	return out
}

// ParseIntTable is the signed-integer variant used for status, speed and vlan
// tables.
func ParseIntTable(rows []poller.Row) map[int]int64 {
	out := make(map[int]int64, len(rows))
	for _, row := range rows {
		idx, ok := poller.TrailingIndex(row.OID)
		if !ok {
			continue
		}
		v, err := strconv.ParseInt(strings.TrimSpace(row.Value), 10, 64)
		if err != nil {
			continue
		}
		out[idx] = v
	}
	return out
}
