package poller

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gosnmp/gosnmp"
)

// ─────────────────────────────────────────────────────────────────────────────
// PDU value → canonical string
// ─────────────────────────────────────────────────────────────────────────────

// isAbsentType returns true when the PDU type signals "no such value" rather
// than an actual value. The transport reports these as field absence, never as
// an error.
func isAbsentType(t gosnmp.Asn1BER) bool {
	switch t {
	case gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.EndOfMibView, gosnmp.Null:
		return true
	default:
		return false
	}
}

// valueString converts a gosnmp PDU value to its canonical string form. The
// classifier and coordinator parse numeric fields back out of this form; the
// round-trip keeps the transport free of any field semantics.
func valueString(pdu gosnmp.SnmpPDU) string {
	switch pdu.Type {
	case gosnmp.OctetString:
		if b, ok := pdu.Value.([]byte); ok {
			return strings.TrimRight(string(b), "\x00")
		}
	case gosnmp.ObjectIdentifier, gosnmp.IPAddress:
		if s, ok := pdu.Value.(string); ok {
			return strings.TrimPrefix(s, ".")
		}
	case gosnmp.Integer, gosnmp.Counter32, gosnmp.Gauge32,
		gosnmp.TimeTicks, gosnmp.Counter64, gosnmp.Uinteger32:
		return gosnmp.ToBigInt(pdu.Value).String()
	}

	switch v := pdu.Value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// TrailingIndex extracts the local table index from a full OID: the integer
// after the final dot. ok is false when the tail is not a bare integer.
func TrailingIndex(oid string) (int, bool) {
	i := strings.LastIndexByte(oid, '.')
	if i < 0 || i == len(oid)-1 {
		return 0, false
	}
	n, err := strconv.Atoi(oid[i+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}
