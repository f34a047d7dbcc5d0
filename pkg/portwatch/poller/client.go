package poller

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gosnmp/gosnmp"

	"github.com/portwatch/portwatch/pkg/portwatch/config"
)

// ─────────────────────────────────────────────────────────────────────────────
// Row — one table-scan result
// ─────────────────────────────────────────────────────────────────────────────

// Row is a single (OID, value) pair returned by a table walk. OID is the full
// numeric address without a leading dot; Value is the canonical string form of
// the PDU value (see valueString).
type Row struct {
	OID   string
	Value string
}

// ─────────────────────────────────────────────────────────────────────────────
// Client
// ─────────────────────────────────────────────────────────────────────────────

// Client executes SNMP operations against configured devices using pooled
// sessions. It holds no per-device state and is safe for concurrent use;
// every call is logically independent.
type Client struct {
	pool   *ConnectionPool
	logger *slog.Logger
}

// NewClient creates a transport client backed by pool.
func NewClient(pool *ConnectionPool, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	return &Client{pool: pool, logger: logger}
}

// Get fetches a single scalar value.
//
// Return contract:
//   - value, true, nil   — the device answered with a real value.
//   - "", false, nil     — the field is absent: the device reported
//     NoSuchName / NoSuchObject / NoSuchInstance, or the OID was empty
//     (not configured — no request is sent).
//   - "", false, err     — transport failure: timeout after the configured
//     retries, unreachable host, or a malformed response.
func (c *Client) Get(ctx context.Context, dev config.DeviceConfig, oid string) (string, bool, error) {
	if oid == "" {
		return "", false, nil
	}

	conn, err := c.pool.Get(ctx, dev)
	if err != nil {
		return "", false, fmt.Errorf("session %s: %w", dev.Host, err)
	}

	pkt, err := conn.Get([]string{normalizeOID(oid)})
	if err != nil {
		c.pool.Discard(dev.Host, conn)
		return "", false, fmt.Errorf("snmp get %s %s: %w", dev.Host, oid, err)
	}
	c.pool.Put(dev.Host, conn)

	// v1 agents answer missing scalars with error-status noSuchName.
	if pkt.Error == gosnmp.NoSuchName {
		return "", false, nil
	}
	if pkt.Error != gosnmp.NoError {
		return "", false, fmt.Errorf("snmp get %s %s: error status %v", dev.Host, oid, pkt.Error)
	}
	if len(pkt.Variables) == 0 {
		return "", false, fmt.Errorf("snmp get %s %s: empty response", dev.Host, oid)
	}

	pdu := pkt.Variables[0]
	if isAbsentType(pdu.Type) {
		return "", false, nil
	}
	return valueString(pdu), true, nil
}

// Walk scans the table under baseOID using repeated GetNext requests and
// returns the rows in the order the agent produced them.
//
// The walk terminates when the returned OID no longer has baseOID as a prefix,
// when the agent signals end-of-table (EndOfMibView, or noSuchName on v1), or
// when the per-device row ceiling is reached. A walk on an empty baseOID
// returns nil without contacting the device — configuration marks the field
// unused.
func (c *Client) Walk(ctx context.Context, dev config.DeviceConfig, baseOID string) ([]Row, error) {
	if baseOID == "" {
		return nil, nil
	}

	maxRows := dev.WalkMaxRows
	if maxRows <= 0 {
		maxRows = 256
	}

	conn, err := c.pool.Get(ctx, dev)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", dev.Host, err)
	}

	base := normalizeOID(baseOID)
	rows, err := c.walkLoop(ctx, conn, base, maxRows)
	if err != nil {
		c.pool.Discard(dev.Host, conn)
		return nil, fmt.Errorf("snmp walk %s %s: %w", dev.Host, baseOID, err)
	}
	c.pool.Put(dev.Host, conn)

	c.logger.Debug("walk completed", "device", dev.Host, "base", baseOID, "rows", len(rows))
	return rows, nil
}

func (c *Client) walkLoop(ctx context.Context, conn *gosnmp.GoSNMP, base string, maxRows int) ([]Row, error) {
	var rows []Row
	cursor := base
	prefix := strings.TrimPrefix(base, ".") + "."

	for len(rows) < maxRows {
		if err := ctx.Err(); err != nil {
			return rows, err
		}

		pkt, err := conn.GetNext([]string{cursor})
		if err != nil {
			return rows, err
		}
		if pkt.Error == gosnmp.NoSuchName {
			// v1 end-of-table signal.
			return rows, nil
		}
		if pkt.Error != gosnmp.NoError {
			return rows, fmt.Errorf("error status %v", pkt.Error)
		}
		if len(pkt.Variables) == 0 {
			return rows, nil
		}

		pdu := pkt.Variables[0]
		if pdu.Type == gosnmp.EndOfMibView {
			return rows, nil
		}

		oid := strings.TrimPrefix(pdu.Name, ".")
		if !strings.HasPrefix(oid, prefix) {
			// Walked past the requested sub-tree.
			return rows, nil
		}
		if oid == strings.TrimPrefix(cursor, ".") {
			// Agent returned the same OID again; stop rather than loop forever.
			return rows, nil
		}

		if !isAbsentType(pdu.Type) {
			rows = append(rows, Row{OID: oid, Value: valueString(pdu)})
		}
		cursor = pdu.Name
	}
	return rows, nil
}

// BulkGet fans out independent Gets for every OID concurrently, each with its
// own timeout and retry budget. Absent fields are simply missing from the
// result map; the failure of one address never blocks or fails the others.
//
// A non-nil error is returned only when every attempted call failed at the
// transport level — the signal the coordinator uses to fail the whole cycle
// instead of publishing a snapshot with silently missing scalars.
func (c *Client) BulkGet(ctx context.Context, dev config.DeviceConfig, oids []string) (map[string]string, error) {
	results := make(map[string]string, len(oids))
	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		attempted int
		failed    int
		firstErr  error
	)

	for _, oid := range oids {
		if oid == "" {
			continue
		}
		attempted++
		wg.Add(1)
		go func(oid string) {
			defer wg.Done()
			val, ok, err := c.Get(ctx, dev, oid)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			if ok {
				results[oid] = val
			}
		}(oid)
	}
	wg.Wait()

	if attempted > 0 && failed == attempted {
		return results, fmt.Errorf("bulk get %s: all %d requests failed: %w", dev.Host, attempted, firstErr)
	}
	return results, nil
}

// normalizeOID gives gosnmp the leading-dot form it expects.
func normalizeOID(oid string) string {
	if strings.HasPrefix(oid, ".") {
		return oid
	}
	return "." + oid
}
