// Package file implements the snapshot output sink: formatted snapshots are
// written as JSON lines to any io.Writer — typically os.Stdout or a
// RotatingFile.
//
// Pipeline position:
//
//	format/json → transport/file
package file

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Transport is the contract for all snapshot sinks. Send delivers one
// pre-formatted record (JSON bytes from format/json). Close flushes and
// releases resources.
type Transport interface {
	Send(data []byte) error
	Close() error
}

// Config controls WriterTransport behaviour.
type Config struct {
	// Writer is the destination. nil defaults to os.Stdout.
	Writer io.Writer

	// Newline appended after each record. Default "\n".
	Newline string
}

// WriterTransport implements Transport by writing each record to an io.Writer
// followed by a configurable newline. It is safe for concurrent use.
type WriterTransport struct {
	mu     sync.Mutex
	w      io.Writer
	nl     []byte
	logger *slog.Logger
}

// New constructs a WriterTransport.
func New(cfg Config, logger *slog.Logger) *WriterTransport {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}
	nl := cfg.Newline
	if nl == "" {
		nl = "\n"
	}
	return &WriterTransport{
		w:      w,
		nl:     []byte(nl),
		logger: logger,
	}
}

// Send writes one record plus newline. The write is atomic with respect to
// other Send calls.
func (t *WriterTransport) Send(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.w.Write(data); err != nil {
		return fmt.Errorf("transport/file: write: %w", err)
	}
	if _, err := t.w.Write(t.nl); err != nil {
		return fmt.Errorf("transport/file: write newline: %w", err)
	}
	return nil
}

// Close closes the underlying writer when it is an io.Closer (and not stdout).
func (t *WriterTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.w.(io.Closer); ok && t.w != os.Stdout {
		return c.Close()
	}
	return nil
}

// noopWriter discards log output.
type noopWriter struct{}

func (noopWriter) Write(b []byte) (int, error) { return len(b), nil }
