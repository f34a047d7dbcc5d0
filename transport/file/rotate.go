// Package file — rotate.go provides size-based rotation for the snapshot
// log file.
//
// When MaxBytes have been written to the active file it is renamed with a
// numeric suffix (snapshots.jsonl → snapshots.jsonl.1) and a fresh file is
// opened. Up to MaxBackups rotated files are kept; older ones are removed.
//
// RotatingFile satisfies io.Writer and io.Closer so it can be used directly
// as the Writer field of Config.
package file

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// RotateConfig controls rotation behaviour.
type RotateConfig struct {
	// FilePath is the active file name (required).
	FilePath string

	// MaxBytes triggers rotation when the active file exceeds this size.
	// Zero disables rotation (the file grows without bound).
	MaxBytes int64

	// MaxBackups is the number of rotated files to keep.
	// Zero means keep all rotated files.
	MaxBackups int
}

// RotatingFile is an io.WriteCloser that performs size-based rotation.
// It is safe for concurrent use.
type RotatingFile struct {
	mu     sync.Mutex
	cfg    RotateConfig
	file   *os.File
	size   int64
	logger *slog.Logger
}

// NewRotatingFile opens (or creates) the file at cfg.FilePath and returns a
// RotatingFile writer. The caller must call Close when finished.
func NewRotatingFile(cfg RotateConfig, logger *slog.Logger) (*RotatingFile, error) {
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("transport/file: rotate: FilePath is required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}

	dir := filepath.Dir(cfg.FilePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("transport/file: rotate: mkdir %s: %w", dir, err)
	}

	rf := &RotatingFile{
		cfg:    cfg,
		logger: logger,
	}
	if err := rf.openFile(); err != nil {
		return nil, err
	}
	return rf, nil
}

// Write implements io.Writer. It rotates the file when MaxBytes is exceeded.
func (rf *RotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.cfg.MaxBytes > 0 && rf.size+int64(len(p)) > rf.cfg.MaxBytes {
		if err := rf.rotate(); err != nil {
			rf.logger.Error("transport/file: rotate failed", "error", err.Error())
			// Keep writing to the current file rather than losing records.
		}
	}

	n, err := rf.file.Write(p)
	rf.size += int64(n)
	return n, err
}

// Close closes the underlying file.
func (rf *RotatingFile) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.file != nil {
		return rf.file.Close()
	}
	return nil
}

// openFile opens (or creates) the active file and records its current size.
func (rf *RotatingFile) openFile() error {
	f, err := os.OpenFile(rf.cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("transport/file: rotate: open %s: %w", rf.cfg.FilePath, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("transport/file: rotate: stat %s: %w", rf.cfg.FilePath, err)
	}
	rf.file = f
	rf.size = info.Size()
	return nil
}

// rotate renames the active file with numbered suffixes and opens a new one:
//
//	snapshots.jsonl   → snapshots.jsonl.1
//	snapshots.jsonl.1 → snapshots.jsonl.2
//	snapshots.jsonl.N → (removed when N ≥ MaxBackups)
func (rf *RotatingFile) rotate() error {
	if rf.file != nil {
		if err := rf.file.Close(); err != nil {
			rf.logger.Warn("transport/file: rotate: close error", "error", err.Error())
		}
		rf.file = nil
	}

	base := rf.cfg.FilePath

	limit := rf.cfg.MaxBackups
	if limit > 0 {
		// Drop the backup that would fall off the end.
		_ = os.Remove(fmt.Sprintf("%s.%d", base, limit))
	} else {
		limit = rf.findMaxBackup()
	}

	// Shift .N-1 → .N, … , .1 → .2, then the active file → .1.
	for i := limit; i >= 1; i-- {
		_ = os.Rename(fmt.Sprintf("%s.%d", base, i), fmt.Sprintf("%s.%d", base, i+1))
	}
	if err := os.Rename(base, base+".1"); err != nil && !os.IsNotExist(err) {
		rf.logger.Warn("transport/file: rotate: rename error", "error", err.Error())
	}

	rf.logger.Info("transport/file: rotated", "file", base)

	rf.size = 0
	return rf.openFile()
}

// findMaxBackup returns the highest numbered backup that currently exists.
func (rf *RotatingFile) findMaxBackup() int {
	max := 0
	for i := 1; ; i++ {
		if _, err := os.Stat(fmt.Sprintf("%s.%d", rf.cfg.FilePath, i)); os.IsNotExist(err) {
			break
		}
		max = i
	}
	return max
}
