// Package json serialises published snapshots for the output sink. It is the
// primary (and currently only) serialisation format.
//
// Pipeline position:
//
//	producer/snapshot → format/json → transport/file
//
// All json struct tags are declared on the model types themselves, so
// serialisation is a single json.Marshal call with optional indentation.
package json

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/portwatch/portwatch/models"
)

// Formatter serialises a models.Snapshot into a byte slice. Alternative
// formats (line protocol, Prometheus exposition …) can be added by
// implementing this interface without touching any other package.
type Formatter interface {
	Format(snap *models.Snapshot) ([]byte, error)
}

// Config controls JSONFormatter behaviour.
type Config struct {
	// PrettyPrint emits indented, human-readable JSON when true.
	PrettyPrint bool

	// Indent is the indent string used when PrettyPrint=true.
	// Defaults to two spaces when empty and PrettyPrint=true.
	Indent string
}

// JSONFormatter implements Formatter using encoding/json. It is safe for
// concurrent use; all fields are immutable after construction.
type JSONFormatter struct {
	cfg    Config
	logger *slog.Logger
}

// New constructs a JSONFormatter.
func New(cfg Config, logger *slog.Logger) *JSONFormatter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	if cfg.PrettyPrint && cfg.Indent == "" {
		cfg.Indent = "  "
	}
	return &JSONFormatter{cfg: cfg, logger: logger}
}

// Format implements Formatter.
func (f *JSONFormatter) Format(snap *models.Snapshot) ([]byte, error) {
	if snap == nil {
		return nil, fmt.Errorf("format/json: nil snapshot")
	}

	var (
		data []byte
		err  error
	)
	if f.cfg.PrettyPrint {
		data, err = json.MarshalIndent(snap, "", f.cfg.Indent)
	} else {
		data, err = json.Marshal(snap)
	}
	if err != nil {
		return nil, fmt.Errorf("format/json: marshal snapshot for %s: %w", snap.Host, err)
	}
	return data, nil
}

// noopWriter discards log output.
type noopWriter struct{}

func (noopWriter) Write(b []byte) (int, error) { return len(b), nil }
