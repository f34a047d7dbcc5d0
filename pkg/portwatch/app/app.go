// Package app wires the portwatch pipeline together and manages its
// lifecycle.
//
// Data path:
//
//	Scheduler (one loop per device) → Coordinator → Snapshot →
//	Formatter → Transport (JSON lines)
//
// The snapshot stores additionally hold the current snapshot per device for
// pull-style consumers.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	jsonformat "github.com/portwatch/portwatch/format/json"
	"github.com/portwatch/portwatch/models"
	"github.com/portwatch/portwatch/pkg/portwatch/config"
	"github.com/portwatch/portwatch/pkg/portwatch/poller"
	"github.com/portwatch/portwatch/pkg/portwatch/scheduler"
	"github.com/portwatch/portwatch/producer/snapshot"
	filetransport "github.com/portwatch/portwatch/transport/file"
)

// Config holds the top-level settings for the application. Zero-value fields
// fall back to documented defaults.
type Config struct {
	// ConfigPath is the devices YAML file (required).
	ConfigPath string

	// PrettyPrint enables indented JSON output.
	PrettyPrint bool

	// TransportWriter is the io.Writer for the snapshot sink. nil = stdout.
	TransportWriter io.Writer

	// PoolOptions configures the SNMP connection pool.
	PoolOptions poller.PoolOptions
}

// App orchestrates the polling pipeline. Create one with New, start it with
// Start, and stop it by cancelling the context and calling Stop.
type App struct {
	cfg    Config
	logger *slog.Logger

	pool      *poller.ConnectionPool
	client    *poller.Client
	sched     *scheduler.Scheduler
	formatter *jsonformat.JSONFormatter
	transport filetransport.Transport

	// stores maps device host → snapshot store.
	stores map[string]*snapshot.Store

	cancel context.CancelFunc
}

// New constructs an App. It does not start anything — call Start for that.
func New(cfg Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	return &App{
		cfg:    cfg,
		logger: logger,
		stores: make(map[string]*snapshot.Store),
	}
}

// Start loads configuration, builds the pipeline, and launches the polling
// loops. It returns immediately; polling continues until ctx is cancelled.
func (a *App) Start(ctx context.Context) error {
	devices, err := config.Load(a.cfg.ConfigPath, a.logger)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, a.cancel = context.WithCancel(ctx)

	a.pool = poller.NewConnectionPool(a.cfg.PoolOptions, a.logger)
	a.client = poller.NewClient(a.pool, a.logger)
	a.formatter = jsonformat.New(jsonformat.Config{PrettyPrint: a.cfg.PrettyPrint}, a.logger)
	a.transport = filetransport.New(filetransport.Config{Writer: a.cfg.TransportWriter}, a.logger)

	a.sched = scheduler.New(a.emit, a.logger)
	for _, dev := range devices {
		store := snapshot.NewStore()
		a.stores[dev.Host] = store
		coord := snapshot.NewCoordinator(dev, a.client, store, a.logger)
		a.sched.Register(dev.Host, time.Duration(dev.PollIntervalSeconds)*time.Second, coord)
	}

	a.sched.Start(ctx)
	a.logger.Info("portwatch: started", "devices", len(devices))
	return nil
}

// Stop cancels the polling loops and waits for them to drain, then closes
// the pool and the output transport.
func (a *App) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.sched != nil {
		a.sched.Wait()
	}
	if a.pool != nil {
		_ = a.pool.Close()
	}
	if a.transport != nil {
		_ = a.transport.Close()
	}
	a.logger.Info("portwatch: stopped")
}

// Store returns the snapshot store for a device host, for pull-style
// consumers. ok=false for unknown hosts.
func (a *App) Store(host string) (*snapshot.Store, bool) {
	s, ok := a.stores[host]
	return s, ok
}

// emit serialises one published snapshot and hands it to the transport.
// Failures are logged, never propagated — output problems must not disturb
// the polling loops.
func (a *App) emit(snap models.Snapshot) {
	data, err := a.formatter.Format(&snap)
	if err != nil {
		a.logger.Error("format snapshot", "host", snap.Host, "error", err.Error())
		return
	}
	if err := a.transport.Send(data); err != nil {
		a.logger.Error("send snapshot", "host", snap.Host, "error", err.Error())
	}
}

// noopWriter discards log output.
type noopWriter struct{}

func (noopWriter) Write(b []byte) (int, error) { return len(b), nil }
