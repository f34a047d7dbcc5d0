// Command portwatch polls managed switches over SNMP and emits one JSON
// snapshot line per device per polling cycle.
//
// Usage:
//
//	portwatch -config devices.yml [flags]
//
// It runs until interrupted (SIGINT / SIGTERM).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/portwatch/portwatch/pkg/portwatch/app"
	"github.com/portwatch/portwatch/pkg/portwatch/poller"
	filetransport "github.com/portwatch/portwatch/transport/file"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "portwatch: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ── Flags ────────────────────────────────────────────────────────────
	var (
		cfgPath  string
		logLevel string
		logFmt   string
		pretty   bool

		outPath    string
		maxBytes   int64
		maxBackups int

		poolMaxIdle int
		poolIdleSec int
	)

	flag.StringVar(&cfgPath, "config", "devices.yml", "Devices YAML file")
	flag.StringVar(&logLevel, "log.level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&logFmt, "log.fmt", "json", "Log format: json, text")
	flag.BoolVar(&pretty, "format.pretty", false, "Pretty-print JSON output")
	flag.StringVar(&outPath, "output.file", "", "Snapshot output file (default: stdout)")
	flag.Int64Var(&maxBytes, "output.max.bytes", 0, "Max output file size before rotation (0=disabled)")
	flag.IntVar(&maxBackups, "output.max.backups", 5, "Max rotated backup files to keep (0=unlimited)")
	flag.IntVar(&poolMaxIdle, "snmp.pool.max.idle", 2, "Max idle connections per device")
	flag.IntVar(&poolIdleSec, "snmp.pool.idle.timeout", 30, "Idle connection timeout in seconds")
	flag.Parse()

	// ── Logger ───────────────────────────────────────────────────────────
	logger, err := buildLogger(logLevel, logFmt)
	if err != nil {
		return err
	}

	// ── Output sink ──────────────────────────────────────────────────────
	cfg := app.Config{
		ConfigPath:  cfgPath,
		PrettyPrint: pretty,
		PoolOptions: poller.PoolOptions{
			MaxIdlePerDevice: poolMaxIdle,
			IdleTimeout:      time.Duration(poolIdleSec) * time.Second,
		},
	}
	if outPath != "" {
		rf, err := filetransport.NewRotatingFile(filetransport.RotateConfig{
			FilePath:   outPath,
			MaxBytes:   maxBytes,
			MaxBackups: maxBackups,
		}, logger)
		if err != nil {
			return err
		}
		defer rf.Close()
		cfg.TransportWriter = rf
	}

	application := app.New(cfg, logger)

	// ── Start ────────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	logger.Info("portwatch: running — press Ctrl-C to stop")

	// Block until signal.
	<-ctx.Done()
	logger.Info("portwatch: received shutdown signal")

	application.Stop()
	return nil
}

func buildLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q (expected debug|info|warn|error)", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler

	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q (expected json|text)", format)
	}

	return slog.New(handler), nil
}
