package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tracyhatemice/mailimport/internal/config"
	"github.com/tracyhatemice/mailimport/internal/credential"
	"github.com/tracyhatemice/mailimport/internal/host"
	"github.com/tracyhatemice/mailimport/internal/importer"
	"github.com/tracyhatemice/mailimport/internal/sink"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	dataDir := flag.String("data-dir", "", "directory for persistent data (read marks, credentials); overrides config")
	importDir := flag.String("import-dir", "", "base directory for relative importer paths; overrides config")
	once := flag.Bool("once", false, "run a single import cycle and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *importDir != "" {
		cfg.ImportDir = *importDir
	}

	logger := setupLogger(cfg.LogLevel)
	logger.Info("mailimport starting", "importers", len(cfg.Importers))

	out, closeSink, err := openSink(cfg.Sink)
	if err != nil {
		logger.Error("failed to open sink", "driver", cfg.Sink.Driver, "error", err)
		os.Exit(1)
	}
	defer closeSink()

	var secrets host.Secrets
	if cfg.Keyring.Enabled {
		store, err := credential.Open(cfg.DataDir, cfg.Keyring.FileKey)
		if err != nil {
			logger.Warn("keyring unavailable, keyring passwords will be ignored", "error", err)
		} else {
			secrets = store
		}
	}

	registry := host.NewRegistry()
	if err := registry.Register(importer.Descriptor, importer.Factory); err != nil {
		logger.Error("failed to register importer", "error", err)
		os.Exit(1)
	}

	dirty := host.NewDirtyBoard(logger)
	deps := host.Deps{
		Logger:    logger,
		Sink:      out,
		Dirty:     dirty,
		Secrets:   secrets,
		ImportDir: cfg.ImportDir,
		DataDir:   cfg.DataDir,
	}

	sched := host.NewScheduler(logger)
	var closers []io.Closer
	for _, ic := range cfg.Importers {
		imp, err := registry.Build(host.Instance{
			Name:       ic.Name,
			Print:      ic.DisplayName(),
			Type:       ic.Type,
			Properties: ic.Properties,
		}, deps)
		if err != nil {
			logger.Error("failed to create importer", "importer", ic.Name, "error", err)
			continue
		}
		if c, ok := imp.(io.Closer); ok {
			closers = append(closers, c)
		}
		sched.Add(imp, ic.CheckInterval())
	}
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				logger.Warn("failed to close importer", "error", err)
			}
		}
	}()

	if n := len(dirty.Entries()); n > 0 {
		logger.Warn("importers in dirty state", "count", n)
	}
	if sched.Len() == 0 {
		logger.Error("no importer could be created")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *once {
		sched.RunOnce(ctx)
		logger.Info("mailimport finished")
		return
	}

	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	<-ctx.Done()
	logger.Info("shutting down, waiting for importers to finish...")

	// Force exit on second signal.
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Warn("forced shutdown")
		os.Exit(1)
	}()

	<-done
	logger.Info("mailimport stopped")
}

func openSink(cfg config.Sink) (sink.Sink, func(), error) {
	switch cfg.Driver {
	case "stdout":
		return sink.NewStdout(), func() {}, nil
	case "sqlite":
		db, err := sink.NewSQLite(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported sink driver: %s", cfg.Driver)
	}
}

func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
