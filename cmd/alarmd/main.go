package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ogulcanaydogan/Financial-Alarm/internal/config"
	"github.com/ogulcanaydogan/Financial-Alarm/internal/server"
	"github.com/ogulcanaydogan/Financial-Alarm/pkg/categorizer"
	"github.com/ogulcanaydogan/Financial-Alarm/pkg/engine"
	"github.com/ogulcanaydogan/Financial-Alarm/pkg/storage"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgFile := pflag.String("config", "", "config file (default: ~/.falarm/config.yaml)")
	pflag.Parse()

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := cfg.Logging.NewLogger(os.Stderr)

	cat, err := categorizer.FromConfig(cfg.Categories.File)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}

	store, err := storage.NewSQLite(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer store.Close()

	eng := engine.New(store, cfg.Alerts.Notifiers(), logger,
		engine.WithPassTimeout(cfg.Engine.Timeout()),
		engine.WithParallelism(cfg.Engine.Parallelism),
		engine.WithCategorizer(cat),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	readTimeout, writeTimeout := cfg.Server.Timeouts()
	return server.NewServer(eng, store, logger).ListenAndServe(ctx, cfg.Server.Listen, readTimeout, writeTimeout)
}
