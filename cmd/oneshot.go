package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/sig-0/vesmonitor/cmd/serve"
	"github.com/sig-0/vesmonitor/cmd/sources"
	"github.com/sig-0/vesmonitor/ingest"
	"github.com/sig-0/vesmonitor/server/config"
	"github.com/sig-0/vesmonitor/storage/file"
)

// oneShotCfg wraps the configuration shared by the one-shot commands
type oneShotCfg struct {
	configPath string
	dataDir    string
	verbose    bool
}

func (c *oneShotCfg) registerFlags(fs *flag.FlagSet) {
	fs.StringVar(
		&c.configPath,
		"config",
		"",
		"the path to the TOML configuration, if any",
	)

	fs.StringVar(
		&c.dataDir,
		"data-dir",
		serve.DefaultDataDir,
		"the directory the snapshot is persisted in",
	)

	fs.BoolVar(
		&c.verbose,
		"verbose",
		false,
		"logs the source outcomes to stderr",
	)
}

// monitor creates a monitor over the file datastore,
// restored to the last persisted snapshot
func (c *oneShotCfg) monitor(ctx context.Context) (*ingest.Monitor, error) {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	// Load .env
	_ = godotenv.Load() //nolint:errcheck // optional

	cfg := config.DefaultConfig()

	if c.configPath != "" {
		var err error

		if cfg, err = config.Read(c.configPath); err != nil {
			return nil, fmt.Errorf("unable to read config, %w", err)
		}
	}

	if err := config.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration, %w", err)
	}

	snapshots, err := file.NewStorage(c.dataDir)
	if err != nil {
		return nil, fmt.Errorf("unable to open file store: %w", err)
	}

	m := ingest.New(
		sources.New(cfg.Sources),
		snapshots,
		ingest.WithLogger(logger),
		ingest.WithInterval(time.Duration(cfg.Monitor.Interval)*time.Second),
		ingest.WithSnapshotKey(cfg.Monitor.SnapshotKey),
	)

	if err := m.Load(ctx); err != nil {
		return nil, err
	}

	return m, nil
}
