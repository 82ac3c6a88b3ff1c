package serve

import (
	"context"
	"flag"
	"fmt"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/sig-0/vesmonitor/cmd/env"
	"github.com/sig-0/vesmonitor/storage/file"
	"github.com/sig-0/vesmonitor/storage/memory"
)

// DefaultDataDir is the default directory of the file datastore
const DefaultDataDir = ".vesmonitor"

type serveFileCfg struct {
	rootCfg *serveCfg

	dir string
}

// newServeFileCmd creates the serve file command
func newServeFileCmd(rootCfg *serveCfg) *ffcli.Command {
	cfg := &serveFileCfg{
		rootCfg: rootCfg,
	}

	fs := flag.NewFlagSet("file", flag.ExitOnError)
	cfg.rootCfg.registerFlags(fs)

	fs.StringVar(
		&cfg.dir,
		"data-dir",
		DefaultDataDir,
		"the directory the snapshot is persisted in",
	)

	return &ffcli.Command{
		Name:       "file",
		ShortUsage: "serve file [flags]",
		LongHelp:   "Serves the vesmonitor backend, persisting the snapshot to local files",
		FlagSet:    fs,
		Exec:       cfg.exec,
		Options: []ff.Option{
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

func (c *serveFileCfg) exec(ctx context.Context, _ []string) error {
	logger, err := c.rootCfg.setup()
	if err != nil {
		return err
	}

	snapshots, err := file.NewStorage(c.dir)
	if err != nil {
		return fmt.Errorf("unable to open file store: %w", err)
	}

	logger.Info("using file datastore", "dir", c.dir)

	// The history is kept for the process lifetime only
	return c.rootCfg.run(ctx, logger, snapshots, memory.NewStorage())
}
