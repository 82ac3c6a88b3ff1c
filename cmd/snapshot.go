package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/sig-0/vesmonitor/cmd/env"
	"github.com/sig-0/vesmonitor/convert"
	"github.com/sig-0/vesmonitor/server"
)

type snapshotCfg struct {
	oneShotCfg
}

// newSnapshotCmd creates the snapshot command
func newSnapshotCmd() *ffcli.Command {
	cfg := &snapshotCfg{}

	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	cfg.registerFlags(fs)

	return &ffcli.Command{
		Name:       "snapshot",
		ShortUsage: "snapshot [flags]",
		LongHelp: "Fetches the rates once, reconciles them against the persisted " +
			"snapshot and prints the result as JSON",
		FlagSet: fs,
		Exec:    cfg.exec,
		Options: []ff.Option{
			// Allow using ENV variables
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

func (c *snapshotCfg) exec(ctx context.Context, _ []string) error {
	m, err := c.monitor(ctx)
	if err != nil {
		return err
	}

	status, err := m.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("unable to refresh rates: %w", err)
	}

	snap := m.Snapshot()

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	return encoder.Encode(&server.SnapshotResponse{
		Snapshot: snap,
		Status:   status,
		Offline:  m.Offline(),
		Gap:      convert.Gap(snap),
	})
}
