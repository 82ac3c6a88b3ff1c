package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/sig-0/vesmonitor/cmd/env"
	"github.com/sig-0/vesmonitor/convert"
)

type convertCfg struct {
	oneShotCfg

	cash    bool
	refresh bool
}

// newConvertCmd creates the convert command
func newConvertCmd() *ffcli.Command {
	cfg := &convertCfg{}

	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	cfg.registerFlags(fs)

	fs.BoolVar(
		&cfg.cash,
		"cash",
		false,
		"applies the cash premium",
	)

	fs.BoolVar(
		&cfg.refresh,
		"refresh",
		false,
		"fetches the rates before converting",
	)

	return &ffcli.Command{
		Name:       "convert",
		ShortUsage: "convert [flags] <amount> <from> [<to>]",
		LongHelp: "Converts an amount using the persisted snapshot. " +
			"The rates are fetched first if no snapshot is persisted yet",
		FlagSet: fs,
		Exec:    cfg.exec,
		Options: []ff.Option{
			// Allow using ENV variables
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

func (c *convertCfg) exec(ctx context.Context, args []string) error {
	req, err := convert.ParseArgs(args)
	if err != nil {
		return fmt.Errorf("invalid conversion, %w", err)
	}

	req.Cash = req.Cash || c.cash

	m, err := c.monitor(ctx)
	if err != nil {
		return err
	}

	if c.refresh || !m.Snapshot().Known() {
		if _, err := m.Refresh(ctx); err != nil {
			return fmt.Errorf("unable to refresh rates: %w", err)
		}
	}

	fmt.Println(convert.Message(req, m.Convert(req)))

	return nil
}
