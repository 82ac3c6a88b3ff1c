package serve

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/sig-0/vesmonitor/cmd/env"
	"github.com/sig-0/vesmonitor/server/config"
)

// serveCfg wraps the serve configuration
type serveCfg struct {
	config *config.Config

	configPath  string
	listen      string
	interval    int64
	noHistory   bool
	notifyToken string
}

// NewServeCmd creates the serve subcommand
func NewServeCmd() *ffcli.Command {
	cfg := &serveCfg{
		config: config.DefaultConfig(),
	}

	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfg.registerFlags(fs)

	cmd := &ffcli.Command{
		Name:       "serve",
		ShortUsage: "serve <subcommand> [flags]",
		LongHelp:   "Serves the vesmonitor backend",
		FlagSet:    fs,
		Exec: func(_ context.Context, _ []string) error {
			return flag.ErrHelp
		},
		Options: []ff.Option{
			// Allow using ENV variables
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}

	cmd.Subcommands = []*ffcli.Command{
		newServeSQLCmd(cfg),
		newServeRedisCmd(cfg),
		newServeFileCmd(cfg),
		newServeMemoryCmd(cfg),
	}

	return cmd
}

func (c *serveCfg) registerFlags(fs *flag.FlagSet) {
	fs.StringVar(
		&c.listen,
		"listen",
		"",
		"the IP:PORT URL for the server, overrides the config",
	)

	fs.StringVar(
		&c.configPath,
		"config",
		"",
		"the path to the server TOML configuration, if any",
	)

	fs.Int64Var(
		&c.interval,
		"interval",
		0,
		"the refresh interval in seconds, overrides the config",
	)

	fs.BoolVar(
		&c.noHistory,
		"no-history",
		false,
		"disables recording the rate history",
	)
}

// setup loads the environment and the configuration, and creates the logger
func (c *serveCfg) setup() (*slog.Logger, error) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// Load .env
	if err := godotenv.Load(); err != nil {
		logger.Warn("unable to load .env file")
	}

	// Read the server configuration, if any
	if c.configPath != "" {
		serverCfg, err := config.Read(c.configPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read server config, %w", err)
		}

		c.config = serverCfg
	}

	// Apply the flag overrides
	if c.listen != "" {
		c.config.ListenAddress = c.listen
	}

	if c.interval != 0 {
		c.config.Monitor.Interval = c.interval
	}

	if err := config.ValidateConfig(c.config); err != nil {
		return nil, fmt.Errorf("invalid configuration, %w", err)
	}

	c.notifyToken = os.Getenv(env.Prefix + env.TelegramTokenSuffix)

	return logger, nil
}
