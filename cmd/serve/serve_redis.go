package serve

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/sig-0/vesmonitor/cmd/env"
	"github.com/sig-0/vesmonitor/storage/memory"
	"github.com/sig-0/vesmonitor/storage/redis"
)

type serveRedisCfg struct {
	rootCfg *serveCfg

	prefix string
}

// newServeRedisCmd creates the serve redis command
func newServeRedisCmd(rootCfg *serveCfg) *ffcli.Command {
	cfg := &serveRedisCfg{
		rootCfg: rootCfg,
	}

	fs := flag.NewFlagSet("redis", flag.ExitOnError)
	cfg.rootCfg.registerFlags(fs)

	fs.StringVar(
		&cfg.prefix,
		"key-prefix",
		redis.DefaultPrefix,
		"the prefix of the snapshot keys",
	)

	return &ffcli.Command{
		Name:       "redis",
		ShortUsage: "serve redis [flags]",
		LongHelp:   "Serves the vesmonitor backend, caching the snapshot in Redis",
		FlagSet:    fs,
		Exec:       cfg.exec,
		Options: []ff.Option{
			// Allow using ENV variables
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

func (c *serveRedisCfg) exec(ctx context.Context, _ []string) error {
	logger, err := c.rootCfg.setup()
	if err != nil {
		return err
	}

	addr := os.Getenv(env.Prefix + env.RedisURLSuffix)
	if addr == "" {
		return fmt.Errorf("missing %s", env.Prefix+env.RedisURLSuffix)
	}

	client, err := redis.Connect(ctx, addr)
	if err != nil {
		return err
	}

	defer func() {
		if err := client.Close(); err != nil {
			logger.Error(
				"unable to gracefully close Redis connection",
				"err", err,
			)
		}
	}()

	logger.Info("Redis ping success")

	// The history is kept for the process lifetime only
	return c.rootCfg.run(
		ctx,
		logger,
		redis.NewStorage(client, c.prefix),
		memory.NewStorage(),
	)
}
