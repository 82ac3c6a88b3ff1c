package serve

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	tele "gopkg.in/telebot.v3"

	"github.com/sig-0/vesmonitor/cmd/sources"
	"github.com/sig-0/vesmonitor/ingest"
	"github.com/sig-0/vesmonitor/notify"
	"github.com/sig-0/vesmonitor/server"
	"github.com/sig-0/vesmonitor/storage"
)

// run wires the monitor, the API server and the notification bot
// on top of the given storage, and runs them until interrupted
func (c *serveCfg) run(
	ctx context.Context,
	logger *slog.Logger,
	snapshots storage.Snapshots,
	history storage.History,
) error {
	cfg := c.config

	if c.noHistory {
		history = nil
	}

	opts := []ingest.Option{
		ingest.WithLogger(logger.With("service", "monitor")),
		ingest.WithInterval(time.Duration(cfg.Monitor.Interval) * time.Second),
		ingest.WithSnapshotKey(cfg.Monitor.SnapshotKey),
	}

	if history != nil {
		opts = append(opts, ingest.WithHistory(history))
	}

	// Set up the notifications, if enabled
	var bot *tele.Bot

	if cfg.Notify.Enabled {
		notifiers := notify.Multi{
			notify.NewLogNotifier(logger.With("service", "notify")),
		}

		if c.notifyToken != "" {
			var err error

			bot, err = notify.NewTelegramBot(c.notifyToken, cfg.Notify.TelegramAPIURL, false)
			if err != nil {
				return err
			}

			notifiers = append(notifiers, notify.NewTelegramNotifier(bot, cfg.Notify.TelegramChat))
		} else {
			logger.Warn("telegram token not set, notifications are only logged")
		}

		opts = append(opts, ingest.WithNotifier(notifiers))
	}

	// Create the monitor, and restore the last snapshot
	monitor := ingest.New(sources.New(cfg.Sources), snapshots, opts...)

	if err := monitor.Load(ctx); err != nil {
		return err
	}

	// Create the server instance
	s, err := server.New(
		monitor,
		history,
		server.WithLogger(logger),
		server.WithConfig(cfg),
	)
	if err != nil {
		return fmt.Errorf("unable to create server, %w", err)
	}

	runCtx, cancelFn := signal.NotifyContext(
		ctx,
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer cancelFn()

	group, gCtx := errgroup.WithContext(runCtx)

	// Start the HTTP server
	group.Go(func() error {
		return s.Serve(gCtx)
	})

	// Start the refresh service
	group.Go(func() error {
		return monitor.Start(gCtx)
	})

	// Start the bot commands
	if bot != nil {
		notify.RegisterCommands(bot, monitor)

		group.Go(func() error {
			bot.Start()

			return nil
		})

		group.Go(func() error {
			<-gCtx.Done()

			bot.Stop()

			return nil
		})
	}

	return group.Wait()
}
