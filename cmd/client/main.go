package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/iudanet/shopkeeper/internal/bus"
	"github.com/iudanet/shopkeeper/internal/client/api"
	"github.com/iudanet/shopkeeper/internal/client/auth"
	"github.com/iudanet/shopkeeper/internal/client/backup"
	"github.com/iudanet/shopkeeper/internal/client/cli"
	"github.com/iudanet/shopkeeper/internal/client/iocli"
	"github.com/iudanet/shopkeeper/internal/client/notify"
	"github.com/iudanet/shopkeeper/internal/client/orders"
	"github.com/iudanet/shopkeeper/internal/client/shipping"
	"github.com/iudanet/shopkeeper/internal/client/storage/boltdb"
	shopsync "github.com/iudanet/shopkeeper/internal/client/sync"
	"github.com/iudanet/shopkeeper/internal/config"
	"github.com/iudanet/shopkeeper/internal/logging"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	root := cli.NewRootCommand(openApp)
	root.Version = fmt.Sprintf("%s (built %s, commit %s)", Version, BuildDate, GitCommit)

	err := root.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}

// openApp собирает все компоненты клиента по конфигурации
func openApp(ctx context.Context, opts *cli.RootOptions) (*cli.App, func(), error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}

	logger, logCloser, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}

	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("Failed to release resource", "error", err)
			}
		}
		_ = logCloser.Close()
	}

	local, err := boltdb.New(ctx, cfg.Local.Path, boltdb.WithQuota(cfg.Local.QuotaBytes))
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to open local cache: %w", err)
	}
	closers = append(closers, local.Close)

	app := &cli.App{
		Outbox:   local,
		Meta:     local,
		Registry: prometheus.NewRegistry(),
		IO:       iocli.NewStdio(),
		Logger:   logger,
	}

	// интерфейсы остаются nil, если хранилище отключено
	var backupStore shopsync.BackupStore
	if cfg.Backup.Enabled() {
		store, err := backup.New(ctx, cfg.Backup, logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, store.Close)
		backupStore = store
	}

	var remoteStore shopsync.RemoteStore
	if cfg.Remote.Enabled {
		client := api.NewClient(cfg.Remote.URL, api.WithTimeout(cfg.Remote.Timeout))
		app.Auth = auth.NewService(client, local, cfg.Remote.URL, logger)
		app.Catalog = client

		token, err := app.Auth.Token(ctx)
		switch {
		case err == nil:
			client.SetToken(token)
		case errors.Is(err, auth.ErrNotAuthenticated), errors.Is(err, auth.ErrSessionExpired):
			logger.Debug("Catalog writes will be rejected until login", "reason", err)
		default:
			cleanup()
			return nil, nil, err
		}
		remoteStore = client
	}

	engineCfg := shopsync.DefaultConfig()
	engineCfg.RemoteTimeout = cfg.Remote.Timeout
	engineCfg.FanoutTimeout = cfg.Sync.FanoutTimeout
	engineCfg.GraceWindow = cfg.Sync.GraceWindow
	engineCfg.RemoteParallel = cfg.Sync.RemoteParallel

	app.Engine = shopsync.NewEngine(local, backupStore, remoteStore, bus.New(logger), logger,
		shopsync.WithConfig(engineCfg),
		shopsync.WithMetadata(local),
		shopsync.WithMetrics(shopsync.NewMetrics(app.Registry)),
	)

	if backupStore != nil {
		app.Subscriptions = shopsync.NewSubscriptionManager(app.Engine, backupStore, logger)
	}

	var notifier orders.Notifier
	if webhook := notify.NewWebhook(cfg.Notify); webhook != nil {
		notifier = webhook
	}
	app.Orders = orders.NewService(app.Engine, local, local, notifier, logger)

	dispatcherCfg := orders.DefaultDispatcherConfig()
	dispatcherCfg.PollInterval = cfg.Outbox.PollInterval
	dispatcherCfg.MaxBackoff = cfg.Outbox.MaxBackoff
	if cfg.Shipping.MaxAttempts > 0 {
		dispatcherCfg.MaxAttempts = cfg.Shipping.MaxAttempts
	}
	if cfg.Shipping.InitialBackoff > 0 {
		dispatcherCfg.InitialBackoff = cfg.Shipping.InitialBackoff
	}

	provider := shipping.Retrying(shipping.NewHTTPProvider(cfg.Shipping), shipping.DefaultRetryPolicy())
	app.Dispatcher = orders.NewCourierDispatcher(app.Engine, local, provider, dispatcherCfg, logger)

	logger.Debug("Client opened",
		slog.String("version", Version),
		slog.String("local", cfg.Local.Path),
		slog.Bool("backup", backupStore != nil),
		slog.Bool("remote", remoteStore != nil),
	)

	return app, func() {
		app.Engine.Wait()
		app.Orders.Wait()
		cleanup()
	}, nil
}
