// Package main wires together the daily broker crawl binary.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/wiratama/idx-broker-crawler/internal/broker"
	"github.com/wiratama/idx-broker-crawler/internal/cache"
	"github.com/wiratama/idx-broker-crawler/internal/calendar"
	"github.com/wiratama/idx-broker-crawler/internal/checkpoint"
	"github.com/wiratama/idx-broker-crawler/internal/clock/system"
	"github.com/wiratama/idx-broker-crawler/internal/config"
	"github.com/wiratama/idx-broker-crawler/internal/executor"
	"github.com/wiratama/idx-broker-crawler/internal/fetcher"
	"github.com/wiratama/idx-broker-crawler/internal/id/uuid"
	"github.com/wiratama/idx-broker-crawler/internal/logging"
	"github.com/wiratama/idx-broker-crawler/internal/orchestrator"
	"github.com/wiratama/idx-broker-crawler/internal/runner"
	"github.com/wiratama/idx-broker-crawler/internal/session"
	"github.com/wiratama/idx-broker-crawler/internal/storage/local"
	"github.com/wiratama/idx-broker-crawler/internal/storage/postgres"
	"github.com/wiratama/idx-broker-crawler/internal/telemetry"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	resume := flag.Bool("resume", true, "Resume from a fresh checkpoint when one exists")
	fresh := flag.Bool("fresh", false, "Discard any existing checkpoint and start over")
	force := flag.Bool("force", false, "Run even on non-trading days or after a successful run")
	brokerCode := flag.String("broker", "", "Crawl a single broker code instead of the full list")
	duration := flag.String("duration", "", "Override the duration filter sent upstream")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	status := run(ctx, cfg, runFlags{
		resume:     *resume && !*fresh,
		fresh:      *fresh,
		force:      *force,
		brokerCode: strings.ToUpper(strings.TrimSpace(*brokerCode)),
		duration:   *duration,
	}, logger)
	stop()
	if syncErr := logger.Sync(); syncErr != nil {
		fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
	}
	os.Exit(status.ExitCode())
}

type runFlags struct {
	resume     bool
	fresh      bool
	force      bool
	brokerCode string
	duration   string
}

func run(ctx context.Context, cfg config.Config, flags runFlags, logger *zap.Logger) broker.RunStatus {
	clock := system.New()
	idGen := uuid.NewUUIDGenerator()

	sess, err := session.NewManager(session.Config{
		BaseURL:    cfg.Target.BaseURL,
		LoginPath:  cfg.Target.LoginPath,
		AppPath:    cfg.Target.AppPath,
		LayoutPath: cfg.Target.LayoutPath,
		DepsPath:   cfg.Target.DepsPath,
		Username:   cfg.Target.Username,
		Password:   cfg.Target.Password,
		UserAgent:  cfg.Target.UserAgent,
		Timeout:    cfg.RequestTimeout(),
	}, clock, logger)
	if err != nil {
		logger.Error("session init failed", zap.Error(err))
		return broker.RunStatusError
	}

	exec := executor.New(executor.Config{
		MaxRetries:  cfg.HTTP.MaxRetries,
		BackoffBase: cfg.BackoffBase(),
		BackoffMax:  cfg.BackoffMax(),
	}, logger)

	checkpoints, err := checkpoint.New(checkpoint.Config{
		Dir:       cfg.Checkpoint.Dir,
		File:      cfg.Checkpoint.File,
		Freshness: cfg.CheckpointFreshness(),
	}, clock, logger)
	if err != nil {
		logger.Error("checkpoint store init failed", zap.Error(err))
		return broker.RunStatusError
	}
	if flags.fresh {
		if err := checkpoints.Clear(); err != nil {
			logger.Warn("clearing checkpoint failed", zap.Error(err))
		}
	}

	store, err := postgres.NewTradeStore(ctx, postgres.TradeStoreConfig{
		DSN:      cfg.DB.DSN,
		Table:    cfg.DB.Table,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	}, clock, logger)
	if err != nil {
		logger.Error("database init failed", zap.Error(err))
		return broker.RunStatusError
	}
	defer store.Close()

	archive, err := local.New(local.Config{BaseDir: cfg.Output.Dir}, clock, logger)
	if err != nil {
		logger.Error("run archive init failed", zap.Error(err))
		return broker.RunStatusError
	}

	if cfg.Telemetry.Enabled {
		srv := telemetry.NewServer(cfg.Telemetry.Addr, store, logger)
		go func() {
			if err := srv.Run(ctx); err != nil {
				logger.Warn("telemetry server stopped", zap.Error(err))
			}
		}()
	}

	durationValue := cfg.Crawler.DurationValue
	if flags.duration != "" {
		durationValue = flags.duration
	}

	fetch := fetcher.New(sess, exec, clock, cfg.Target.CallbackPath, logger)
	crawler := orchestrator.New(sess, fetch, checkpoints, clock, idGen, orchestrator.Config{
		RateLimitInterval: cfg.RateLimitInterval(),
		SessionMaxAge:     cfg.SessionMaxAge(),
		DurationValue:     durationValue,
	}, logger)

	opts := orchestrator.Options{Resume: flags.resume}
	if flags.brokerCode != "" {
		b, ok := broker.FindBroker(flags.brokerCode)
		if !ok {
			logger.Error("unknown broker code", zap.String("code", flags.brokerCode))
			return broker.RunStatusError
		}
		opts.Brokers = []broker.Broker{b}
		opts.Resume = false
	}

	pipeline := runner.New(
		sess,
		crawler,
		store,
		calendar.New(),
		cache.New(cfg.Cache.HookURL, logger),
		archive,
		clock,
		runner.Config{
			SuccessThreshold: cfg.Crawler.SuccessThreshold,
			Force:            flags.force || flags.brokerCode != "",
		},
		logger,
	)

	result, err := pipeline.Run(ctx, opts)
	if err != nil {
		logger.Error("run failed", zap.Error(err))
	}
	logger.Info("run result",
		zap.String("date", result.Date),
		zap.String("status", string(result.Status)),
		zap.String("message", result.Message),
		zap.Int("rows", result.RowsProcessed))
	return result.Status
}
