// Package runner is the daily pipeline around one crawl: gate on the trading
// calendar and prior runs, authenticate, orchestrate the crawl, persist the
// output and close out the crawl log with a terminal status.
package runner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wiratama/idx-broker-crawler/internal/broker"
	"github.com/wiratama/idx-broker-crawler/internal/orchestrator"
)

// Authenticator establishes the upstream session before the crawl starts.
type Authenticator interface {
	Authenticate(ctx context.Context) error
}

// Orchestrator executes one crawl pass.
type Orchestrator interface {
	Run(ctx context.Context, opts orchestrator.Options) (orchestrator.Result, error)
}

// Archiver writes the run output to local disk. Nil disables archiving.
type Archiver interface {
	Write(summary broker.RunSummary, records []broker.TradeRecord) (string, error)
}

// Config controls run gating and the success threshold.
type Config struct {
	// SuccessThreshold is the fraction of brokers that must yield data for
	// the run to count as a success (0 < threshold <= 1).
	SuccessThreshold float64
	// Force skips the trading-day and already-crawled gates.
	Force bool
}

// Runner wires the collaborators of one daily run.
type Runner struct {
	auth     Authenticator
	crawler  Orchestrator
	store    broker.TradeStore
	calendar broker.Calendar
	cache    broker.CacheInvalidator
	archive  Archiver
	clock    broker.Clock
	cfg      Config
	logger   *zap.Logger
}

// New constructs a Runner. cache and archive may be nil.
func New(
	auth Authenticator,
	crawler Orchestrator,
	store broker.TradeStore,
	calendar broker.Calendar,
	cache broker.CacheInvalidator,
	archive Archiver,
	clock broker.Clock,
	cfg Config,
	logger *zap.Logger,
) *Runner {
	if cfg.SuccessThreshold <= 0 || cfg.SuccessThreshold > 1 {
		cfg.SuccessThreshold = 0.8
	}
	return &Runner{
		auth:     auth,
		crawler:  crawler,
		store:    store,
		calendar: calendar,
		cache:    cache,
		archive:  archive,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run executes the daily pipeline for today's trade date. The returned
// RunResult always carries a terminal status; the error is non-nil only when
// the run could not produce a meaningful status at all.
func (r *Runner) Run(ctx context.Context, opts orchestrator.Options) (broker.RunResult, error) {
	now := r.clock.Now()
	tradeDate := now.Format("2006-01-02")
	result := broker.RunResult{Date: tradeDate}

	if !r.cfg.Force {
		if !r.calendar.IsTradingDay(now) {
			r.logger.Info("not a trading day, skipping", zap.String("date", tradeDate))
			result.Status = broker.RunStatusSkipped
			result.Message = "not a trading day"
			return result, nil
		}
		done, err := r.store.HasSuccessfulRun(ctx, tradeDate)
		if err != nil {
			result.Status = broker.RunStatusError
			result.Message = err.Error()
			return result, fmt.Errorf("checking prior runs: %w", err)
		}
		if done {
			r.logger.Info("already crawled successfully today, skipping",
				zap.String("date", tradeDate))
			result.Status = broker.RunStatusSkipped
			result.Message = "already crawled"
			return result, nil
		}
	}

	logID, err := r.store.BeginRun(ctx, tradeDate)
	if err != nil {
		result.Status = broker.RunStatusError
		result.Message = err.Error()
		return result, fmt.Errorf("opening crawl log: %w", err)
	}

	if err := r.auth.Authenticate(ctx); err != nil {
		r.logger.Error("authentication failed, aborting run", zap.Error(err))
		r.closeRun(ctx, logID, broker.RunStatusError, broker.RunMetrics{
			ErrorMessage: err.Error(),
		})
		result.Status = broker.RunStatusError
		result.Message = err.Error()
		return result, fmt.Errorf("authenticating: %w", err)
	}

	crawl, crawlErr := r.crawler.Run(ctx, opts)
	summary := crawl.Summary
	result.SuccessfulBrokers = summary.SuccessfulBrokers
	result.FailedBrokers = summary.FailedBrokers

	if len(crawl.Records) > 0 {
		inserted, err := r.store.InsertTradeBatch(ctx, crawl.Records)
		if err != nil {
			r.closeRun(ctx, logID, broker.RunStatusError, broker.RunMetrics{
				SuccessfulBrokers: summary.SuccessfulBrokers,
				FailedBrokers:     summary.FailedBrokers,
				ErrorMessage:      err.Error(),
			})
			result.Status = broker.RunStatusError
			result.Message = err.Error()
			return result, fmt.Errorf("persisting trades: %w", err)
		}
		result.RowsProcessed = inserted
		if err := r.store.UpdateSymbols(ctx, crawl.Records, tradeDate); err != nil {
			// Symbol upkeep is secondary; the trades are already in.
			r.logger.Warn("symbol upkeep failed", zap.Error(err))
		}
	}

	if crawlErr != nil {
		// Cancellation or another abort mid-loop. The checkpoint is still
		// on disk, so the next invocation resumes.
		r.closeRun(ctx, logID, broker.RunStatusError, broker.RunMetrics{
			TotalRows:         result.RowsProcessed,
			SuccessfulBrokers: summary.SuccessfulBrokers,
			FailedBrokers:     summary.FailedBrokers,
			ErrorMessage:      crawlErr.Error(),
		})
		result.Status = broker.RunStatusError
		result.Message = crawlErr.Error()
		return result, nil
	}

	status := broker.RunStatusPartialFailure
	if summary.TotalBrokers > 0 {
		ratio := float64(summary.SuccessfulBrokers) / float64(summary.TotalBrokers)
		if ratio >= r.cfg.SuccessThreshold {
			status = broker.RunStatusSuccess
		}
	}
	result.Status = status
	result.Message = fmt.Sprintf("%d/%d brokers crawled, %d rows",
		summary.SuccessfulBrokers, summary.TotalBrokers, result.RowsProcessed)

	var errMsg string
	if status == broker.RunStatusPartialFailure {
		errMsg = fmt.Sprintf("below success threshold: %d/%d brokers, failed: %v",
			summary.SuccessfulBrokers, summary.TotalBrokers, summary.FailedBrokerCodes)
	}
	r.closeRun(ctx, logID, status, broker.RunMetrics{
		TotalRows:         result.RowsProcessed,
		SuccessfulBrokers: summary.SuccessfulBrokers,
		FailedBrokers:     summary.FailedBrokers,
		ErrorMessage:      errMsg,
	})

	if r.archive != nil {
		if _, err := r.archive.Write(summary, crawl.Records); err != nil {
			r.logger.Warn("run archive failed", zap.Error(err))
		}
	}

	if status == broker.RunStatusSuccess && r.cache != nil {
		if err := r.cache.Invalidate(ctx, tradeDate); err != nil {
			r.logger.Warn("cache invalidation failed", zap.Error(err))
		}
	}

	r.logger.Info("run finished",
		zap.String("status", string(status)),
		zap.Int("rows", result.RowsProcessed),
		zap.Int("successful_brokers", summary.SuccessfulBrokers),
		zap.Int("failed_brokers", summary.FailedBrokers),
		zap.Duration("duration", summary.Duration))
	return result, nil
}

// closeRun records the terminal status with its own brief deadline so a dead
// caller context cannot leave the crawl log entry dangling.
func (r *Runner) closeRun(ctx context.Context, logID int64, status broker.RunStatus, metrics broker.RunMetrics) {
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}
	if err := r.store.CompleteRun(ctx, logID, status, metrics); err != nil {
		r.logger.Error("closing crawl log failed",
			zap.Int64("log_id", logID), zap.Error(err))
	}
}
