// Package orchestrator runs the sequential crawl loop over the broker list,
// keeping the session fresh, pacing requests, and checkpointing after every
// broker so the run is safely resumable.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/wiratama/idx-broker-crawler/internal/broker"
	"github.com/wiratama/idx-broker-crawler/internal/telemetry"
)

// Session keeps the upstream conversation valid ahead of each fetch.
type Session interface {
	EnsureValid(ctx context.Context, threshold time.Duration) error
}

// Fetcher retrieves all trade rows for one broker.
type Fetcher interface {
	FetchBroker(ctx context.Context, b broker.Broker, durationValue string) ([]broker.TradeRecord, error)
}

// Config controls the crawl loop.
type Config struct {
	RateLimitInterval time.Duration
	SessionMaxAge     time.Duration
	DurationValue     string
	// Brokers is the full crawl list. Nil means the static exchange list.
	Brokers []broker.Broker
}

// Options selects what a single run covers.
type Options struct {
	// Resume seeds progress from a fresh checkpoint when one exists.
	Resume bool
	// Brokers is an ad-hoc override (single-broker CLI mode). Checkpoint
	// indices only make sense against the configured list, so an override
	// run leaves any existing checkpoint untouched.
	Brokers []broker.Broker
}

// Result is the terminal output of one crawl pass.
type Result struct {
	Summary broker.RunSummary
	Records []broker.TradeRecord
}

// Crawler iterates the broker list strictly sequentially. A per-broker
// failure is recorded and iteration continues; only context cancellation
// stops the loop early.
type Crawler struct {
	session     Session
	fetcher     Fetcher
	checkpoints broker.CheckpointStore
	clock       broker.Clock
	ids         broker.IDGenerator
	limiter     *rate.Limiter
	cfg         Config
	logger      *zap.Logger
}

// New constructs a Crawler.
func New(
	sess Session,
	fetch Fetcher,
	checkpoints broker.CheckpointStore,
	clock broker.Clock,
	ids broker.IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Crawler {
	limit := rate.Inf
	if cfg.RateLimitInterval > 0 {
		limit = rate.Every(cfg.RateLimitInterval)
	}
	limiter := rate.NewLimiter(limit, 1)
	// Drain the initial burst token so the first Wait already paces.
	limiter.Allow()

	if cfg.DurationValue == "" {
		cfg.DurationValue = "Today"
	}
	if cfg.Brokers == nil {
		cfg.Brokers = broker.Brokers
	}
	return &Crawler{
		session:     sess,
		fetcher:     fetch,
		checkpoints: checkpoints,
		clock:       clock,
		ids:         ids,
		limiter:     limiter,
		cfg:         cfg,
		logger:      logger,
	}
}

// Run executes one crawl pass and returns the aggregated result. The
// checkpoint is cleared only on full completion; cancellation leaves it in
// place so the next run resumes.
func (c *Crawler) Run(ctx context.Context, opts Options) (Result, error) {
	brokers := c.cfg.Brokers
	checkpointing := opts.Brokers == nil
	if !checkpointing {
		brokers = opts.Brokers
	}

	runID, err := c.ids.NewID()
	if err != nil {
		return Result{}, fmt.Errorf("generate run id: %w", err)
	}

	startedAt := c.clock.Now()
	startIndex := 0
	resumed := false
	var (
		records   []broker.TradeRecord
		completed []string
		failed    []string
	)

	if opts.Resume && checkpointing {
		cp, err := c.checkpoints.Load()
		if err != nil {
			c.logger.Warn("checkpoint load failed, starting fresh", zap.Error(err))
		} else if cp != nil {
			startIndex = cp.LastBrokerIndex + 1
			completed = cp.CompletedBrokers
			failed = cp.FailedBrokers
			records = cp.PartialRecords
			startedAt = cp.StartedAt
			if cp.RunID != "" {
				runID = cp.RunID
			}
			resumed = true
			c.logger.Info("resuming crawl",
				zap.Int("next_index", startIndex),
				zap.Int("records_collected", len(records)),
			)
		}
	}

	if startIndex == 0 {
		c.logger.Info("starting crawl", zap.Int("brokers", len(brokers)))
	} else {
		c.logger.Info("continuing crawl", zap.Int("remaining", len(brokers)-startIndex))
	}

	for i := startIndex; i < len(brokers); i++ {
		if ctx.Err() != nil {
			return c.result(runID, startedAt, brokers, completed, failed, records, resumed), ctx.Err()
		}
		b := brokers[i]

		// A refresh failure here is not terminal: the executor's
		// auth-retry path is the backstop on the next request.
		if err := c.session.EnsureValid(ctx, c.cfg.SessionMaxAge); err != nil {
			c.logger.Warn("session refresh failed, attempting fetch anyway",
				zap.String("broker", b.Code),
				zap.Error(err),
			)
		}

		c.logger.Info("processing broker",
			zap.Int("position", i+1),
			zap.Int("total", len(brokers)),
			zap.String("broker", b.Code),
		)

		rows, err := c.fetcher.FetchBroker(ctx, b, c.cfg.DurationValue)
		switch {
		case err != nil:
			c.logger.Error("broker fetch failed", zap.String("broker", b.Code), zap.Error(err))
			failed = append(failed, b.Code)
			telemetry.BrokerCrawled("failed")
		case len(rows) == 0:
			c.logger.Warn("no data for broker", zap.String("broker", b.Code))
			failed = append(failed, b.Code)
			telemetry.BrokerCrawled("failed")
		default:
			records = append(records, rows...)
			completed = append(completed, b.Code)
			telemetry.BrokerCrawled("success")
			telemetry.RecordsParsed(len(rows))
		}

		if checkpointing {
			cp := broker.Checkpoint{
				RunID:            runID,
				StartedAt:        startedAt,
				LastBrokerIndex:  i,
				LastBrokerCode:   b.Code,
				CompletedBrokers: completed,
				FailedBrokers:    failed,
				PartialRecords:   records,
			}
			if err := c.checkpoints.Save(cp); err != nil {
				c.logger.Warn("checkpoint save failed", zap.Error(err))
			}
		}

		if i < len(brokers)-1 {
			if err := c.limiter.Wait(ctx); err != nil {
				return c.result(runID, startedAt, brokers, completed, failed, records, resumed), err
			}
		}
	}

	if checkpointing {
		if err := c.checkpoints.Clear(); err != nil {
			c.logger.Warn("checkpoint clear failed", zap.Error(err))
		}
	}

	result := c.result(runID, startedAt, brokers, completed, failed, records, resumed)
	telemetry.ObserveRunDuration(result.Summary.Duration)
	c.logger.Info("crawl completed",
		zap.Duration("duration", result.Summary.Duration),
		zap.Int("successful", result.Summary.SuccessfulBrokers),
		zap.Int("failed", result.Summary.FailedBrokers),
		zap.Int("records", result.Summary.TotalRecords),
	)
	return result, nil
}

func (c *Crawler) result(
	runID string,
	startedAt time.Time,
	brokers []broker.Broker,
	completed, failed []string,
	records []broker.TradeRecord,
	resumed bool,
) Result {
	finishedAt := c.clock.Now()
	return Result{
		Summary: broker.RunSummary{
			RunID:             runID,
			StartedAt:         startedAt,
			FinishedAt:        finishedAt,
			Duration:          finishedAt.Sub(startedAt),
			TotalBrokers:      len(brokers),
			SuccessfulBrokers: len(completed),
			FailedBrokers:     len(failed),
			FailedBrokerCodes: failed,
			TotalRecords:      len(records),
			Resumed:           resumed,
		},
		Records: records,
	}
}
