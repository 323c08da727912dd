package broker

import (
	"context"
	"time"
)

// TradeStore persists crawl output and run bookkeeping.
type TradeStore interface {
	InsertTradeBatch(ctx context.Context, records []TradeRecord) (int, error)
	UpdateSymbols(ctx context.Context, records []TradeRecord, tradeDate string) error
	BeginRun(ctx context.Context, tradeDate string) (int64, error)
	CompleteRun(ctx context.Context, runID int64, status RunStatus, metrics RunMetrics) error
	HasSuccessfulRun(ctx context.Context, tradeDate string) (bool, error)
	Health(ctx context.Context) HealthStatus
}

// CheckpointStore durably records run progress between brokers.
type CheckpointStore interface {
	Load() (*Checkpoint, error)
	Save(cp Checkpoint) error
	Clear() error
}

// Calendar answers whether the exchange trades on a given day.
type Calendar interface {
	IsTradingDay(day time.Time) bool
}

// CacheInvalidator tells downstream caches to drop stale query results.
// Failures are best-effort and must never fail a run.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, tradeDate string) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
