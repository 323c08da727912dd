// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/wiratama/idx-broker-crawler/internal/broker"
)

var (
	validTableName  = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
	validBrokerCode = regexp.MustCompile(`^[A-Za-z]{2,4}$`)
	validSymbol     = regexp.MustCompile(`^[A-Za-z0-9-]{1,10}$`)
)

// TradeStoreConfig controls the Postgres connection pool.
type TradeStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Ping(ctx context.Context) error
	Close()
}

// TradeStore implements broker.TradeStore on Postgres.
type TradeStore struct {
	pool   pool
	table  string
	clock  broker.Clock
	logger *zap.Logger
}

// NewTradeStore creates a Postgres-backed TradeStore using the provided config.
func NewTradeStore(
	ctx context.Context,
	cfg TradeStoreConfig,
	clock broker.Clock,
	logger *zap.Logger,
) (*TradeStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "broker_trades"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &TradeStore{pool: p, table: table, clock: clock, logger: logger}, nil
}

// NewTradeStoreWithPool constructs a store from an existing pool (primarily
// for testing).
func NewTradeStoreWithPool(p pool, table string, clock broker.Clock, logger *zap.Logger) (*TradeStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "broker_trades"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &TradeStore{pool: p, table: table, clock: clock, logger: logger}, nil
}

// Close releases the underlying pool resources.
func (s *TradeStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// InsertTradeBatch upserts trade records keyed by broker+symbol+date with
// last-write-wins on numeric fields. Invalid records are skipped, not fatal.
// Returns the number of rows written.
func (s *TradeStore) InsertTradeBatch(ctx context.Context, records []broker.TradeRecord) (int, error) {
	valid := make([]broker.TradeRecord, 0, len(records))
	for _, r := range records {
		if err := validateRecord(r); err != nil {
			s.logger.Warn("skipping invalid trade record",
				zap.String("broker", r.BrokerCode),
				zap.String("symbol", r.Symbol),
				zap.Error(err),
			)
			continue
		}
		valid = append(valid, r)
	}
	if len(valid) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(`
INSERT INTO %s
	(broker_code, symbol, trade_date, netval, bval, sval, bavg, savg, crawl_timestamp)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (broker_code, symbol, trade_date)
DO UPDATE SET
	netval = EXCLUDED.netval,
	bval = EXCLUDED.bval,
	sval = EXCLUDED.sval,
	bavg = EXCLUDED.bavg,
	savg = EXCLUDED.savg,
	crawl_timestamp = EXCLUDED.crawl_timestamp`, s.table)

	batch := &pgx.Batch{}
	for _, r := range valid {
		batch.Queue(query,
			r.BrokerCode,
			r.Symbol,
			r.TradeDate,
			r.NetValue,
			r.BuyValue,
			r.SellValue,
			r.BuyAvgPrice,
			r.SellAvgPrice,
			r.CrawledAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer func() {
		if err := br.Close(); err != nil {
			s.logger.Warn("close trade batch", zap.Error(err))
		}
	}()
	for range valid {
		if _, err := br.Exec(); err != nil {
			return 0, fmt.Errorf("insert trade batch: %w", err)
		}
	}
	return len(valid), nil
}

// UpdateSymbols records first/last sighting of each symbol in the batch.
func (s *TradeStore) UpdateSymbols(ctx context.Context, records []broker.TradeRecord, tradeDate string) error {
	seen := make(map[string]struct{})
	batch := &pgx.Batch{}
	for _, r := range records {
		if r.Symbol == "" || len(r.Symbol) > 10 {
			continue
		}
		if _, ok := seen[r.Symbol]; ok {
			continue
		}
		seen[r.Symbol] = struct{}{}
		batch.Queue(`
INSERT INTO symbols (symbol, first_seen, last_seen, is_active)
VALUES ($1, $2, $2, true)
ON CONFLICT (symbol)
DO UPDATE SET
	last_seen = GREATEST(symbols.last_seen, EXCLUDED.last_seen),
	is_active = true`, r.Symbol, tradeDate)
	}
	if batch.Len() == 0 {
		return nil
	}

	br := s.pool.SendBatch(ctx, batch)
	defer func() {
		if err := br.Close(); err != nil {
			s.logger.Warn("close symbols batch", zap.Error(err))
		}
	}()
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("update symbols: %w", err)
		}
	}
	return nil
}

// BeginRun opens a crawl log entry and returns its id.
func (s *TradeStore) BeginRun(ctx context.Context, tradeDate string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
INSERT INTO crawl_log (crawl_date, crawl_start, status)
VALUES ($1, $2, 'running')
RETURNING id`, tradeDate, s.clock.Now()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// CompleteRun closes out a crawl log entry with its terminal status.
func (s *TradeStore) CompleteRun(
	ctx context.Context,
	runID int64,
	status broker.RunStatus,
	metrics broker.RunMetrics,
) error {
	var errMsg *string
	if metrics.ErrorMessage != "" {
		errMsg = &metrics.ErrorMessage
	}
	_, err := s.pool.Exec(ctx, `
UPDATE crawl_log
SET status = $1,
	crawl_end = $2,
	total_rows = $3,
	successful_brokers = $4,
	failed_brokers = $5,
	error_message = COALESCE($6, error_message)
WHERE id = $7`,
		string(status),
		s.clock.Now(),
		metrics.TotalRows,
		metrics.SuccessfulBrokers,
		metrics.FailedBrokers,
		errMsg,
		runID,
	)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	return nil
}

// HasSuccessfulRun reports whether a successful crawl already exists for the
// given date.
func (s *TradeStore) HasSuccessfulRun(ctx context.Context, tradeDate string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1 FROM crawl_log WHERE crawl_date = $1 AND status = 'success'
)`, tradeDate).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check successful run: %w", err)
	}
	return exists, nil
}

// Health probes the connection and reports the last successful crawl.
func (s *TradeStore) Health(ctx context.Context) broker.HealthStatus {
	if err := s.pool.Ping(ctx); err != nil {
		return broker.HealthStatus{Connected: false, Status: "unhealthy"}
	}

	status := broker.HealthStatus{Connected: true, Status: "healthy"}
	var (
		date        string
		completedAt time.Time
		totalRows   int
	)
	err := s.pool.QueryRow(ctx, `
SELECT crawl_date::text, crawl_end, total_rows
FROM crawl_log
WHERE status = 'success'
ORDER BY crawl_end DESC
LIMIT 1`).Scan(&date, &completedAt, &totalRows)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return status
	case err != nil:
		s.logger.Warn("last crawl lookup failed", zap.Error(err))
		return status
	}
	status.LastRun = &broker.LastRun{
		Date:        date,
		CompletedAt: completedAt,
		TotalRows:   totalRows,
	}
	return status
}

// validateRecord enforces the storage contract before the upsert: broker
// codes are 2-4 letters, symbols 1-10 alphanumeric/dash, and buy/sell values
// non-negative (netval may be negative).
func validateRecord(r broker.TradeRecord) error {
	if !validBrokerCode.MatchString(r.BrokerCode) {
		return fmt.Errorf("invalid broker code %q", r.BrokerCode)
	}
	if !validSymbol.MatchString(r.Symbol) {
		return fmt.Errorf("invalid symbol %q", r.Symbol)
	}
	if r.TradeDate == "" {
		return fmt.Errorf("missing trade date")
	}
	if r.BuyValue < 0 {
		return fmt.Errorf("negative bval %f", r.BuyValue)
	}
	if r.SellValue < 0 {
		return fmt.Errorf("negative sval %f", r.SellValue)
	}
	return nil
}
