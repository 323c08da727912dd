// Package checkpoint persists run progress to the local filesystem so an
// interrupted crawl can resume without re-fetching completed brokers.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/wiratama/idx-broker-crawler/internal/broker"
)

// Config captures the parameters for the file-backed store.
type Config struct {
	// Dir is the directory holding the checkpoint file.
	Dir string
	// File is the checkpoint file name within Dir.
	File string
	// Freshness bounds how old a checkpoint may be before it is ignored.
	Freshness time.Duration
}

// Store implements broker.CheckpointStore on a local JSON file with
// atomic-replace write semantics.
type Store struct {
	path      string
	freshness time.Duration
	clock     broker.Clock
	logger    *zap.Logger
}

// New creates the store and its directory.
func New(cfg Config, clock broker.Clock, logger *zap.Logger) (*Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("checkpoint dir is required")
	}
	if cfg.File == "" {
		cfg.File = ".crawler_checkpoint.json"
	}
	if cfg.Freshness <= 0 {
		cfg.Freshness = 2 * time.Hour
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}
	return &Store{
		path:      filepath.Join(cfg.Dir, cfg.File),
		freshness: cfg.Freshness,
		clock:     clock,
		logger:    logger,
	}, nil
}

// Load returns the stored checkpoint, or nil when none exists, the file is
// unreadable, or the checkpoint is older than the freshness window. A bad
// checkpoint is never fatal; a fresh run beats crashing on resume state.
func (s *Store) Load() (*broker.Checkpoint, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		s.logger.Warn("checkpoint unreadable, starting fresh", zap.Error(err))
		return nil, nil
	}

	var cp broker.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		s.logger.Warn("checkpoint corrupt, starting fresh", zap.Error(err))
		return nil, nil
	}
	if cp.StartedAt.IsZero() {
		s.logger.Warn("checkpoint missing start time, starting fresh")
		return nil, nil
	}

	age := s.clock.Now().Sub(cp.StartedAt)
	if age > s.freshness {
		s.logger.Info("checkpoint too old, starting fresh", zap.Duration("age", age))
		return nil, nil
	}

	s.logger.Info("found checkpoint",
		zap.Time("started_at", cp.StartedAt),
		zap.String("last_broker", cp.LastBrokerCode),
		zap.Int("records", len(cp.PartialRecords)),
	)
	return &cp, nil
}

// Save atomically overwrites the durable state. It is called after every
// broker, so a crash loses at most one broker's worth of progress.
func (s *Store) Save(cp broker.Checkpoint) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}

// Clear removes the durable state after a fully successful run.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove checkpoint: %w", err)
	}
	return nil
}
