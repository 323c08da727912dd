// Package local implements a local filesystem archive for completed runs.
package local

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/wiratama/idx-broker-crawler/internal/broker"
)

// Config captures the parameters for the run archive.
type Config struct {
	// BaseDir is the directory where run archives are written.
	BaseDir string
}

// Archive writes the summary and records of each completed run to a
// timestamped JSON file, mirroring what the database received.
type Archive struct {
	baseDir string
	clock   broker.Clock
	logger  *zap.Logger
}

// archiveDocument is the on-disk layout of one run archive.
type archiveDocument struct {
	Metadata broker.RunSummary    `json:"metadata"`
	Data     []broker.TradeRecord `json:"data"`
}

// New creates the archive directory if needed and verifies it is writable.
func New(cfg Config, clock broker.Clock, logger *zap.Logger) (*Archive, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat base directory: %w", err)
		}
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create base directory: %w", mkErr)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}
	return &Archive{baseDir: cfg.BaseDir, clock: clock, logger: logger}, nil
}

// Write persists one run's output and returns the file path.
func (a *Archive) Write(summary broker.RunSummary, records []broker.TradeRecord) (string, error) {
	doc := archiveDocument{Metadata: summary, Data: records}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal run archive: %w", err)
	}

	name := fmt.Sprintf("broker_data_%s.json", a.clock.Now().Format("20060102_150405"))
	path := filepath.Join(a.baseDir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write run archive: %w", err)
	}
	a.logger.Info("run archived", zap.String("path", path), zap.Int("records", len(records)))
	return path, nil
}
