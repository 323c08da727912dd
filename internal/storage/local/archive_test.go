package local

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wiratama/idx-broker-crawler/internal/broker"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func TestArchive_Write(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	now := time.Date(2025, 3, 14, 18, 5, 30, 0, time.UTC)

	a, err := New(Config{BaseDir: dir}, fixedClock{now: now}, zap.NewNop())
	require.NoError(t, err)

	summary := broker.RunSummary{
		RunID:             "run-1",
		TotalBrokers:      2,
		SuccessfulBrokers: 2,
		TotalRecords:      1,
	}
	records := []broker.TradeRecord{{
		BrokerCode: "YP",
		Category:   broker.CategoryBuy,
		Symbol:     "BBCA",
		NetValue:   12.5,
		TradeDate:  "2025-03-14",
	}}

	path, err := a.Write(summary, records)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "broker_data_20250314_180530.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		Metadata broker.RunSummary    `json:"metadata"`
		Data     []broker.TradeRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Equal(t, "run-1", doc.Metadata.RunID)
	require.Len(t, doc.Data, 1)
	require.Equal(t, "BBCA", doc.Data[0].Symbol)
}

func TestArchive_WriteEmptyRun(t *testing.T) {
	t.Parallel()
	a, err := New(Config{BaseDir: t.TempDir()}, fixedClock{now: time.Now()}, zap.NewNop())
	require.NoError(t, err)

	path, err := a.Write(broker.RunSummary{RunID: "empty"}, nil)
	require.NoError(t, err)
	require.FileExists(t, path)
}

func TestNew_RequiresDir(t *testing.T) {
	t.Parallel()
	_, err := New(Config{}, fixedClock{now: time.Now()}, zap.NewNop())
	require.Error(t, err)
}
