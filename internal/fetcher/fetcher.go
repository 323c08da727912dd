// Package fetcher retrieves and normalizes the trade tables for one broker
// by driving the Dash callback endpoint through the resilient executor.
package fetcher

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wiratama/idx-broker-crawler/internal/broker"
	"github.com/wiratama/idx-broker-crawler/internal/dash"
	"github.com/wiratama/idx-broker-crawler/internal/executor"
	"github.com/wiratama/idx-broker-crawler/internal/session"
)

// tradeDateLayout is the wire format for observation dates.
const tradeDateLayout = "2006-01-02"

// Fetcher issues one authenticated callback request per broker and parses
// both trade tables out of the reply.
type Fetcher struct {
	session      *session.Manager
	exec         *executor.Executor
	clock        broker.Clock
	logger       *zap.Logger
	callbackPath string
}

// New constructs a Fetcher.
func New(
	sess *session.Manager,
	exec *executor.Executor,
	clock broker.Clock,
	callbackPath string,
	logger *zap.Logger,
) *Fetcher {
	return &Fetcher{
		session:      sess,
		exec:         exec,
		clock:        clock,
		logger:       logger,
		callbackPath: callbackPath,
	}
}

// FetchBroker fetches all trading data for a single broker. Both categories
// come back in one callback response; a missing table for a category means
// no data, not an error.
func (f *Fetcher) FetchBroker(
	ctx context.Context,
	b broker.Broker,
	durationValue string,
) ([]broker.TradeRecord, error) {
	payload := dash.BuildFetchPayload(b.Code, durationValue)

	body, err := f.exec.Do(ctx, f.send(payload), f.refresh)
	if err != nil {
		return nil, fmt.Errorf("fetch broker %s: %w", b.Code, err)
	}

	resp, err := dash.DecodeCallback(body)
	if err != nil {
		return nil, fmt.Errorf("fetch broker %s: %w", b.Code, err)
	}

	now := f.clock.Now()
	tradeDate := now.Format(tradeDateLayout)

	tables := []struct {
		source   string
		category broker.Category
	}{
		{dash.SourceBuy, broker.CategoryBuy},
		{dash.SourceSell, broker.CategorySell},
	}

	var records []broker.TradeRecord
	for _, t := range tables {
		source, category := t.source, t.category
		component, ok := resp.Response[source]
		if !ok {
			continue
		}
		rows := component.DataTable()
		if rows == nil {
			continue
		}
		parsed := dash.ParseRows(rows, b, category, tradeDate, now, f.logger)
		f.logger.Debug("parsed table",
			zap.String("broker", b.Code),
			zap.String("category", string(category)),
			zap.Int("rows", len(parsed)),
		)
		records = append(records, parsed...)
	}
	return records, nil
}

func (f *Fetcher) send(payload map[string]any) executor.SendFunc {
	return func(ctx context.Context) (executor.Response, error) {
		resp, err := f.session.Client().R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetHeader("X-CSRFToken", f.session.CSRFToken()).
			SetHeader("Referer", f.session.AppURL()).
			SetBody(payload).
			Post(f.callbackPath)
		if err != nil {
			return executor.Response{}, err
		}
		return executor.Response{
			StatusCode: resp.StatusCode(),
			Body:       resp.Body(),
		}, nil
	}
}

func (f *Fetcher) refresh(ctx context.Context) error {
	return f.session.Refresh(ctx)
}
