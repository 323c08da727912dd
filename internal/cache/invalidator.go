// Package cache notifies the downstream API layer that fresh crawl data has
// landed, so cached dashboard responses get rebuilt.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// HookInvalidator posts to a configured webhook after a successful crawl.
// A nil HookInvalidator is a no-op, as is one constructed with an empty URL.
type HookInvalidator struct {
	url    string
	http   *resty.Client
	logger *zap.Logger
}

// New creates a HookInvalidator. An empty hookURL disables invalidation.
func New(hookURL string, logger *zap.Logger) *HookInvalidator {
	if hookURL == "" {
		return &HookInvalidator{logger: logger}
	}
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(1)
	return &HookInvalidator{
		url:    hookURL,
		http:   client,
		logger: logger,
	}
}

// Invalidate fires the webhook. Failures are returned so the caller can log
// them, but callers should treat invalidation as best-effort.
func (h *HookInvalidator) Invalidate(ctx context.Context, tradeDate string) error {
	if h == nil || h.url == "" {
		return nil
	}
	resp, err := h.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"trade_date": tradeDate}).
		Post(h.url)
	if err != nil {
		return fmt.Errorf("cache invalidation hook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("cache invalidation hook returned %d", resp.StatusCode())
	}
	h.logger.Info("cache invalidated", zap.String("trade_date", tradeDate))
	return nil
}
