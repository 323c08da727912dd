// Package executor sends a single logical remote call with bounded retries,
// exponential backoff, and differentiated handling for auth, transient, and
// permanent failures.
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/wiratama/idx-broker-crawler/internal/telemetry"
)

// Terminal failure modes. Conflating these classes causes either retry
// storms on permanent failures or premature abandonment on recoverable ones.
var (
	ErrAuthExhausted = errors.New("executor: authentication failed after session refresh")
	ErrNonRetryable  = errors.New("executor: request failed with non-retryable error")
	ErrBadPayload    = errors.New("executor: response body is not valid JSON")
)

// RetriesExhaustedError reports that the shared attempt budget ran out.
type RetriesExhaustedError struct {
	Attempts int
	Last     error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("executor: %d attempts exhausted, last error: %v", e.Attempts, e.Last)
}

func (e *RetriesExhaustedError) Unwrap() error {
	return e.Last
}

// Response is one attempt's result as seen by the classifier.
type Response struct {
	StatusCode int
	Body       []byte
}

// SendFunc issues one attempt of the logical request.
type SendFunc func(ctx context.Context) (Response, error)

// RefreshFunc re-establishes the session after an auth failure.
type RefreshFunc func(ctx context.Context) error

// Config bounds the retry loop.
type Config struct {
	MaxRetries  int
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// Executor runs requests under the retry policy.
type Executor struct {
	cfg    Config
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// New constructs an Executor.
func New(cfg Config, logger *zap.Logger) *Executor {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 10 * time.Second
	}
	return &Executor{
		cfg:    cfg,
		logger: logger,
		sleep:  sleepCtx,
	}
}

// Do executes send under the retry policy and returns the decoded-ready body.
//
// Auth failures trigger exactly one refresh-and-retry before becoming fatal
// for this request. Server errors and transport timeouts share the attempt
// budget with exponential backoff. Everything else fails immediately.
func (e *Executor) Do(ctx context.Context, send SendFunc, refresh RefreshFunc) ([]byte, error) {
	var lastErr error
	authRetried := false

	for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
		resp, err := send(ctx)
		if err != nil {
			outcome := classifyTransport(err)
			switch outcome {
			case outcomeRetryable:
				lastErr = err
				telemetry.RetryObserved("transport")
				delay := Backoff(attempt, e.cfg.BackoffBase, e.cfg.BackoffMax)
				e.logger.Warn("transport error, backing off",
					zap.Int("attempt", attempt+1),
					zap.Int("max_retries", e.cfg.MaxRetries),
					zap.Duration("delay", delay),
					zap.Error(err),
				)
				if serr := e.sleep(ctx, delay); serr != nil {
					return nil, serr
				}
				continue
			default:
				return nil, fmt.Errorf("%w: %v", ErrNonRetryable, err)
			}
		}

		switch {
		case resp.StatusCode == 401 || resp.StatusCode == 403:
			if authRetried || refresh == nil {
				return nil, ErrAuthExhausted
			}
			authRetried = true
			telemetry.RetryObserved("auth")
			e.logger.Warn("auth error, refreshing session", zap.Int("status", resp.StatusCode))
			if rerr := refresh(ctx); rerr != nil {
				return nil, fmt.Errorf("%w: %v", ErrAuthExhausted, rerr)
			}
			continue

		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("server error: status %d", resp.StatusCode)
			telemetry.RetryObserved("server")
			delay := Backoff(attempt, e.cfg.BackoffBase, e.cfg.BackoffMax)
			e.logger.Warn("server error, backing off",
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", e.cfg.MaxRetries),
				zap.Duration("delay", delay),
			)
			if serr := e.sleep(ctx, delay); serr != nil {
				return nil, serr
			}
			continue

		case resp.StatusCode >= 400:
			return nil, fmt.Errorf("%w: status %d", ErrNonRetryable, resp.StatusCode)
		}

		if !json.Valid(resp.Body) {
			return nil, ErrBadPayload
		}
		return resp.Body, nil
	}

	return nil, &RetriesExhaustedError{Attempts: e.cfg.MaxRetries, Last: lastErr}
}

// Backoff returns the capped exponential delay before the next attempt:
// min(base * 2^attempt, max).
func Backoff(attempt int, base, max time.Duration) time.Duration {
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

type transportOutcome int

const (
	outcomeFatal transportOutcome = iota
	outcomeRetryable
)

// classifyTransport separates recoverable transport failures (timeouts,
// connection errors) from request construction errors and cancellation.
func classifyTransport(err error) transportOutcome {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return outcomeFatal
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return outcomeRetryable
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return outcomeRetryable
	}
	return outcomeFatal
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
