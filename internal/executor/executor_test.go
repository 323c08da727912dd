package executor

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestExecutor(cfg Config) *Executor {
	e := New(cfg, zap.NewNop())
	// No real sleeping in unit tests.
	e.sleep = func(ctx context.Context, d time.Duration) error {
		return ctx.Err()
	}
	return e
}

func TestDo_SuccessFirstAttempt(t *testing.T) {
	t.Parallel()
	e := newTestExecutor(Config{MaxRetries: 3})

	body, err := e.Do(context.Background(), func(ctx context.Context) (Response, error) {
		return Response{StatusCode: 200, Body: []byte(`{"ok":true}`)}, nil
	}, nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(body))
}

func TestDo_ServerErrorsRetryThenSucceed(t *testing.T) {
	t.Parallel()
	e := newTestExecutor(Config{MaxRetries: 3})

	attempts := 0
	body, err := e.Do(context.Background(), func(ctx context.Context) (Response, error) {
		attempts++
		if attempts < 3 {
			return Response{StatusCode: 502}, nil
		}
		return Response{StatusCode: 200, Body: []byte(`{}`)}, nil
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
	require.Equal(t, `{}`, string(body))
}

func TestDo_RetriesExhausted(t *testing.T) {
	t.Parallel()
	e := newTestExecutor(Config{MaxRetries: 3})

	attempts := 0
	_, err := e.Do(context.Background(), func(ctx context.Context) (Response, error) {
		attempts++
		return Response{StatusCode: 503}, nil
	}, nil)
	require.Error(t, err)
	require.Equal(t, 3, attempts)

	var exhausted *RetriesExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, 3, exhausted.Attempts)
	require.Contains(t, exhausted.Last.Error(), "503")
}

func TestDo_AuthRefreshOnce(t *testing.T) {
	t.Parallel()
	e := newTestExecutor(Config{MaxRetries: 3})

	refreshes := 0
	attempts := 0
	body, err := e.Do(context.Background(), func(ctx context.Context) (Response, error) {
		attempts++
		if refreshes == 0 {
			return Response{StatusCode: 401}, nil
		}
		return Response{StatusCode: 200, Body: []byte(`[]`)}, nil
	}, func(ctx context.Context) error {
		refreshes++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, refreshes)
	require.Equal(t, 2, attempts)
	require.Equal(t, `[]`, string(body))
}

func TestDo_AuthFailureAfterRefreshIsTerminal(t *testing.T) {
	t.Parallel()
	e := newTestExecutor(Config{MaxRetries: 5})

	refreshes := 0
	_, err := e.Do(context.Background(), func(ctx context.Context) (Response, error) {
		return Response{StatusCode: 403}, nil
	}, func(ctx context.Context) error {
		refreshes++
		return nil
	})
	require.ErrorIs(t, err, ErrAuthExhausted)
	require.Equal(t, 1, refreshes)
}

func TestDo_AuthWithoutRefreshFuncIsTerminal(t *testing.T) {
	t.Parallel()
	e := newTestExecutor(Config{MaxRetries: 3})

	_, err := e.Do(context.Background(), func(ctx context.Context) (Response, error) {
		return Response{StatusCode: 401}, nil
	}, nil)
	require.ErrorIs(t, err, ErrAuthExhausted)
}

func TestDo_RefreshErrorIsTerminal(t *testing.T) {
	t.Parallel()
	e := newTestExecutor(Config{MaxRetries: 3})

	_, err := e.Do(context.Background(), func(ctx context.Context) (Response, error) {
		return Response{StatusCode: 401}, nil
	}, func(ctx context.Context) error {
		return errors.New("login rejected")
	})
	require.ErrorIs(t, err, ErrAuthExhausted)
}

func TestDo_ClientErrorNoRetry(t *testing.T) {
	t.Parallel()
	e := newTestExecutor(Config{MaxRetries: 3})

	attempts := 0
	_, err := e.Do(context.Background(), func(ctx context.Context) (Response, error) {
		attempts++
		return Response{StatusCode: 404}, nil
	}, nil)
	require.ErrorIs(t, err, ErrNonRetryable)
	require.Equal(t, 1, attempts)
}

func TestDo_InvalidJSONNoRetry(t *testing.T) {
	t.Parallel()
	e := newTestExecutor(Config{MaxRetries: 3})

	attempts := 0
	_, err := e.Do(context.Background(), func(ctx context.Context) (Response, error) {
		attempts++
		return Response{StatusCode: 200, Body: []byte("<html>session expired</html>")}, nil
	}, nil)
	require.ErrorIs(t, err, ErrBadPayload)
	require.Equal(t, 1, attempts)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "deadline exceeded on dial" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestDo_TransportTimeoutRetries(t *testing.T) {
	t.Parallel()
	e := newTestExecutor(Config{MaxRetries: 3})

	attempts := 0
	body, err := e.Do(context.Background(), func(ctx context.Context) (Response, error) {
		attempts++
		if attempts == 1 {
			return Response{}, timeoutErr{}
		}
		return Response{StatusCode: 200, Body: []byte(`{}`)}, nil
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, attempts)
	require.NotNil(t, body)
}

func TestDo_ConnectionErrorRetries(t *testing.T) {
	t.Parallel()
	e := newTestExecutor(Config{MaxRetries: 3})

	attempts := 0
	_, err := e.Do(context.Background(), func(ctx context.Context) (Response, error) {
		attempts++
		return Response{}, &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	}, nil)
	var exhausted *RetriesExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, 3, attempts)
}

func TestDo_ContextCancellationIsFatal(t *testing.T) {
	t.Parallel()
	e := newTestExecutor(Config{MaxRetries: 3})

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	_, err := e.Do(ctx, func(ctx context.Context) (Response, error) {
		attempts++
		cancel()
		return Response{}, ctx.Err()
	}, nil)
	require.ErrorIs(t, err, ErrNonRetryable)
	require.Equal(t, 1, attempts)
}

func TestBackoff(t *testing.T) {
	t.Parallel()
	base := time.Second
	max := 10 * time.Second

	require.Equal(t, time.Second, Backoff(0, base, max))
	require.Equal(t, 2*time.Second, Backoff(1, base, max))
	require.Equal(t, 4*time.Second, Backoff(2, base, max))
	require.Equal(t, 8*time.Second, Backoff(3, base, max))
	require.Equal(t, max, Backoff(4, base, max))
	require.Equal(t, max, Backoff(10, base, max))
}
