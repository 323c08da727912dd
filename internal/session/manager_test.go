package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

const loginPage = `<html><body>
<form method="post" action="/accounts/login/">
<input type="hidden" name="csrfmiddlewaretoken" value="tok-123">
<input name="login"><input name="password" type="password">
</form></body></html>`

// loginServer mimics the target's session handshake closely enough for the
// manager: CSRF page, form post, app page, and the Dash warm-up endpoints.
type loginServer struct {
	*httptest.Server
	logins  atomic.Int64
	warmups atomic.Int64
	reject  atomic.Bool
}

func newLoginServer(t *testing.T) *loginServer {
	t.Helper()
	s := &loginServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/accounts/login/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "cookie-tok", Path: "/"})
			fmt.Fprint(w, loginPage)
			return
		}
		require.NoError(t, r.ParseForm())
		if s.reject.Load() ||
			r.PostForm.Get("csrfmiddlewaretoken") != "tok-123" ||
			r.PostForm.Get("login") != "user" ||
			r.PostForm.Get("password") != "pass" {
			// Django re-renders the login form on bad credentials.
			fmt.Fprint(w, loginPage)
			return
		}
		s.logins.Add(1)
		http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "sess-1", Path: "/"})
		http.Redirect(w, r, "/", http.StatusFound)
	})
	mux.HandleFunc("/broker_stalker/", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("sessionid"); err != nil {
			http.Redirect(w, r, "/accounts/login/?next=/broker_stalker/", http.StatusFound)
			return
		}
		fmt.Fprint(w, "<html>app</html>")
	})
	dash := func(w http.ResponseWriter, r *http.Request) {
		s.warmups.Add(1)
		fmt.Fprint(w, `{}`)
	}
	mux.HandleFunc("/django_plotly_dash/app/bs_app/_dash-layout", dash)
	mux.HandleFunc("/django_plotly_dash/app/bs_app/_dash-dependencies", dash)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>home</html>")
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func newTestManager(t *testing.T, srv *loginServer, clock *fakeClock, username, password string) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		BaseURL:    srv.URL,
		LoginPath:  "/accounts/login/",
		AppPath:    "/broker_stalker/",
		LayoutPath: "/django_plotly_dash/app/bs_app/_dash-layout",
		DepsPath:   "/django_plotly_dash/app/bs_app/_dash-dependencies",
		Username:   username,
		Password:   password,
		UserAgent:  "test-agent",
		Timeout:    5 * time.Second,
	}, clock, zap.NewNop())
	require.NoError(t, err)
	return m
}

func TestAuthenticate_Success(t *testing.T) {
	t.Parallel()
	srv := newLoginServer(t)
	clock := &fakeClock{now: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
	m := newTestManager(t, srv, clock, "user", "pass")

	require.NoError(t, m.Authenticate(context.Background()))
	require.True(t, m.Authenticated())
	require.Equal(t, int64(1), srv.logins.Load())
	require.Equal(t, int64(2), srv.warmups.Load())
	require.Equal(t, "cookie-tok", m.CSRFToken())
}

func TestAuthenticate_MissingCredentials(t *testing.T) {
	t.Parallel()
	srv := newLoginServer(t)
	m := newTestManager(t, srv, &fakeClock{now: time.Now()}, "", "")

	require.ErrorIs(t, m.Authenticate(context.Background()), ErrMissingCredentials)
	require.False(t, m.Authenticated())
}

func TestAuthenticate_BadCredentials(t *testing.T) {
	t.Parallel()
	srv := newLoginServer(t)
	m := newTestManager(t, srv, &fakeClock{now: time.Now()}, "user", "wrong")

	require.ErrorIs(t, m.Authenticate(context.Background()), ErrLoginRejected)
	require.False(t, m.Authenticated())
}

func TestIsExpired(t *testing.T) {
	t.Parallel()
	srv := newLoginServer(t)
	clock := &fakeClock{now: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
	m := newTestManager(t, srv, clock, "user", "pass")

	// Never authenticated counts as expired.
	require.True(t, m.IsExpired(25*time.Minute))

	require.NoError(t, m.Authenticate(context.Background()))
	require.False(t, m.IsExpired(25*time.Minute))

	clock.now = clock.now.Add(24 * time.Minute)
	require.False(t, m.IsExpired(25*time.Minute))

	clock.now = clock.now.Add(2 * time.Minute)
	require.True(t, m.IsExpired(25*time.Minute))
}

func TestEnsureValid_RefreshesOnlyWhenStale(t *testing.T) {
	t.Parallel()
	srv := newLoginServer(t)
	clock := &fakeClock{now: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
	m := newTestManager(t, srv, clock, "user", "pass")

	require.NoError(t, m.Authenticate(context.Background()))
	require.Equal(t, int64(1), srv.logins.Load())

	// Fresh session: no new login.
	require.NoError(t, m.EnsureValid(context.Background(), 25*time.Minute))
	require.Equal(t, int64(1), srv.logins.Load())

	// Stale session: full re-login.
	clock.now = clock.now.Add(30 * time.Minute)
	require.NoError(t, m.EnsureValid(context.Background(), 25*time.Minute))
	require.Equal(t, int64(2), srv.logins.Load())
	require.True(t, m.Authenticated())
}

func TestRefresh_DropsStateOnFailure(t *testing.T) {
	t.Parallel()
	srv := newLoginServer(t)
	m := newTestManager(t, srv, &fakeClock{now: time.Now()}, "user", "pass")

	require.NoError(t, m.Authenticate(context.Background()))

	srv.reject.Store(true)
	require.Error(t, m.Refresh(context.Background()))
	require.False(t, m.Authenticated())
}
