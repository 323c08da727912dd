// Package session manages the authenticated conversation with the target
// web application, including proactive refresh before silent expiry.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/wiratama/idx-broker-crawler/internal/broker"
	"github.com/wiratama/idx-broker-crawler/internal/telemetry"
)

// Authentication failure modes surfaced to the caller.
var (
	ErrMissingCredentials = errors.New("session: username or password not configured")
	ErrLoginRejected      = errors.New("session: login rejected by target")
)

const csrfCookieName = "csrftoken"

// Config describes the target application and credentials.
type Config struct {
	BaseURL    string
	LoginPath  string
	AppPath    string
	LayoutPath string
	DepsPath   string
	Username   string
	Password   string
	UserAgent  string
	Timeout    time.Duration
}

// Manager owns the HTTP session state. It is mutated only by the single
// crawl worker, so no locking is required.
type Manager struct {
	cfg    Config
	http   *resty.Client
	clock  broker.Clock
	logger *zap.Logger

	authenticated bool
	createdAt     time.Time
}

// NewManager builds a Manager with a fresh cookie jar.
func NewManager(cfg Config, clock broker.Clock, logger *zap.Logger) (*Manager, error) {
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	m := &Manager{
		cfg:    cfg,
		clock:  clock,
		logger: logger,
	}
	client, err := m.newClient()
	if err != nil {
		return nil, err
	}
	m.http = client
	return m, nil
}

func (m *Manager) newClient() (*resty.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("build cookie jar: %w", err)
	}
	client := resty.New()
	client.SetBaseURL(m.cfg.BaseURL)
	client.SetCookieJar(jar)
	client.SetTimeout(m.cfg.Timeout)
	client.SetHeader("User-Agent", m.cfg.UserAgent)
	client.SetHeader("Accept", "application/json, text/plain, */*")
	client.SetHeader("Accept-Language", "en-US,en;q=0.9")
	return client, nil
}

// Client exposes the underlying resty client carrying the session cookies.
func (m *Manager) Client() *resty.Client {
	return m.http
}

// Authenticated reports whether the last handshake succeeded.
func (m *Manager) Authenticated() bool {
	return m.authenticated
}

// Authenticate performs the full login handshake: fetch the login page for a
// CSRF token, submit credentials, verify the app page is reachable without a
// login redirect, then warm up the Dash app endpoints.
func (m *Manager) Authenticate(ctx context.Context) error {
	if m.cfg.Username == "" || m.cfg.Password == "" {
		return ErrMissingCredentials
	}

	m.logger.Info("fetching login page for CSRF token")
	loginPage, err := m.http.R().
		SetContext(ctx).
		Get(m.cfg.LoginPath)
	if err != nil {
		return fmt.Errorf("fetch login page: %w", err)
	}
	token, err := extractCSRFToken(loginPage.Body())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoginRejected, err)
	}

	m.logger.Info("submitting credentials", zap.String("username", m.cfg.Username))
	loginResp, err := m.http.R().
		SetContext(ctx).
		SetHeader("Referer", m.loginURL()).
		SetFormData(map[string]string{
			"csrfmiddlewaretoken": token,
			"login":               m.cfg.Username,
			"password":            m.cfg.Password,
		}).
		Post(m.cfg.LoginPath)
	if err != nil {
		return fmt.Errorf("submit login form: %w", err)
	}
	if isLoginSurface(finalURL(loginResp)) {
		return fmt.Errorf("%w: still on login page after submit", ErrLoginRejected)
	}

	probe, err := m.http.R().
		SetContext(ctx).
		Get(m.cfg.AppPath)
	if err != nil {
		return fmt.Errorf("verify app access: %w", err)
	}
	if strings.Contains(strings.ToLower(finalURL(probe)), "login") {
		return fmt.Errorf("%w: redirected to login when accessing app", ErrLoginRejected)
	}

	m.authenticated = true
	m.createdAt = m.clock.Now()
	m.logger.Info("login successful")

	// The Dash app rejects callback requests until its layout and
	// dependencies have been loaded at least once in the session.
	if err := m.warmUp(ctx); err != nil {
		m.logger.Warn("dash warm-up failed, continuing", zap.Error(err))
	}
	return nil
}

func (m *Manager) warmUp(ctx context.Context) error {
	for _, path := range []string{m.cfg.LayoutPath, m.cfg.DepsPath} {
		resp, err := m.http.R().
			SetContext(ctx).
			SetHeader("Accept", "application/json").
			SetHeader("Referer", m.appURL()).
			Get(path)
		if err != nil {
			return fmt.Errorf("warm up %s: %w", path, err)
		}
		if resp.StatusCode() >= 400 {
			return fmt.Errorf("warm up %s: status %d", path, resp.StatusCode())
		}
	}
	return nil
}

// IsExpired reports whether the session has never been established or has
// aged past the threshold. Pure function of state and the wall clock.
func (m *Manager) IsExpired(threshold time.Duration) bool {
	if !m.authenticated {
		return true
	}
	return m.clock.Now().Sub(m.createdAt) >= threshold
}

// EnsureValid refreshes the session when it is expired or stale; otherwise it
// is a no-op. Safe to call before every remote operation.
func (m *Manager) EnsureValid(ctx context.Context, threshold time.Duration) error {
	if !m.IsExpired(threshold) {
		return nil
	}
	m.logger.Info("session expired or stale, refreshing")
	return m.Refresh(ctx)
}

// Refresh discards all session state and re-runs the login handshake.
func (m *Manager) Refresh(ctx context.Context) error {
	telemetry.SessionRefreshed()
	m.authenticated = false
	m.createdAt = time.Time{}

	client, err := m.newClient()
	if err != nil {
		return err
	}
	m.http = client
	return m.Authenticate(ctx)
}

// CSRFToken returns the per-session CSRF cookie value, or "" when absent.
func (m *Manager) CSRFToken() string {
	base, err := url.Parse(m.cfg.BaseURL)
	if err != nil {
		return ""
	}
	jar := m.http.GetClient().Jar
	if jar == nil {
		return ""
	}
	for _, c := range jar.Cookies(base) {
		if c.Name == csrfCookieName {
			return c.Value
		}
	}
	return ""
}

// AppURL returns the absolute URL of the application page, used as the
// Referer on callback requests.
func (m *Manager) AppURL() string {
	return m.appURL()
}

func (m *Manager) loginURL() string {
	return strings.TrimSuffix(m.cfg.BaseURL, "/") + m.cfg.LoginPath
}

func (m *Manager) appURL() string {
	return strings.TrimSuffix(m.cfg.BaseURL, "/") + m.cfg.AppPath
}

func extractCSRFToken(page []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parse login page: %w", err)
	}
	token := doc.Find("input[name=csrfmiddlewaretoken]").AttrOr("value", "")
	if token == "" {
		return "", errors.New("csrf token not found on login page")
	}
	return token, nil
}

func finalURL(resp *resty.Response) string {
	if resp == nil || resp.RawResponse == nil || resp.RawResponse.Request == nil {
		return ""
	}
	return resp.RawResponse.Request.URL.String()
}

// isLoginSurface reports whether a post-login URL indicates the handshake
// bounced back to the login form. A "next" query parameter means the target
// accepted the login and is forwarding, not rejecting.
func isLoginSurface(u string) bool {
	lower := strings.ToLower(u)
	return strings.Contains(lower, "login") && !strings.Contains(lower, "next")
}
