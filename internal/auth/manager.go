package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/calbridge/calbridge/internal/apierr"
	"github.com/calbridge/calbridge/internal/logging"
)

const (
	// RefreshBuffer is how long before expiry a token stops being
	// usable and a refresh is triggered.
	RefreshBuffer = 5 * time.Minute

	jwtBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	// refreshKey is the single well-known singleflight key: token
	// refreshes deduplicate globally, not per parameter.
	refreshKey = "token"
)

// Token is a bearer token with its validity span. Replaced wholesale on
// refresh, never mutated.
type Token struct {
	AccessToken string
	TokenType   string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// usable reports whether the token can still back a request, leaving
// the refresh buffer before expiry.
func (t *Token) usable(now time.Time, buffer time.Duration) bool {
	return t != nil && now.Before(t.ExpiresAt.Add(-buffer))
}

// Manager owns the bearer-token lifecycle: exchange, caching, proactive
// refresh, logout. At most one exchange is in flight at any time.
type Manager struct {
	signer     *Signer
	tokenURL   string
	httpClient *http.Client
	logger     *slog.Logger
	buffer     time.Duration
	now        func() time.Time
	onRefresh  func(result string)
	onFailure  func(err error)

	sf singleflight.Group

	mu           sync.Mutex
	token        *Token
	refreshTimer *time.Timer
	closed       bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithHTTPClient overrides the HTTP client used for the token exchange.
func WithHTTPClient(client *http.Client) ManagerOption {
	return func(m *Manager) { m.httpClient = client }
}

// WithLogger sets the manager's logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// WithRefreshBuffer overrides the refresh buffer, for tests.
func WithRefreshBuffer(d time.Duration) ManagerOption {
	return func(m *Manager) { m.buffer = d }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithRefreshHook registers a callback invoked after every exchange with
// "success" or "failure". Used for metrics.
func WithRefreshHook(hook func(result string)) ManagerOption {
	return func(m *Manager) { m.onRefresh = hook }
}

// WithRefreshFailureHook registers a callback invoked when a proactive
// background refresh fails. On-demand callers see their error directly;
// the timer-driven refresh has no caller, so this hook is how the
// failure reaches a user-visible surface.
func WithRefreshFailureHook(hook func(err error)) ManagerOption {
	return func(m *Manager) { m.onFailure = hook }
}

// NewManager builds the signer from creds and returns a manager ready to
// authenticate on first use.
func NewManager(creds *Credentials, scopes []string, subject string, opts ...ManagerOption) (*Manager, error) {
	signer, err := NewSigner(creds, scopes, subject)
	if err != nil {
		return nil, err
	}
	m := &Manager{
		signer:     signer,
		tokenURL:   creds.TokenURI,
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
		buffer:     RefreshBuffer,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Token returns a usable bearer token, exchanging a fresh assertion if
// the cached one is missing or inside the refresh buffer. Concurrent
// callers join the same pending exchange.
func (m *Manager) Token(ctx context.Context) (*Token, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, &apierr.AuthError{Reason: "client closed"}
	}
	if m.token.usable(m.now(), m.buffer) {
		token := m.token
		m.mu.Unlock()
		return token, nil
	}
	m.mu.Unlock()

	v, err, _ := m.sf.Do(refreshKey, func() (any, error) {
		// A caller that queued behind a completed exchange must not
		// trigger a second one.
		m.mu.Lock()
		if m.token.usable(m.now(), m.buffer) {
			token := m.token
			m.mu.Unlock()
			return token, nil
		}
		m.mu.Unlock()
		return m.exchange(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Token), nil
}

// Authenticate forces a token exchange regardless of the cached token's
// validity. Concurrent calls still share one exchange.
func (m *Manager) Authenticate(ctx context.Context) error {
	_, err, _ := m.sf.Do(refreshKey, func() (any, error) {
		return m.exchange(ctx)
	})
	return err
}

// Refresh is Authenticate under its lifecycle name; the proactive
// refresh timer calls it.
func (m *Manager) Refresh(ctx context.Context) error {
	return m.Authenticate(ctx)
}

// Authenticated reports whether a usable token is currently held.
func (m *Manager) Authenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token.usable(m.now(), m.buffer)
}

// Logout drops the cached token and cancels the scheduled refresh. The
// next Token call performs a fresh exchange.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = nil
	m.stopTimerLocked()
}

// Close logs out and prevents any further exchanges. Safe to call more
// than once.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.token = nil
	m.stopTimerLocked()
}

func (m *Manager) stopTimerLocked() {
	if m.refreshTimer != nil {
		m.refreshTimer.Stop()
		m.refreshTimer = nil
	}
}

// exchange signs an assertion and posts it to the token endpoint.
// Transport failures and 5xx responses come back as transient errors so
// the caller's retry policy applies; 4xx responses are authentication
// failures and fatal.
func (m *Manager) exchange(ctx context.Context) (*Token, error) {
	assertion, err := m.signer.Assertion()
	if err != nil {
		m.recordRefresh(logging.StatusError)
		return nil, err
	}

	form := url.Values{
		"grant_type": {jwtBearerGrantType},
		"assertion":  {assertion},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		m.recordRefresh(logging.StatusError)
		return nil, &apierr.AuthError{Reason: "building token request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		m.recordRefresh(logging.StatusError)
		return nil, &apierr.TransientNetworkError{Err: fmt.Errorf("token exchange: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		m.recordRefresh(logging.StatusError)
		return nil, &apierr.TransientNetworkError{Err: fmt.Errorf("reading token response: %w", err)}
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		m.recordRefresh(logging.StatusError)
		return nil, &apierr.TransientNetworkError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("token endpoint returned %d", resp.StatusCode),
		}
	}
	if resp.StatusCode != http.StatusOK {
		m.recordRefresh(logging.StatusError)
		return nil, &apierr.AuthError{
			Reason: fmt.Sprintf("token endpoint returned %d: %s", resp.StatusCode, summarize(body)),
		}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		m.recordRefresh(logging.StatusError)
		return nil, &apierr.AuthError{Reason: "token endpoint returned malformed JSON", Err: err}
	}
	if payload.AccessToken == "" {
		m.recordRefresh(logging.StatusError)
		return nil, &apierr.AuthError{Reason: "token endpoint returned no access_token"}
	}

	now := m.now()
	token := &Token{
		AccessToken: payload.AccessToken,
		TokenType:   payload.TokenType,
		IssuedAt:    now,
		ExpiresAt:   now.Add(time.Duration(payload.ExpiresIn) * time.Second),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		// A teardown raced the exchange; discard the result.
		return nil, &apierr.AuthError{Reason: "client closed"}
	}
	m.token = token
	m.scheduleRefreshLocked(token)
	m.recordRefresh(logging.StatusSuccess)
	m.logger.Debug("token refreshed",
		slog.Time("expires_at", token.ExpiresAt),
		slog.String("access_token", logging.SanitizeToken(token.AccessToken)),
	)
	return token, nil
}

// scheduleRefreshLocked arms the proactive refresh timer at
// expiresAt - buffer, cancelling any previous timer so none is orphaned.
func (m *Manager) scheduleRefreshLocked(token *Token) {
	m.stopTimerLocked()

	delay := token.ExpiresAt.Add(-m.buffer).Sub(m.now())
	if delay < 0 {
		delay = 0
	}
	m.refreshTimer = time.AfterFunc(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := m.Refresh(ctx); err != nil {
			m.logger.Warn("proactive token refresh failed", logging.Err(err))
			if m.onFailure != nil {
				m.onFailure(err)
			}
		}
	})
}

func (m *Manager) recordRefresh(result string) {
	if m.onRefresh != nil {
		m.onRefresh(result)
	}
}

func summarize(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// tokenSource adapts the Manager to oauth2.TokenSource so the generated
// Google API clients can pull tokens from it.
type tokenSource struct {
	ctx     context.Context
	manager *Manager
}

// TokenSource returns an oauth2.TokenSource backed by the manager,
// suitable for option.WithTokenSource.
func (m *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, manager: m}
}

// Token implements oauth2.TokenSource.
func (ts *tokenSource) Token() (*oauth2.Token, error) {
	token, err := ts.manager.Token(ts.ctx)
	if err != nil {
		return nil, err
	}
	tokenType := token.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &oauth2.Token{
		AccessToken: token.AccessToken,
		TokenType:   tokenType,
		Expiry:      token.ExpiresAt,
	}, nil
}
