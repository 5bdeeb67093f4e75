package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calbridge/calbridge/internal/apierr"
)

// tokenEndpoint is a fake OAuth2 token endpoint counting exchanges.
type tokenEndpoint struct {
	server    *httptest.Server
	exchanges atomic.Int32
	respond   func(w http.ResponseWriter, r *http.Request)
}

func newTokenEndpoint(t *testing.T) *tokenEndpoint {
	t.Helper()
	te := &tokenEndpoint{}
	te.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		require.Equal(t, jwtBearerGrantType, r.PostForm.Get("grant_type"))
		require.NotEmpty(t, r.PostForm.Get("assertion"))

		te.exchanges.Add(1)
		if te.respond != nil {
			te.respond(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "ya29.test-token",
			"expires_in":   3600,
			"token_type":   "Bearer",
		})
	}))
	t.Cleanup(te.server.Close)
	return te
}

func newTestManager(t *testing.T, te *tokenEndpoint, opts ...ManagerOption) *Manager {
	t.Helper()
	creds, _ := testCredentials(t)
	creds.TokenURI = te.server.URL

	m, err := NewManager(creds, calendarScopes, "", opts...)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func TestTokenExchange(t *testing.T) {
	te := newTokenEndpoint(t)
	m := newTestManager(t, te)

	token, err := m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ya29.test-token", token.AccessToken)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.WithinDuration(t, time.Now().Add(time.Hour), token.ExpiresAt, 5*time.Second)
	assert.True(t, m.Authenticated())
}

func TestTokenCachedWhileUsable(t *testing.T) {
	te := newTokenEndpoint(t)
	m := newTestManager(t, te)

	first, err := m.Token(context.Background())
	require.NoError(t, err)
	second, err := m.Token(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), te.exchanges.Load())
}

func TestConcurrentCallersShareOneExchange(t *testing.T) {
	te := newTokenEndpoint(t)

	// Slow the endpoint down so every caller arrives while the first
	// exchange is still in flight.
	te.respond = func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "ya29.shared",
			"expires_in":   3600,
			"token_type":   "Bearer",
		})
	}
	m := newTestManager(t, te)

	const callers = 10
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.Token(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
	}
	assert.Equal(t, int32(1), te.exchanges.Load())
}

func TestExpiredTokenTriggersSingleRefresh(t *testing.T) {
	te := newTokenEndpoint(t)

	now := time.Now()
	m := newTestManager(t, te, WithClock(func() time.Time { return now }))

	_, err := m.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), te.exchanges.Load())

	// Simulated clock jumps past expiresAt - buffer: the token stops
	// being usable and the next call exchanges again, once.
	now = now.Add(time.Hour - RefreshBuffer + time.Second)
	_, err = m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), te.exchanges.Load())
}

func TestAuthErrorOnRejectedAssertion(t *testing.T) {
	te := newTokenEndpoint(t)
	te.respond = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid JWT"}`))
	}
	m := newTestManager(t, te)

	_, err := m.Token(context.Background())
	var authErr *apierr.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Reason, "invalid_grant")
	assert.False(t, m.Authenticated())
}

func TestServerErrorIsTransient(t *testing.T) {
	te := newTokenEndpoint(t)
	te.respond = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	m := newTestManager(t, te)

	_, err := m.Token(context.Background())
	var transient *apierr.TransientNetworkError
	require.ErrorAs(t, err, &transient)
	assert.True(t, apierr.Retryable(err))
}

func TestRefreshHook(t *testing.T) {
	te := newTokenEndpoint(t)

	var results []string
	var mu sync.Mutex
	m := newTestManager(t, te, WithRefreshHook(func(result string) {
		mu.Lock()
		results = append(results, result)
		mu.Unlock()
	}))

	_, err := m.Token(context.Background())
	require.NoError(t, err)

	te.respond = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}
	require.Error(t, m.Refresh(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"success", "error"}, results)
}

func TestRefreshFailureHookFiresOnProactiveFailure(t *testing.T) {
	te := newTokenEndpoint(t)

	failures := make(chan error, 1)
	m := newTestManager(t, te,
		WithRefreshBuffer(time.Hour-50*time.Millisecond),
		WithRefreshFailureHook(func(err error) {
			select {
			case failures <- err:
			default:
			}
		}),
	)

	// First exchange succeeds; everything after it fails, so the
	// proactive refresh 50ms later hits the error path.
	_, err := m.Token(context.Background())
	require.NoError(t, err)
	te.respond = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	select {
	case err := <-failures:
		var transient *apierr.TransientNetworkError
		assert.ErrorAs(t, err, &transient)
	case <-time.After(2 * time.Second):
		t.Fatal("failure hook never fired")
	}
}

func TestRefreshFailureHookSilentOnForegroundFailure(t *testing.T) {
	te := newTokenEndpoint(t)
	te.respond = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	var calls atomic.Int32
	m := newTestManager(t, te, WithRefreshFailureHook(func(error) {
		calls.Add(1)
	}))

	// On-demand callers get the error returned directly; the hook is
	// reserved for the timer-driven refresh that has no caller.
	_, err := m.Token(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(0), calls.Load())
}

func TestLogoutDropsTokenAndTimer(t *testing.T) {
	te := newTokenEndpoint(t)
	m := newTestManager(t, te)

	_, err := m.Token(context.Background())
	require.NoError(t, err)
	require.NotNil(t, m.refreshTimer)

	m.Logout()
	assert.False(t, m.Authenticated())
	m.mu.Lock()
	assert.Nil(t, m.refreshTimer)
	m.mu.Unlock()

	// A fresh exchange succeeds after logout.
	_, err = m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), te.exchanges.Load())
}

func TestProactiveRefreshScheduledAtBufferBoundary(t *testing.T) {
	te := newTokenEndpoint(t)
	m := newTestManager(t, te, WithRefreshBuffer(time.Hour-50*time.Millisecond))

	// expires_in=3600 with a buffer 50ms short of an hour schedules the
	// proactive refresh almost immediately.
	_, err := m.Token(context.Background())
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return te.exchanges.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond, "proactive refresh never fired")
}

func TestClosedManagerRefusesTokens(t *testing.T) {
	te := newTokenEndpoint(t)
	m := newTestManager(t, te)
	m.Close()

	_, err := m.Token(context.Background())
	var authErr *apierr.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, int32(0), te.exchanges.Load())
}

func TestTokenSourceAdapter(t *testing.T) {
	te := newTokenEndpoint(t)
	m := newTestManager(t, te)

	ts := m.TokenSource(context.Background())
	token, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "ya29.test-token", token.AccessToken)
	assert.Equal(t, "Bearer", token.TokenType)
}
