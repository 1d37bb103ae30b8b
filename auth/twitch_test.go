package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeTwitch serves the client-credentials grant and counts requests.
type fakeTwitch struct {
	*httptest.Server
	hits    atomic.Int32
	handler func(w http.ResponseWriter, r *http.Request, n int32)
}

func newFakeTwitch(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, n int32)) *fakeTwitch {
	t.Helper()
	f := &fakeTwitch{handler: handler}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := f.hits.Add(1)
		f.handler(w, r, n)
	}))
	t.Cleanup(f.Close)
	return f
}

func writeToken(w http.ResponseWriter, token string, expiresIn int) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, `{"access_token":%q,"expires_in":%d,"token_type":"bearer"}`, token, expiresIn)
}

// clock is a settable time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newProvider(srv *fakeTwitch, clk *clock) *TokenProvider {
	return NewTokenProvider("client-id", "client-secret",
		WithTokenURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithClock(clk.Now),
	)
}

func TestGetAccessToken_SendsClientCredentials(t *testing.T) {
	srv := newFakeTwitch(t, func(w http.ResponseWriter, r *http.Request, _ int32) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "client-secret", r.PostForm.Get("client_secret"))
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		writeToken(w, "tok-1", 3600)
	})

	p := newProvider(srv, &clock{t: time.Now()})

	token, err := p.GetAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
	assert.Equal(t, "client-id", p.ClientID())
}

func TestGetAccessToken_ReusesCachedToken(t *testing.T) {
	srv := newFakeTwitch(t, func(w http.ResponseWriter, _ *http.Request, n int32) {
		writeToken(w, fmt.Sprintf("tok-%d", n), 3600)
	})
	clk := &clock{t: time.Now()}
	p := newProvider(srv, clk)
	ctx := context.Background()

	first, err := p.GetAccessToken(ctx)
	require.NoError(t, err)

	clk.Advance(30 * time.Minute)

	second, err := p.GetAccessToken(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), srv.hits.Load())
}

func TestGetAccessToken_RefreshesAfterExpiry(t *testing.T) {
	srv := newFakeTwitch(t, func(w http.ResponseWriter, _ *http.Request, n int32) {
		writeToken(w, fmt.Sprintf("tok-%d", n), 3600)
	})
	clk := &clock{t: time.Now()}
	p := newProvider(srv, clk)
	ctx := context.Background()

	first, err := p.GetAccessToken(ctx)
	require.NoError(t, err)

	cred, ok := p.Credential()
	require.True(t, ok)
	assert.Equal(t, clk.Now().Add(3600*time.Second-SafetyMargin), cred.ExpiresAt)

	// Past expires_in - 300s but before the advertised lifetime.
	clk.Advance(3600*time.Second - SafetyMargin)
	assert.False(t, p.IsTokenValid())

	second, err := p.GetAccessToken(ctx)
	require.NoError(t, err)

	assert.Equal(t, "tok-1", first)
	assert.Equal(t, "tok-2", second)
	assert.Equal(t, int32(2), srv.hits.Load())
	assert.True(t, p.IsTokenValid())
}

func TestGetAccessToken_LongLifetimeIsCached(t *testing.T) {
	srv := newFakeTwitch(t, func(w http.ResponseWriter, _ *http.Request, n int32) {
		writeToken(w, fmt.Sprintf("tok-%d", n), 5000000)
	})
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := &clock{t: start}
	p := newProvider(srv, clk)
	ctx := context.Background()

	first, err := p.GetAccessToken(ctx)
	require.NoError(t, err)

	cred, ok := p.Credential()
	require.True(t, ok)
	assert.Equal(t, start.Add(5000000*time.Second-SafetyMargin), cred.ExpiresAt)
	assert.True(t, p.IsTokenValid())

	clk.Advance(24 * time.Hour)
	second, err := p.GetAccessToken(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), srv.hits.Load())
}

func TestExpiresIn(t *testing.T) {
	tests := []struct {
		name     string
		tok      *oauth2.Token
		expected time.Duration
	}{
		{"json number", (&oauth2.Token{}).WithExtra(map[string]any{"expires_in": float64(3600)}), time.Hour},
		{"form integer", (&oauth2.Token{}).WithExtra(map[string]any{"expires_in": int64(60)}), time.Minute},
		{"decoder number", (&oauth2.Token{}).WithExtra(map[string]any{"expires_in": json.Number("120")}), 2 * time.Minute},
		{"string", (&oauth2.Token{}).WithExtra(map[string]any{"expires_in": "30"}), 30 * time.Second},
		{"missing", &oauth2.Token{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, expiresIn(tt.tok))
		})
	}
}

func TestExpiresIn_FallsBackToExpiry(t *testing.T) {
	tok := &oauth2.Token{Expiry: time.Now().Add(time.Hour)}

	got := expiresIn(tok)
	assert.InDelta(t, float64(time.Hour), float64(got), float64(time.Minute))
}

func TestIsTokenValid(t *testing.T) {
	srv := newFakeTwitch(t, func(w http.ResponseWriter, _ *http.Request, _ int32) {
		writeToken(w, "tok", 3600)
	})
	clk := &clock{t: time.Now()}
	p := newProvider(srv, clk)

	assert.False(t, p.IsTokenValid(), "no token before first call")

	_, err := p.GetAccessToken(context.Background())
	require.NoError(t, err)
	assert.True(t, p.IsTokenValid())

	p.Invalidate()
	assert.False(t, p.IsTokenValid())
	assert.Equal(t, int32(1), srv.hits.Load(), "IsTokenValid never calls the network")
}

func TestGetAccessToken_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler func(w http.ResponseWriter, r *http.Request, n int32)
	}{
		{
			name: "missing access token",
			handler: func(w http.ResponseWriter, _ *http.Request, _ int32) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"expires_in":3600}`))
			},
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, _ *http.Request, _ int32) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{not json`))
			},
		},
		{
			name: "error status",
			handler: func(w http.ResponseWriter, _ *http.Request, _ int32) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"status":403,"message":"invalid client secret"}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFakeTwitch(t, tt.handler)
			p := newProvider(srv, &clock{t: time.Now()})

			token, err := p.GetAccessToken(context.Background())
			require.Error(t, err)
			assert.Empty(t, token)

			var authErr *AuthError
			require.True(t, errors.As(err, &authErr))
			assert.NotNil(t, authErr.Unwrap())
			assert.False(t, p.IsTokenValid(), "nothing is cached on failure")
		})
	}
}

func TestGetAccessToken_TransportFailure(t *testing.T) {
	srv := newFakeTwitch(t, func(w http.ResponseWriter, _ *http.Request, _ int32) {
		writeToken(w, "unused", 3600)
	})
	url := srv.URL
	srv.Close()

	p := NewTokenProvider("id", "secret", WithTokenURL(url))

	_, err := p.GetAccessToken(context.Background())
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "request token", authErr.Op)
}

func TestGetAccessToken_FailureIsNotCached(t *testing.T) {
	srv := newFakeTwitch(t, func(w http.ResponseWriter, _ *http.Request, n int32) {
		if n == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeToken(w, "recovered", 3600)
	})
	p := newProvider(srv, &clock{t: time.Now()})
	ctx := context.Background()

	_, err := p.GetAccessToken(ctx)
	require.Error(t, err)

	token, err := p.GetAccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "recovered", token)
}

func TestGetAccessToken_MissingCredentials(t *testing.T) {
	p := NewTokenProvider("", "secret")

	_, err := p.GetAccessToken(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestGetAccessToken_CoalescesConcurrentRefreshes(t *testing.T) {
	release := make(chan struct{})
	srv := newFakeTwitch(t, func(w http.ResponseWriter, _ *http.Request, _ int32) {
		<-release
		writeToken(w, "shared", 3600)
	})
	p := newProvider(srv, &clock{t: time.Now()})

	const callers = 8
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = p.GetAccessToken(context.Background())
		}(i)
	}

	// Let every goroutine reach the in-flight refresh before answering.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "shared", tokens[i])
	}
	assert.Equal(t, int32(1), srv.hits.Load())
}

func TestGetAccessToken_SharedRefreshSurvivesFirstCallerCancel(t *testing.T) {
	arrived := make(chan struct{})
	release := make(chan struct{})
	srv := newFakeTwitch(t, func(w http.ResponseWriter, _ *http.Request, _ int32) {
		close(arrived)
		<-release
		writeToken(w, "shared", 3600)
	})
	p := newProvider(srv, &clock{t: time.Now()})

	firstCtx, cancel := context.WithCancel(context.Background())
	var firstErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, firstErr = p.GetAccessToken(firstCtx)
	}()

	<-arrived
	var second string
	var secondErr error
	go func() {
		defer wg.Done()
		second, secondErr = p.GetAccessToken(context.Background())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.NoError(t, secondErr)
	assert.Equal(t, "shared", second)
	assert.NoError(t, firstErr)
	assert.Equal(t, int32(1), srv.hits.Load())
}

func TestCredential_ValidAt(t *testing.T) {
	now := time.Now()

	assert.True(t, Credential{Token: "t", ExpiresAt: now.Add(time.Second)}.ValidAt(now))
	assert.False(t, Credential{Token: "t", ExpiresAt: now}.ValidAt(now))
	assert.False(t, Credential{ExpiresAt: now.Add(time.Hour)}.ValidAt(now))
}

func TestAuthError_Message(t *testing.T) {
	err := &AuthError{Op: "request token", Err: errors.New("boom")}
	assert.Equal(t, "igdb auth: request token: boom", err.Error())
}
