// Package auth obtains and caches Twitch app access tokens for the IGDB API.
package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ryanm101/nxpresence/logging"
	"github.com/ryanm101/nxpresence/metrics"
	"github.com/ryanm101/nxpresence/tracing"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTokenURL is the Twitch OAuth token endpoint.
	DefaultTokenURL = "https://id.twitch.tv/oauth2/token"

	// SafetyMargin is subtracted from the advertised token lifetime so a
	// token is never presented right as it expires.
	SafetyMargin = 300 * time.Second
)

// Credential is a bearer token and the instant it stops being used.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// ValidAt reports whether the credential may be used at now.
func (c Credential) ValidAt(now time.Time) bool {
	return c.Token != "" && now.Before(c.ExpiresAt)
}

// TokenProvider hands out a valid app access token, refreshing it through
// the client-credentials grant when the cached one has expired.
type TokenProvider struct {
	clientID     string
	clientSecret string
	tokenURL     string
	httpClient   *http.Client
	now          func() time.Time
	logger       *slog.Logger

	mu    sync.RWMutex
	cred  *Credential
	group singleflight.Group
}

// Option configures a TokenProvider.
type Option func(*TokenProvider)

// WithTokenURL overrides the OAuth token endpoint.
func WithTokenURL(u string) Option {
	return func(p *TokenProvider) { p.tokenURL = u }
}

// WithHTTPClient sets the client used for token requests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *TokenProvider) { p.httpClient = c }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(p *TokenProvider) { p.now = now }
}

// WithLogger sets the logger used for token lifecycle messages.
func WithLogger(l *slog.Logger) Option {
	return func(p *TokenProvider) { p.logger = l }
}

// NewTokenProvider creates a provider for the given Twitch application.
func NewTokenProvider(clientID, clientSecret string, opts ...Option) *TokenProvider {
	p := &TokenProvider{
		clientID:     strings.TrimSpace(clientID),
		clientSecret: strings.TrimSpace(clientSecret),
		tokenURL:     DefaultTokenURL,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logging.Component("igdb-auth")
	}
	return p
}

// ClientID returns the Twitch client id, sent to IGDB as Client-ID.
func (p *TokenProvider) ClientID() string {
	return p.clientID
}

// GetAccessToken returns the cached token while it is valid and requests a
// new one otherwise. Concurrent callers share a single in-flight refresh.
func (p *TokenProvider) GetAccessToken(ctx context.Context) (string, error) {
	if cred, ok := p.Credential(); ok {
		return cred.Token, nil
	}

	v, err, _ := p.group.Do("token", func() (any, error) {
		if cred, ok := p.Credential(); ok {
			return cred.Token, nil
		}
		// The refresh is shared, so one caller's cancellation must not fail the rest.
		return p.refresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// IsTokenValid reports whether a cached, unexpired token exists.
func (p *TokenProvider) IsTokenValid() bool {
	_, ok := p.Credential()
	return ok
}

// Credential returns the cached credential and whether it is still valid.
func (p *TokenProvider) Credential() (Credential, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.cred == nil {
		return Credential{}, false
	}
	return *p.cred, p.cred.ValidAt(p.now())
}

// Invalidate drops the cached credential so the next call re-authenticates.
func (p *TokenProvider) Invalidate() {
	p.mu.Lock()
	p.cred = nil
	p.mu.Unlock()
}

func (p *TokenProvider) refresh(ctx context.Context) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "igdb.auth.token",
		tracing.WithAttributes(attribute.String("oauth.token_url", p.tokenURL)),
	)
	defer span.End()

	if p.clientID == "" || p.clientSecret == "" {
		err := &AuthError{Op: "request token", Err: ErrMissingCredentials}
		tracing.RecordError(span, err)
		return "", err
	}

	cfg := clientcredentials.Config{
		ClientID:     p.clientID,
		ClientSecret: p.clientSecret,
		TokenURL:     p.tokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	if p.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}

	requestedAt := p.now()
	tok, err := cfg.Token(ctx)
	metrics.RecordTokenRefresh(err)
	if err != nil {
		authErr := &AuthError{Op: "request token", Err: err}
		tracing.RecordError(span, authErr)
		p.logger.Error("failed to obtain access token", "error", err)
		return "", authErr
	}

	lifetime := expiresIn(tok)
	cred := &Credential{
		Token:     tok.AccessToken,
		ExpiresAt: requestedAt.Add(lifetime - SafetyMargin),
	}

	p.mu.Lock()
	p.cred = cred
	p.mu.Unlock()

	tracing.AddSpanAttributes(span, attribute.Int64("oauth.expires_in", int64(lifetime/time.Second)))
	tracing.SetSpanOK(span)
	p.logger.Info("access token obtained", "expires_at", cred.ExpiresAt.Format(time.RFC3339))

	return cred.Token, nil
}

// expiresIn returns the advertised token lifetime. clientcredentials only
// converts expires_in into an absolute Expiry on the wall clock, so the raw
// field is read back to keep expiry on the provider's clock.
func expiresIn(tok *oauth2.Token) time.Duration {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return time.Duration(v * float64(time.Second))
	case int64:
		return time.Duration(v) * time.Second
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return time.Duration(n) * time.Second
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	if !tok.Expiry.IsZero() {
		return time.Until(tok.Expiry)
	}
	return 0
}
