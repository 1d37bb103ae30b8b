// Package catalog queries the IGDB games API for titles to show in the
// presence card.
package catalog

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ryanm101/nxpresence/logging"
	"github.com/ryanm101/nxpresence/metrics"
	"github.com/ryanm101/nxpresence/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultBaseURL = "https://api.igdb.com"
	APIVersion     = "v4"

	PlatformNintendoSwitch  = 130
	PlatformNintendoSwitch2 = 471

	DefaultSearchLimit  = 20
	DefaultPopularLimit = 50
)

// DefaultPlatforms scopes searches to the Switch family.
var DefaultPlatforms = []int{PlatformNintendoSwitch, PlatformNintendoSwitch2}

// TokenProvider supplies the credentials IGDB requires on every request.
type TokenProvider interface {
	ClientID() string
	GetAccessToken(ctx context.Context) (string, error)
}

// invalidator is implemented by token providers that can drop a token
// IGDB has rejected.
type invalidator interface {
	Invalidate()
}

// Client talks to the IGDB v4 API.
type Client struct {
	tokens     TokenProvider
	baseURL    string
	httpClient *http.Client
	platforms  []int
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the IGDB host (scheme and host, no version path).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets the HTTP client used for API calls. nil keeps
// http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithPlatforms replaces the platform ids searches are scoped to.
// An empty list keeps the defaults.
func WithPlatforms(ids ...int) Option {
	return func(c *Client) {
		if len(ids) > 0 {
			c.platforms = append([]int(nil), ids...)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates an IGDB client authenticated by tokens.
func NewClient(tokens TokenProvider, opts ...Option) *Client {
	c := &Client{
		tokens:     tokens,
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
		platforms:  append([]int(nil), DefaultPlatforms...),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.Component("igdb-api")
	}
	return c
}

// MakeRequest POSTs an Apicalypse body to an IGDB endpoint and decodes the
// JSON response into v. Token errors are returned as-is; everything else
// is a *CatalogError.
func (c *Client) MakeRequest(ctx context.Context, endpoint, body string, v any) error {
	ctx, span := tracing.StartSpan(ctx, "igdb.request",
		tracing.WithAttributes(attribute.String("igdb.endpoint", endpoint)),
	)
	defer span.End()

	token, err := c.tokens.GetAccessToken(ctx)
	if err != nil {
		tracing.RecordError(span, err)
		return err
	}

	url := c.baseURL + "/" + APIVersion + "/" + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return c.fail(span, &CatalogError{Op: "build request", Endpoint: endpoint, Err: err})
	}
	req.Header.Set("Client-ID", c.tokens.ClientID())
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "text/plain")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordCatalogRequest(endpoint, 0, start)
		return c.fail(span, &CatalogError{Op: "request", Endpoint: endpoint, Err: err})
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	metrics.RecordCatalogRequest(endpoint, resp.StatusCode, start)
	tracing.AddSpanAttributes(span, attribute.Int("http.status_code", resp.StatusCode))
	if err != nil {
		return c.fail(span, &CatalogError{Op: "read response", Endpoint: endpoint, StatusCode: resp.StatusCode, Err: err})
	}

	if resp.StatusCode != http.StatusOK {
		catErr := &CatalogError{Op: "request", Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(data)}
		if catErr.Unauthorized() {
			if inv, ok := c.tokens.(invalidator); ok {
				inv.Invalidate()
			}
		}
		return c.fail(span, catErr)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return c.fail(span, &CatalogError{Op: "decode response", Endpoint: endpoint, StatusCode: resp.StatusCode, Err: err})
	}

	tracing.SetSpanOK(span)
	return nil
}

func (c *Client) fail(span trace.Span, err *CatalogError) error {
	tracing.RecordError(span, err)
	return err
}
