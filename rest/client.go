// Package rest implements the remote identity & data service boundary over
// HTTP: the identity operations, the websocket push channel for session
// events, and the two record kinds (profiles, posts). Records come off the
// wire loosely typed; this package parses and validates them so malformed
// data is rejected at the boundary instead of leaking undefined fields.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	errs "github.com/codeshare/appcore/internal/errors"
	"github.com/codeshare/appcore/internal/metrics"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Config carries the connection settings for the remote service.
type Config struct {
	// BaseURL of the service, e.g. "https://api.example.com".
	BaseURL string
	// APIKey identifies the application; sent on every request. Not a
	// user-level secret.
	APIKey string
	// Timeout bounds each request. Zero means 15s.
	Timeout time.Duration
	// RequestsPerSecond limits outbound traffic. Zero means 20.
	RequestsPerSecond float64
	// Collector is optional.
	Collector *metrics.Collector
}

// Client is the shared HTTP plumbing for the service boundary: base URL,
// API key, rate limiting, and the bearer token for the current session.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	apiKey     string
	limiter    *rate.Limiter
	collector  *metrics.Collector

	mu     sync.RWMutex
	tokens oauth2.TokenSource
}

// NewClient validates the config and builds a Client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("[NewClient] BaseURL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "[NewClient] parse BaseURL")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps == 0 {
		rps = 20
	}

	return &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     cfg.APIKey,
		limiter:    rate.NewLimiter(rate.Limit(rps), int(rps)),
		collector:  cfg.Collector,
	}, nil
}

// SetTokenSource installs the bearer token source for the current session.
// A nil source clears it (signed out).
func (c *Client) SetTokenSource(ts oauth2.TokenSource) {
	c.mu.Lock()
	c.tokens = ts
	c.mu.Unlock()
}

func (c *Client) tokenSource() oauth2.TokenSource {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

// apiError is the service's JSON error envelope.
type apiError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("service returned %d: %s", e.Status, e.Message)
}

// do issues one request. The body is JSON-encoded when non-nil; the
// response is JSON-decoded into out when non-nil. 404 maps to ErrNotFound;
// other non-2xx statuses come back as *apiError.
func (c *Client) do(ctx context.Context, operation, method, path string, query url.Values, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "[Client.do] rate limiter")
	}
	c.collector.RecordServiceRequest(operation)

	target := c.baseURL.JoinPath(path)
	if query != nil {
		target.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, "[Client.do] encode %s body", operation)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return errors.Wrapf(err, "[Client.do] build %s request", operation)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if ts := c.tokenSource(); ts != nil {
		tok, err := ts.Token()
		if err != nil {
			return errors.Wrapf(errs.ErrSessionUnavailable, "[Client.do] token source: %v", err)
		}
		tok.SetAuthHeader(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.collector.RecordServiceFailure(operation, 0)
		return errors.Wrapf(err, "[Client.do] %s", operation)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.collector.RecordServiceFailure(operation, resp.StatusCode)
		return errors.Wrapf(errs.ErrNotFound, "[Client.do] %s", operation)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.collector.RecordServiceFailure(operation, resp.StatusCode)
		svcErr := &apiError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(svcErr); err != nil || svcErr.Message == "" {
			svcErr.Message = http.StatusText(resp.StatusCode)
		}
		log.Debug().
			Str("component", "rest.Client").
			Str("operation", operation).
			Int("status", resp.StatusCode).
			Str("message", svcErr.Message).
			Msg("service call failed")
		return svcErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrapf(errs.ErrMalformedRecord, "[Client.do] decode %s response: %v", operation, err)
		}
	}
	return nil
}

// websocketURL derives the ws(s) endpoint for the push channel.
func (c *Client) websocketURL(path string) string {
	ws := *c.baseURL
	switch ws.Scheme {
	case "https":
		ws.Scheme = "wss"
	default:
		ws.Scheme = "ws"
	}
	ws.Path = strings.TrimSuffix(ws.Path, "/") + path
	if c.apiKey != "" {
		q := ws.Query()
		q.Set("apikey", c.apiKey)
		ws.RawQuery = q.Encode()
	}
	return ws.String()
}
