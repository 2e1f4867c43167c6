// Package client is the typed HTTP gateway to the Raki cloud backend.
//
// [Client] speaks the REST surface under /auth and /data and implements
// [store.EntityStore], so the hybrid service can treat a cloud workspace the
// same way it treats the on-device store.
//
// # Authentication
//
// The bearer token is owned by the session manager, which installs it with
// [Client.SetAuthToken]. Login and refresh return the token but never store
// it themselves.
//
// # Errors
//
// Status codes map onto the shared sentinels in
// [github.com/ItIsGreg/Raki-sub002/pkg/constants]: 401 unwraps to
// ErrUnauthorized, 403 to ErrForbidden, 404 to ErrNotFound, 409 to
// ErrConflict. 422 becomes a [*models.ValidationError] and 507 a
// [*store.StorageFullError]. Requests that never got a response fail with a
// [*NetworkError]. Nothing is retried automatically.
package client

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

	"github.com/ItIsGreg/Raki-sub002/pkg/constants"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger

	mu        sync.RWMutex
	authToken string
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client, e.g. to install a test
// transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a client for the backend at baseURL, e.g.
// "http://localhost:8000".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetAuthToken installs the bearer token sent with every request. An empty
// token makes requests anonymous.
func (c *Client) SetAuthToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authToken = token
}

func (c *Client) AuthToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authToken
}

// HasToken reports whether a bearer token is installed.
func (c *Client) HasToken() bool {
	return c.AuthToken() != ""
}

type idempotencyKey struct{}

// WithIdempotencyKey attaches an Idempotency-Key to the POST requests issued
// with the returned context. The server replays its first response for a
// repeated key instead of creating a second entity.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKey{}, key)
}

func idempotencyKeyFrom(ctx context.Context) string {
	key, _ := ctx.Value(idempotencyKey{}).(string)
	return key
}

// doRequest performs an HTTP request with the JSON body and auth header.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.AuthToken(); token != "" {
		req.Header.Set(constants.AuthorizationHeader, constants.BearerPrefix+token)
	}
	if key := idempotencyKeyFrom(ctx); key != "" && method == http.MethodPost {
		req.Header.Set(constants.IdempotencyHeader, key)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return nil, &NetworkError{Op: method + " " + path, Cause: err}
	}
	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request")
	return resp, nil
}

// decodeResponse decodes the JSON response into target, or converts an
// error status.
func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return statusError(resp)
	}

	if target != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, target any) error {
	resp, err := c.doRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	return decodeResponse(resp, target)
}

// Health checks the health status of the server.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var result map[string]any
	if err := c.call(ctx, http.MethodGet, "/health", nil, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}
