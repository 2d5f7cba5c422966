package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"cdo-tour-client/internal/models"
	"cdo-tour-client/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Request describes one API call. Header entries are optional extra headers;
// the Authorization header is always owned by the client and overwritten.
type Request struct {
	Method string
	Path   string
	Body   any
	Header http.Header
}

// Client performs HTTP requests against the remote API and transparently
// keeps the session valid: it attaches the stored access token, refreshes it
// once on a 401, and retries the original request exactly once
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      store.Store

	mu         sync.Mutex
	refreshing bool
}

// New creates a client for the API at baseURL backed by the given store
func New(baseURL string, httpClient *http.Client, st store.Store) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		store:      st,
	}
}

// Do performs a protected request. Without a stored access token it fails
// immediately with ErrUnauthenticated and never contacts the server. A 401
// response triggers at most one refresh and one retry; any other status is
// passed through unchanged.
func (c *Client) Do(ctx context.Context, req Request) (*http.Response, error) {
	access, ok := c.store.Get(store.KeyAccess)
	if !ok || access == "" {
		return nil, ErrUnauthenticated
	}

	resp, err := c.send(ctx, req, access)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// Only the first 401 handler refreshes; concurrent callers get their
	// stale 401 back rather than piling onto the refresh endpoint.
	if !c.beginRefresh() {
		return resp, nil
	}
	newAccess, refreshErr := c.refreshAccess(ctx)
	c.endRefresh()

	resp.Body.Close()
	if refreshErr != nil {
		return nil, refreshErr
	}

	// One retry with the renewed token. Whatever comes back, including a
	// second 401, is the caller's to handle.
	return c.send(ctx, req, newAccess)
}

// DoPublic performs an unprotected request. The Authorization header is
// stripped even when a stale credential exists in storage or the caller
// supplied one.
func (c *Client) DoPublic(ctx context.Context, req Request) (*http.Response, error) {
	return c.send(ctx, req, "")
}

// send issues a single HTTP attempt
func (c *Client) send(ctx context.Context, req Request, access string) (*http.Response, error) {
	var body *bytes.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for key, values := range req.Header {
		httpReq.Header[key] = append([]string(nil), values...)
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if access != "" {
		httpReq.Header.Set("Authorization", "Bearer "+access)
	} else {
		httpReq.Header.Del("Authorization")
	}
	requestID := uuid.New().String()
	httpReq.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	log.Debug().
		Str("request_id", requestID).
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Msg("API request")
	return resp, nil
}

// refreshAccess exchanges the stored refresh token for a new access token.
// A rejected or unreachable refresh purges both tokens and reports
// ErrSessionExpired; a canceled context leaves credentials untouched.
func (c *Client) refreshAccess(ctx context.Context) (string, error) {
	refresh, ok := c.store.Get(store.KeyRefresh)
	if !ok || refresh == "" {
		c.purgeTokens()
		return "", ErrSessionExpired
	}

	resp, err := c.DoPublic(ctx, Request{
		Method: http.MethodPost,
		Path:   "/token/refresh/",
		Body:   models.RefreshRequest{Refresh: refresh},
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", err
		}
		c.purgeTokens()
		return "", fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}

	var renewed models.RefreshResponse
	if err := DecodeJSON(resp, &renewed); err != nil {
		c.purgeTokens()
		return "", fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}

	if err := c.store.Set(store.KeyAccess, renewed.Access); err != nil {
		return "", fmt.Errorf("failed to store access token: %w", err)
	}
	log.Debug().Msg("Access token refreshed")
	return renewed.Access, nil
}

// purgeTokens clears both credentials together, never one without the other
func (c *Client) purgeTokens() {
	if err := c.store.Clear(store.KeyAccess); err != nil {
		log.Warn().Err(err).Msg("Failed to clear access token")
	}
	if err := c.store.Clear(store.KeyRefresh); err != nil {
		log.Warn().Err(err).Msg("Failed to clear refresh token")
	}
	log.Info().Msg("Session expired, credentials cleared")
}

// beginRefresh marks a refresh in flight; it reports false when another
// call already holds the slot
func (c *Client) beginRefresh() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refreshing {
		return false
	}
	c.refreshing = true
	return true
}

// endRefresh releases the refresh-in-flight slot
func (c *Client) endRefresh() {
	c.mu.Lock()
	c.refreshing = false
	c.mu.Unlock()
}
