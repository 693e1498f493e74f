// Copyright (c) 2026 Folio. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package probe is a Go client for the session-check endpoint.

It mirrors the browser probe on the admin shell: it asks
GET /api/auth/session whether a token is live and fails closed, so any
transport error, unexpected status or unreadable body counts as
unauthenticated.
*/
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/taibuivan/folio/internal/platform/sec"
	"github.com/taibuivan/folio/internal/users/auth"
)

// SessionPath is the endpoint the probe calls, relative to the base URL.
const SessionPath = "/api/auth/session"

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 16
)

// Result is the decoded answer of the session endpoint.
type Result struct {
	Authenticated bool          `json:"authenticated"`
	User          *sec.Identity `json:"user,omitempty"`
}

// Client checks session tokens against a running API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient replaces the default traced HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(client *Client) {
		client.httpClient = httpClient
	}
}

// New creates a client for the API at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

/*
Check reports whether token resolves to an active session.

Returns:
  - Result: Always safe to use; Authenticated is false whenever err is set
  - error: Transport, status or decoding failures
*/
func (client *Client) Check(ctx context.Context, token string) (Result, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, client.baseURL+SessionPath, nil)
	if err != nil {
		return Result{}, fmt.Errorf("probe: build request: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	if token != "" {
		request.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: token})
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return Result{}, fmt.Errorf("probe: request failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, maxBodyBytes))
		return Result{}, fmt.Errorf("probe: unexpected status %d", response.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(io.LimitReader(response.Body, maxBodyBytes)).Decode(&result); err != nil {
		return Result{}, fmt.Errorf("probe: decode response: %w", err)
	}

	if result.Authenticated && result.User == nil {
		return Result{}, fmt.Errorf("probe: authenticated response without user")
	}

	return result, nil
}
