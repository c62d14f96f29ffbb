// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package pinclient provides an HTTP client whose TLS connections are
// verified by a pinning.TrustManager.
package pinclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jeremyhahn/go-pintrust/pkg/pinning"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests.
	DefaultTimeout = 10 * time.Second

	// MaxResponseSize is the maximum allowed response body size (1 MB).
	MaxResponseSize = 1 << 20
)

// ClientConfig configures the pinned HTTP client.
type ClientConfig struct {
	// TrustManager verifies every server chain. Required.
	TrustManager *pinning.TrustManager

	// Timeout is the overall request timeout. Defaults to DefaultTimeout.
	Timeout time.Duration

	// Logger for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client issues HTTPS requests over pinned TLS.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a pinned HTTP client. The server name for host name
// verification is taken from each request URL.
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg == nil || cfg.TrustManager == nil {
		return nil, fmt.Errorf("%w: trust manager is required", ErrInvalidConfig)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				TLSClientConfig:     cfg.TrustManager.TLSConfig(""),
				TLSHandshakeTimeout: timeout,
				ForceAttemptHTTP2:   true,
			},
		},
		logger: logger.With("component", "pinclient"),
	}, nil
}

// HTTPClient returns the underlying client for callers that need full
// control over requests.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Get fetches url and returns the response body. Non-200 responses, empty
// bodies and rejected server chains are errors wrapping ErrRequestFailed
// or ErrEmptyResponse.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	c.logger.Debug("sending pinned request", "url", req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("pinned request failed", "url", req.URL.String(), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: server returned %d", ErrRequestFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	if len(body) == 0 {
		return nil, ErrEmptyResponse
	}

	c.logger.Debug("pinned request succeeded", "url", req.URL.String(), "size", len(body))
	return body, nil
}

// Close releases idle connections held by the client.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
