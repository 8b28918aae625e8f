// ABOUTME: HTTP client for the plugin repository API.
// ABOUTME: Implements the editor repository and the selection batch deleter.

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
	"time"

	"github.com/2389/pluginadmin/internal/editor"
	apierrors "github.com/2389/pluginadmin/internal/errors"
	"github.com/2389/pluginadmin/internal/wire"
)

// ErrNotFound is returned by Get for unknown plugins.
var ErrNotFound = editor.ErrNotFound

// StatusError is a non-2xx response from the repository.
type StatusError struct {
	Method   string
	Path     string
	Response *apierrors.ErrorResponse
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Response)
}

// Unwrap exposes ErrNotFound for 404 responses and the envelope otherwise.
func (e *StatusError) Unwrap() []error {
	errs := []error{e.Response}
	if e.Response.Status == http.StatusNotFound {
		errs = append(errs, ErrNotFound)
	}
	return errs
}

// Client talks to the repository API at BaseURL.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client. A zero timeout leaves requests bounded only by
// their context.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// List returns every plugin.
func (c *Client) List(ctx context.Context) ([]wire.Plugin, error) {
	var list wire.List
	if err := c.do(ctx, http.MethodGet, "/plugins", nil, &list); err != nil {
		return nil, err
	}
	return list.Records(), nil
}

// Get returns the named plugin. An empty plugin in the response is treated
// as not found.
func (c *Client) Get(ctx context.Context, name string) (wire.Plugin, error) {
	var env wire.Envelope
	if err := c.do(ctx, http.MethodGet, "/plugins/"+url.PathEscape(name), nil, &env); err != nil {
		return wire.Plugin{}, err
	}
	if env.Plugin.Name == "" {
		return wire.Plugin{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return env.Plugin, nil
}

// Create posts a new plugin and returns the stored record.
func (c *Client) Create(ctx context.Context, p wire.Plugin) (wire.Plugin, error) {
	var env wire.Envelope
	if err := c.do(ctx, http.MethodPost, "/plugins", wire.Envelope{Plugin: p}, &env); err != nil {
		return wire.Plugin{}, err
	}
	return env.Plugin, nil
}

// Update puts an existing plugin and returns the stored record.
func (c *Client) Update(ctx context.Context, p wire.Plugin) (wire.Plugin, error) {
	var env wire.Envelope
	if err := c.do(ctx, http.MethodPut, "/plugins", wire.Envelope{Plugin: p}, &env); err != nil {
		return wire.Plugin{}, err
	}
	return env.Plugin, nil
}

// DeletePlugins removes the given plugins in one request.
func (c *Client) DeletePlugins(ctx context.Context, plugins []wire.Plugin) error {
	_, err := c.Delete(ctx, plugins)
	return err
}

// Delete removes the given plugins and returns the plugins that remain.
func (c *Client) Delete(ctx context.Context, plugins []wire.Plugin) ([]wire.Plugin, error) {
	var remaining wire.List
	if err := c.do(ctx, http.MethodPost, "/plugins/delete", wire.NewList(plugins), &remaining); err != nil {
		return nil, err
	}
	return remaining.Records(), nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, Path: path, Response: apierrors.Read(resp.StatusCode, resp.Body)}
	}
	if out == nil {
		return nil
	}
	if err := wire.Decode(resp.Body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
