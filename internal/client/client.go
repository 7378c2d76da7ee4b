// Package client is the HTTP client for the task backend's REST API.
//
// Every request carries the bearer token of the current session (when there
// is one) and is bounded by the configured timeout. Non-2xx answers become a
// *StatusError that unwraps to the matching apperr sentinel.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starford/tasknote/internal/apperr"
	"github.com/starford/tasknote/internal/wire"
)

// TokenSource yields the bearer token for outbound requests.
type TokenSource interface {
	Token() string
}

// Client talks to the REST backend rooted at baseURL (e.g. http://host:8080/api).
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

// New creates a client. A zero timeout disables the per-request deadline.
func New(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
}

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: status %d", e.Code)
	}
	return fmt.Sprintf("backend: status %d: %s", e.Code, e.Message)
}

// Unwrap maps well-known status codes to apperr sentinels.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusUnauthorized:
		return apperr.ErrUnauthorized
	case http.StatusNotFound:
		return apperr.ErrNotFound
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return apperr.ErrValidation
	case http.StatusConflict:
		return apperr.ErrConflict
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	return req, nil
}

// doJSON sends in (if non-nil) as JSON and decodes the answer into out (if non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: encode body: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	se := &StatusError{Code: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return se
	}
	var body wire.ErrorResponse
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		se.Message = body.Error
	} else {
		se.Message = strings.TrimSpace(string(data))
	}
	return se
}

// IsUnauthorized reports whether err means the session is no longer valid.
func IsUnauthorized(err error) bool {
	return errors.Is(err, apperr.ErrUnauthorized)
}
