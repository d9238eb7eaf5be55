package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// APIError represents an error response from the backend.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kitchen api error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the error should trigger a retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// request describes one API call. body is resent on every attempt.
type request struct {
	method      string
	path        string
	body        []byte
	contentType string
}

// idempotent requests may be retried.
func (r request) idempotent() bool {
	return r.method == http.MethodGet || r.method == http.MethodDelete
}

// doRequest performs a single HTTP attempt.
func (c *Client) doRequest(ctx context.Context, r request) ([]byte, error) {
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header = c.header.Clone()
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       respBody,
		}
	}

	return respBody, nil
}

// doWithRetry performs a request, retrying idempotent calls with exponential backoff.
func (c *Client) doWithRetry(ctx context.Context, r request) ([]byte, error) {
	maxTries := uint(1)
	if r.idempotent() && c.maxRetries > 0 {
		maxTries += uint(c.maxRetries)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryBackoff
	bo.MaxInterval = 30 * c.retryBackoff

	attempts := uint(0)
	exhausted := false
	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		attempts++
		body, err := c.doRequest(ctx, r)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.IsRetryable() {
			return nil, backoff.Permanent(err)
		}
		exhausted = attempts >= maxTries
		return nil, err
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Debug("retrying request",
				"method", r.method,
				"path", r.path,
				"backoff", next,
				"error", err,
			)
		}),
	)
	if err != nil {
		if exhausted && maxTries > 1 {
			return nil, fmt.Errorf("max retries exceeded: %w", err)
		}
		return nil, err
	}

	return body, nil
}

// get performs a GET request with retries.
func (c *Client) get(ctx context.Context, path string, result any) error {
	return c.do(ctx, request{method: http.MethodGet, path: path}, result)
}

// sendJSON encodes in as the request body. result may be nil.
func (c *Client) sendJSON(ctx context.Context, method, path string, in, result any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, request{method: method, path: path, body: data, contentType: "application/json"}, result)
}

func (c *Client) do(ctx context.Context, r request, result any) error {
	body, err := c.doWithRetry(ctx, r)
	if err != nil {
		return err
	}

	if result == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}
