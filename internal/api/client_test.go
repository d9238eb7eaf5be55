package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// TestNewClient tests client construction with various options.
func TestNewClient(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewClient("http://localhost:5000/api/", WithAPIKey("test-key"))

		if c.baseURL != "http://localhost:5000/api" {
			t.Errorf("baseURL = %q, want trailing slash trimmed", c.baseURL)
		}
		if got := c.header.Get(APIKeyHeader); got != "test-key" {
			t.Errorf("%s = %q, want %q", APIKeyHeader, got, "test-key")
		}
		if got := c.header.Get("User-Agent"); !strings.HasPrefix(got, "kitchend/") {
			t.Errorf("User-Agent = %q, want kitchend/ prefix", got)
		}
		if c.httpClient.Timeout != 30*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 30*time.Second)
		}
		if c.maxRetries != 3 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 3)
		}
		if c.retryBackoff != time.Second {
			t.Errorf("retryBackoff = %v, want %v", c.retryBackoff, time.Second)
		}
		if c.logger == nil {
			t.Error("logger should not be nil")
		}
	})

	t.Run("with options", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		c := NewClient("http://localhost:5000/api",
			WithTimeout(15*time.Second),
			WithRetries(10, 500*time.Millisecond),
			WithLogger(logger),
		)
		if c.httpClient.Timeout != 15*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 15*time.Second)
		}
		if c.maxRetries != 10 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 10)
		}
		if c.retryBackoff != 500*time.Millisecond {
			t.Errorf("retryBackoff = %v, want %v", c.retryBackoff, 500*time.Millisecond)
		}
		if c.logger != logger {
			t.Error("logger not set correctly")
		}
	})

	t.Run("nil logger keeps default", func(t *testing.T) {
		c := NewClient("http://localhost:5000/api", WithLogger(nil))
		if c.logger == nil {
			t.Error("logger should not be nil")
		}
	})

	t.Run("empty API key clears header", func(t *testing.T) {
		c := NewClient("http://localhost:5000/api", WithAPIKey("k"), WithAPIKey(""))
		if _, ok := c.header[APIKeyHeader]; ok {
			t.Errorf("%s should be unset", APIKeyHeader)
		}
	})

	t.Run("with custom HTTP client", func(t *testing.T) {
		customClient := &http.Client{Timeout: 10 * time.Second}
		c := NewClient("http://localhost:5000/api", WithHTTPClient(customClient))
		if c.httpClient != customClient {
			t.Error("custom HTTP client not set")
		}
	})
}

// TestAPIError tests the APIError type.
func TestAPIError(t *testing.T) {
	err := &APIError{StatusCode: 404, Message: "Not Found"}
	if err.Error() != "kitchen api error 404: Not Found" {
		t.Errorf("Error() = %q", err.Error())
	}

	tests := []struct {
		code int
		want bool
	}{
		{400, false},
		{401, false},
		{404, false},
		{429, true},
		{500, true},
		{502, true},
		{503, true},
	}
	for _, tt := range tests {
		e := &APIError{StatusCode: tt.code}
		if got := e.IsRetryable(); got != tt.want {
			t.Errorf("IsRetryable(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}

	if !IsNotFound(errors.Join(errors.New("wrapped"), err)) {
		t.Error("IsNotFound should see through wrapping")
	}
	if IsNotFound(&APIError{StatusCode: 500}) {
		t.Error("IsNotFound(500) = true")
	}
}

// TestDoRequest tests a single HTTP attempt.
func TestDoRequest(t *testing.T) {
	t.Run("sends API key header", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Accept") != "application/json" {
				t.Errorf("Accept header = %q, want %q", r.Header.Get("Accept"), "application/json")
			}
			if r.Header.Get(APIKeyHeader) != "test-key" {
				t.Errorf("%s header = %q, want %q", APIKeyHeader, r.Header.Get(APIKeyHeader), "test-key")
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status": "ok"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, WithAPIKey("test-key"))
		body, err := c.doRequest(context.Background(), request{method: http.MethodGet, path: "/test"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(body) != `{"status": "ok"}` {
			t.Errorf("body = %q, want %q", string(body), `{"status": "ok"}`)
		}
	})

	t.Run("omits API key header when unset", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := r.Header[APIKeyHeader]; ok {
				t.Errorf("%s header should be absent", APIKeyHeader)
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		c := NewClient(server.URL)
		if _, err := c.doRequest(context.Background(), request{method: http.MethodGet, path: "/test"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("custom user agent", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.UserAgent(); got != "kitchen-dashboard/2" {
				t.Errorf("User-Agent = %q, want %q", got, "kitchen-dashboard/2")
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, WithUserAgent("kitchen-dashboard/2"))
		if _, err := c.doRequest(context.Background(), request{method: http.MethodGet, path: "/test"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("4xx error returns APIError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error": "not found"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, WithAPIKey("key"))
		_, err := c.doRequest(context.Background(), request{method: http.MethodGet, path: "/test"})
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError, got %T", err)
		}
		if apiErr.StatusCode != 404 {
			t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, 404)
		}
		if !strings.Contains(string(apiErr.Body), "not found") {
			t.Errorf("Body should contain 'not found', got %q", string(apiErr.Body))
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
		}))
		defer server.Close()

		c := NewClient(server.URL, WithAPIKey("key"))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.doRequest(ctx, request{method: http.MethodGet, path: "/test"})
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error should be context.Canceled, got %v", err)
		}
	})
}

// TestDoWithRetry tests the retry logic.
func TestDoWithRetry(t *testing.T) {
	get := request{method: http.MethodGet, path: "/test"}

	t.Run("retries on 5xx and succeeds", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&attempts, 1) < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`{"ok": true}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, WithAPIKey("key"), WithRetries(3, time.Millisecond))
		body, err := c.doWithRetry(context.Background(), get)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(body) != `{"ok": true}` {
			t.Errorf("body = %q", string(body))
		}
		if n := atomic.LoadInt32(&attempts); n != 3 {
			t.Errorf("attempts = %d, want 3", n)
		}
	})

	t.Run("retries on 429", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&attempts, 1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, WithAPIKey("key"), WithRetries(3, time.Millisecond))
		if _, err := c.doWithRetry(context.Background(), get); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n := atomic.LoadInt32(&attempts); n != 2 {
			t.Errorf("attempts = %d, want 2", n)
		}
	})

	t.Run("does not retry 4xx", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		c := NewClient(server.URL, WithAPIKey("key"), WithRetries(3, time.Millisecond))
		_, err := c.doWithRetry(context.Background(), get)
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
			t.Fatalf("err = %v, want 400 APIError", err)
		}
		if strings.Contains(err.Error(), "max retries exceeded") {
			t.Errorf("4xx should not report exhaustion: %v", err)
		}
		if n := atomic.LoadInt32(&attempts); n != 1 {
			t.Errorf("attempts = %d, want 1", n)
		}
	})

	t.Run("max retries exceeded", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		c := NewClient(server.URL, WithAPIKey("key"), WithRetries(2, time.Millisecond))
		_, err := c.doWithRetry(context.Background(), get)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "max retries exceeded") {
			t.Errorf("error = %v, want max retries exceeded", err)
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("err = %v, want wrapped 503", err)
		}
		if n := atomic.LoadInt32(&attempts); n != 3 {
			t.Errorf("attempts = %d, want 3", n)
		}
	})

	t.Run("POST is not retried", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		c := NewClient(server.URL, WithAPIKey("key"), WithRetries(3, time.Millisecond))
		_, err := c.doWithRetry(context.Background(), request{method: http.MethodPost, path: "/test", body: []byte(`{}`)})
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if n := atomic.LoadInt32(&attempts); n != 1 {
			t.Errorf("attempts = %d, want 1", n)
		}
	})

	t.Run("context cancelled stops retries", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		c := NewClient(server.URL, WithAPIKey("key"), WithRetries(10, time.Second))
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := c.doWithRetry(ctx, get)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if time.Since(start) > 2*time.Second {
			t.Errorf("retry loop ignored context, took %v", time.Since(start))
		}
	})
}
