package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/kitchen-ops/internal/model"
	"github.com/rickgao/kitchen-ops/internal/realtime"
)

// fakeChecker returns err when set, otherwise an ok status.
type fakeChecker struct {
	mu    sync.Mutex
	err   error
	calls atomic.Int32
}

func (f *fakeChecker) Status(ctx context.Context) (*model.BackendStatus, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &model.BackendStatus{Status: "ok", Version: "1.0.0"}, nil
}

func (f *fakeChecker) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// echoServer accepts websocket connections and holds them open.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newChannel(t *testing.T, name, base string) Channel {
	t.Helper()
	cfg := realtime.DefaultConfig()
	cfg.URL = base
	cfg.BaseURL = base
	cfg.PingInterval = 0
	cfg.ReconnectDelay = 5 * time.Millisecond
	c := realtime.NewClient(cfg, testLogger())
	t.Cleanup(func() { c.Close() })
	return Channel{Name: name, Path: "/ws/" + name, Client: c}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestMonitor_Check(t *testing.T) {
	checker := &fakeChecker{}
	m := New(DefaultConfig(), checker, nil, testLogger())

	if got := m.Snapshot().API; got != APIChecking {
		t.Errorf("initial API = %q, want %q", got, APIChecking)
	}

	if got := m.Check(context.Background()); got != APIOnline {
		t.Errorf("Check() = %q, want online", got)
	}
	snap := m.Snapshot()
	if snap.APIVersion != "1.0.0" || snap.LastCheck.IsZero() {
		t.Errorf("snapshot = %+v", snap)
	}

	checker.setErr(errors.New("connection refused"))
	if got := m.Check(context.Background()); got != APIOffline {
		t.Errorf("Check() = %q, want offline", got)
	}
	if snap := m.Snapshot(); !strings.Contains(snap.LastError, "connection refused") {
		t.Errorf("LastError = %q", snap.LastError)
	}

	checker.setErr(nil)
	if got := m.Check(context.Background()); got != APIOnline {
		t.Errorf("Check() = %q, want online after recovery", got)
	}
	if m.Snapshot().LastError != "" {
		t.Error("LastError should clear on recovery")
	}
}

func TestMonitor_StartStop(t *testing.T) {
	checker := &fakeChecker{}
	m := New(Config{Interval: 10 * time.Millisecond, Timeout: time.Second}, checker, nil, testLogger())

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitFor(t, time.Second, func() bool { return checker.calls.Load() >= 3 })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	calls := checker.calls.Load()
	time.Sleep(50 * time.Millisecond)
	if checker.calls.Load() != calls {
		t.Error("health checks continued after Stop")
	}
}

func TestMonitor_FullyConnected(t *testing.T) {
	server := echoServer(t)
	base := "ws" + strings.TrimPrefix(server.URL, "http")

	inv := newChannel(t, "inventory", base)
	waste := newChannel(t, "waste-tracking", base)
	checker := &fakeChecker{}

	m := New(Config{Interval: time.Hour, Timeout: time.Second}, checker, []Channel{inv, waste}, testLogger())
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer m.Stop(context.Background())

	waitFor(t, time.Second, func() bool { return m.Snapshot().API == APIOnline })
	if m.FullyConnected() {
		t.Fatal("FullyConnected before channels connect")
	}

	m.ConnectAll()
	waitFor(t, 2*time.Second, m.FullyConnected)

	snap := m.Snapshot()
	if len(snap.Channels) != 2 || snap.Channels[0].Name != "inventory" || snap.Channels[1].State != realtime.StateConnected {
		t.Errorf("Channels = %+v", snap.Channels)
	}

	checker.setErr(errors.New("down"))
	m.Check(context.Background())
	if m.FullyConnected() {
		t.Error("FullyConnected with API offline")
	}

	m.DisconnectAll()
	waitFor(t, time.Second, func() bool {
		s := m.Snapshot()
		return s.Channels[0].State == realtime.StateDisconnected && s.Channels[1].State == realtime.StateDisconnected
	})
}

func TestMonitor_ConnectAllSkipsConnected(t *testing.T) {
	var dials atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dials.Add(1)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	base := "ws" + strings.TrimPrefix(server.URL, "http")

	inv := newChannel(t, "inventory", base)
	m := New(DefaultConfig(), &fakeChecker{}, []Channel{inv}, testLogger())

	m.ConnectAll()
	waitFor(t, 2*time.Second, func() bool { return inv.Client.State() == realtime.StateConnected })

	m.ConnectAll()
	time.Sleep(50 * time.Millisecond)
	if n := dials.Load(); n != 1 {
		t.Errorf("dials = %d, want 1", n)
	}
}
