package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/kitchen-ops/internal/model"
	"github.com/rickgao/kitchen-ops/internal/realtime"
)

// APIStatus is the result of the REST health check.
type APIStatus string

const (
	APIChecking APIStatus = "checking"
	APIOnline   APIStatus = "online"
	APIOffline  APIStatus = "offline"
)

// StatusChecker calls the backend health endpoint. *api.Client implements it.
type StatusChecker interface {
	Status(ctx context.Context) (*model.BackendStatus, error)
}

// Channel is a realtime client and the path it connects to.
type Channel struct {
	Name   string
	Path   string
	Client *realtime.Client
}

// Config holds monitor configuration.
type Config struct {
	Interval time.Duration // Health check interval (default: 60s)
	Timeout  time.Duration // Per-check timeout (default: 5s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 60 * time.Second,
		Timeout:  5 * time.Second,
	}
}

// ChannelStatus is the state of one channel.
type ChannelStatus struct {
	Name  string         `json:"name"`
	State realtime.State `json:"state"`
}

// Snapshot is a point-in-time view of backend connectivity.
type Snapshot struct {
	API            APIStatus       `json:"api"`
	APIVersion     string          `json:"api_version,omitempty"`
	LastCheck      time.Time       `json:"last_check"`
	LastError      string          `json:"last_error,omitempty"`
	Channels       []ChannelStatus `json:"channels"`
	FullyConnected bool            `json:"fully_connected"`
}

// Monitor tracks realtime channel states and REST health.
type Monitor struct {
	cfg      Config
	checker  StatusChecker
	channels []Channel
	logger   *slog.Logger

	mu         sync.RWMutex
	api        APIStatus
	apiVersion string
	lastCheck  time.Time
	lastErr    string
	states     []realtime.State

	unsubs []func()
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Monitor.
func New(cfg Config, checker StatusChecker, channels []Channel, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Monitor{
		cfg:      cfg,
		checker:  checker,
		channels: channels,
		logger:   logger.With("component", "monitor"),
		api:      APIChecking,
		states:   make([]realtime.State, len(channels)),
	}
}

// Start follows channel states and begins the health check loop.
func (m *Monitor) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	for i, ch := range m.channels {
		m.unsubs = append(m.unsubs, ch.Client.OnStatusChange(func(s realtime.State) {
			m.setChannelState(i, s)
		}))
	}

	m.wg.Add(1)
	go m.run()

	m.logger.Info("backend monitor started",
		"interval", m.cfg.Interval,
		"channels", len(m.channels),
	)

	return nil
}

// Stop gracefully shuts down the monitor.
func (m *Monitor) Stop(ctx context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.unsubs = nil

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("backend monitor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the health check loop.
func (m *Monitor) run() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	// Check immediately on start.
	m.Check(m.ctx)

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.Check(m.ctx)
		}
	}
}

// Check calls the health endpoint once and records the result.
func (m *Monitor) Check(ctx context.Context) APIStatus {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	status, err := m.checker.Status(ctx)

	m.mu.Lock()
	prev := m.api
	m.lastCheck = time.Now()
	if err != nil {
		m.api = APIOffline
		m.lastErr = err.Error()
	} else {
		m.api = APIOnline
		m.lastErr = ""
		m.apiVersion = status.Version
	}
	current := m.api
	m.mu.Unlock()

	switch {
	case current == APIOffline && prev != APIOffline:
		m.logger.Warn("backend api unreachable, some features may be limited", "error", err)
	case current == APIOffline:
		m.logger.Debug("backend api still unreachable", "error", err)
	case prev == APIOffline:
		m.logger.Info("backend api back online")
	}

	return current
}

// ConnectAll connects every channel that is currently disconnected.
func (m *Monitor) ConnectAll() {
	for _, ch := range m.channels {
		if ch.Client.State() == realtime.StateDisconnected {
			ch.Client.Connect(ch.Path)
		}
	}
}

// DisconnectAll disconnects every channel.
func (m *Monitor) DisconnectAll() {
	for _, ch := range m.channels {
		ch.Client.Disconnect()
	}
}

// Snapshot returns the current connectivity view.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{
		API:        m.api,
		APIVersion: m.apiVersion,
		LastCheck:  m.lastCheck,
		LastError:  m.lastErr,
		Channels:   make([]ChannelStatus, len(m.channels)),
	}
	full := m.api == APIOnline
	for i, ch := range m.channels {
		snap.Channels[i] = ChannelStatus{Name: ch.Name, State: m.states[i]}
		if m.states[i] != realtime.StateConnected {
			full = false
		}
	}
	snap.FullyConnected = full
	return snap
}

// FullyConnected reports whether every channel is connected and the API is online.
func (m *Monitor) FullyConnected() bool {
	return m.Snapshot().FullyConnected
}

func (m *Monitor) setChannelState(i int, s realtime.State) {
	m.mu.Lock()
	m.states[i] = s
	m.mu.Unlock()

	m.logger.Debug("channel state changed",
		"channel", m.channels[i].Name,
		"state", s,
	)
}
