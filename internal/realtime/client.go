package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client maintains at most one connection to a backend endpoint.
//
// Create one Client per logical endpoint at startup and share it by reference.
// Close releases the event loop goroutine.
type Client struct {
	cfg    Config
	logger *slog.Logger
	dialer *websocket.Dialer

	// Mailbox feeding the event loop
	qmu      sync.Mutex
	queue    []any
	stopped  bool
	wake     chan struct{}
	done     chan struct{}
	loopDone chan struct{}
	closing  sync.Once

	// Registrations
	regMu     sync.Mutex
	handlers  map[string][]*handlerEntry
	observers []*observerEntry
	lost      []*lostEntry

	// emitMu orders status deliveries against new observer registrations
	emitMu sync.Mutex

	// State visible to any goroutine
	mu          sync.RWMutex
	state       State
	endpoint    string
	connectedAt time.Time

	// Send path
	liveMu sync.RWMutex
	live   *conn

	// Owned by the event loop goroutine
	active     *conn
	retry      *LinearBackOff
	retryTimer *time.Timer
	retryToken uint64
	lostFired  bool

	attempts       atomic.Int64
	framesReceived atomic.Int64
	framesDropped  atomic.Int64
	framesSent     atomic.Int64
}

// conn is one dialled connection. It is discarded on disconnect or close.
type conn struct {
	id       uuid.UUID
	url      string
	ws       *websocket.Conn
	cancel   context.CancelFunc
	done     chan struct{}
	writeMu  sync.Mutex
	lastPong atomic.Int64
	logger   *slog.Logger
}

type handlerEntry struct {
	fn      func(json.RawMessage)
	removed atomic.Bool
}

type observerEntry struct {
	fn      func(State)
	removed atomic.Bool
}

type lostEntry struct {
	fn      func()
	removed atomic.Bool
}

// Events processed by the loop
type (
	connectCmd    struct{ path string }
	disconnectCmd struct{}
	dialResult    struct {
		c   *conn
		ws  *websocket.Conn
		err error
	}
	frameEvent struct {
		c    *conn
		data []byte
	}
	closeEvent struct {
		c   *conn
		err error
	}
	retryEvent struct{ token uint64 }
)

// NewClient creates a Client and starts its event loop.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		cfg:    cfg,
		logger: logger,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
		handlers: make(map[string][]*handlerEntry),
		state:    StateDisconnected,
		retry:    NewLinearBackOff(cfg.ReconnectDelay, cfg.MaxReconnectAttempts),
	}

	go c.run()

	return c
}

// Connect opens a connection unless one is open, in progress, or scheduled for reconnection.
// An empty path dials the configured URL; otherwise BaseURL+path is dialled.
// Connect returns immediately; progress is reported through OnStatusChange.
func (c *Client) Connect(path string) {
	c.post(connectCmd{path: path})
}

// Disconnect closes the connection and cancels any pending reconnect.
// No automatic reconnection follows a Disconnect.
func (c *Client) Disconnect() {
	c.post(disconnectCmd{})
}

// Close disconnects and stops the event loop. It must not be called from a callback.
func (c *Client) Close() error {
	c.closing.Do(func() {
		close(c.done)
	})
	<-c.loopDone
	return nil
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Stats returns current counters.
func (c *Client) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		State:             c.state,
		Endpoint:          c.endpoint,
		ReconnectAttempts: int(c.attempts.Load()),
		FramesReceived:    c.framesReceived.Load(),
		FramesDropped:     c.framesDropped.Load(),
		FramesSent:        c.framesSent.Load(),
		ConnectedAt:       c.connectedAt,
	}
}

// OnStatusChange calls fn with the current state right away and again on every transition.
// fn must not call OnStatusChange itself.
func (c *Client) OnStatusChange(fn func(State)) (unsubscribe func()) {
	o := &observerEntry{fn: fn}

	c.emitMu.Lock()
	c.regMu.Lock()
	c.observers = append(c.observers, o)
	c.regMu.Unlock()
	c.notifyObserver(o, c.State())
	c.emitMu.Unlock()

	return func() {
		o.removed.Store(true)
		c.regMu.Lock()
		defer c.regMu.Unlock()
		for i, e := range c.observers {
			if e == o {
				c.observers = append(c.observers[:i:i], c.observers[i+1:]...)
				break
			}
		}
	}
}

// On registers fn for envelopes tagged tag. Handlers for a tag run in registration order.
func (c *Client) On(tag string, fn func(payload json.RawMessage)) (unsubscribe func()) {
	h := &handlerEntry{fn: fn}

	c.regMu.Lock()
	c.handlers[tag] = append(c.handlers[tag], h)
	c.regMu.Unlock()

	return func() {
		h.removed.Store(true)
		c.regMu.Lock()
		defer c.regMu.Unlock()
		list := c.handlers[tag]
		for i, e := range list {
			if e == h {
				list = append(list[:i:i], list[i+1:]...)
				break
			}
		}
		if len(list) == 0 {
			delete(c.handlers, tag)
		} else {
			c.handlers[tag] = list
		}
	}
}

// OnConnectionLost registers fn for the signal sent once reconnection gives up.
func (c *Client) OnConnectionLost(fn func()) (unsubscribe func()) {
	l := &lostEntry{fn: fn}

	c.regMu.Lock()
	c.lost = append(c.lost, l)
	c.regMu.Unlock()

	return func() {
		l.removed.Store(true)
		c.regMu.Lock()
		defer c.regMu.Unlock()
		for i, e := range c.lost {
			if e == l {
				c.lost = append(c.lost[:i:i], c.lost[i+1:]...)
				break
			}
		}
	}
}

// Send writes a {type, payload} envelope to the open connection.
// It returns ErrNotConnected without touching the network when no connection is open.
func (c *Client) Send(tag string, payload any) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	c.liveMu.RLock()
	cn := c.live
	c.liveMu.RUnlock()

	if cn == nil {
		c.logger.Warn("cannot send message: not connected", "type", tag)
		return ErrNotConnected
	}

	data, err := encodeEnvelope(tag, payload)
	if err != nil {
		c.logger.Error("failed to encode message", "type", tag, "error", err)
		return fmt.Errorf("encode envelope: %w", err)
	}

	cn.writeMu.Lock()
	defer cn.writeMu.Unlock()

	if c.cfg.WriteTimeout > 0 {
		cn.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	if err := cn.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		cn.logger.Error("failed to send message", "type", tag, "error", err)
		return fmt.Errorf("write message: %w", err)
	}

	c.framesSent.Add(1)
	return nil
}

// post queues an event for the loop. The queue is unbounded so callers never block.
// It reports false when the client is closed and the event was dropped.
func (c *Client) post(ev any) bool {
	c.qmu.Lock()
	if c.stopped {
		c.qmu.Unlock()
		c.logger.Debug("client closed, dropping event", "event", fmt.Sprintf("%T", ev))
		return false
	}
	c.queue = append(c.queue, ev)
	c.qmu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
	return true
}

func (c *Client) drain() []any {
	c.qmu.Lock()
	defer c.qmu.Unlock()
	events := c.queue
	c.queue = nil
	return events
}

// shutdown stops the mailbox and releases sockets from dials that finished after Close.
func (c *Client) shutdown(unhandled []any) {
	c.qmu.Lock()
	c.stopped = true
	pending := append(unhandled, c.queue...)
	c.queue = nil
	c.qmu.Unlock()

	for _, ev := range pending {
		if r, ok := ev.(dialResult); ok && r.ws != nil {
			r.ws.Close()
		}
	}
	c.handleDisconnect()
}

// run is the event loop. Every callback is invoked from here.
func (c *Client) run() {
	defer close(c.loopDone)

	for {
		select {
		case <-c.done:
			c.shutdown(nil)
			return
		case <-c.wake:
		}

		events := c.drain()
		for i, ev := range events {
			select {
			case <-c.done:
				c.shutdown(events[i:])
				return
			default:
			}
			c.handle(ev)
		}
	}
}

func (c *Client) handle(ev any) {
	switch e := ev.(type) {
	case connectCmd:
		c.handleConnect(e)
	case disconnectCmd:
		c.handleDisconnect()
	case dialResult:
		c.handleDialResult(e)
	case frameEvent:
		c.handleFrame(e)
	case closeEvent:
		c.handleClose(e)
	case retryEvent:
		c.handleRetry(e)
	}
}

func (c *Client) handleConnect(cmd connectCmd) {
	if c.active != nil {
		c.logger.Debug("connect ignored: connection open or in progress", "endpoint", c.active.url)
		return
	}

	if c.retryTimer != nil {
		c.logger.Debug("connect ignored: reconnection scheduled", "attempt", c.retry.Attempt())
		return
	}

	// The budget is restored only once the previous outage has been reported.
	if c.lostFired {
		c.retry.Reset()
		c.attempts.Store(0)
		c.lostFired = false
	}

	c.dial(c.resolve(cmd.path))
}

func (c *Client) handleDisconnect() {
	c.cancelRetry()

	if c.active != nil {
		c.teardown(c.active, errIntentionalClosure)
		c.active = nil
		c.logger.Info("realtime disconnected")
	}

	c.setState(StateDisconnected)
}

func (c *Client) handleDialResult(r dialResult) {
	if r.c != c.active {
		// Disconnected while dialling.
		if r.ws != nil {
			r.ws.Close()
		}
		return
	}

	if r.err != nil {
		r.c.logger.Warn("realtime dial failed", "endpoint", r.c.url, "error", r.err)
		c.teardown(r.c, r.err)
		c.active = nil
		c.scheduleReconnect()
		return
	}

	cn := r.c
	cn.ws = r.ws
	cn.lastPong.Store(time.Now().UnixNano())

	ws := r.ws
	ws.SetPingHandler(func(data string) error {
		cn.lastPong.Store(time.Now().UnixNano())
		return ws.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})
	ws.SetPongHandler(func(string) error {
		cn.lastPong.Store(time.Now().UnixNano())
		return nil
	})

	c.liveMu.Lock()
	c.live = cn
	c.liveMu.Unlock()

	c.retry.Reset()
	c.attempts.Store(0)
	c.lostFired = false

	c.mu.Lock()
	c.connectedAt = time.Now()
	c.mu.Unlock()

	go c.readLoop(cn)
	if c.cfg.PingInterval > 0 {
		go c.keepalive(cn)
	}

	cn.logger.Info("realtime connected", "endpoint", cn.url)
	c.setState(StateConnected)
}

func (c *Client) handleFrame(e frameEvent) {
	if e.c != c.active {
		return
	}
	c.framesReceived.Add(1)

	env, err := decodeEnvelope(e.data)
	if err != nil {
		c.framesDropped.Add(1)
		e.c.logger.Warn("dropping malformed frame", "error", err, "size", len(e.data))
		return
	}

	c.regMu.Lock()
	handlers := make([]*handlerEntry, len(c.handlers[env.Type]))
	copy(handlers, c.handlers[env.Type])
	c.regMu.Unlock()

	if len(handlers) == 0 {
		c.framesDropped.Add(1)
		e.c.logger.Debug("no handler for message type", "type", env.Type)
		return
	}

	for _, h := range handlers {
		if h.removed.Load() {
			continue
		}
		c.invoke(env.Type, h, env.Payload)
	}
}

func (c *Client) handleClose(e closeEvent) {
	if e.c != c.active {
		return
	}

	if websocket.IsCloseError(e.err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		e.c.logger.Info("connection closed by server", "error", e.err)
	} else {
		e.c.logger.Warn("connection lost", "error", e.err)
	}

	c.teardown(e.c, e.err)
	c.active = nil
	c.scheduleReconnect()
}

func (c *Client) handleRetry(e retryEvent) {
	if e.token != c.retryToken || c.active != nil {
		return
	}
	c.retryTimer = nil

	c.logger.Info("attempting reconnection",
		"attempt", c.retry.Attempt(),
		"max_attempts", c.retry.Max,
	)

	c.mu.RLock()
	endpoint := c.endpoint
	c.mu.RUnlock()

	c.dial(endpoint)
}

// scheduleReconnect runs after an unexpected close or failed dial.
func (c *Client) scheduleReconnect() {
	c.setState(StateDisconnected)

	delay := c.retry.NextBackOff()
	c.attempts.Store(int64(c.retry.Attempt()))

	if delay == backoff.Stop {
		if !c.lostFired {
			c.lostFired = true
			c.logger.Error("giving up on reconnection",
				"attempts", c.retry.Attempt(),
			)
			c.emitLost()
		}
		return
	}

	c.logger.Info("scheduling reconnection",
		"attempt", c.retry.Attempt(),
		"max_attempts", c.retry.Max,
		"delay", delay,
	)

	token := c.retryToken
	c.retryTimer = time.AfterFunc(delay, func() {
		c.post(retryEvent{token: token})
	})
}

func (c *Client) cancelRetry() {
	c.retryToken++
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
}

func (c *Client) resolve(path string) string {
	if path == "" {
		return c.cfg.URL
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(c.cfg.BaseURL, "/") + path
}

func (c *Client) dial(url string) {
	ctx, cancel := context.WithCancel(context.Background())
	cn := &conn{
		id:     uuid.New(),
		url:    url,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	cn.logger = c.logger.With("conn_id", cn.id.String())
	c.active = cn

	c.mu.Lock()
	c.endpoint = url
	c.mu.Unlock()

	header := http.Header{}
	if c.cfg.APIKey != "" {
		header.Set("X-API-Key", c.cfg.APIKey)
	}

	c.setState(StateConnecting)
	cn.logger.Debug("dialling", "endpoint", url)

	go func() {
		ws, _, err := c.dialer.DialContext(ctx, url, header)
		if !c.post(dialResult{c: cn, ws: ws, err: err}) && ws != nil {
			ws.Close()
		}
	}()
}

// teardown releases a connection. Late events from it are ignored by the loop.
func (c *Client) teardown(cn *conn, reason error) {
	cn.cancel()
	close(cn.done)

	c.liveMu.Lock()
	if c.live == cn {
		c.live = nil
	}
	c.liveMu.Unlock()

	if cn.ws == nil {
		return
	}

	if reason == errIntentionalClosure {
		cn.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
	}
	cn.ws.Close()
}

func (c *Client) readLoop(cn *conn) {
	for {
		_, data, err := cn.ws.ReadMessage()
		if err != nil {
			c.post(closeEvent{c: cn, err: err})
			return
		}
		c.post(frameEvent{c: cn, data: data})
	}
}

// keepalive pings the server and drops the connection when pongs stop.
func (c *Client) keepalive(cn *conn) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	writeTimeout := c.cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}

	for {
		select {
		case <-cn.done:
			return
		case <-ticker.C:
			if err := cn.ws.WriteControl(websocket.PingMessage, []byte("keepalive"), time.Now().Add(writeTimeout)); err != nil {
				cn.logger.Debug("failed to send ping", "error", err)
			}

			if c.cfg.PongTimeout <= 0 {
				continue
			}
			lastPong := time.Unix(0, cn.lastPong.Load())
			if time.Since(lastPong) > c.cfg.PongTimeout {
				cn.logger.Warn("no pong received, connection stale",
					"last_pong", lastPong,
					"timeout", c.cfg.PongTimeout,
				)
				c.post(closeEvent{c: cn, err: ErrPongTimeout})
				return
			}
		}
	}
}

// setState records s and notifies observers when it differs from the current state.
func (c *Client) setState(s State) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()

	if prev == s {
		return
	}

	c.logger.Debug("state changed", "from", prev, "to", s)

	c.regMu.Lock()
	observers := make([]*observerEntry, len(c.observers))
	copy(observers, c.observers)
	c.regMu.Unlock()

	for _, o := range observers {
		if o.removed.Load() {
			continue
		}
		c.notifyObserver(o, s)
	}
}

func (c *Client) emitLost() {
	c.regMu.Lock()
	lost := make([]*lostEntry, len(c.lost))
	copy(lost, c.lost)
	c.regMu.Unlock()

	for _, l := range lost {
		if l.removed.Load() {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error("connection-lost callback panicked", "panic", r)
				}
			}()
			l.fn()
		}()
	}
}

func (c *Client) notifyObserver(o *observerEntry, s State) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("status callback panicked", "state", s, "panic", r)
		}
	}()
	o.fn(s)
}

func (c *Client) invoke(tag string, h *handlerEntry, payload json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("message handler panicked", "type", tag, "panic", r)
		}
	}()
	h.fn(payload)
}
