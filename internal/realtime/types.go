package realtime

import (
	"encoding/json"
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected       = errors.New("not connected")
	ErrClosed             = errors.New("client closed")
	ErrMalformedEnvelope  = errors.New("malformed envelope")
	ErrPongTimeout        = errors.New("connection stale (no pong)")
	errIntentionalClosure = errors.New("closed by disconnect")
)

// State is the connection state of a Client.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// MarshalText lets State appear as its name in JSON health output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Envelope is the wire format for every frame in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// decodeEnvelope parses one inbound text frame.
func decodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, errors.Join(ErrMalformedEnvelope, err)
	}
	if env.Type == "" {
		return Envelope{}, errors.Join(ErrMalformedEnvelope, errors.New("missing type"))
	}
	return env, nil
}

// encodeEnvelope serialises an outbound envelope.
func encodeEnvelope(tag string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: tag, Payload: raw})
}

// Config configures a realtime Client.
type Config struct {
	URL                  string        // Default endpoint, used by Connect("")
	BaseURL              string        // Host prefix for Connect(path), e.g. ws://localhost:5000
	APIKey               string        // Sent as X-API-Key when non-empty
	MaxReconnectAttempts int           // Automatic attempts before giving up
	ReconnectDelay       time.Duration // Base delay, multiplied by the attempt number
	HandshakeTimeout     time.Duration // 0 = no handshake timeout
	WriteTimeout         time.Duration // Write deadline for sends
	PingInterval         time.Duration // 0 disables keepalive pings
	PongTimeout          time.Duration // Max time without pong before the connection is dropped
}

// DefaultConfig returns the client defaults.
func DefaultConfig() Config {
	return Config{
		URL:                  "ws://localhost:5000/ws/inventory",
		BaseURL:              "ws://localhost:5000",
		MaxReconnectAttempts: 5,
		ReconnectDelay:       3 * time.Second,
		WriteTimeout:         5 * time.Second,
		PingInterval:         30 * time.Second,
		PongTimeout:          60 * time.Second,
	}
}

// Stats is a point-in-time view of a Client.
type Stats struct {
	State             State     `json:"state"`
	Endpoint          string    `json:"endpoint"`
	ReconnectAttempts int       `json:"reconnect_attempts"`
	FramesReceived    int64     `json:"frames_received"`
	FramesDropped     int64     `json:"frames_dropped"`
	FramesSent        int64     `json:"frames_sent"`
	ConnectedAt       time.Time `json:"connected_at,omitempty"`
}
