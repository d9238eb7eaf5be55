// Package realtime implements the realtime client used by the dashboard agent.
//
// A Client owns at most one WebSocket connection to a backend endpoint and:
//   - Tracks connection state (disconnected, connecting, connected)
//   - Dispatches inbound {type, payload} envelopes to handlers registered per tag
//   - Reconnects after unexpected closes with linear backoff (attempt × base delay)
//   - Emits a one-shot "connection lost" signal once the retry budget is spent
//
// All callbacks run on the client's event loop goroutine, one event at a time.
package realtime
