// Package monitor reports whether the agent is fully connected to the backend.
//
// It follows the state of every realtime channel and polls the REST
// /status endpoint on an interval. The agent is fully connected when every
// channel is connected and the last health check succeeded.
package monitor
