// Package model defines shared data types used across the kitchen-ops agent.
//
// The JSON shapes mirror the backend's REST resources and realtime payloads.
//
// Conventions:
//   - Quantities are display strings as reported by the backend (e.g. "8.5 kg")
//   - Dates are ISO 8601 strings (YYYY-MM-DD)
//   - IDs are opaque strings assigned by the backend
package model
