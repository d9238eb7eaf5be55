// Package api provides the kitchen backend REST client.
//
// Default endpoint: http://localhost:5000/api
//
// Requests carry an optional X-API-Key header. Idempotent requests are
// retried with exponential backoff on 5xx, 429 and transport errors.
//
// Resources: /inventory, /inventory/alerts, /ai/forecast-usage,
// /ai/analyze-waste, /status
package api
