// Package database manages the optional PostgreSQL pool used for history.
//
// Tables:
//   - inventory_snapshots: one row per item per inventory update
//   - waste_events: one row per waste_tracking event
package database
