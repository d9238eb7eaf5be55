// Package history records inventory updates and waste events to PostgreSQL.
//
// Records are queued in memory and written in batches with pgx.Batch, either
// when a queue reaches the batch size or on the flush interval. Each queue
// is bounded; once full the oldest record is dropped and counted.
// All writes are append-only.
package history
