package history

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rickgao/kitchen-ops/internal/model"
)

// Batcher sends a batch of statements. *pgxpool.Pool implements it.
type Batcher interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Config holds writer configuration.
type Config struct {
	BatchSize     int           // Rows per insert batch (default: 100)
	FlushInterval time.Duration // Max time a row waits before being written (default: 5s)
	BufferSize    int           // Max queued rows per table (default: 1000)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: 5 * time.Second,
		BufferSize:    1000,
	}
}

// Stats holds writer counters.
type Stats struct {
	SnapshotInserts int64 `json:"snapshot_inserts"`
	WasteInserts    int64 `json:"waste_inserts"`
	Errors          int64 `json:"errors"`
	Flushes         int64 `json:"flushes"`
	Dropped         int64 `json:"dropped"`
	Pending         int   `json:"pending"`
}

type snapshotRow struct {
	ID         uuid.UUID
	ItemID     string
	Name       string
	Quantity   string
	Unit       string
	ExpiryDate string
	Status     string
	RecordedAt time.Time
}

type wasteRow struct {
	ID         uuid.UUID
	ItemID     string
	Item       string
	Category   string
	Quantity   float64
	Unit       string
	Reason     string
	Cost       float64
	RecordedAt time.Time
	ReceivedAt time.Time
}

const (
	insertSnapshot = `
		INSERT INTO inventory_snapshots (id, item_id, name, quantity, unit, expiry_date, status, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`

	insertWaste = `
		INSERT INTO waste_events (id, item_id, item, category, quantity, unit, reason, cost, recorded_at, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`
)

// Writer batches history rows into the database.
type Writer struct {
	cfg    Config
	db     Batcher
	logger *slog.Logger

	snapshots *queue[snapshotRow]
	waste     *queue[wasteRow]
	kick      chan struct{}

	flushMu sync.Mutex // serialises flushes

	statsMu sync.Mutex
	stats   Stats

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWriter creates a new Writer.
func NewWriter(cfg Config, db Batcher, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	return &Writer{
		cfg:       cfg,
		db:        db,
		logger:    logger.With("component", "history_writer"),
		snapshots: newQueue[snapshotRow](cfg.BatchSize, cfg.BufferSize),
		waste:     newQueue[wasteRow](cfg.BatchSize, cfg.BufferSize),
		kick:      make(chan struct{}, 1),
		ctx:       context.Background(),
	}
}

// Start begins the flush loop.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("history writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop shuts down the flush loop and writes whatever is still queued.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping history writer")

	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("history writer stop timed out")
	}

	if err := ctx.Err(); err != nil {
		w.logger.Error("skipping final flush",
			"pending_snapshots", w.snapshots.len(),
			"pending_waste", w.waste.len(),
			"error", err,
		)
		return fmt.Errorf("final flush: %w", err)
	}

	// Final flush uses the caller's context; the writer's own is cancelled.
	w.flush(ctx)

	w.logger.Info("history writer stopped")
	return nil
}

// RecordInventory queues one snapshot row per item.
func (w *Writer) RecordInventory(items []model.InventoryItem) {
	now := time.Now().UTC()
	n := 0
	for _, item := range items {
		n = w.snapshots.push(snapshotRow{
			ID:         uuid.New(),
			ItemID:     item.ID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			Unit:       item.Unit,
			ExpiryDate: item.ExpiryDate,
			Status:     string(item.Status),
			RecordedAt: now,
		})
	}
	if n >= w.cfg.BatchSize {
		w.signal()
	}
}

// RecordWaste queues a waste event. Events without a timestamp use the receive time.
func (w *Writer) RecordWaste(ev model.WasteEvent) {
	now := time.Now().UTC()
	recordedAt := ev.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = now
	}
	n := w.waste.push(wasteRow{
		ID:         uuid.New(),
		ItemID:     ev.ItemID,
		Item:       ev.Item,
		Category:   ev.Category,
		Quantity:   ev.Quantity,
		Unit:       ev.Unit,
		Reason:     ev.Reason,
		Cost:       ev.Cost,
		RecordedAt: recordedAt,
		ReceivedAt: now,
	})
	if n >= w.cfg.BatchSize {
		w.signal()
	}
}

// Stats returns current counters.
func (w *Writer) Stats() Stats {
	w.statsMu.Lock()
	s := w.stats
	w.statsMu.Unlock()

	s.Dropped = w.snapshots.droppedCount() + w.waste.droppedCount()
	s.Pending = w.snapshots.len() + w.waste.len()
	return s
}

func (w *Writer) signal() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

// flushLoop flushes on the interval or when a queue fills a batch.
func (w *Writer) flushLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.flush(w.ctx)
		case <-w.kick:
			w.flush(w.ctx)
		}
	}
}

// flush writes every queued row in batches of BatchSize.
func (w *Writer) flush(ctx context.Context) {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	for {
		rows := w.snapshots.drain(w.cfg.BatchSize)
		if len(rows) == 0 {
			break
		}
		w.writeBatch(ctx, "inventory_snapshots", len(rows), snapshotBatch(rows), func(s *Stats, n int64) {
			s.SnapshotInserts += n
		})
	}

	for {
		rows := w.waste.drain(w.cfg.BatchSize)
		if len(rows) == 0 {
			break
		}
		w.writeBatch(ctx, "waste_events", len(rows), wasteBatch(rows), func(s *Stats, n int64) {
			s.WasteInserts += n
		})
	}
}

func (w *Writer) writeBatch(ctx context.Context, table string, count int, batch *pgx.Batch, record func(*Stats, int64)) {
	start := time.Now()

	inserted, err := w.batchInsert(ctx, batch, count)
	if err != nil {
		w.logger.Error("batch insert failed", "table", table, "error", err, "count", count)
		w.statsMu.Lock()
		w.stats.Errors++
		w.statsMu.Unlock()
		return
	}

	w.statsMu.Lock()
	record(&w.stats, inserted)
	w.stats.Flushes++
	w.statsMu.Unlock()

	w.logger.Debug("flushed history",
		"table", table,
		"count", count,
		"duration", time.Since(start),
	)
}

// batchInsert sends batch and returns the number of rows inserted.
func (w *Writer) batchInsert(ctx context.Context, batch *pgx.Batch, count int) (int64, error) {
	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	var inserted int64
	for range count {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		inserted += ct.RowsAffected()
	}
	return inserted, nil
}

func snapshotBatch(rows []snapshotRow) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertSnapshot, r.ID, r.ItemID, r.Name, r.Quantity, r.Unit, r.ExpiryDate, r.Status, r.RecordedAt)
	}
	return batch
}

func wasteBatch(rows []wasteRow) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertWaste, r.ID, r.ItemID, r.Item, r.Category, r.Quantity, r.Unit, r.Reason, r.Cost, r.RecordedAt, r.ReceivedAt)
	}
	return batch
}
