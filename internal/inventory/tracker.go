package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/kitchen-ops/internal/model"
)

// Snapshot is a point-in-time copy of the tracked view.
type Snapshot struct {
	Items     []model.InventoryItem  `json:"items"`
	Alerts    []model.InventoryAlert `json:"alerts"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// Tracker maintains the local inventory view.
type Tracker struct {
	svc    *Service
	logger *slog.Logger

	mu        sync.RWMutex
	items     []model.InventoryItem
	alerts    []model.InventoryAlert
	updatedAt time.Time

	subMu  sync.Mutex
	unsubs []func()
}

// NewTracker creates a tracker over svc.
func NewTracker(svc *Service, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		svc:    svc,
		logger: logger.With("component", "inventory_tracker"),
	}
}

// Start subscribes to live updates and alerts. Calling Start twice is a no-op.
func (t *Tracker) Start() {
	t.subMu.Lock()
	defer t.subMu.Unlock()

	if t.unsubs != nil {
		return
	}
	t.unsubs = []func(){
		t.svc.SubscribeToUpdates(t.mergeItems),
		t.svc.SubscribeToAlerts(t.replaceAlerts),
	}
}

// Stop removes the live subscriptions. The channels stay connected.
func (t *Tracker) Stop() {
	t.subMu.Lock()
	defer t.subMu.Unlock()

	for _, unsub := range t.unsubs {
		unsub()
	}
	t.unsubs = nil
}

// Refresh reloads items and alerts over REST. The view is left unchanged on error.
func (t *Tracker) Refresh(ctx context.Context) error {
	var (
		items  []model.InventoryItem
		alerts []model.InventoryAlert
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = t.svc.GetAll(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		alerts, err = t.svc.GetAlerts(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("refresh inventory: %w", err)
	}

	t.mu.Lock()
	t.items = items
	t.alerts = alerts
	t.updatedAt = time.Now()
	t.mu.Unlock()

	t.logger.Debug("inventory refreshed", "items", len(items), "alerts", len(alerts))
	return nil
}

// Items returns a copy of the tracked items.
func (t *Tracker) Items() []model.InventoryItem {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.items)
}

// Alerts returns a copy of the tracked alerts.
func (t *Tracker) Alerts() []model.InventoryAlert {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.alerts)
}

// Item looks up a tracked item by id.
func (t *Tracker) Item(id string) (model.InventoryItem, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i := t.indexOf(id); i >= 0 {
		return t.items[i], true
	}
	return model.InventoryItem{}, false
}

// NeedsAttention returns the items that are low, expiring or out of stock.
func (t *Tracker) NeedsAttention() []model.InventoryItem {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []model.InventoryItem
	for _, item := range t.items {
		if item.Status.NeedsAttention() {
			out = append(out, item)
		}
	}
	return out
}

// Snapshot returns a copy of the whole view.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Snapshot{
		Items:     slices.Clone(t.items),
		Alerts:    slices.Clone(t.alerts),
		UpdatedAt: t.updatedAt,
	}
}

// Create adds an item through the backend and appends it to the view.
func (t *Tracker) Create(ctx context.Context, item model.InventoryItem) (*model.InventoryItem, error) {
	created, err := t.svc.Create(ctx, item)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.items = append(t.items, *created)
	t.updatedAt = time.Now()
	t.mu.Unlock()

	t.logger.Info("item added", "id", created.ID, "name", created.Name)
	return created, nil
}

// Update changes an item through the backend and replaces it in the view.
func (t *Tracker) Update(ctx context.Context, id string, update model.ItemUpdate) (*model.InventoryItem, error) {
	updated, err := t.svc.Update(ctx, id, update)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	if i := t.indexOf(id); i >= 0 {
		t.items[i] = *updated
	}
	t.updatedAt = time.Now()
	t.mu.Unlock()

	t.logger.Info("item updated", "id", id, "name", updated.Name)
	return updated, nil
}

// Delete removes an item through the backend and drops it from the view.
func (t *Tracker) Delete(ctx context.Context, id string) error {
	if err := t.svc.Delete(ctx, id); err != nil {
		return err
	}

	t.mu.Lock()
	t.items = slices.DeleteFunc(t.items, func(item model.InventoryItem) bool {
		return item.ID == id
	})
	t.updatedAt = time.Now()
	t.mu.Unlock()

	t.logger.Info("item deleted", "id", id)
	return nil
}

// mergeItems applies an inventory_update payload.
func (t *Tracker) mergeItems(updates []model.InventoryItem) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.items = mergeByID(t.items, updates)
	t.updatedAt = time.Now()
}

// replaceAlerts applies an inventory_alert payload.
func (t *Tracker) replaceAlerts(alerts []model.InventoryAlert) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.alerts = alerts
	t.updatedAt = time.Now()
}

// indexOf must be called with mu held.
func (t *Tracker) indexOf(id string) int {
	return slices.IndexFunc(t.items, func(item model.InventoryItem) bool {
		return item.ID == id
	})
}

// mergeByID replaces items whose id appears in updates and appends the rest,
// keeping the order of current. A later duplicate in updates wins.
func mergeByID(current, updates []model.InventoryItem) []model.InventoryItem {
	index := make(map[string]int, len(current)+len(updates))
	merged := make([]model.InventoryItem, 0, len(current)+len(updates))
	for _, item := range current {
		if i, ok := index[item.ID]; ok {
			merged[i] = item
			continue
		}
		index[item.ID] = len(merged)
		merged = append(merged, item)
	}
	for _, item := range updates {
		if i, ok := index[item.ID]; ok {
			merged[i] = item
			continue
		}
		index[item.ID] = len(merged)
		merged = append(merged, item)
	}
	return merged
}
