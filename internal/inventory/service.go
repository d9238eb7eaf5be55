package inventory

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rickgao/kitchen-ops/internal/model"
	"github.com/rickgao/kitchen-ops/internal/realtime"
)

// Store is the REST surface the service depends on. *api.Client implements it.
type Store interface {
	GetInventory(ctx context.Context) ([]model.InventoryItem, error)
	GetItem(ctx context.Context, id string) (*model.InventoryItem, error)
	CreateItem(ctx context.Context, item model.InventoryItem) (*model.InventoryItem, error)
	UpdateItem(ctx context.Context, id string, update model.ItemUpdate) (*model.InventoryItem, error)
	DeleteItem(ctx context.Context, id string) error
	GetAlerts(ctx context.Context) ([]model.InventoryAlert, error)
	GetForecast(ctx context.Context) (json.RawMessage, error)
	AnalyzeWaste(ctx context.Context, filename string, image io.Reader) (*model.AIAnalysisResult, error)
}

// Service combines REST calls with the inventory and waste-tracking channels.
type Service struct {
	store     Store
	inventory *realtime.Client
	waste     *realtime.Client

	inventoryPath string
	wastePath     string
}

// Option configures a Service.
type Option func(*Service)

// WithChannels overrides the channel paths.
func WithChannels(inventoryPath, wastePath string) Option {
	return func(s *Service) {
		if inventoryPath != "" {
			s.inventoryPath = inventoryPath
		}
		if wastePath != "" {
			s.wastePath = wastePath
		}
	}
}

// NewService creates a Service. inventory and waste are the two realtime clients.
func NewService(store Store, inventory, waste *realtime.Client, opts ...Option) *Service {
	s := &Service{
		store:         store,
		inventory:     inventory,
		waste:         waste,
		inventoryPath: InventoryChannel,
		wastePath:     WasteChannel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetAll returns every inventory item.
func (s *Service) GetAll(ctx context.Context) ([]model.InventoryItem, error) {
	return s.store.GetInventory(ctx)
}

// GetByID returns one inventory item.
func (s *Service) GetByID(ctx context.Context, id string) (*model.InventoryItem, error) {
	return s.store.GetItem(ctx, id)
}

// Create adds an item.
func (s *Service) Create(ctx context.Context, item model.InventoryItem) (*model.InventoryItem, error) {
	return s.store.CreateItem(ctx, item)
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, id string, update model.ItemUpdate) (*model.InventoryItem, error) {
	return s.store.UpdateItem(ctx, id, update)
}

// Delete removes an item.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeleteItem(ctx, id)
}

// UploadImage sends a waste photo for analysis.
func (s *Service) UploadImage(ctx context.Context, filename string, image io.Reader) (*model.AIAnalysisResult, error) {
	return s.store.AnalyzeWaste(ctx, filename, image)
}

// GetAlerts returns the current alerts.
func (s *Service) GetAlerts(ctx context.Context) ([]model.InventoryAlert, error) {
	return s.store.GetAlerts(ctx)
}

// GetForecast returns the usage forecast.
func (s *Service) GetForecast(ctx context.Context) (json.RawMessage, error) {
	return s.store.GetForecast(ctx)
}

// SubscribeToUpdates connects the inventory channel if needed and
// registers fn for inventory_update.
func (s *Service) SubscribeToUpdates(fn func([]model.InventoryItem)) (unsubscribe func()) {
	s.inventory.Connect(s.inventoryPath)
	return realtime.Subscribe(s.inventory, InventoryUpdates, fn)
}

// SubscribeToAlerts connects the inventory channel if needed and
// registers fn for inventory_alert.
func (s *Service) SubscribeToAlerts(fn func([]model.InventoryAlert)) (unsubscribe func()) {
	s.inventory.Connect(s.inventoryPath)
	return realtime.Subscribe(s.inventory, InventoryAlerts, fn)
}

// SubscribeToWasteTracking connects the waste channel if needed and
// registers fn for waste_tracking.
func (s *Service) SubscribeToWasteTracking(fn func(model.WasteEvent)) (unsubscribe func()) {
	s.waste.Connect(s.wastePath)
	return realtime.Subscribe(s.waste, WasteTracking, fn)
}
