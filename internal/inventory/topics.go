package inventory

import (
	"github.com/rickgao/kitchen-ops/internal/model"
	"github.com/rickgao/kitchen-ops/internal/realtime"
)

// Channel paths, relative to the realtime base URL.
const (
	InventoryChannel = "/ws/inventory"
	WasteChannel     = "/ws/waste-tracking"
)

// Realtime topics published by the backend.
var (
	InventoryUpdates = realtime.NewTopic[[]model.InventoryItem]("inventory_update")
	InventoryAlerts  = realtime.NewTopic[[]model.InventoryAlert]("inventory_alert")
	WasteTracking    = realtime.NewTopic[model.WasteEvent]("waste_tracking")
)
