package model

import "time"

// ItemStatus is the stock status of an inventory item.
type ItemStatus string

const (
	StatusInStock      ItemStatus = "In Stock"
	StatusLowStock     ItemStatus = "Low Stock"
	StatusExpiringSoon ItemStatus = "Expiring Soon"
	StatusOutOfStock   ItemStatus = "Out of Stock"
)

// Valid reports whether s is one of the known statuses.
func (s ItemStatus) Valid() bool {
	switch s {
	case StatusInStock, StatusLowStock, StatusExpiringSoon, StatusOutOfStock:
		return true
	}
	return false
}

// NeedsAttention reports whether the status warrants an alert.
func (s ItemStatus) NeedsAttention() bool {
	return s == StatusLowStock || s == StatusExpiringSoon || s == StatusOutOfStock
}

// -----------------------------------------------------------------------------
// Inventory
// -----------------------------------------------------------------------------

// InventoryItem is one stocked ingredient.
type InventoryItem struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Quantity   string     `json:"quantity"`
	Unit       string     `json:"unit"`
	ExpiryDate string     `json:"expiryDate"`
	Status     ItemStatus `json:"status"`
	Image      string     `json:"image,omitempty"`
}

// ItemUpdate carries the fields of a partial update. Nil fields are left unchanged.
type ItemUpdate struct {
	Name       *string     `json:"name,omitempty"`
	Quantity   *string     `json:"quantity,omitempty"`
	Unit       *string     `json:"unit,omitempty"`
	ExpiryDate *string     `json:"expiryDate,omitempty"`
	Status     *ItemStatus `json:"status,omitempty"`
	Image      *string     `json:"image,omitempty"`
}

// Apply returns item with the non-nil fields of u applied.
func (u ItemUpdate) Apply(item InventoryItem) InventoryItem {
	if u.Name != nil {
		item.Name = *u.Name
	}
	if u.Quantity != nil {
		item.Quantity = *u.Quantity
	}
	if u.Unit != nil {
		item.Unit = *u.Unit
	}
	if u.ExpiryDate != nil {
		item.ExpiryDate = *u.ExpiryDate
	}
	if u.Status != nil {
		item.Status = *u.Status
	}
	if u.Image != nil {
		item.Image = *u.Image
	}
	return item
}

// AlertSeverity grades an inventory alert.
type AlertSeverity string

const (
	SeverityDanger  AlertSeverity = "danger"
	SeverityWarning AlertSeverity = "warning"
)

// InventoryAlert flags an item that is expiring or running out.
type InventoryAlert struct {
	ID       string        `json:"id"`
	Item     string        `json:"item"`
	Expiry   string        `json:"expiry"`
	Quantity string        `json:"quantity"`
	Status   AlertSeverity `json:"status"`
}

// -----------------------------------------------------------------------------
// Waste and AI analysis
// -----------------------------------------------------------------------------

// WasteEvent is a waste-tracking record pushed by the backend.
type WasteEvent struct {
	ItemID     string    `json:"itemId"`
	Item       string    `json:"item"`
	Category   string    `json:"category"`
	Quantity   float64   `json:"quantity"`
	Unit       string    `json:"unit"`
	Reason     string    `json:"reason"`
	Cost       float64   `json:"cost"`
	RecordedAt time.Time `json:"recordedAt"`
}

// AIAnalysisResult is the backend's analysis of an uploaded waste photo.
type AIAnalysisResult struct {
	WastagePercentage float64         `json:"wastagePercentage"`
	Recommendations   []string        `json:"recommendations"`
	DetectedItems     []InventoryItem `json:"detectedItems"`
}

// BackendStatus is the body of GET /status.
type BackendStatus struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
