package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rickgao/kitchen-ops/internal/model"
)

var errEmptyID = errors.New("item id is required")

// createItemRequest drops the id so the backend assigns one.
type createItemRequest struct {
	model.InventoryItem
	ID string `json:"id,omitempty"`
}

// updateItemRequest is {id, ...changed fields}.
type updateItemRequest struct {
	ID string `json:"id"`
	model.ItemUpdate
}

type removeItemRequest struct {
	ID string `json:"id"`
}

// GetInventory returns every inventory item.
func (c *Client) GetInventory(ctx context.Context) ([]model.InventoryItem, error) {
	var items []model.InventoryItem
	if err := c.get(ctx, "/inventory/status", &items); err != nil {
		return nil, fmt.Errorf("get inventory: %w", err)
	}
	return items, nil
}

// GetItem returns a single inventory item.
func (c *Client) GetItem(ctx context.Context, id string) (*model.InventoryItem, error) {
	if id == "" {
		return nil, errEmptyID
	}
	var item model.InventoryItem
	if err := c.get(ctx, "/inventory/"+url.PathEscape(id), &item); err != nil {
		return nil, fmt.Errorf("get item %s: %w", id, err)
	}
	return &item, nil
}

// CreateItem adds an item. Any id on item is ignored.
func (c *Client) CreateItem(ctx context.Context, item model.InventoryItem) (*model.InventoryItem, error) {
	var created model.InventoryItem
	if err := c.sendJSON(ctx, http.MethodPost, "/inventory/update", createItemRequest{InventoryItem: item}, &created); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	return &created, nil
}

// UpdateItem applies a partial update to an existing item.
func (c *Client) UpdateItem(ctx context.Context, id string, update model.ItemUpdate) (*model.InventoryItem, error) {
	if id == "" {
		return nil, errEmptyID
	}
	var updated model.InventoryItem
	if err := c.sendJSON(ctx, http.MethodPost, "/inventory/update", updateItemRequest{ID: id, ItemUpdate: update}, &updated); err != nil {
		return nil, fmt.Errorf("update item %s: %w", id, err)
	}
	return &updated, nil
}

// DeleteItem removes an item.
func (c *Client) DeleteItem(ctx context.Context, id string) error {
	if id == "" {
		return errEmptyID
	}
	if err := c.sendJSON(ctx, http.MethodDelete, "/inventory/remove", removeItemRequest{ID: id}, nil); err != nil {
		return fmt.Errorf("delete item %s: %w", id, err)
	}
	return nil
}

// GetAlerts returns expiring and low-stock alerts.
func (c *Client) GetAlerts(ctx context.Context) ([]model.InventoryAlert, error) {
	var alerts []model.InventoryAlert
	if err := c.get(ctx, "/inventory/alerts", &alerts); err != nil {
		return nil, fmt.Errorf("get alerts: %w", err)
	}
	return alerts, nil
}

// Status returns the backend health report.
func (c *Client) Status(ctx context.Context) (*model.BackendStatus, error) {
	var status model.BackendStatus
	if err := c.get(ctx, "/status", &status); err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}
	return &status, nil
}
