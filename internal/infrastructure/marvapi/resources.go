package marvapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/marv/gateway/internal/domain/warranty"
)

// Resource exposes the list/get/create/update/delete endpoints of one collection
type Resource[T any] struct {
	client *Client
	name   string
}

// List returns the collection, filtered by params
func (r Resource[T]) List(ctx context.Context, params url.Values) ([]T, error) {
	var items []T
	if err := r.client.do(ctx, http.MethodGet, "/"+r.name, params, nil, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = make([]T, 0)
	}
	return items, nil
}

// Get returns one item by ID
func (r Resource[T]) Get(ctx context.Context, id int64) (*T, error) {
	var item T
	if err := r.client.do(ctx, http.MethodGet, idPath(r.name, id), nil, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Create posts a new item and returns what the backend stored
func (r Resource[T]) Create(ctx context.Context, item *T) (*T, error) {
	var created T
	if err := r.client.do(ctx, http.MethodPost, "/"+r.name, nil, item, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update applies a partial update
func (r Resource[T]) Update(ctx context.Context, id int64, patch any) (*T, error) {
	var updated T
	if err := r.client.do(ctx, http.MethodPatch, idPath(r.name, id), nil, patch, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes an item
func (r Resource[T]) Delete(ctx context.Context, id int64) error {
	return r.client.do(ctx, http.MethodDelete, idPath(r.name, id), nil, nil, nil)
}

func (c *Client) Persons() Resource[warranty.Person] {
	return Resource[warranty.Person]{client: c, name: "persons"}
}

func (c *Client) Products() Resource[warranty.Product] {
	return Resource[warranty.Product]{client: c, name: "products"}
}

func (c *Client) Devices() Resource[warranty.Device] {
	return Resource[warranty.Device]{client: c, name: "devices"}
}

func (c *Client) Repairs() Resource[warranty.Repair] {
	return Resource[warranty.Repair]{client: c, name: "repairs"}
}

func (c *Client) Tests() Resource[warranty.TestRecord] {
	return Resource[warranty.TestRecord]{client: c, name: "tests"}
}

// CreateTest records a quality test
func (c *Client) CreateTest(ctx context.Context, test *warranty.TestRecord) (*warranty.TestRecord, error) {
	return c.Tests().Create(ctx, test)
}

// DeviceBySerial looks a device up by its serial number
func (c *Client) DeviceBySerial(ctx context.Context, serial string) (*warranty.Device, error) {
	var device warranty.Device
	if err := c.do(ctx, http.MethodGet, "/devices/serial/"+url.PathEscape(serial), nil, nil, &device); err != nil {
		return nil, err
	}
	return &device, nil
}

// RepairsForDevice lists the repairs recorded against deviceID
func (c *Client) RepairsForDevice(ctx context.Context, deviceID int64) ([]warranty.Repair, error) {
	return c.Repairs().List(ctx, url.Values{"device_id": {strconv.FormatInt(deviceID, 10)}})
}

// CreateDevicesBulk creates many devices in one request. The backend may
// answer with the created devices or with a summary; only a device list is decoded.
func (c *Client) CreateDevicesBulk(ctx context.Context, devices []warranty.Device) ([]warranty.Device, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/devices/bulk", nil, devices, &raw); err != nil {
		return nil, err
	}
	var created []warranty.Device
	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &created); err != nil {
			return nil, fmt.Errorf("marvapi: failed to parse bulk response: %w", err)
		}
	}
	return created, nil
}

// WarrantyCheck is the backend's public warranty answer. Its shape is owned
// by the backend, so it is passed through untouched.
type WarrantyCheck map[string]any

// CheckWarranty calls the public warranty endpoint
func (c *Client) CheckWarranty(ctx context.Context, serial string) (WarrantyCheck, error) {
	var out WarrantyCheck
	if err := c.do(ctx, http.MethodGet, "/warranty/check/"+url.PathEscape(serial), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
