// Package remote is the client for the backend REST collaborator. The
// backend is opaque: any non-2xx status is a sync failure, success
// bodies are JSON except DELETE which is bare success.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"township-pos-api/internal/model"
)

// StatusError is a non-2xx response from the remote.
type StatusError struct {
	Code int
	Body string
}

// Error implements the error interface. The status code is embedded in
// the text so classification survives a round-trip through the queue's
// stored error_message.
func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, strings.TrimSpace(e.Body))
}

// Client calls the remote POS backend.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a remote client for the given base URL (e.g.
// "http://localhost:5001/api").
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// CreateInventoryItem propagates an inventory create.
func (c *Client) CreateInventoryItem(ctx context.Context, item model.InventoryItem) error {
	body := map[string]interface{}{
		"name":     item.Name,
		"price":    item.Price,
		"quantity": item.Quantity,
	}
	if item.Category != "" {
		body["category"] = item.Category
	}
	if item.Barcode != "" {
		body["barcode"] = item.Barcode
	}
	return c.do(ctx, http.MethodPost, "/inventory", body)
}

// UpdateInventoryItem propagates an inventory update.
func (c *Client) UpdateInventoryItem(ctx context.Context, item model.InventoryItem) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/inventory/%d", item.ID), item)
}

// DeleteInventoryItem propagates an inventory delete.
func (c *Client) DeleteInventoryItem(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/inventory/%d", id), nil)
}

// CreateSale propagates a sale record.
func (c *Client) CreateSale(ctx context.Context, sale model.SaleRecord) error {
	body := map[string]interface{}{
		"item_name":       sale.ItemName,
		"quantity":        sale.Quantity,
		"payment_method":  sale.PaymentMethod,
		"amount_received": sale.AmountReceived,
		"change":          sale.ChangeGiven,
	}
	return c.do(ctx, http.MethodPost, "/sell", body)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) error {
	var reader io.Reader
	if body != nil && (method == http.MethodPost || method == http.MethodPut) {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Body: string(b)}
	}

	// Bodies are JSON on success but nothing downstream consumes them;
	// drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
