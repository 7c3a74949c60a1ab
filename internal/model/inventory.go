package model

import "time"

// Categories an inventory item may belong to.
var Categories = []string{
	"Food & Drinks",
	"Airtime & Data",
	"Cigarettes",
	"Household",
	"Other",
}

// ValidCategory reports whether c is one of the known categories.
func ValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// InventoryItem represents a stocked product.
type InventoryItem struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Quantity  int       `json:"quantity"`
	Category  string    `json:"category"`
	Barcode   string    `json:"barcode,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Synced    bool      `json:"synced"`
	SyncID    string    `json:"sync_id,omitempty"`
}

// InventoryInput is the payload for creating or updating an item.
type InventoryInput struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Category string  `json:"category,omitempty"`
	Barcode  string  `json:"barcode,omitempty"`
}
