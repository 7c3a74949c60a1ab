package model

import "time"

// Payment methods accepted at the till.
const (
	PaymentCash        = "cash"
	PaymentMobileMoney = "mobile_money"
	PaymentQRCode      = "qr_code"
	PaymentCard        = "card"
)

// ValidPaymentMethod reports whether m is an accepted payment method.
func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentCash, PaymentMobileMoney, PaymentQRCode, PaymentCard:
		return true
	}
	return false
}

// SaleRecord is a completed sale. Records are never mutated after creation.
type SaleRecord struct {
	ID             int64     `json:"id"`
	ItemName       string    `json:"item_name"`
	ItemID         int64     `json:"item_id"`
	Quantity       int       `json:"quantity"`
	Total          float64   `json:"total"`
	PaymentMethod  string    `json:"payment_method"`
	AmountReceived float64   `json:"amount_received"`
	ChangeGiven    float64   `json:"change_given"`
	Timestamp      time.Time `json:"timestamp"`
	Synced         bool      `json:"synced"`
	SyncID         string    `json:"sync_id,omitempty"`
}

// SaleRequest is the payload for processing a sale.
type SaleRequest struct {
	ItemID         int64   `json:"item_id"`
	Quantity       int     `json:"quantity"`
	PaymentMethod  string  `json:"payment_method"`
	AmountReceived float64 `json:"amount_received,omitempty"`
}
