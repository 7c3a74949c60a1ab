package service

import (
	"fmt"
	"regexp"
	"strings"

	"township-pos-api/internal/model"
	"township-pos-api/pkg/apierror"
)

var barcodePattern = regexp.MustCompile(`^\d*$`)

// validateInventoryInput checks every field and returns all problems at
// once, the way the till surfaces them.
func validateInventoryInput(in model.InventoryInput) []apierror.FieldError {
	var errs []apierror.FieldError

	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		errs = append(errs, apierror.FieldError{Field: "name", Message: "Item name is required"})
	case len(in.Name) > 100:
		errs = append(errs, apierror.FieldError{Field: "name", Message: "Item name is too long (max 100 characters)"})
	}

	switch {
	case in.Price < 0:
		errs = append(errs, apierror.FieldError{Field: "price", Message: "Price cannot be negative"})
	case in.Price > 999999.99:
		errs = append(errs, apierror.FieldError{Field: "price", Message: "Price is too high (max R999,999.99)"})
	}

	switch {
	case in.Quantity < 0:
		errs = append(errs, apierror.FieldError{Field: "quantity", Message: "Quantity cannot be negative"})
	case in.Quantity > 999999:
		errs = append(errs, apierror.FieldError{Field: "quantity", Message: "Quantity is too high (max 999,999)"})
	}

	if in.Category != "" && !model.ValidCategory(in.Category) {
		errs = append(errs, apierror.FieldError{Field: "category", Message: "Invalid category"})
	}

	if in.Barcode != "" {
		if len(in.Barcode) > 50 {
			errs = append(errs, apierror.FieldError{Field: "barcode", Message: "Barcode is too long (max 50 characters)"})
		}
		if !barcodePattern.MatchString(in.Barcode) {
			errs = append(errs, apierror.FieldError{Field: "barcode", Message: "Barcode must contain only numbers"})
		}
	}

	return errs
}

// validateSaleRequest checks the request against the item being sold.
func validateSaleRequest(req model.SaleRequest, item *model.InventoryItem) []apierror.FieldError {
	var errs []apierror.FieldError

	if req.Quantity <= 0 {
		errs = append(errs, apierror.FieldError{Field: "quantity", Message: "Quantity must be greater than 0"})
	}

	if !model.ValidPaymentMethod(req.PaymentMethod) {
		errs = append(errs, apierror.FieldError{Field: "payment_method", Message: "Valid payment method is required"})
	}

	if req.PaymentMethod == model.PaymentCash && item != nil && req.Quantity > 0 {
		total := item.Price * float64(req.Quantity)
		if req.AmountReceived != 0 && req.AmountReceived < total {
			errs = append(errs, apierror.FieldError{
				Field:   "amount_received",
				Message: fmt.Sprintf("Amount received is less than the total (R%.2f)", total),
			})
		}
	}

	return errs
}
