package service

import (
	"context"
	"testing"

	"township-pos-api/internal/model"
)

func TestCreditReportFreshShop(t *testing.T) {
	store := newTestStore(t)
	svc := NewCreditService(store)

	report, err := svc.Report(context.Background())
	if err != nil {
		t.Fatalf("Report: %v", err)
	}

	if report.Score != 0 {
		t.Errorf("score = %d, want 0", report.Score)
	}
	if report.Rating != "Poor" {
		t.Errorf("rating = %q, want Poor", report.Rating)
	}
	if report.Loan.Amount != 500 || report.Loan.InterestRate != "22%" {
		t.Errorf("loan = %+v, want entry offer", report.Loan)
	}
	if report.ShopID != "test_shop" {
		t.Errorf("shop id = %q, want test_shop", report.ShopID)
	}
}

func TestCreditReportTracksSales(t *testing.T) {
	store := newTestStore(t)
	svc := NewCreditService(store)
	ctx := context.Background()

	item, err := store.AddInventoryItem(ctx, model.InventoryInput{
		Name: "Bread", Price: 15, Quantity: 100, Category: "Food & Drinks",
	})
	if err != nil {
		t.Fatalf("AddInventoryItem: %v", err)
	}

	// 12 digital sales of R15: total 180, count 12.
	for i := 0; i < 12; i++ {
		if _, err := store.ProcessSale(ctx, model.SaleRequest{
			ItemID: item.ID, Quantity: 1, PaymentMethod: model.PaymentMobileMoney,
		}); err != nil {
			t.Fatalf("ProcessSale %d: %v", i, err)
		}
	}

	report, err := svc.Report(ctx)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}

	want := model.ComputeScore(180, 12)
	if report.Score != want {
		t.Errorf("score = %d, want %d", report.Score, want)
	}
	if report.Rating != model.Rating(want) {
		t.Errorf("rating = %q, want %q", report.Rating, model.Rating(want))
	}
	if report.TransactionCount != 12 || report.TotalSales != 180 {
		t.Errorf("aggregates = %d/%v, want 12/180", report.TransactionCount, report.TotalSales)
	}
	if report.DigitalAdoption != 100 {
		t.Errorf("digital adoption = %v, want 100", report.DigitalAdoption)
	}
	if report.AvgTransaction != 15 {
		t.Errorf("avg transaction = %v, want 15", report.AvgTransaction)
	}
}
