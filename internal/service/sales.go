package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"township-pos-api/internal/model"
	"township-pos-api/internal/repository"
	"township-pos-api/pkg/apierror"
)

// SalesService processes sales and serves history. A sale is the one
// place atomicity is load-bearing: inventory decrement, sale insert and
// credit recompute commit together or not at all.
type SalesService struct {
	store   repository.Store
	offline *OfflineManager
	engine  *SyncEngine
}

// NewSalesService creates a sales service.
func NewSalesService(store repository.Store, offline *OfflineManager, engine *SyncEngine) *SalesService {
	return &SalesService{
		store:   store,
		offline: offline,
		engine:  engine,
	}
}

// ProcessSale validates and executes a sale, then records the
// optimistic update and queues the remote create.
func (s *SalesService) ProcessSale(ctx context.Context, req model.SaleRequest) (*model.SaleRecord, error) {
	item, err := s.store.GetInventoryItem(ctx, req.ItemID)
	if errors.Is(err, repository.ErrItemNotFound) {
		return nil, apierror.ItemNotFound("")
	}
	if err != nil {
		return nil, apierror.DatabaseError("")
	}

	if fieldErrs := validateSaleRequest(req, item); len(fieldErrs) > 0 {
		return nil, apierror.ValidationError("Invalid sale", fieldErrs...)
	}

	sale, err := s.store.ProcessSale(ctx, req)
	if errors.Is(err, repository.ErrInsufficientStock) {
		return nil, apierror.InsufficientStock(fmt.Sprintf("Insufficient stock. Available: %d", item.Quantity))
	}
	if errors.Is(err, repository.ErrItemNotFound) {
		return nil, apierror.ItemNotFound("")
	}
	if err != nil {
		log.Printf("[SalesService] ProcessSale failed: %v", err)
		return nil, apierror.DatabaseError("")
	}

	// The sale record itself is the rollback payload: undoing means
	// restoring stock and deleting the row.
	if _, err := s.offline.AddOptimisticUpdate(ctx, sale.SyncID, model.OpProcessSale, sale, sale); err != nil {
		log.Printf("[SalesService] Failed to record optimistic sale: %v", err)
	}

	if _, err := s.store.AddToSyncQueue(ctx, model.TableSales, model.OpCreate, sale); err != nil {
		log.Printf("[SalesService] Failed to queue sale: %v", err)
		return nil, apierror.DatabaseError("")
	}

	s.engine.TriggerAsync()
	return sale, nil
}

// History returns recent sales, newest first.
func (s *SalesService) History(ctx context.Context, limit int) ([]model.SaleRecord, error) {
	sales, err := s.store.GetSalesHistory(ctx, limit)
	if err != nil {
		log.Printf("[SalesService] History failed: %v", err)
		return nil, apierror.DatabaseError("")
	}
	return sales, nil
}
