package service

import (
	"context"
	"errors"
	"log"

	"township-pos-api/internal/model"
	"township-pos-api/internal/repository"
	"township-pos-api/pkg/apierror"
	"township-pos-api/pkg/uid"
)

// InventoryService handles inventory business logic: validation, the
// optimistic local write, and queueing remote propagation. Writes go to
// the local store first, then intent is recorded; never the reverse.
type InventoryService struct {
	store   repository.Store
	offline *OfflineManager
	engine  *SyncEngine
}

// NewInventoryService creates an inventory service.
func NewInventoryService(store repository.Store, offline *OfflineManager, engine *SyncEngine) *InventoryService {
	return &InventoryService{
		store:   store,
		offline: offline,
		engine:  engine,
	}
}

// List returns the full catalogue.
func (s *InventoryService) List(ctx context.Context) ([]model.InventoryItem, error) {
	items, err := s.store.GetInventory(ctx)
	if err != nil {
		log.Printf("[InventoryService] List failed: %v", err)
		return nil, apierror.DatabaseError("")
	}
	return items, nil
}

// Get returns one item.
func (s *InventoryService) Get(ctx context.Context, id int64) (*model.InventoryItem, error) {
	item, err := s.store.GetInventoryItem(ctx, id)
	if errors.Is(err, repository.ErrItemNotFound) {
		return nil, apierror.ItemNotFound("")
	}
	if err != nil {
		return nil, apierror.DatabaseError("")
	}
	return item, nil
}

// Add validates and creates an item, records the optimistic update and
// queues the remote create.
func (s *InventoryService) Add(ctx context.Context, in model.InventoryInput) (*model.InventoryItem, error) {
	if fieldErrs := validateInventoryInput(in); len(fieldErrs) > 0 {
		return nil, apierror.ValidationError("Invalid inventory item", fieldErrs...)
	}

	item, err := s.store.AddInventoryItem(ctx, in)
	if err != nil {
		log.Printf("[InventoryService] Add failed: %v", err)
		return nil, apierror.DatabaseError("")
	}

	if _, err := s.offline.AddOptimisticUpdate(ctx, item.SyncID, model.OpAddInventoryItem, item,
		map[string]int64{"id": item.ID}); err != nil {
		log.Printf("[InventoryService] Failed to record optimistic add: %v", err)
	}

	if _, err := s.store.AddToSyncQueue(ctx, model.TableInventory, model.OpCreate, item); err != nil {
		log.Printf("[InventoryService] Failed to queue create: %v", err)
		return nil, apierror.DatabaseError("")
	}

	s.engine.TriggerAsync()
	return item, nil
}

// Update validates and rewrites an item, keeping the pre-update
// snapshot as rollback payload.
func (s *InventoryService) Update(ctx context.Context, id int64, in model.InventoryInput) (*model.InventoryItem, error) {
	if fieldErrs := validateInventoryInput(in); len(fieldErrs) > 0 {
		return nil, apierror.ValidationError("Invalid inventory item", fieldErrs...)
	}

	prior, err := s.store.GetInventoryItem(ctx, id)
	if errors.Is(err, repository.ErrItemNotFound) {
		return nil, apierror.ItemNotFound("")
	}
	if err != nil {
		return nil, apierror.DatabaseError("")
	}

	// Each mutation gets its own sync id so its remote outcome can be
	// matched back to this update.
	next := model.InventoryItem{
		ID:       id,
		Name:     in.Name,
		Price:    in.Price,
		Quantity: in.Quantity,
		Category: in.Category,
		Barcode:  in.Barcode,
		SyncID:   uid.New(),
	}
	if next.Category == "" {
		next.Category = prior.Category
	}

	updated, err := s.store.UpdateInventoryItem(ctx, next)
	if errors.Is(err, repository.ErrItemNotFound) {
		return nil, apierror.ItemNotFound("")
	}
	if err != nil {
		log.Printf("[InventoryService] Update failed: %v", err)
		return nil, apierror.DatabaseError("")
	}

	if _, err := s.offline.AddOptimisticUpdate(ctx, updated.SyncID, model.OpUpdateInventoryItem, updated, prior); err != nil {
		log.Printf("[InventoryService] Failed to record optimistic update: %v", err)
	}

	if _, err := s.store.AddToSyncQueue(ctx, model.TableInventory, model.OpUpdate, updated); err != nil {
		log.Printf("[InventoryService] Failed to queue update: %v", err)
		return nil, apierror.DatabaseError("")
	}

	s.engine.TriggerAsync()
	return updated, nil
}

// Delete removes an item locally and queues the remote delete. The
// deleted row is the rollback payload.
func (s *InventoryService) Delete(ctx context.Context, id int64) error {
	prior, err := s.store.GetInventoryItem(ctx, id)
	if errors.Is(err, repository.ErrItemNotFound) {
		return apierror.ItemNotFound("")
	}
	if err != nil {
		return apierror.DatabaseError("")
	}

	if err := s.store.DeleteInventoryItem(ctx, id); err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return apierror.ItemNotFound("")
		}
		log.Printf("[InventoryService] Delete failed: %v", err)
		return apierror.DatabaseError("")
	}

	prior.SyncID = uid.New()

	if _, err := s.offline.AddOptimisticUpdate(ctx, prior.SyncID, model.OpDeleteInventoryItem, prior, prior); err != nil {
		log.Printf("[InventoryService] Failed to record optimistic delete: %v", err)
	}

	if _, err := s.store.AddToSyncQueue(ctx, model.TableInventory, model.OpDelete, prior); err != nil {
		log.Printf("[InventoryService] Failed to queue delete: %v", err)
		return apierror.DatabaseError("")
	}

	s.engine.TriggerAsync()
	return nil
}
