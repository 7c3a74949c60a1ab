package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"township-pos-api/internal/model"
	"township-pos-api/internal/service"
	"township-pos-api/pkg/apierror"
	"township-pos-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// InventoryHandler handles inventory-related HTTP requests.
type InventoryHandler struct {
	inventoryService *service.InventoryService
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(inventoryService *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
	}
}

// List handles GET /api/v1/inventory
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.inventoryService.List(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSONWithMeta(w, http.StatusOK, items, len(items), int64(len(items)))
}

// Get handles GET /api/v1/inventory/{id}
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	item, svcErr := h.inventoryService.Get(r.Context(), id)
	if svcErr != nil {
		response.Error(w, svcErr)
		return
	}

	response.OK(w, item)
}

// Create handles POST /api/v1/inventory
func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.InventoryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON body"))
		return
	}
	defer r.Body.Close()

	item, err := h.inventoryService.Add(r.Context(), in)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.Created(w, item)
}

// Update handles PUT /api/v1/inventory/{id}
func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	var in model.InventoryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON body"))
		return
	}
	defer r.Body.Close()

	item, svcErr := h.inventoryService.Update(r.Context(), id, in)
	if svcErr != nil {
		response.Error(w, svcErr)
		return
	}

	response.OK(w, item)
}

// Delete handles DELETE /api/v1/inventory/{id}
func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	if svcErr := h.inventoryService.Delete(r.Context(), id); svcErr != nil {
		response.Error(w, svcErr)
		return
	}

	response.NoContent(w)
}

// itemID parses the {id} URL parameter.
func itemID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apierror.BadRequest("id must be a positive integer")
	}
	return id, nil
}
