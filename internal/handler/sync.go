package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"township-pos-api/internal/netmon"
	"township-pos-api/internal/service"
	"township-pos-api/pkg/apierror"
	"township-pos-api/pkg/response"
)

// SyncHandler handles sync-related HTTP requests.
type SyncHandler struct {
	engine  *service.SyncEngine
	offline *service.OfflineManager
	monitor *netmon.Monitor
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(engine *service.SyncEngine, offline *service.OfflineManager, monitor *netmon.Monitor) *SyncHandler {
	return &SyncHandler{
		engine:  engine,
		offline: offline,
		monitor: monitor,
	}
}

// Status handles GET /api/v1/sync/status
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.engine.Status(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, status)
}

// Trigger handles POST /api/v1/sync
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	err := h.engine.SyncAll(r.Context())
	switch {
	case errors.Is(err, service.ErrOffline):
		response.Error(w, apierror.NetworkError("cannot sync while offline"))
		return
	case errors.Is(err, service.ErrSyncInProgress):
		response.Error(w, apierror.Conflict("sync already in progress"))
		return
	case err != nil:
		response.Error(w, apierror.SyncError(err.Error()))
		return
	}

	status, statusErr := h.engine.Status(r.Context())
	if statusErr != nil {
		response.Error(w, statusErr)
		return
	}

	response.OK(w, status)
}

// SetOnlineRequest is the body for the manual connectivity override.
type SetOnlineRequest struct {
	Online bool `json:"online"`
}

// SetOnline handles POST /api/v1/sync/online. It overrides the probed
// connectivity state, mainly for demos and testing.
func (h *SyncHandler) SetOnline(w http.ResponseWriter, r *http.Request) {
	var req SetOnlineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON body"))
		return
	}
	defer r.Body.Close()

	h.monitor.SetOnline(req.Online)

	response.OK(w, map[string]interface{}{
		"online": req.Online,
	})
}

// ClearFailed handles DELETE /api/v1/sync/failed. It removes rolled
// back optimistic updates that are kept for inspection.
func (h *SyncHandler) ClearFailed(w http.ResponseWriter, r *http.Request) {
	cleared, err := h.offline.ClearFailedUpdates(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, map[string]interface{}{
		"cleared": cleared,
	})
}
