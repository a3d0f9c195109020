package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"sensorvision/internal/repository"
	"sensorvision/internal/service"
)

// DevicesHandler registers telemetry devices.
type DevicesHandler struct {
	devices *service.DeviceService
	logger  *zap.Logger
}

// NewDevicesHandler returns handler.
func NewDevicesHandler(devices *service.DeviceService, logger *zap.Logger) *DevicesHandler {
	return &DevicesHandler{devices: devices, logger: logger}
}

type registerDeviceRequest struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
}

// Register handles POST /v1/devices. The response carries the ingest token
// exactly once.
func (h *DevicesHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ExternalID == "" {
		writeError(w, http.StatusBadRequest, "external_id is required")
		return
	}

	device, token, err := h.devices.Register(r.Context(), req.ExternalID, req.Name)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateDevice) {
			writeError(w, http.StatusConflict, "device already registered")
			return
		}
		h.logger.Error("failed to register device", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to register device")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"device": device,
		"token":  token,
	})
}
