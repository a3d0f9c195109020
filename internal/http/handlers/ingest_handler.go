package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"sensorvision/internal/service"
)

const deviceTokenHeader = "X-Device-Token"

// IngestHandler accepts telemetry readings from devices.
type IngestHandler struct {
	telemetry *service.TelemetryService
	devices   *service.DeviceService
	logger    *zap.Logger
}

// NewIngestHandler returns handler.
func NewIngestHandler(telemetry *service.TelemetryService, devices *service.DeviceService, logger *zap.Logger) *IngestHandler {
	return &IngestHandler{
		telemetry: telemetry,
		devices:   devices,
		logger:    logger,
	}
}

// ServeHTTP handles POST /v1/telemetry.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var input service.IngestInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if input.DeviceID == "" {
		writeError(w, http.StatusBadRequest, "device_id is required")
		return
	}

	if _, err := h.devices.Authenticate(r.Context(), input.DeviceID, r.Header.Get(deviceTokenHeader)); err != nil {
		if errors.Is(err, service.ErrDeviceUnauthorized) {
			writeError(w, http.StatusUnauthorized, "invalid device credentials")
			return
		}
		h.logger.Error("device authentication failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "authentication unavailable")
		return
	}

	calculated, err := h.telemetry.Ingest(r.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrEmptySample) {
			writeError(w, http.StatusBadRequest, "values are required")
			return
		}
		h.logger.Error("failed to ingest telemetry", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store telemetry")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":            "ok",
		"calculated_values": calculated,
	})
}
