package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"sensorvision/internal/repository"
	"sensorvision/internal/service"
)

// ValuesHandler serves calculated value history and latest snapshots.
type ValuesHandler struct {
	variables *service.VariableService
	logger    *zap.Logger
}

// NewValuesHandler returns handler.
func NewValuesHandler(variables *service.VariableService, logger *zap.Logger) *ValuesHandler {
	return &ValuesHandler{variables: variables, logger: logger}
}

// List handles GET /v1/synthetic-variables/{id}/values.
func (h *ValuesHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	values, err := h.variables.ListValues(r.Context(), id, limit)
	if err != nil {
		if errors.Is(err, repository.ErrVariableNotFound) {
			writeError(w, http.StatusNotFound, "synthetic variable not found")
			return
		}
		h.logger.Error("failed to list calculated values", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list calculated values")
		return
	}
	writeJSON(w, http.StatusOK, values)
}

// Latest handles GET /v1/devices/{deviceID}/synthetic-variables/{name}/latest.
func (h *ValuesHandler) Latest(w http.ResponseWriter, r *http.Request) {
	latest, err := h.variables.Latest(r.Context(), r.PathValue("deviceID"), r.PathValue("name"))
	if err != nil {
		if errors.Is(err, repository.ErrVariableNotFound) || errors.Is(err, repository.ErrValueNotFound) {
			writeError(w, http.StatusNotFound, "no calculated value available")
			return
		}
		h.logger.Error("failed to load latest value", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load latest value")
		return
	}
	writeJSON(w, http.StatusOK, latest)
}
