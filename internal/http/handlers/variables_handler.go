package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"sensorvision/internal/expr"
	"sensorvision/internal/repository"
	"sensorvision/internal/service"
)

// VariablesHandler manages synthetic variable definitions.
type VariablesHandler struct {
	variables *service.VariableService
	logger    *zap.Logger
}

// NewVariablesHandler returns handler.
func NewVariablesHandler(variables *service.VariableService, logger *zap.Logger) *VariablesHandler {
	return &VariablesHandler{variables: variables, logger: logger}
}

type createVariableRequest struct {
	Name       string `json:"name"`
	Unit       string `json:"unit"`
	Expression string `json:"expression"`
	Enabled    *bool  `json:"enabled"`
}

// Create handles POST /v1/devices/{deviceID}/synthetic-variables.
func (h *VariablesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createVariableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	variable, err := h.variables.Create(r.Context(), service.CreateVariableInput{
		DeviceID:   r.PathValue("deviceID"),
		Name:       req.Name,
		Unit:       req.Unit,
		Expression: req.Expression,
		Enabled:    enabled,
	})
	if err != nil {
		var parseErr *expr.ParseError
		switch {
		case errors.As(err, &parseErr):
			writeError(w, http.StatusUnprocessableEntity, "invalid expression: "+parseErr.Error())
		case errors.Is(err, service.ErrMissingFields):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrDeviceNotFound):
			writeError(w, http.StatusNotFound, "device not found")
		case errors.Is(err, repository.ErrDuplicateVariableName):
			writeError(w, http.StatusConflict, "variable name already exists for device")
		default:
			h.logger.Error("failed to create synthetic variable", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to create synthetic variable")
		}
		return
	}

	writeJSON(w, http.StatusCreated, variable)
}

// List handles GET /v1/devices/{deviceID}/synthetic-variables.
func (h *VariablesHandler) List(w http.ResponseWriter, r *http.Request) {
	variables, err := h.variables.List(r.Context(), r.PathValue("deviceID"))
	if err != nil {
		h.logger.Error("failed to list synthetic variables", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list synthetic variables")
		return
	}
	writeJSON(w, http.StatusOK, variables)
}

type updateVariableRequest struct {
	Enabled *bool `json:"enabled"`
}

// Update handles PATCH /v1/synthetic-variables/{id}.
func (h *VariablesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateVariableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	if err := h.variables.SetEnabled(r.Context(), id, *req.Enabled); err != nil {
		if errors.Is(err, repository.ErrVariableNotFound) {
			writeError(w, http.StatusNotFound, "synthetic variable not found")
			return
		}
		h.logger.Error("failed to update synthetic variable", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update synthetic variable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Delete handles DELETE /v1/synthetic-variables/{id}.
func (h *VariablesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.variables.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrVariableNotFound) {
			writeError(w, http.StatusNotFound, "synthetic variable not found")
			return
		}
		h.logger.Error("failed to delete synthetic variable", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete synthetic variable")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
