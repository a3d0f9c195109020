package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"sensorvision/internal/expr"
	"sensorvision/internal/models"
	"sensorvision/internal/redisstore"
	"sensorvision/internal/repository"
)

// ErrMissingFields rejects definitions without a name or expression.
var ErrMissingFields = errors.New("variable: name and expression are required")

// CreateVariableInput is the payload for defining a synthetic variable.
type CreateVariableInput struct {
	DeviceID   string `json:"device_id"`
	Name       string `json:"name"`
	Unit       string `json:"unit"`
	Expression string `json:"expression"`
	Enabled    bool   `json:"enabled"`
}

// VariableService manages synthetic variable definitions and their
// calculated history.
type VariableService struct {
	variables *repository.SyntheticVariableRepository
	values    *repository.CalculatedValueRepository
	devices   *repository.DeviceRepository
	latest    *redisstore.LatestValueStore
	logger    *zap.Logger
}

// NewVariableService returns service instance.
func NewVariableService(
	variables *repository.SyntheticVariableRepository,
	values *repository.CalculatedValueRepository,
	devices *repository.DeviceRepository,
	latest *redisstore.LatestValueStore,
	logger *zap.Logger,
) *VariableService {
	return &VariableService{
		variables: variables,
		values:    values,
		devices:   devices,
		latest:    latest,
		logger:    logger,
	}
}

// Create validates and stores a definition. A syntactically invalid
// expression fails the save with a *expr.ParseError; nothing is persisted.
func (s *VariableService) Create(ctx context.Context, input CreateVariableInput) (*models.SyntheticVariable, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Expression = strings.TrimSpace(input.Expression)
	if input.Name == "" || input.Expression == "" {
		return nil, ErrMissingFields
	}

	if err := expr.Validate(input.Expression); err != nil {
		return nil, err
	}

	if _, err := s.devices.GetByExternalID(ctx, input.DeviceID); err != nil {
		return nil, err
	}

	variable := &models.SyntheticVariable{
		DeviceID:   input.DeviceID,
		Name:       input.Name,
		Unit:       input.Unit,
		Expression: input.Expression,
		Enabled:    input.Enabled,
	}
	if err := s.variables.Insert(ctx, variable); err != nil {
		return nil, err
	}
	return variable, nil
}

// List returns all definitions of a device.
func (s *VariableService) List(ctx context.Context, deviceID string) ([]models.SyntheticVariable, error) {
	return s.variables.FindByDevice(ctx, deviceID)
}

// SetEnabled flips the enabled flag of a definition.
func (s *VariableService) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	return s.variables.SetEnabled(ctx, id, enabled)
}

// Delete removes a definition. Calculated history stays; only the cached
// latest value is dropped.
func (s *VariableService) Delete(ctx context.Context, id int64) error {
	variable, err := s.variables.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.variables.Delete(ctx, id); err != nil {
		return err
	}
	if s.latest != nil {
		if err := s.latest.Delete(ctx, variable.DeviceID, variable.Name); err != nil {
			s.logger.Warn("failed to drop cached latest value",
				zap.String("variable", variable.Name),
				zap.Error(err),
			)
		}
	}
	return nil
}

// ListValues returns recent calculated values of a definition.
func (s *VariableService) ListValues(ctx context.Context, id int64, limit int) ([]models.CalculatedValue, error) {
	if _, err := s.variables.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.values.ListByVariable(ctx, id, limit)
}

// Latest returns the newest calculated value of a device scoped variable
// name, reading through the redis cache.
func (s *VariableService) Latest(ctx context.Context, deviceID, name string) (*redisstore.LatestValue, error) {
	if s.latest != nil {
		cached, err := s.latest.Get(ctx, deviceID, name)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, redisstore.ErrNotCached) {
			s.logger.Warn("latest value cache read failed", zap.Error(err))
		}
	}

	variable, err := s.variables.FindByDeviceAndName(ctx, deviceID, name)
	if err != nil {
		return nil, err
	}
	value, err := s.values.LatestByVariable(ctx, variable.ID)
	if err != nil {
		return nil, err
	}

	latest := &redisstore.LatestValue{
		SyntheticVariableID: variable.ID,
		DeviceID:            deviceID,
		Name:                variable.Name,
		Unit:                variable.Unit,
		Value:               value.Value,
		Timestamp:           value.Timestamp,
	}
	if s.latest != nil {
		if err := s.latest.Save(ctx, *latest); err != nil {
			s.logger.Warn("latest value cache write failed", zap.Error(err))
		}
	}
	return latest, nil
}
