package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sensorvision/internal/engine"
	"sensorvision/internal/metrics"
	"sensorvision/internal/models"
	"sensorvision/internal/redisstore"
	"sensorvision/internal/repository"
	"sensorvision/internal/ws"
)

// ErrEmptySample rejects ingest payloads without any values.
var ErrEmptySample = errors.New("telemetry: sample has no values")

// IngestInput represents one incoming telemetry reading.
type IngestInput struct {
	DeviceID  string                     `json:"device_id"`
	Timestamp time.Time                  `json:"timestamp"`
	Values    map[string]decimal.Decimal `json:"values"`
}

// TelemetryService persists samples and drives synthetic variable
// evaluation behind them.
type TelemetryService struct {
	telemetry *repository.TelemetryRepository
	variables *repository.SyntheticVariableRepository
	scheduler *engine.Scheduler
	latest    *redisstore.LatestValueStore
	hub       *ws.Hub
	logger    *zap.Logger
}

// NewTelemetryService returns service instance. latest and hub may be nil in
// tests; both are best-effort side channels.
func NewTelemetryService(
	telemetry *repository.TelemetryRepository,
	variables *repository.SyntheticVariableRepository,
	scheduler *engine.Scheduler,
	latest *redisstore.LatestValueStore,
	hub *ws.Hub,
	logger *zap.Logger,
) *TelemetryService {
	return &TelemetryService{
		telemetry: telemetry,
		variables: variables,
		scheduler: scheduler,
		latest:    latest,
		hub:       hub,
		logger:    logger,
	}
}

// Ingest stores the sample durably, then evaluates synthetic variables
// against it. Evaluation problems never fail the ingest; they only shrink
// the returned value list.
func (s *TelemetryService) Ingest(ctx context.Context, input IngestInput) ([]models.CalculatedValue, error) {
	if len(input.Values) == 0 {
		return nil, ErrEmptySample
	}
	if input.Timestamp.IsZero() {
		input.Timestamp = time.Now().UTC()
	}

	sample := models.TelemetrySample{
		DeviceID:  input.DeviceID,
		Timestamp: input.Timestamp.UTC(),
		Values:    input.Values,
	}

	if err := s.telemetry.InsertSample(ctx, &sample); err != nil {
		return nil, err
	}
	metrics.SamplesIngested.Inc()

	produced, err := s.scheduler.OnSampleIngested(ctx, sample)
	if err != nil {
		s.logger.Warn("synthetic variable pass skipped",
			zap.String("device_id", sample.DeviceID),
			zap.Error(err),
		)
		return nil, nil
	}

	if len(produced) > 0 {
		s.publish(ctx, sample.DeviceID, produced)
	}
	return produced, nil
}

// publish pushes fresh values to the latest-value cache and websocket
// subscribers. Both are best effort.
func (s *TelemetryService) publish(ctx context.Context, deviceID string, produced []models.CalculatedValue) {
	definitions, err := s.variables.FindEnabledForDevice(ctx, deviceID)
	if err != nil {
		s.logger.Warn("failed to resolve definitions for publish", zap.Error(err))
		return
	}
	byID := make(map[int64]models.SyntheticVariable, len(definitions))
	for _, d := range definitions {
		byID[d.ID] = d
	}

	for _, value := range produced {
		definition, ok := byID[value.SyntheticVariableID]
		if !ok {
			continue
		}
		update := redisstore.LatestValue{
			SyntheticVariableID: value.SyntheticVariableID,
			DeviceID:            deviceID,
			Name:                definition.Name,
			Unit:                definition.Unit,
			Value:               value.Value,
			Timestamp:           value.Timestamp,
		}
		if s.latest != nil {
			if err := s.latest.Save(ctx, update); err != nil {
				s.logger.Warn("failed to cache latest value",
					zap.String("variable", definition.Name),
					zap.Error(err),
				)
			}
		}
		if s.hub != nil {
			s.hub.Broadcast(deviceID, update)
		}
	}
}
